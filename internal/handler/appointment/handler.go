package appointment

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medcore/clinic-api/internal/handler"
	"github.com/medcore/clinic-api/internal/middleware"
	"github.com/medcore/clinic-api/internal/model"
	"github.com/medcore/clinic-api/internal/service/appointment"
	apperrors "github.com/medcore/clinic-api/pkg/errors"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("/my", h.ListMyAppointments)
		appointments.GET("/schedule", h.GetMySchedule)
		appointments.POST("/check-availability", h.CheckAvailability)
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
		appointments.PATCH("/:id/cancel", h.CancelAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.service.CreateAppointment(c.Request.Context(), &req, middleware.UserID(c))
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, &handler.Response{
		Status:  "success",
		Message: "appointment created successfully",
		Data:    apt,
	})
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.AbortWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	apt, err := h.service.GetAppointment(c.Request.Context(), id)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filters, ok := parseFilters(c)
	if !ok {
		return
	}

	appointments, total, err := h.service.ListAppointments(c.Request.Context(), filters)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, &handler.Response{
		Status:     "success",
		Data:       appointments,
		Pagination: paginationFor(filters, total),
	})
}

// ListMyAppointments lists appointments for the patient linked to the
// authenticated user.
func (h *Handler) ListMyAppointments(c *gin.Context) {
	filters, ok := parseFilters(c)
	if !ok {
		return
	}
	filters.Upcoming = c.Query("upcoming") == "true"

	appointments, total, err := h.service.ListPatientAppointments(c.Request.Context(), middleware.UserID(c), filters)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, &handler.Response{
		Status:     "success",
		Data:       appointments,
		Pagination: paginationFor(filters, total),
	})
}

// GetMySchedule lists the authenticated doctor's appointments, optionally
// narrowed to a calendar day.
func (h *Handler) GetMySchedule(c *gin.Context) {
	filters, ok := parseFilters(c)
	if !ok {
		return
	}
	doctorID := middleware.UserID(c)
	filters.DoctorID = &doctorID
	filters.SortBy = "start_at"

	appointments, total, err := h.service.ListAppointments(c.Request.Context(), filters)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, &handler.Response{
		Status:     "success",
		Data:       appointments,
		Pagination: paginationFor(filters, total),
	})
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.AbortWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.service.UpdateAppointment(c.Request.Context(), id, &req, middleware.UserID(c))
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, &handler.Response{
		Status:  "success",
		Message: "appointment updated successfully",
		Data:    apt,
	})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.AbortWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	var req struct {
		Status model.AppointmentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status, middleware.UserID(c))
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, &handler.Response{
		Status:  "success",
		Message: "appointment status updated successfully",
		Data:    apt,
	})
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.AbortWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.service.CancelAppointment(c.Request.Context(), id, req.Reason, middleware.UserID(c))
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, &handler.Response{
		Status:  "success",
		Message: "appointment cancelled successfully",
		Data:    apt,
	})
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.AbortWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	if err := h.service.DeleteAppointment(c.Request.Context(), id); err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, &handler.Response{
		Status:  "success",
		Message: "appointment deleted successfully",
	})
}

func (h *Handler) CheckAvailability(c *gin.Context) {
	var req model.CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	available, err := h.service.CheckAvailability(c.Request.Context(), &req)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	message := "time slot is available"
	if !available {
		message = "time slot is not available"
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"available": available,
		"message":   message,
	}))
}

func parseFilters(c *gin.Context) (*model.AppointmentFilters, bool) {
	filters := &model.AppointmentFilters{
		SortBy:    c.DefaultQuery("sort_by", "scheduled_date"),
		SortOrder: c.DefaultQuery("sort_order", "asc"),
	}

	if id := c.Query("doctor_id"); id != "" {
		doctorID, err := uuid.Parse(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
			return nil, false
		}
		filters.DoctorID = &doctorID
	}
	if id := c.Query("patient_id"); id != "" {
		patientID, err := uuid.Parse(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
			return nil, false
		}
		filters.PatientID = &patientID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}
	if aptType := c.Query("type"); aptType != "" {
		filters.Type = model.AppointmentType(aptType)
	}
	if date, ok := parseDateQuery(c, "date"); !ok {
		return nil, false
	} else if date != nil {
		filters.Date = date
	}
	if date, ok := parseDateQuery(c, "start_date"); !ok {
		return nil, false
	} else if date != nil {
		filters.StartDate = date
	}
	if date, ok := parseDateQuery(c, "end_date"); !ok {
		return nil, false
	} else if date != nil {
		filters.EndDate = date
	}

	filters.Page = intQuery(c, "page", 1)
	filters.Limit = intQuery(c, "limit", 10)
	return filters, true
}

func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	date, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid "+name+" format"))
		return nil, false
	}
	return &date, true
}

func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func paginationFor(filters *model.AppointmentFilters, total int) *model.Pagination {
	limit := filters.Limit
	if limit < 1 {
		limit = 10
	}
	page := filters.Page
	if page < 1 {
		page = 1
	}
	pages := (total + limit - 1) / limit
	return &model.Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}
