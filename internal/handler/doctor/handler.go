package doctor

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/medcore/clinic-api/internal/handler"
	"github.com/medcore/clinic-api/internal/model"
	"github.com/medcore/clinic-api/internal/repository"
	"github.com/medcore/clinic-api/internal/service/appointment"
	apperrors "github.com/medcore/clinic-api/pkg/errors"
)

type Handler struct {
	users        repository.UserRepository
	appointments *appointment.Service
	availability *cache.Cache
}

// NewHandler creates the doctor handler. Availability responses are cached
// for cacheTTL so repeated slot-picker polls don't hammer the database; the
// booking path never reads this cache.
func NewHandler(users repository.UserRepository, appointments *appointment.Service, cacheTTL time.Duration) *Handler {
	return &Handler{
		users:        users,
		appointments: appointments,
		availability: cache.New(cacheTTL, 2*cacheTTL),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.GET("", h.ListDoctors)
		doctors.GET("/:id", h.GetDoctor)
		doctors.GET("/:id/availability", h.GetAvailability)
		doctors.GET("/:id/appointments", h.ListDoctorAppointments)
	}
}

func (h *Handler) ListDoctors(c *gin.Context) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 20)

	doctors, total, err := h.users.ListDoctors(c.Request.Context(), c.Query("specialization"), page, limit)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, &handler.Response{
		Status: "success",
		Data:   doctors,
		Pagination: &model.Pagination{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: (total + limit - 1) / limit,
		},
	})
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.AbortWithError(c, apperrors.BadRequest("invalid doctor ID", err))
		return
	}

	doctor, err := h.users.GetDoctor(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = appointment.ErrDoctorNotFound
		}
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(doctor))
}

func (h *Handler) GetAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.AbortWithError(c, apperrors.BadRequest("invalid doctor ID", err))
		return
	}

	dateStr := c.Query("date")
	if dateStr == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("date query parameter is required"))
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date format, expected YYYY-MM-DD"))
		return
	}

	key := fmt.Sprintf("availability:%s:%s", id, dateStr)
	if cached, found := h.availability.Get(key); found {
		c.JSON(http.StatusOK, handler.NewSuccessResponse(cached))
		return
	}

	availability, err := h.appointments.GetDoctorAvailability(c.Request.Context(), id, date)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	h.availability.SetDefault(key, availability)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(availability))
}

func (h *Handler) ListDoctorAppointments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.AbortWithError(c, apperrors.BadRequest("invalid doctor ID", err))
		return
	}

	filters := &model.AppointmentFilters{
		DoctorID:  &id,
		SortBy:    "start_at",
		SortOrder: "asc",
		Page:      intQuery(c, "page", 1),
		Limit:     intQuery(c, "limit", 20),
	}
	if dateStr := c.Query("date"); dateStr != "" {
		date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date format, expected YYYY-MM-DD"))
			return
		}
		filters.Date = &date
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}

	appointments, total, err := h.appointments.ListAppointments(c.Request.Context(), filters)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, &handler.Response{
		Status: "success",
		Data:   appointments,
		Pagination: &model.Pagination{
			Total: total,
			Page:  filters.Page,
			Limit: filters.Limit,
			Pages: (total + filters.Limit - 1) / filters.Limit,
		},
	})
}

func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}
