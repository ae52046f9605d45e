package schedule

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/pkg/timeofday"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors/:id/schedules", h.ListByDoctor)
	api.GET("/doctors/:id/schedule-overrides", h.ListOverrides)
	api.GET("/schedules/:id", h.Get)

	write := api.Group("", auth.RequireRole("doctor", "receptionist"))
	write.POST("/schedules", h.Create)
	write.PUT("/schedules/:id", h.Update)
	write.DELETE("/schedules/:id", h.Delete)
	write.POST("/schedule-overrides", h.CreateOverride)
	write.DELETE("/schedule-overrides/:id", h.DeleteOverride)
}

// createScheduleRequest distinguishes an absent buffer_minutes from an
// explicit 0: absent falls back to the clinic default, 0 means
// back-to-back slots.
type createScheduleRequest struct {
	DoctorID            uuid.UUID           `json:"doctor_id"`
	DayOfWeek           int                 `json:"day_of_week"`
	StartTime           timeofday.TimeOfDay `json:"start_time"`
	EndTime             timeofday.TimeOfDay `json:"end_time"`
	SlotDurationMinutes int                 `json:"slot_duration_minutes"`
	BufferMinutes       *int                `json:"buffer_minutes"`
	MaxPerSlot          int                 `json:"max_appointments_per_slot"`
	IsAvailable         *bool               `json:"is_available"`
	Location            *string             `json:"location"`
	Room                *string             `json:"room"`
	EffectiveFrom       *time.Time          `json:"effective_from"`
	EffectiveTo         *time.Time          `json:"effective_to"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sc := DoctorSchedule{
		DoctorID:               req.DoctorID,
		DayOfWeek:              req.DayOfWeek,
		StartTime:              req.StartTime,
		EndTime:                req.EndTime,
		SlotDurationMinutes:    req.SlotDurationMinutes,
		BufferMinutes:          defaultBuffer,
		MaxAppointmentsPerSlot: req.MaxPerSlot,
		IsAvailable:            true,
		Location:               req.Location,
		Room:                   req.Room,
		EffectiveFrom:          req.EffectiveFrom,
		EffectiveTo:            req.EffectiveTo,
	}
	if req.BufferMinutes != nil {
		sc.BufferMinutes = *req.BufferMinutes
	}
	if req.IsAvailable != nil {
		sc.IsAvailable = *req.IsAvailable
	}
	if err := h.svc.Create(c.Request().Context(), &sc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sc)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sc, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "schedule not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sc)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var sc DoctorSchedule
	if err := c.Bind(&sc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sc.ID = id
	if err := h.svc.Update(c.Request().Context(), &sc); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "schedule not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, sc)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "schedule not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	items, err := h.svc.ListByDoctor(c.Request().Context(), doctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateOverride(c echo.Context) error {
	var o ScheduleOverride
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateOverride(c.Request().Context(), &o); err != nil {
		if errors.Is(err, ErrOverrideExists) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) DeleteOverride(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteOverride(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrOverrideNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "schedule override not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListOverrides(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	from, to, err := parseDateRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.svc.ListOverrides(c.Request().Context(), doctorID, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.Truncate(24 * time.Hour)
	to := from.AddDate(0, 1, 0)
	var err error
	if fromStr != "" {
		if from, err = time.Parse("2006-01-02", fromStr); err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
		}
	}
	if toStr != "" {
		if to, err = time.Parse("2006-01-02", toStr); err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
		}
	}
	return from, to, nil
}
