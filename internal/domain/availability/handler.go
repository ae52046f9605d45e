package availability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/pkg/timeofday"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors/:id/availability", h.SlotsForDate)
	api.GET("/doctors/:id/availability/range", h.SlotsForRange)
	api.GET("/doctors/:id/availability/next", h.NextAvailableSlot)
	api.GET("/doctors/:id/availability/check", h.CheckSlot)
}

func (h *Handler) SlotsForDate(c echo.Context) error {
	doctorID, date, err := pathDoctorAndDate(c, c.QueryParam("date"))
	if err != nil {
		return err
	}
	slots, err := h.engine.SlotsForDate(c.Request().Context(), doctorID, date)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": doctorID,
		"date":      date.Format("2006-01-02"),
		"slots":     slots,
	})
}

func (h *Handler) SlotsForRange(c echo.Context) error {
	doctorID, from, err := pathDoctorAndDate(c, c.QueryParam("from"))
	if err != nil {
		return err
	}
	to, err := time.Parse("2006-01-02", c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return echo.NewHTTPError(http.StatusBadRequest, "to must not be before from")
	}
	days, err := h.engine.SlotsForRange(c.Request().Context(), doctorID, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": doctorID,
		"days":      days,
	})
}

func (h *Handler) NextAvailableSlot(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	from := time.Now().Truncate(24 * time.Hour)
	if fromStr := c.QueryParam("from"); fromStr != "" {
		if from, err = time.Parse("2006-01-02", fromStr); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
		}
	}
	date, slot, err := h.engine.NextAvailableSlot(c.Request().Context(), doctorID, from)
	if errors.Is(err, ErrNoSlot) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": doctorID,
		"date":      date,
		"slot":      slot,
	})
}

func (h *Handler) CheckSlot(c echo.Context) error {
	doctorID, date, err := pathDoctorAndDate(c, c.QueryParam("date"))
	if err != nil {
		return err
	}
	start, perr := timeofday.Parse(c.QueryParam("time"))
	if perr != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "time must be HH:MM")
	}
	duration := 30
	if d := c.QueryParam("duration"); d != "" {
		n, serr := strconv.Atoi(d)
		if serr != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "duration must be a positive number of minutes")
		}
		duration = n
	}
	ok, err := h.engine.IsSlotAvailable(c.Request().Context(), doctorID, date, start)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id":  doctorID,
		"date":       date.Format("2006-01-02"),
		"start_time": start,
		"duration":   duration,
		"available":  ok,
	})
}

func pathDoctorAndDate(c echo.Context, dateStr string) (uuid.UUID, time.Time, error) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return uuid.Nil, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	return doctorID, date, nil
}
