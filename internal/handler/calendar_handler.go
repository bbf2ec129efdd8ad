package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evandijk/tutorbase-api/internal/models"
	"github.com/evandijk/tutorbase-api/internal/service"
	appErrors "github.com/evandijk/tutorbase-api/pkg/errors"
	"github.com/evandijk/tutorbase-api/pkg/response"
)

// CalendarHandler exposes calendar events and interactive calendar state.
type CalendarHandler struct {
	calendar *service.CalendarService
	schedule *service.ScheduleService
}

// NewCalendarHandler constructs CalendarHandler.
func NewCalendarHandler(calendar *service.CalendarService, schedule *service.ScheduleService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, schedule: schedule}
}

// Events godoc
// @Summary Calendar events for a view window
// @Tags Calendar
// @Produce json
// @Param view query string false "DAY, WEEK or MONTH"
// @Param date query string false "Focus date (RFC3339)"
// @Param student query string false "Student filter or 'all'"
// @Success 200 {object} response.Envelope
// @Router /calendar/events [get]
func (h *CalendarHandler) Events(c *gin.Context) {
	userID := currentUserID(c)

	state, err := h.schedule.State(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	view := state.ViewType
	if raw := c.Query("view"); raw != "" {
		view = models.ViewType(raw)
	}
	date := state.FocusDate
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be RFC3339"))
			return
		}
		date = parsed
	}
	filter := state.StudentFilter
	if raw := c.Query("student"); raw != "" {
		filter = raw
	}

	events, err := h.calendar.Events(c.Request.Context(), userID, filter, view, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// State godoc
// @Summary Current calendar state
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/state [get]
func (h *CalendarHandler) State(c *gin.Context) {
	state, err := h.schedule.State(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

type updateStateRequest struct {
	View          string `json:"view"`
	StudentFilter string `json:"student_filter"`
	FocusDate     string `json:"focus_date"`
}

// UpdateState godoc
// @Summary Switch view or student filter
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body updateStateRequest true "State changes"
// @Success 200 {object} response.Envelope
// @Router /calendar/state [put]
func (h *CalendarHandler) UpdateState(c *gin.Context) {
	var req updateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	userID := currentUserID(c)

	state, err := h.schedule.State(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if req.View != "" {
		if state, err = h.schedule.SetView(c.Request.Context(), userID, models.ViewType(req.View)); err != nil {
			response.Error(c, err)
			return
		}
	}
	if req.StudentFilter != "" {
		if state, err = h.schedule.SetStudentFilter(c.Request.Context(), userID, req.StudentFilter); err != nil {
			response.Error(c, err)
			return
		}
	}
	if req.FocusDate != "" {
		date, parseErr := time.Parse(time.RFC3339, req.FocusDate)
		if parseErr != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "focus_date must be RFC3339"))
			return
		}
		if state, err = h.schedule.SetFocusDate(c.Request.Context(), userID, date); err != nil {
			response.Error(c, err)
			return
		}
	}
	response.JSON(c, http.StatusOK, state, nil)
}

type navigateRequest struct {
	Direction string `json:"direction" binding:"required"`
}

// Navigate godoc
// @Summary Step the focus date by the current view's unit
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body navigateRequest true "previous or next"
// @Success 200 {object} response.Envelope
// @Router /calendar/navigate [post]
func (h *CalendarHandler) Navigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	state, err := h.schedule.Navigate(c.Request.Context(), currentUserID(c), service.NavigationDirection(req.Direction))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Today godoc
// @Summary Reset focus date to now
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/today [post]
func (h *CalendarHandler) Today(c *gin.Context) {
	state, err := h.schedule.GoToToday(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

type selectSlotRequest struct {
	Start string `json:"start" binding:"required"`
}

type slotSelectionResponse struct {
	Dispatch *models.SlotDispatch `json:"dispatch"`
	State    models.CalendarState `json:"state"`
}

// SelectSlot godoc
// @Summary Dispatch a calendar slot selection
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body selectSlotRequest true "Slot start (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /calendar/slot [post]
func (h *CalendarHandler) SelectSlot(c *gin.Context) {
	var req selectSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "start must be RFC3339"))
		return
	}

	dispatch, state, err := h.schedule.SelectSlot(c.Request.Context(), currentUserID(c), start)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slotSelectionResponse{Dispatch: dispatch, State: state}, nil)
}

// CloseEditor godoc
// @Summary Close the class editor without saving
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/editor/close [post]
func (h *CalendarHandler) CloseEditor(c *gin.Context) {
	state, err := h.schedule.CloseEditor(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

type requestDeleteRequest struct {
	ClassID string `json:"class_id" binding:"required"`
}

// RequestDelete godoc
// @Summary Arm the delete confirmation for a class
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body requestDeleteRequest true "Target class"
// @Success 200 {object} response.Envelope
// @Router /calendar/delete/request [post]
func (h *CalendarHandler) RequestDelete(c *gin.Context) {
	var req requestDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	state, err := h.schedule.RequestDelete(c.Request.Context(), currentUserID(c), req.ClassID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// ConfirmDelete godoc
// @Summary Confirm the pending deletion
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/delete/confirm [post]
func (h *CalendarHandler) ConfirmDelete(c *gin.Context) {
	state, notices, err := h.schedule.ConfirmDelete(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSONWithNotices(c, http.StatusOK, state, notices)
}

// CancelDelete godoc
// @Summary Cancel the pending deletion
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/delete/cancel [post]
func (h *CalendarHandler) CancelDelete(c *gin.Context) {
	state, err := h.schedule.CancelDelete(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}
