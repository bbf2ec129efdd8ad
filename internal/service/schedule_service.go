package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/evandijk/tutorbase-api/internal/models"
	"github.com/evandijk/tutorbase-api/pkg/config"
	appErrors "github.com/evandijk/tutorbase-api/pkg/errors"
)

// NavigationDirection steps the calendar focus date.
type NavigationDirection string

const (
	NavigatePrevious NavigationDirection = "previous"
	NavigateNext     NavigationDirection = "next"
)

type stateStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type classRemover interface {
	FindByID(ctx context.Context, id, userID string) (*models.ClassDetail, error)
	Delete(ctx context.Context, id, userID string) error
}

type reportInvalidator interface {
	InvalidateCache(ctx context.Context, userID string)
}

// ScheduleService owns the interactive calendar state: view type, focus
// date, student filter, slot-selection dispatch and the two-step delete
// confirmation. State lives in Redis keyed by user so it survives page
// reloads.
type ScheduleService struct {
	state    stateStore
	events   *CalendarService
	classes  classRemover
	reports  reportInvalidator
	stateTTL time.Duration
	dayStart int
	dayEnd   int
	now      func() time.Time
	logger   *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(state stateStore, events *CalendarService, classes classRemover, reports reportInvalidator, cfg config.CalendarConfig, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	dayStart, dayEnd := cfg.DayStartHour, cfg.DayEndHour
	if dayEnd <= dayStart {
		dayStart, dayEnd = 0, 24
	}
	return &ScheduleService{
		state:    state,
		events:   events,
		classes:  classes,
		reports:  reports,
		stateTTL: ttl,
		dayStart: dayStart,
		dayEnd:   dayEnd,
		now:      time.Now,
		logger:   logger,
	}
}

func calendarStateKey(userID string) string {
	return "calendar:state:" + userID
}

// State returns the user's calendar state, falling back to the default week
// view when none has been stored yet.
func (s *ScheduleService) State(ctx context.Context, userID string) (models.CalendarState, error) {
	var state models.CalendarState
	err := s.state.Get(ctx, calendarStateKey(userID), &state)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrCacheMiss.Code {
			return models.DefaultCalendarState(s.now()), nil
		}
		return models.CalendarState{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar state")
	}
	if !state.ViewType.Valid() {
		state.ViewType = models.ViewWeek
	}
	if state.StudentFilter == "" {
		state.StudentFilter = models.StudentFilterAll
	}
	if state.Phase == "" {
		state.Phase = models.PhaseIdle
	}
	return state, nil
}

func (s *ScheduleService) save(ctx context.Context, userID string, state models.CalendarState) (models.CalendarState, error) {
	if err := s.state.Set(ctx, calendarStateKey(userID), state, s.stateTTL); err != nil {
		return models.CalendarState{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store calendar state")
	}
	return state, nil
}

// SetView switches the calendar layout. All transitions are legal.
func (s *ScheduleService) SetView(ctx context.Context, userID string, view models.ViewType) (models.CalendarState, error) {
	if !view.Valid() {
		return models.CalendarState{}, appErrors.Clone(appErrors.ErrValidation, "view must be DAY, WEEK or MONTH")
	}
	state, err := s.State(ctx, userID)
	if err != nil {
		return models.CalendarState{}, err
	}
	state.ViewType = view
	return s.save(ctx, userID, state)
}

// SetStudentFilter changes the selected-student filter ("all" or an id).
func (s *ScheduleService) SetStudentFilter(ctx context.Context, userID, filter string) (models.CalendarState, error) {
	if filter == "" {
		filter = models.StudentFilterAll
	}
	state, err := s.State(ctx, userID)
	if err != nil {
		return models.CalendarState{}, err
	}
	state.StudentFilter = filter
	return s.save(ctx, userID, state)
}

// SetFocusDate jumps the calendar to an arbitrary date.
func (s *ScheduleService) SetFocusDate(ctx context.Context, userID string, date time.Time) (models.CalendarState, error) {
	state, err := s.State(ctx, userID)
	if err != nil {
		return models.CalendarState{}, err
	}
	state.FocusDate = date
	return s.save(ctx, userID, state)
}

// Navigate steps the focus date by one day, seven days or one calendar
// month depending on the current view. Month steps use calendar arithmetic:
// day-of-month overflow normalizes forward the way time.AddDate does, it is
// never clamped.
func (s *ScheduleService) Navigate(ctx context.Context, userID string, direction NavigationDirection) (models.CalendarState, error) {
	var sign int
	switch direction {
	case NavigatePrevious:
		sign = -1
	case NavigateNext:
		sign = 1
	default:
		return models.CalendarState{}, appErrors.Clone(appErrors.ErrValidation, "direction must be previous or next")
	}

	state, err := s.State(ctx, userID)
	if err != nil {
		return models.CalendarState{}, err
	}
	state.FocusDate = StepFocusDate(state.FocusDate, state.ViewType, sign)
	return s.save(ctx, userID, state)
}

// StepFocusDate advances date by sign steps of the view's unit.
func StepFocusDate(date time.Time, view models.ViewType, sign int) time.Time {
	switch view {
	case models.ViewDay:
		return date.AddDate(0, 0, sign)
	case models.ViewWeek:
		return date.AddDate(0, 0, 7*sign)
	case models.ViewMonth:
		return date.AddDate(0, sign, 0)
	default:
		return date
	}
}

// GoToToday resets the focus date to the current instant regardless of view.
func (s *ScheduleService) GoToToday(ctx context.Context, userID string) (models.CalendarState, error) {
	state, err := s.State(ctx, userID)
	if err != nil {
		return models.CalendarState{}, err
	}
	state.FocusDate = s.now()
	return s.save(ctx, userID, state)
}

// SelectSlot decides what a calendar slot selection means: when the chosen
// start instant falls inside an existing event the edit flow opens for that
// class, otherwise the create flow opens pre-filled with the slot start and
// deliberately no default student.
func (s *ScheduleService) SelectSlot(ctx context.Context, userID string, start time.Time) (*models.SlotDispatch, models.CalendarState, error) {
	// The calendar grid only renders hours inside the configured day
	// bounds; a slot outside them cannot come from a legitimate client.
	if start.Hour() < s.dayStart || start.Hour() >= s.dayEnd {
		return nil, models.CalendarState{}, appErrors.Clone(appErrors.ErrValidation, "slot is outside calendar hours")
	}

	state, err := s.State(ctx, userID)
	if err != nil {
		return nil, models.CalendarState{}, err
	}

	events, err := s.events.AllEvents(ctx, userID, state.StudentFilter)
	if err != nil {
		return nil, models.CalendarState{}, err
	}

	dispatch := &models.SlotDispatch{SlotStart: start}
	if existing := FindOverlap(events, start); existing != nil {
		dispatch.Action = models.SlotActionEditExisting
		dispatch.Event = existing
		state.EditingClassID = existing.ID
		state.PendingSlot = nil
	} else {
		dispatch.Action = models.SlotActionCreateNew
		state.EditingClassID = ""
		state.PendingSlot = &start
	}
	state.Phase = models.PhaseEditing

	saved, err := s.save(ctx, userID, state)
	if err != nil {
		return nil, models.CalendarState{}, err
	}
	return dispatch, saved, nil
}

// CloseEditor returns the workflow to idle, dropping any pending slot or
// class under edit. An in-flight request is not cancelled by this.
func (s *ScheduleService) CloseEditor(ctx context.Context, userID string) (models.CalendarState, error) {
	state, err := s.State(ctx, userID)
	if err != nil {
		return models.CalendarState{}, err
	}
	state.Phase = models.PhaseIdle
	state.EditingClassID = ""
	state.PendingSlot = nil
	return s.save(ctx, userID, state)
}

// RequestDelete arms the delete confirmation for a class. Deletion through
// the calendar is impossible without passing through this phase.
func (s *ScheduleService) RequestDelete(ctx context.Context, userID, classID string) (models.CalendarState, error) {
	if classID == "" {
		return models.CalendarState{}, appErrors.Clone(appErrors.ErrValidation, "class_id is required")
	}
	if _, err := s.classes.FindByID(ctx, classID, userID); err != nil {
		return models.CalendarState{}, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	state, err := s.State(ctx, userID)
	if err != nil {
		return models.CalendarState{}, err
	}
	state.Phase = models.PhaseConfirmingDelete
	state.PendingDeleteID = classID
	return s.save(ctx, userID, state)
}

// ConfirmDelete performs the armed deletion and clears the confirmation.
func (s *ScheduleService) ConfirmDelete(ctx context.Context, userID string) (models.CalendarState, []models.Notice, error) {
	state, err := s.State(ctx, userID)
	if err != nil {
		return models.CalendarState{}, nil, err
	}
	if state.Phase != models.PhaseConfirmingDelete || state.PendingDeleteID == "" {
		return models.CalendarState{}, nil, appErrors.Clone(appErrors.ErrConflict, "no deletion pending confirmation")
	}

	state.Phase = models.PhaseSubmitting
	if state, err = s.save(ctx, userID, state); err != nil {
		return models.CalendarState{}, nil, err
	}

	target := state.PendingDeleteID
	if err := s.classes.Delete(ctx, target, userID); err != nil {
		state.Phase = models.PhaseIdle
		state.PendingDeleteID = ""
		if _, saveErr := s.save(ctx, userID, state); saveErr != nil {
			s.logger.Warn("failed to reset calendar state after delete error", zap.Error(saveErr))
		}
		notices := []models.Notice{models.ErrorNotice("Failed to delete class")}
		return state, notices, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}

	s.reports.InvalidateCache(ctx, userID)

	state.Phase = models.PhaseIdle
	state.PendingDeleteID = ""
	state.EditingClassID = ""
	saved, err := s.save(ctx, userID, state)
	if err != nil {
		return models.CalendarState{}, nil, err
	}
	notices := []models.Notice{models.SuccessNotice("Class successfully deleted!")}
	s.logger.Info("class deleted via calendar", zap.String("class_id", target), zap.String("user_id", userID))
	return saved, notices, nil
}

// CancelDelete clears a pending confirmation without deleting anything.
func (s *ScheduleService) CancelDelete(ctx context.Context, userID string) (models.CalendarState, error) {
	state, err := s.State(ctx, userID)
	if err != nil {
		return models.CalendarState{}, err
	}
	state.Phase = models.PhaseIdle
	state.PendingDeleteID = ""
	return s.save(ctx, userID, state)
}
