package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evandijk/tutorbase-api/internal/models"
	appErrors "github.com/evandijk/tutorbase-api/pkg/errors"
)

// classDuration is the fixed length of every class. Classes carry no
// duration field; the calendar always renders one-hour blocks.
const classDuration = time.Hour

// FormatEvents maps persisted classes into calendar events. The "all"
// sentinel passes every class through; any other filter keeps only classes
// of that student. Input order is preserved; the function is pure.
func FormatEvents(classes []models.ClassDetail, studentFilter string) ([]models.CalendarEvent, error) {
	events := make([]models.CalendarEvent, 0, len(classes))
	for _, class := range classes {
		if studentFilter != models.StudentFilterAll && class.StudentID != studentFilter {
			continue
		}

		rate, err := EffectiveRate(class)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrMissingRate.Code, appErrors.ErrMissingRate.Status,
				fmt.Sprintf("class %s has no lesson rate", class.ID))
		}

		// A custom rate is an override differing from the student's
		// current default. Changing a student's default retroactively
		// changes which historical classes carry the marker; that
		// matches the product's observed behavior.
		hasCustomRate := class.LessonRate != nil && *class.LessonRate != 0 && *class.LessonRate != class.StudentRate

		title := class.StudentName
		if hasCustomRate {
			title = fmt.Sprintf("%s ($)", class.StudentName)
		}

		events = append(events, models.CalendarEvent{
			ID:            class.ID,
			Title:         title,
			Start:         class.Date,
			End:           class.Date.Add(classDuration),
			StudentID:     class.StudentID,
			LessonRate:    rate,
			HasCustomRate: hasCustomRate,
			Class:         class,
		})
	}
	return events, nil
}

// FindOverlap returns the first event whose half-open interval [start, end)
// contains the candidate instant, or nil when the slot is free. It backs the
// calendar's slot-selection dispatch only; other creation entry points do
// not consult it and double bookings remain possible through them.
func FindOverlap(events []models.CalendarEvent, candidateStart time.Time) *models.CalendarEvent {
	for i := range events {
		if !events[i].Start.After(candidateStart) && candidateStart.Before(events[i].End) {
			return &events[i]
		}
	}
	return nil
}

// DateRangeForView returns the inclusive date range covered by a calendar
// view centered on the given date: the day itself, the Monday-start week
// containing it, or its calendar month.
func DateRangeForView(date time.Time, view models.ViewType) (time.Time, time.Time) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	switch view {
	case models.ViewDay:
		return day, day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	case models.ViewWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	case models.ViewMonth:
		start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
		return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	default:
		return day, day
	}
}

type classLister interface {
	List(ctx context.Context, userID string, filter models.ClassFilter) ([]models.ClassDetail, error)
}

// CalendarService derives calendar events from the class set.
type CalendarService struct {
	classes classLister
	logger  *zap.Logger
}

// NewCalendarService constructs the service.
func NewCalendarService(classes classLister, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{classes: classes, logger: logger}
}

// Events returns the user's formatted events for the view window around
// date. Student filtering happens during formatting, not in SQL, so the
// filter semantics stay identical to FormatEvents.
func (s *CalendarService) Events(ctx context.Context, userID string, studentFilter string, view models.ViewType, date time.Time) ([]models.CalendarEvent, error) {
	if !view.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown view type")
	}
	if studentFilter == "" {
		studentFilter = models.StudentFilterAll
	}

	from, to := DateRangeForView(date, view)
	classes, err := s.classes.List(ctx, userID, models.ClassFilter{From: &from, To: &to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}

	return FormatEvents(classes, studentFilter)
}

// AllEvents returns every event of the user, honoring only the student
// filter. Used by the slot-selection dispatch, which must consider classes
// outside the visible window as well.
func (s *CalendarService) AllEvents(ctx context.Context, userID string, studentFilter string) ([]models.CalendarEvent, error) {
	if studentFilter == "" {
		studentFilter = models.StudentFilterAll
	}
	classes, err := s.classes.List(ctx, userID, models.ClassFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return FormatEvents(classes, studentFilter)
}
