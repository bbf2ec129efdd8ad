package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/evandijk/tutorbase-api/internal/models"
	appErrors "github.com/evandijk/tutorbase-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, userID string, filter models.ClassFilter) ([]models.ClassDetail, error)
	FindByID(ctx context.Context, id, userID string) (*models.ClassDetail, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id, userID string) error
}

type studentFinder interface {
	FindByID(ctx context.Context, id, userID string) (*models.Student, error)
}

// CreateClassRequest carries the raw form input for scheduling a class. The
// presentation layer sends strings; parsing and validation happen here
// before anything reaches persistence. This entry point performs no overlap
// check, double bookings are possible through it.
type CreateClassRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	Date       string `json:"date" validate:"required"`
	Time       string `json:"time" validate:"required"`
	LessonRate string `json:"lesson_rate"`
}

// UpdateClassRequest carries the raw form input for rescheduling a class.
type UpdateClassRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	Date       string `json:"date" validate:"required"`
	Time       string `json:"time" validate:"required"`
	LessonRate string `json:"lesson_rate"`
}

// ClassService handles class scheduling use-cases.
type ClassService struct {
	repo      classRepository
	students  studentFinder
	reports   reportInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(repo classRepository, students studentFinder, reports reportInvalidator, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, students: students, reports: reports, validator: validate, logger: logger}
}

// ParseLocalDateTime splits "YYYY-MM-DD" and "HH:MM" strings into numeric
// components and constructs a local wall-clock time. No timezone is attached
// beyond the process's local zone; the system schedules in naive local time.
func ParseLocalDateTime(dateStr, timeStr string) (time.Time, error) {
	dateParts := strings.Split(dateStr, "-")
	if len(dateParts) != 3 {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	timeParts := strings.Split(timeStr, ":")
	if len(timeParts) != 2 {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "time must be HH:MM")
	}

	numbers := make([]int, 0, 5)
	for _, part := range append(dateParts, timeParts...) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date and time must be numeric")
		}
		numbers = append(numbers, n)
	}

	year, month, day, hour, minute := numbers[0], numbers[1], numbers[2], numbers[3], numbers[4]
	if month < 1 || month > 12 || day < 1 || day > 31 || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date or time out of range")
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.Local), nil
}

// parseRateOverride turns the optional raw lesson-rate field into a nullable
// override. Empty means "use the student's default".
func parseRateOverride(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	rate, err := strconv.Atoi(raw)
	if err != nil || rate <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson_rate must be a positive integer")
	}
	return &rate, nil
}

// List returns the user's classes, ascending by date.
func (s *ClassService) List(ctx context.Context, userID string, filter models.ClassFilter) ([]models.ClassDetail, error) {
	classes, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get returns one of the user's classes.
func (s *ClassService) Get(ctx context.Context, id, userID string) (*models.ClassDetail, error) {
	class, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create schedules a class for one of the user's students.
func (s *ClassService) Create(ctx context.Context, userID string, req CreateClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	date, err := ParseLocalDateTime(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	override, err := parseRateOverride(req.LessonRate)
	if err != nil {
		return nil, err
	}
	if _, err := s.students.FindByID(ctx, req.StudentID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	class := &models.Class{
		UserID:     userID,
		StudentID:  req.StudentID,
		Date:       date,
		LessonRate: override,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.reports.InvalidateCache(ctx, userID)

	// Re-read to return the authoritative joined row.
	return s.Get(ctx, class.ID, userID)
}

// Update reschedules or re-rates a class.
func (s *ClassService) Update(ctx context.Context, id, userID string, req UpdateClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	date, err := ParseLocalDateTime(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	override, err := parseRateOverride(req.LessonRate)
	if err != nil {
		return nil, err
	}

	detail, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	class := detail.Class
	class.StudentID = req.StudentID
	class.Date = date
	class.LessonRate = override
	if err := s.repo.Update(ctx, &class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	s.reports.InvalidateCache(ctx, userID)

	return s.Get(ctx, class.ID, userID)
}

// Delete removes a class directly (list entry point; the calendar flow goes
// through the two-step confirmation in ScheduleService instead).
func (s *ClassService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.repo.FindByID(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.reports.InvalidateCache(ctx, userID)
	return nil
}
