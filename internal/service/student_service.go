package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/evandijk/tutorbase-api/internal/models"
	appErrors "github.com/evandijk/tutorbase-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, userID string, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id, userID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id, userID string) error
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	Name       string `json:"name" validate:"required"`
	LessonRate int    `json:"lesson_rate" validate:"required,gt=0"`
	Age        *int   `json:"age" validate:"omitempty,gt=0"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	Name       string `json:"name" validate:"required"`
	LessonRate int    `json:"lesson_rate" validate:"required,gt=0"`
	Age        *int   `json:"age" validate:"omitempty,gt=0"`
}

// StudentService handles student use-cases scoped to the owning tutor.
type StudentService struct {
	repo      studentRepository
	reports   reportInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, reports reportInvalidator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, reports: reports, validator: validate, logger: logger}
}

// List returns the user's students and pagination metadata.
func (s *StudentService) List(ctx context.Context, userID string, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns one of the user's students.
func (s *StudentService) Get(ctx context.Context, id, userID string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student for the user.
func (s *StudentService) Create(ctx context.Context, userID string, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		UserID:     userID,
		Name:       req.Name,
		LessonRate: req.LessonRate,
		Age:        req.Age,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.reports.InvalidateCache(ctx, userID)
	return student, nil
}

// Update modifies an existing student. A changed default rate immediately
// changes the effective rate of every class without an override.
func (s *StudentService) Update(ctx context.Context, id, userID string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	student.Name = req.Name
	student.LessonRate = req.LessonRate
	student.Age = req.Age
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.reports.InvalidateCache(ctx, userID)
	return student, nil
}

// Delete removes a student and, via the cascade, all of their classes.
func (s *StudentService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.repo.FindByID(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.reports.InvalidateCache(ctx, userID)
	return nil
}
