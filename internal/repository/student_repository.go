package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evandijk/tutorbase-api/internal/models"
)

// StudentRepository manages persistence for student records. Every query is
// scoped by the owning user; a student belonging to someone else behaves
// exactly like a missing row.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns the user's students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, userID string, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students WHERE user_id = $1"
	args := []interface{}{userID}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, user_id, name, lesson_rate, age, created_at, updated_at
        %s ORDER BY name ASC LIMIT %d OFFSET %d`, base, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student owned by the given user.
func (r *StudentRepository) FindByID(ctx context.Context, id, userID string) (*models.Student, error) {
	const query = `SELECT id, user_id, name, lesson_rate, age, created_at, updated_at
        FROM students WHERE id = $1 AND user_id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, user_id, name, lesson_rate, age, created_at, updated_at)
        VALUES (:id, :user_id, :name, :lesson_rate, :age, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, lesson_rate = :lesson_rate, age = :age, updated_at = :updated_at
        WHERE id = :id AND user_id = :user_id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student owned by the given user. Classes cascade via the
// classes.student_id foreign key (ON DELETE CASCADE).
func (r *StudentRepository) Delete(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM students WHERE id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
