package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evandijk/tutorbase-api/internal/models"
)

// ClassRepository manages persistence for scheduled classes. All reads join
// the owning student so callers can resolve effective rates without a second
// round trip. Queries are scoped by the owning user.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classDetailColumns = `c.id, c.user_id, c.student_id, c.date, c.lesson_rate, c.created_at, c.updated_at,
        s.name AS student_name, s.lesson_rate AS student_rate`

// List returns the user's classes ordered ascending by date.
func (r *ClassRepository) List(ctx context.Context, userID string, filter models.ClassFilter) ([]models.ClassDetail, error) {
	base := `FROM classes c JOIN students s ON s.id = c.student_id WHERE c.user_id = $1`
	args := []interface{}{userID}

	if filter.StudentID != "" {
		base += fmt.Sprintf(" AND c.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.From != nil {
		base += fmt.Sprintf(" AND c.date >= $%d", len(args)+1)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		base += fmt.Sprintf(" AND c.date <= $%d", len(args)+1)
		args = append(args, *filter.To)
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY c.date ASC", classDetailColumns, base)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID fetches a class owned by the given user.
func (r *ClassRepository) FindByID(ctx context.Context, id, userID string) (*models.ClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes c JOIN students s ON s.id = c.student_id
        WHERE c.id = $1 AND c.user_id = $2`, classDetailColumns)
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, id, userID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, user_id, student_id, date, lesson_rate, created_at, updated_at)
        VALUES (:id, :user_id, :student_id, :date, :lesson_rate, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies an existing class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET student_id = :student_id, date = :date, lesson_rate = :lesson_rate, updated_at = :updated_at
        WHERE id = :id AND user_id = :user_id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class owned by the given user.
func (r *ClassRepository) Delete(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM classes WHERE id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}
