package models

import "time"

// Student represents a learner owned by a tutor. LessonRate is the default
// billing rate per class in whole currency units.
type Student struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Name       string    `db:"name" json:"name"`
	LessonRate int       `db:"lesson_rate" json:"lesson_rate"`
	Age        *int      `db:"age" json:"age,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Page     int
	PageSize int
}
