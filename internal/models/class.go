package models

import "time"

// Class is a single lesson occurrence. Date is a local wall-clock timestamp;
// LessonRate, when set, overrides the student's default rate for this class
// only.
type Class struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Date       time.Time `db:"date" json:"date"`
	LessonRate *int      `db:"lesson_rate" json:"lesson_rate,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail joins a class with its owning student for display and billing.
type ClassDetail struct {
	Class
	StudentName string `db:"student_name" json:"student_name"`
	StudentRate int    `db:"student_rate" json:"student_rate"`
}

// ClassFilter defines criteria for listing classes.
type ClassFilter struct {
	StudentID string
	From      *time.Time
	To        *time.Time
}
