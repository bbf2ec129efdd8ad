package models

import "time"

// ViewType identifies the calendar layout in use.
type ViewType string

const (
	ViewDay   ViewType = "DAY"
	ViewWeek  ViewType = "WEEK"
	ViewMonth ViewType = "MONTH"
)

// Valid reports whether v is a known view type.
func (v ViewType) Valid() bool {
	switch v {
	case ViewDay, ViewWeek, ViewMonth:
		return true
	}
	return false
}

// StudentFilterAll is the sentinel that disables student filtering.
const StudentFilterAll = "all"

// WorkflowPhase is the single modal/submission state of the calendar
// workflow. Modeling it as one enum rules out invalid boolean combinations.
type WorkflowPhase string

const (
	PhaseIdle             WorkflowPhase = "IDLE"
	PhaseEditing          WorkflowPhase = "EDITING"
	PhaseSubmitting       WorkflowPhase = "SUBMITTING"
	PhaseConfirmingDelete WorkflowPhase = "CONFIRMING_DELETE"
)

// CalendarEvent is derived from a Class on every read; it is never persisted.
// End is always Start plus one hour, classes have no configurable duration.
type CalendarEvent struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Start         time.Time   `json:"start"`
	End           time.Time   `json:"end"`
	StudentID     string      `json:"student_id"`
	LessonRate    int         `json:"lesson_rate"`
	HasCustomRate bool        `json:"has_custom_rate"`
	Class         ClassDetail `json:"class"`
}

// CalendarState is the per-user interactive calendar state: current view,
// focus date, student filter and the transient modal workflow.
type CalendarState struct {
	ViewType        ViewType      `json:"view_type"`
	FocusDate       time.Time     `json:"focus_date"`
	StudentFilter   string        `json:"student_filter"`
	Phase           WorkflowPhase `json:"phase"`
	EditingClassID  string        `json:"editing_class_id,omitempty"`
	PendingSlot     *time.Time    `json:"pending_slot,omitempty"`
	PendingDeleteID string        `json:"pending_delete_id,omitempty"`
}

// DefaultCalendarState returns the state used before a user has interacted
// with the calendar: week view around now, all students, nothing in flight.
func DefaultCalendarState(now time.Time) CalendarState {
	return CalendarState{
		ViewType:      ViewWeek,
		FocusDate:     now,
		StudentFilter: StudentFilterAll,
		Phase:         PhaseIdle,
	}
}

// SlotAction tells the client which flow a slot selection resolved to.
type SlotAction string

const (
	SlotActionEditExisting SlotAction = "EDIT_EXISTING"
	SlotActionCreateNew    SlotAction = "CREATE_NEW"
)

// SlotDispatch is the outcome of selecting a calendar slot. For
// EDIT_EXISTING the overlapping event is attached; for CREATE_NEW the slot
// start is echoed back and no default student is preselected.
type SlotDispatch struct {
	Action    SlotAction     `json:"action"`
	Event     *CalendarEvent `json:"event,omitempty"`
	SlotStart time.Time      `json:"slot_start"`
}
