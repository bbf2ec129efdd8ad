package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evandijk/tutorbase-api/internal/models"
	appErrors "github.com/evandijk/tutorbase-api/pkg/errors"
)

type mockClassLister struct {
	classes    []models.ClassDetail
	err        error
	lastFilter models.ClassFilter
}

func (m *mockClassLister) List(ctx context.Context, userID string, filter models.ClassFilter) ([]models.ClassDetail, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.classes, nil
}

func classAt(id, studentID, studentName string, studentRate int, override *int, date time.Time) models.ClassDetail {
	return models.ClassDetail{
		Class: models.Class{
			ID:         id,
			StudentID:  studentID,
			Date:       date,
			LessonRate: override,
		},
		StudentName: studentName,
		StudentRate: studentRate,
	}
}

func TestFormatEventsAllStudents(t *testing.T) {
	start := time.Date(2024, 3, 5, 10, 0, 0, 0, time.Local)
	classes := []models.ClassDetail{
		classAt("c1", "s1", "Emma", 100, nil, start),
		classAt("c2", "s2", "Liam", 120, nil, start.Add(2*time.Hour)),
	}

	events, err := FormatEvents(classes, models.StudentFilterAll)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Emma", events[0].Title)
	assert.Equal(t, start, events[0].Start)
	assert.Equal(t, start.Add(time.Hour), events[0].End)
	assert.Equal(t, 100, events[0].LessonRate)
	assert.False(t, events[0].HasCustomRate)
}

func TestFormatEventsStudentFilter(t *testing.T) {
	start := time.Date(2024, 3, 5, 10, 0, 0, 0, time.Local)
	classes := []models.ClassDetail{
		classAt("c1", "s1", "Emma", 100, nil, start),
		classAt("c2", "s2", "Liam", 120, nil, start),
	}

	events, err := FormatEvents(classes, "s2")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "c2", events[0].ID)
}

func TestFormatEventsCustomRateMarker(t *testing.T) {
	start := time.Date(2024, 3, 5, 10, 0, 0, 0, time.Local)
	classes := []models.ClassDetail{
		classAt("c1", "s1", "Emma", 100, intPtr(150), start),
		classAt("c2", "s1", "Emma", 100, intPtr(100), start.Add(2*time.Hour)),
		classAt("c3", "s1", "Emma", 100, nil, start.Add(4*time.Hour)),
	}

	events, err := FormatEvents(classes, models.StudentFilterAll)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "Emma ($)", events[0].Title)
	assert.True(t, events[0].HasCustomRate)

	// Override equal to the current default carries no marker.
	assert.Equal(t, "Emma", events[1].Title)
	assert.False(t, events[1].HasCustomRate)

	assert.Equal(t, "Emma", events[2].Title)
	assert.False(t, events[2].HasCustomRate)
}

func TestFormatEventsMissingRate(t *testing.T) {
	classes := []models.ClassDetail{
		classAt("c1", "s1", "Emma", 0, nil, time.Date(2024, 3, 5, 10, 0, 0, 0, time.Local)),
	}
	_, err := FormatEvents(classes, models.StudentFilterAll)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingRate.Code, appErrors.FromError(err).Code)
}

func TestFindOverlapBoundaries(t *testing.T) {
	start := time.Date(2024, 3, 5, 10, 0, 0, 0, time.Local)
	events := []models.CalendarEvent{{ID: "e1", Start: start, End: start.Add(time.Hour)}}

	tests := []struct {
		name      string
		candidate time.Time
		hit       bool
	}{
		{"exact start", start, true},
		{"mid slot", start.Add(30 * time.Minute), true},
		{"last minute", start.Add(59 * time.Minute), true},
		{"exact end", start.Add(time.Hour), false},
		{"minute before", start.Add(-time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit := FindOverlap(events, tt.candidate)
			if tt.hit {
				require.NotNil(t, hit)
				assert.Equal(t, "e1", hit.ID)
			} else {
				assert.Nil(t, hit)
			}
		})
	}
}

func TestFindOverlapReturnsFirstMatch(t *testing.T) {
	start := time.Date(2024, 3, 5, 10, 0, 0, 0, time.Local)
	events := []models.CalendarEvent{
		{ID: "e1", Start: start, End: start.Add(time.Hour)},
		{ID: "e2", Start: start.Add(30 * time.Minute), End: start.Add(90 * time.Minute)},
	}
	hit := FindOverlap(events, start.Add(45*time.Minute))
	require.NotNil(t, hit)
	assert.Equal(t, "e1", hit.ID)
}

func TestDateRangeForViewWeekStartsMonday(t *testing.T) {
	// 2024-03-07 is a Thursday.
	from, to := DateRangeForView(time.Date(2024, 3, 7, 15, 30, 0, 0, time.Local), models.ViewWeek)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.Local), from)
	assert.Equal(t, time.Monday, from.Weekday())
	assert.True(t, to.Before(time.Date(2024, 3, 11, 0, 0, 0, 0, time.Local)))
}

func TestDateRangeForViewMonth(t *testing.T) {
	from, to := DateRangeForView(time.Date(2024, 2, 15, 12, 0, 0, 0, time.Local), models.ViewMonth)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local), from)
	// Leap year February runs through the 29th.
	assert.Equal(t, 29, to.Day())
}

func TestCalendarServiceEventsInvalidView(t *testing.T) {
	svc := NewCalendarService(&mockClassLister{}, nil)
	_, err := svc.Events(context.Background(), "u1", "all", models.ViewType("YEAR"), time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceEventsPassesRange(t *testing.T) {
	lister := &mockClassLister{}
	svc := NewCalendarService(lister, nil)

	_, err := svc.Events(context.Background(), "u1", "", models.ViewDay, time.Date(2024, 3, 5, 14, 0, 0, 0, time.Local))
	require.NoError(t, err)
	require.NotNil(t, lister.lastFilter.From)
	require.NotNil(t, lister.lastFilter.To)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local), *lister.lastFilter.From)
	assert.Equal(t, 5, lister.lastFilter.To.Day())
}

func TestCalendarServiceEventsListFailure(t *testing.T) {
	svc := NewCalendarService(&mockClassLister{err: errors.New("boom")}, nil)
	_, err := svc.Events(context.Background(), "u1", "all", models.ViewWeek, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
