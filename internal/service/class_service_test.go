package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evandijk/tutorbase-api/internal/models"
	appErrors "github.com/evandijk/tutorbase-api/pkg/errors"
)

type mockClassRepo struct {
	classes   map[string]*models.ClassDetail
	createErr error
	created   []*models.Class
	updated   []*models.Class
	deleted   []string
}

func newMockClassRepo() *mockClassRepo {
	return &mockClassRepo{classes: make(map[string]*models.ClassDetail)}
}

func (m *mockClassRepo) List(ctx context.Context, userID string, filter models.ClassFilter) ([]models.ClassDetail, error) {
	var out []models.ClassDetail
	for _, class := range m.classes {
		out = append(out, *class)
	}
	return out, nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id, userID string) (*models.ClassDetail, error) {
	class, ok := m.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if m.createErr != nil {
		return m.createErr
	}
	if class.ID == "" {
		class.ID = "generated"
	}
	m.created = append(m.created, class)
	m.classes[class.ID] = &models.ClassDetail{Class: *class, StudentName: "Emma", StudentRate: 100}
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	m.updated = append(m.updated, class)
	m.classes[class.ID] = &models.ClassDetail{Class: *class, StudentName: "Emma", StudentRate: 100}
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id, userID string) error {
	m.deleted = append(m.deleted, id)
	delete(m.classes, id)
	return nil
}

type mockStudentFinder struct {
	students map[string]*models.Student
}

func (m *mockStudentFinder) FindByID(ctx context.Context, id, userID string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func newClassFixture() (*ClassService, *mockClassRepo, *mockInvalidator) {
	repo := newMockClassRepo()
	students := &mockStudentFinder{students: map[string]*models.Student{
		"s1": {ID: "s1", UserID: "u1", Name: "Emma", LessonRate: 100},
	}}
	invalidator := &mockInvalidator{}
	return NewClassService(repo, students, invalidator, nil, nil), repo, invalidator
}

func TestParseLocalDateTime(t *testing.T) {
	got, err := ParseLocalDateTime("2024-03-05", "10:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 30, 0, 0, time.Local), got)
}

func TestParseLocalDateTimeRejectsMalformed(t *testing.T) {
	cases := []struct{ date, clock string }{
		{"2024/03/05", "10:30"},
		{"2024-03", "10:30"},
		{"2024-03-05", "1030"},
		{"2024-03-05", "10:30:00"},
		{"2024-xx-05", "10:30"},
		{"2024-13-05", "10:30"},
		{"2024-03-32", "10:30"},
		{"2024-03-05", "24:00"},
		{"2024-03-05", "10:60"},
	}
	for _, tc := range cases {
		_, err := ParseLocalDateTime(tc.date, tc.clock)
		assert.Error(t, err, "date=%s time=%s", tc.date, tc.clock)
	}
}

func TestClassCreateWithDefaultRate(t *testing.T) {
	svc, repo, invalidator := newClassFixture()

	detail, err := svc.Create(context.Background(), "u1", CreateClassRequest{
		StudentID: "s1",
		Date:      "2024-03-05",
		Time:      "10:00",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Nil(t, repo.created[0].LessonRate)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 0, 0, 0, time.Local), detail.Date)
	assert.Equal(t, []string{"u1"}, invalidator.userIDs)
}

func TestClassCreateWithRateOverride(t *testing.T) {
	svc, repo, _ := newClassFixture()

	_, err := svc.Create(context.Background(), "u1", CreateClassRequest{
		StudentID:  "s1",
		Date:       "2024-03-05",
		Time:       "10:00",
		LessonRate: "150",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	require.NotNil(t, repo.created[0].LessonRate)
	assert.Equal(t, 150, *repo.created[0].LessonRate)
}

func TestClassCreateRejectsBadRate(t *testing.T) {
	svc, _, _ := newClassFixture()

	for _, raw := range []string{"abc", "-5", "0"} {
		_, err := svc.Create(context.Background(), "u1", CreateClassRequest{
			StudentID:  "s1",
			Date:       "2024-03-05",
			Time:       "10:00",
			LessonRate: raw,
		})
		require.Error(t, err, "rate=%s", raw)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestClassCreateUnknownStudent(t *testing.T) {
	svc, repo, _ := newClassFixture()

	_, err := svc.Create(context.Background(), "u1", CreateClassRequest{
		StudentID: "ghost",
		Date:      "2024-03-05",
		Time:      "10:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestClassCreateAllowsDoubleBooking(t *testing.T) {
	svc, repo, _ := newClassFixture()

	req := CreateClassRequest{StudentID: "s1", Date: "2024-03-05", Time: "10:00"}
	_, err := svc.Create(context.Background(), "u1", req)
	require.NoError(t, err)

	// The list entry point performs no overlap check; an identical slot is
	// accepted again.
	repo.classes["other"] = &models.ClassDetail{
		Class:       models.Class{ID: "other", StudentID: "s1", Date: time.Date(2024, 3, 5, 10, 0, 0, 0, time.Local)},
		StudentName: "Emma", StudentRate: 100,
	}
	_, err = svc.Create(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Len(t, repo.created, 2)
}

func TestClassUpdateClearsOverride(t *testing.T) {
	svc, repo, _ := newClassFixture()

	created, err := svc.Create(context.Background(), "u1", CreateClassRequest{
		StudentID:  "s1",
		Date:       "2024-03-05",
		Time:       "10:00",
		LessonRate: "150",
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, "u1", UpdateClassRequest{
		StudentID: "s1",
		Date:      "2024-03-06",
		Time:      "11:00",
	})
	require.NoError(t, err)
	require.Len(t, repo.updated, 1)
	assert.Nil(t, repo.updated[0].LessonRate)
	assert.Equal(t, time.Date(2024, 3, 6, 11, 0, 0, 0, time.Local), updated.Date)
}

func TestClassUpdateNotFound(t *testing.T) {
	svc, _, _ := newClassFixture()
	_, err := svc.Update(context.Background(), "missing", "u1", UpdateClassRequest{
		StudentID: "s1",
		Date:      "2024-03-05",
		Time:      "10:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassDelete(t *testing.T) {
	svc, repo, invalidator := newClassFixture()

	created, err := svc.Create(context.Background(), "u1", CreateClassRequest{
		StudentID: "s1",
		Date:      "2024-03-05",
		Time:      "10:00",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID, "u1"))
	assert.Equal(t, []string{created.ID}, repo.deleted)
	// Create and delete each invalidate the report cache.
	assert.Len(t, invalidator.userIDs, 2)
}

func TestClassDeleteNotFound(t *testing.T) {
	svc, _, _ := newClassFixture()
	err := svc.Delete(context.Background(), "missing", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassCreateRepositoryFailure(t *testing.T) {
	svc, repo, invalidator := newClassFixture()
	repo.createErr = errors.New("db down")

	_, err := svc.Create(context.Background(), "u1", CreateClassRequest{
		StudentID: "s1",
		Date:      "2024-03-05",
		Time:      "10:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, invalidator.userIDs)
}
