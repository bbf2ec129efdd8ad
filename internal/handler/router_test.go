package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evandijk/tutorbase-api/internal/middleware"
	"github.com/evandijk/tutorbase-api/internal/models"
	"github.com/evandijk/tutorbase-api/internal/service"
	"github.com/evandijk/tutorbase-api/pkg/config"
	appErrors "github.com/evandijk/tutorbase-api/pkg/errors"
)

type memStore struct {
	entries map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrCacheMiss, "")
	}
	return json.Unmarshal(raw, dest)
}

func (m *memStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

type memStudentRepo struct {
	students map[string]*models.Student
}

func newMemStudentRepo() *memStudentRepo {
	return &memStudentRepo{students: make(map[string]*models.Student)}
}

func (m *memStudentRepo) List(ctx context.Context, userID string, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, student := range m.students {
		if student.UserID == userID {
			out = append(out, *student)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m *memStudentRepo) FindByID(ctx context.Context, id, userID string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok || student.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func (m *memStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	m.students[student.ID] = student
	return nil
}

func (m *memStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = student
	return nil
}

func (m *memStudentRepo) Delete(ctx context.Context, id, userID string) error {
	delete(m.students, id)
	return nil
}

// memClassRepo joins classes against the student map the way the SQL layer
// does, so effective-rate resolution behaves identically in handler tests.
type memClassRepo struct {
	students *memStudentRepo
	classes  map[string]*models.Class
}

func newMemClassRepo(students *memStudentRepo) *memClassRepo {
	return &memClassRepo{students: students, classes: make(map[string]*models.Class)}
}

func (m *memClassRepo) detail(class *models.Class) (models.ClassDetail, bool) {
	student, ok := m.students.students[class.StudentID]
	if !ok {
		return models.ClassDetail{}, false
	}
	return models.ClassDetail{Class: *class, StudentName: student.Name, StudentRate: student.LessonRate}, true
}

func (m *memClassRepo) List(ctx context.Context, userID string, filter models.ClassFilter) ([]models.ClassDetail, error) {
	var out []models.ClassDetail
	for _, class := range m.classes {
		if class.UserID != userID {
			continue
		}
		if filter.StudentID != "" && class.StudentID != filter.StudentID {
			continue
		}
		if filter.From != nil && class.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && class.Date.After(*filter.To) {
			continue
		}
		if detail, ok := m.detail(class); ok {
			out = append(out, detail)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memClassRepo) FindByID(ctx context.Context, id, userID string) (*models.ClassDetail, error) {
	class, ok := m.classes[id]
	if !ok || class.UserID != userID {
		return nil, sql.ErrNoRows
	}
	detail, ok := m.detail(class)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &detail, nil
}

func (m *memClassRepo) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	stored := *class
	m.classes[class.ID] = &stored
	return nil
}

func (m *memClassRepo) Update(ctx context.Context, class *models.Class) error {
	stored := *class
	m.classes[class.ID] = &stored
	return nil
}

func (m *memClassRepo) Delete(ctx context.Context, id, userID string) error {
	delete(m.classes, id)
	return nil
}

type fixture struct {
	router   *gin.Engine
	students *memStudentRepo
	classes  *memClassRepo
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)

	students := newMemStudentRepo()
	classes := newMemClassRepo(students)
	store := newMemStore()

	logger := zap.NewNop()
	reportSvc := service.NewReportService(classes, store, config.ReportsConfig{ExportEnabled: true}, logger)
	studentSvc := service.NewStudentService(students, reportSvc, nil, logger)
	classSvc := service.NewClassService(classes, students, reportSvc, nil, logger)
	calendarSvc := service.NewCalendarService(classes, logger)
	scheduleSvc := service.NewScheduleService(store, calendarSvc, classes, reportSvc, config.CalendarConfig{}, logger)

	studentHandler := NewStudentHandler(studentSvc)
	classHandler := NewClassHandler(classSvc)
	calendarHandler := NewCalendarHandler(calendarSvc, scheduleSvc)
	reportHandler := NewReportHandler(reportSvc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-Test-User"); userID != "" {
			c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID})
		}
		c.Next()
	})

	router.GET("/students", studentHandler.List)
	router.POST("/students", studentHandler.Create)
	router.GET("/students/:id", studentHandler.Get)
	router.PUT("/students/:id", studentHandler.Update)
	router.DELETE("/students/:id", studentHandler.Delete)

	router.GET("/classes", classHandler.List)
	router.POST("/classes", classHandler.Create)
	router.GET("/classes/:id", classHandler.Get)
	router.PUT("/classes/:id", classHandler.Update)
	router.DELETE("/classes/:id", classHandler.Delete)

	router.GET("/calendar/events", calendarHandler.Events)
	router.GET("/calendar/state", calendarHandler.State)
	router.PUT("/calendar/state", calendarHandler.UpdateState)
	router.POST("/calendar/navigate", calendarHandler.Navigate)
	router.POST("/calendar/today", calendarHandler.Today)
	router.POST("/calendar/slot", calendarHandler.SelectSlot)
	router.POST("/calendar/editor/close", calendarHandler.CloseEditor)
	router.POST("/calendar/delete/request", calendarHandler.RequestDelete)
	router.POST("/calendar/delete/confirm", calendarHandler.ConfirmDelete)
	router.POST("/calendar/delete/cancel", calendarHandler.CancelDelete)

	router.GET("/reports/monthly", reportHandler.Monthly)
	router.GET("/reports/monthly/:key/export", reportHandler.Export)

	return &fixture{router: router, students: students, classes: classes}
}

func (f *fixture) seedStudent(id, name string, rate int) {
	f.students.students[id] = &models.Student{ID: id, UserID: "u1", Name: name, LessonRate: rate}
}

func (f *fixture) seedClass(id, studentID string, date time.Time, override *int) {
	f.classes.classes[id] = &models.Class{ID: id, UserID: "u1", StudentID: studentID, Date: date, LessonRate: override}
}

func (f *fixture) do(method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("X-Test-User", "u1")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data       json.RawMessage  `json:"data"`
	Error      *appErrors.Error `json:"error"`
	Notices    []models.Notice  `json:"notices"`
	Pagination *struct {
		Page       int `json:"page"`
		PageSize   int `json:"page_size"`
		TotalCount int `json:"total_count"`
	} `json:"pagination"`
}

func decodeEnvelope(rec *httptest.ResponseRecorder) (envelope, error) {
	var env envelope
	err := json.Unmarshal(rec.Body.Bytes(), &env)
	return env, err
}
