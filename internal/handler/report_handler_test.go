package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evandijk/tutorbase-api/internal/models"
)

func TestReportsMonthly(t *testing.T) {
	f := newFixture()
	f.seedStudent("s1", "Emma", 100)
	f.seedClass("c1", "s1", time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local), nil)
	f.seedClass("c2", "s1", time.Date(2024, 1, 20, 10, 0, 0, 0, time.Local), intPtr(150))
	f.seedClass("c3", "s1", time.Date(2024, 2, 1, 10, 0, 0, 0, time.Local), nil)

	rec := f.do(http.MethodGet, "/reports/monthly", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env, err := decodeEnvelope(rec)
	require.NoError(t, err)
	var reports []models.MonthlyReport
	require.NoError(t, json.Unmarshal(env.Data, &reports))
	require.Len(t, reports, 2)

	assert.Equal(t, "2024-02", reports[0].Key)
	assert.Equal(t, 100, reports[0].Total)
	assert.Equal(t, "2024-01", reports[1].Key)
	assert.Equal(t, 250, reports[1].Total)
	require.Len(t, reports[1].Classes, 2)
	assert.Equal(t, "c1", reports[1].Classes[0].ID)
}

func TestReportsExportCSV(t *testing.T) {
	f := newFixture()
	f.seedStudent("s1", "Emma", 100)
	f.seedClass("c1", "s1", time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local), nil)

	rec := f.do(http.MethodGet, "/reports/monthly/2024-01/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "income-2024-01.csv")
	assert.Contains(t, rec.Body.String(), "Emma")
	assert.Contains(t, rec.Body.String(), "Total")
}

func TestReportsExportUnknownMonth(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/reports/monthly/1999-01/export", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
