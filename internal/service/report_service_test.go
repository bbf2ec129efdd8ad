package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evandijk/tutorbase-api/internal/models"
	"github.com/evandijk/tutorbase-api/pkg/config"
	appErrors "github.com/evandijk/tutorbase-api/pkg/errors"
)

type mockReportCache struct {
	entries map[string][]byte
	getErr  error
	deleted []string
}

func newMockReportCache() *mockReportCache {
	return &mockReportCache{entries: make(map[string][]byte)}
}

func (m *mockReportCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrCacheMiss, "")
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockReportCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mockReportCache) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.entries, key)
	return nil
}

func TestAggregateByMonthTotalsAndOrder(t *testing.T) {
	classes := []models.ClassDetail{
		classAt("c1", "s1", "Emma", 100, nil, time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local)),
		classAt("c2", "s1", "Emma", 100, intPtr(150), time.Date(2024, 1, 20, 10, 0, 0, 0, time.Local)),
		classAt("c3", "s2", "Liam", 120, nil, time.Date(2024, 2, 1, 10, 0, 0, 0, time.Local)),
	}

	reports, err := AggregateByMonth(classes)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// Most recent month first.
	assert.Equal(t, "2024-02", reports[0].Key)
	assert.Equal(t, "February 2024", reports[0].Label)
	assert.Equal(t, 120, reports[0].Total)

	assert.Equal(t, "2024-01", reports[1].Key)
	assert.Equal(t, "January 2024", reports[1].Label)
	assert.Equal(t, 250, reports[1].Total)
	assert.Len(t, reports[1].Classes, 2)
}

func TestAggregateByMonthZeroPaddedKeys(t *testing.T) {
	classes := []models.ClassDetail{
		classAt("c1", "s1", "Emma", 100, nil, time.Date(2023, 12, 5, 10, 0, 0, 0, time.Local)),
		classAt("c2", "s1", "Emma", 100, nil, time.Date(2024, 9, 5, 10, 0, 0, 0, time.Local)),
		classAt("c3", "s1", "Emma", 100, nil, time.Date(2024, 11, 5, 10, 0, 0, 0, time.Local)),
	}

	reports, err := AggregateByMonth(classes)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	// Zero padding keeps lexicographic order chronological: without it
	// "2024-9" would sort after "2024-11".
	assert.Equal(t, "2024-11", reports[0].Key)
	assert.Equal(t, "2024-09", reports[1].Key)
	assert.Equal(t, "2023-12", reports[2].Key)
}

func TestAggregateByMonthMissingRate(t *testing.T) {
	classes := []models.ClassDetail{
		classAt("c1", "s1", "Emma", 0, nil, time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local)),
	}
	_, err := AggregateByMonth(classes)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingRate.Code, appErrors.FromError(err).Code)
}

func TestReportServiceMonthlySortsClassesAscending(t *testing.T) {
	lister := &mockClassLister{classes: []models.ClassDetail{
		classAt("c2", "s1", "Emma", 100, nil, time.Date(2024, 1, 20, 10, 0, 0, 0, time.Local)),
		classAt("c1", "s1", "Emma", 100, nil, time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local)),
	}}
	svc := NewReportService(lister, newMockReportCache(), config.ReportsConfig{}, nil)

	reports, err := svc.Monthly(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Len(t, reports[0].Classes, 2)
	assert.Equal(t, "c1", reports[0].Classes[0].ID)
	assert.Equal(t, "c2", reports[0].Classes[1].ID)
}

func TestReportServiceMonthlyUsesCache(t *testing.T) {
	cache := newMockReportCache()
	lister := &mockClassLister{classes: []models.ClassDetail{
		classAt("c1", "s1", "Emma", 100, nil, time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local)),
	}}
	svc := NewReportService(lister, cache, config.ReportsConfig{CacheTTL: time.Minute}, nil)

	first, err := svc.Monthly(context.Background(), "u1")
	require.NoError(t, err)

	// Second read must come from the cache, not the repository.
	lister.classes = nil
	second, err := svc.Monthly(context.Background(), "u1")
	require.NoError(t, err)

	// The cache round-trips through JSON, which does not preserve the
	// time.Location identity, so dates are compared with Equal instead of
	// deep struct equality.
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Key, second[i].Key)
		assert.Equal(t, first[i].Label, second[i].Label)
		assert.Equal(t, first[i].Total, second[i].Total)
		require.Len(t, second[i].Classes, len(first[i].Classes))
		for j := range first[i].Classes {
			assert.Equal(t, first[i].Classes[j].ID, second[i].Classes[j].ID)
			assert.True(t, first[i].Classes[j].Date.Equal(second[i].Classes[j].Date))
		}
	}
}

func TestReportServiceInvalidateCache(t *testing.T) {
	cache := newMockReportCache()
	svc := NewReportService(&mockClassLister{}, cache, config.ReportsConfig{}, nil)

	svc.InvalidateCache(context.Background(), "u1")
	assert.Contains(t, cache.deleted, "reports:monthly:u1")
}

func TestReportServiceExportCSV(t *testing.T) {
	lister := &mockClassLister{classes: []models.ClassDetail{
		classAt("c1", "s1", "Emma", 100, nil, time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local)),
		classAt("c2", "s1", "Emma", 100, intPtr(150), time.Date(2024, 1, 20, 10, 0, 0, 0, time.Local)),
	}}
	svc := NewReportService(lister, newMockReportCache(), config.ReportsConfig{ExportEnabled: true}, nil)

	export, err := svc.ExportMonth(context.Background(), "u1", "2024-01", "csv")
	require.NoError(t, err)
	assert.Equal(t, "income-2024-01.csv", export.Filename)
	assert.Equal(t, "text/csv", export.ContentType)

	body := string(export.Content)
	assert.True(t, strings.HasPrefix(body, "Date,Student,Rate"))
	assert.Contains(t, body, "Emma")
	assert.Contains(t, body, "Total")
	assert.Contains(t, body, "250")
}

func TestReportServiceExportUnknownMonth(t *testing.T) {
	svc := NewReportService(&mockClassLister{}, newMockReportCache(), config.ReportsConfig{ExportEnabled: true}, nil)
	_, err := svc.ExportMonth(context.Background(), "u1", "2024-01", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportServiceExportDisabled(t *testing.T) {
	svc := NewReportService(&mockClassLister{}, newMockReportCache(), config.ReportsConfig{}, nil)
	_, err := svc.ExportMonth(context.Background(), "u1", "2024-01", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportServiceExportBadFormat(t *testing.T) {
	lister := &mockClassLister{classes: []models.ClassDetail{
		classAt("c1", "s1", "Emma", 100, nil, time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local)),
	}}
	svc := NewReportService(lister, newMockReportCache(), config.ReportsConfig{ExportEnabled: true}, nil)
	_, err := svc.ExportMonth(context.Background(), "u1", "2024-01", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
