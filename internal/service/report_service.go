package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/evandijk/tutorbase-api/internal/models"
	"github.com/evandijk/tutorbase-api/pkg/config"
	appErrors "github.com/evandijk/tutorbase-api/pkg/errors"
	"github.com/evandijk/tutorbase-api/pkg/export"
)

// AggregateByMonth groups classes by their local wall-clock calendar month
// and sums effective rates per group. The grouping key is the zero-padded
// "YYYY-MM" string, so lexicographic descending order equals chronological
// descending order; groups come back most recent first. Intra-group class
// order follows input order, callers sort before display when it matters.
func AggregateByMonth(classes []models.ClassDetail) ([]models.MonthlyReport, error) {
	groups := make(map[string]*models.MonthlyReport)
	for _, class := range classes {
		key := fmt.Sprintf("%04d-%02d", class.Date.Year(), int(class.Date.Month()))

		group, ok := groups[key]
		if !ok {
			group = &models.MonthlyReport{
				Key:   key,
				Label: fmt.Sprintf("%s %d", class.Date.Month(), class.Date.Year()),
			}
			groups[key] = group
		}

		rate, err := EffectiveRate(class)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrMissingRate.Code, appErrors.ErrMissingRate.Status,
				fmt.Sprintf("class %s has no lesson rate", class.ID))
		}
		group.Classes = append(group.Classes, class)
		group.Total += rate
	}

	reports := make([]models.MonthlyReport, 0, len(groups))
	for _, group := range groups {
		reports = append(reports, *group)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Key > reports[j].Key })
	return reports, nil
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ReportService produces monthly income reports and their exports.
type ReportService struct {
	classes classLister
	cache   reportCache
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	cfg     config.ReportsConfig
	logger  *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(classes classLister, cache reportCache, cfg config.ReportsConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &ReportService{
		classes: classes,
		cache:   cache,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		cfg:     cfg,
		logger:  logger,
	}
}

func reportCacheKey(userID string) string {
	return "reports:monthly:" + userID
}

// Monthly returns the user's monthly income reports, most recent month
// first, with classes inside each month sorted ascending by date. Results
// are cached briefly; any class or student mutation invalidates the cache.
func (s *ReportService) Monthly(ctx context.Context, userID string) ([]models.MonthlyReport, error) {
	key := reportCacheKey(userID)

	var cached []models.MonthlyReport
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if appErrors.FromError(err).Code != appErrors.ErrCacheMiss.Code {
			s.logger.Warn("report cache read failed", zap.Error(err))
		}
	}

	classes, err := s.classes.List(ctx, userID, models.ClassFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}

	reports, err := AggregateByMonth(classes)
	if err != nil {
		return nil, err
	}
	for i := range reports {
		group := reports[i].Classes
		sort.SliceStable(group, func(a, b int) bool { return group[a].Date.Before(group[b].Date) })
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, reports, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.Error(err))
		}
	}
	return reports, nil
}

// InvalidateCache drops the user's cached reports after a mutation.
func (s *ReportService) InvalidateCache(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, reportCacheKey(userID)); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.Error(err))
	}
}

// ReportExport is a rendered report download.
type ReportExport struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportMonth renders one month's report as CSV or PDF.
func (s *ReportService) ExportMonth(ctx context.Context, userID, key, format string) (*ReportExport, error) {
	if !s.cfg.ExportEnabled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report export is disabled")
	}

	reports, err := s.Monthly(ctx, userID)
	if err != nil {
		return nil, err
	}

	var month *models.MonthlyReport
	for i := range reports {
		if reports[i].Key == key {
			month = &reports[i]
			break
		}
	}
	if month == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no report for that month")
	}

	dataset := export.Dataset{
		Title:   fmt.Sprintf("Income Report - %s", month.Label),
		Headers: []string{"Date", "Student", "Rate"},
		Footer:  map[string]string{"Date": "Total", "Rate": fmt.Sprintf("%d", month.Total)},
	}
	for _, class := range month.Classes {
		rate, err := EffectiveRate(class)
		if err != nil {
			return nil, err
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":    class.Date.Format("2006-01-02 15:04"),
			"Student": class.StudentName,
			"Rate":    fmt.Sprintf("%d", rate),
		})
	}

	switch format {
	case "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ReportExport{
			Filename:    fmt.Sprintf("income-%s.csv", month.Key),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ReportExport{
			Filename:    fmt.Sprintf("income-%s.pdf", month.Key),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
