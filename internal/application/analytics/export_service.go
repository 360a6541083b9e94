package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ObjectStorageService is the storage surface the export path needs. The
// S3-compatible implementation lives in infrastructure/storage.
type ObjectStorageService interface {
	// Upload stores data under the key
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error

	// GenerateDownloadURL generates a presigned URL for downloading an object
	// Returns the download URL and expiration time
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// ExportConfig holds configuration for the export service
type ExportConfig struct {
	// DownloadURLExpiry is the duration for which export download URLs are valid
	DownloadURLExpiry time.Duration
	// KeyPrefix is the object key prefix for uploaded exports
	KeyPrefix string
}

// DefaultExportConfig returns the default configuration
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		DownloadURLExpiry: 1 * time.Hour,
		KeyPrefix:         "usage-exports",
	}
}

// ExportResult describes one uploaded export
type ExportResult struct {
	StorageKey  string    `json:"storageKey"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Rows        int       `json:"rows"`
}

// ExportService renders usage summaries to CSV and stores them as objects,
// handing back a short-lived download link.
type ExportService struct {
	summaries *SummaryService
	storage   ObjectStorageService
	config    ExportConfig
	logger    *zap.Logger
}

// NewExportService creates a new ExportService
func NewExportService(summaries *SummaryService, storage ObjectStorageService, config ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DownloadURLExpiry <= 0 {
		config.DownloadURLExpiry = DefaultExportConfig().DownloadURLExpiry
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultExportConfig().KeyPrefix
	}
	return &ExportService{
		summaries: summaries,
		storage:   storage,
		config:    config,
		logger:    logger,
	}
}

// ExportSummary builds the summary for the query, renders it to CSV and
// uploads it. The object key embeds the range so repeated exports of the same
// window sort together.
func (s *ExportService) ExportSummary(ctx context.Context, query SummaryQuery, now time.Time) (*ExportResult, error) {
	summary, err := s.summaries.BuildSummary(ctx, query, now)
	if err != nil {
		return nil, err
	}

	data, rows, err := renderSummaryCSV(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}

	key := fmt.Sprintf("%s/usage-summary-%s-%s-%s.csv",
		s.config.KeyPrefix,
		summary.Start.Format("20060102"),
		summary.End.Format("20060102"),
		uuid.New().String()[:8],
	)

	if err := s.storage.Upload(ctx, key, data, "text/csv"); err != nil {
		s.logger.Error("Export upload failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}

	downloadURL, expiresAt, err := s.storage.GenerateDownloadURL(ctx, key, s.config.DownloadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign export download: %w", err)
	}

	s.logger.Info("Usage export uploaded",
		zap.String("key", key),
		zap.Int("rows", rows),
		zap.Time("expires_at", expiresAt))

	return &ExportResult{
		StorageKey:  key,
		DownloadURL: downloadURL,
		ExpiresAt:   expiresAt,
		Rows:        rows,
	}, nil
}

// renderSummaryCSV writes the summary as sectioned CSV: headline metrics, the
// daily series, then the categorical breakdowns. Sections are separated by a
// blank record; category rows are sorted for stable output.
func renderSummaryCSV(summary *UsageSummary) ([]byte, int, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := 0

	write := func(record ...string) {
		_ = w.Write(record)
		rows++
	}
	blank := func() {
		_ = w.Write([]string{""})
	}

	titler := cases.Title(language.English)

	write("Metric", "Value")
	write("Range Start", summary.Start.Format("2006-01-02"))
	write("Range End", summary.End.Format("2006-01-02"))
	write("Total Users", strconv.FormatInt(summary.TotalUsers, 10))
	write("Active Users", strconv.FormatInt(summary.ActiveUsers, 10))
	write("Total Events", strconv.FormatInt(summary.TotalEvents, 10))
	write("Import Credits", strconv.FormatInt(summary.TotalImportCredits, 10))
	write("AI Credits", strconv.FormatInt(summary.TotalAICredits, 10))
	write("Cost (USD)", strconv.FormatFloat(summary.TotalCostUSD, 'f', 4, 64))
	write("Legacy Fallback", strconv.FormatBool(summary.LegacyFallback))

	blank()
	write("Date", "Imports", "AI Credits")
	for _, day := range summary.DailySeries {
		write(day.Date, strconv.FormatInt(day.Imports, 10), strconv.FormatInt(day.AICredits, 10))
	}

	blank()
	write("Source", "Events")
	for _, source := range sortedKeys(summary.BySource) {
		write(titler.String(source), strconv.FormatInt(summary.BySource[source], 10))
	}

	// Model names are case-sensitive identifiers, so they keep their casing
	blank()
	write("Model", "Events", "AI Credits", "Cost (USD)")
	for _, model := range sortedModelKeys(summary.ModelBreakdown) {
		stats := summary.ModelBreakdown[model]
		write(model,
			strconv.FormatInt(stats.Events, 10),
			strconv.FormatInt(stats.AICredits, 10),
			strconv.FormatFloat(stats.CostUSD, 'f', 4, 64))
	}

	blank()
	write("Usage Context", "Events")
	for _, usageContext := range sortedKeys(summary.ByUsageContext) {
		write(usageContext, strconv.FormatInt(summary.ByUsageContext[usageContext], 10))
	}

	blank()
	write("Month", "Imports", "Translations", "Optimizations", "AI Messages")
	for _, month := range summary.MonthlyUsage {
		write(month.Month,
			strconv.FormatInt(month.Imports, 10),
			strconv.FormatInt(month.Translations, 10),
			strconv.FormatInt(month.Optimizations, 10),
			strconv.FormatInt(month.AIMessages, 10))
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), rows, nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedModelKeys(m map[string]ModelStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
