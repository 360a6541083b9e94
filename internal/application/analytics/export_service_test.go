package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/usage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockObjectStorage is a mock implementation of ObjectStorageService
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	args := m.Called(ctx, storageKey, data, contentType)
	return args.Error(0)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type exportFixture struct {
	*summaryFixture
	storage *MockObjectStorage
	service *ExportService
}

func newExportFixture(config ExportConfig) *exportFixture {
	f := &exportFixture{
		summaryFixture: newSummaryFixture(),
		storage:        &MockObjectStorage{},
	}
	f.service = NewExportService(f.summaryFixture.service, f.storage, config, zap.NewNop())
	return f
}

func (f *exportFixture) stubSummaryData(events []usage.UsageEvent) {
	f.stubProfileCounts(5, map[usage.Plan]int64{usage.PlanBase: 5})
	f.eventRepo.On("FindInRange", mock.Anything, mock.Anything).Return(events, nil)
	f.stubNoCounters()
	f.stubNoRollups()
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	return records
}

func findRecord(records [][]string, first string) []string {
	for _, record := range records {
		if len(record) > 0 && record[0] == first {
			return record
		}
	}
	return nil
}

// TestExportService_ExportSummary tests the full render-upload-presign flow
func TestExportService_ExportSummary(t *testing.T) {
	f := newExportFixture(ExportConfig{DownloadURLExpiry: 2 * time.Hour, KeyPrefix: "usage-exports"})
	owner := uuid.New()

	events := []usage.UsageEvent{
		*rangedEvent(t, owner, usage.EventTypeImport, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)).
			WithSource("tiktok").
			WithCredits(1, 0),
		*rangedEvent(t, owner, usage.EventTypeAIMessage, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)).
			WithModel("gpt-4o-mini").
			WithCredits(0, 2).
			WithCost(decimal.NewFromFloat(0.05)).
			WithUsageContext("assistant"),
	}
	f.stubSummaryData(events)

	var uploadedKey string
	var uploadedData []byte
	expiresAt := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	f.storage.On("Upload", mock.Anything, mock.AnythingOfType("string"), mock.Anything, "text/csv").
		Run(func(args mock.Arguments) {
			uploadedKey = args.String(1)
			uploadedData = args.Get(2).([]byte)
		}).
		Return(nil)
	f.storage.On("GenerateDownloadURL", mock.Anything, mock.AnythingOfType("string"), 2*time.Hour).
		Return("https://storage.example.com/signed", expiresAt, nil)

	query := SummaryQuery{Start: "2024-03-01", End: "2024-03-02"}
	result, err := f.service.ExportSummary(context.Background(), query, summaryNow)

	require.NoError(t, err)
	assert.Equal(t, uploadedKey, result.StorageKey)
	assert.True(t, strings.HasPrefix(uploadedKey, "usage-exports/usage-summary-20240301-20240302-"), uploadedKey)
	assert.True(t, strings.HasSuffix(uploadedKey, ".csv"), uploadedKey)
	assert.Equal(t, "https://storage.example.com/signed", result.DownloadURL)
	assert.Equal(t, expiresAt, result.ExpiresAt)
	assert.Positive(t, result.Rows)

	records := parseCSV(t, uploadedData)
	assert.Equal(t, []string{"Total Events", "2"}, findRecord(records, "Total Events"))
	assert.Equal(t, []string{"Import Credits", "1"}, findRecord(records, "Import Credits"))
	assert.Equal(t, []string{"AI Credits", "2"}, findRecord(records, "AI Credits"))
	assert.Equal(t, []string{"2024-03-01", "1", "0"}, findRecord(records, "2024-03-01"))
	assert.Equal(t, []string{"2024-03-02", "0", "2"}, findRecord(records, "2024-03-02"))

	// Source labels are title-cased for display, model names keep their casing
	assert.Equal(t, []string{"Tiktok", "1"}, findRecord(records, "Tiktok"))
	assert.Nil(t, findRecord(records, "tiktok"))
	assert.Equal(t, []string{"gpt-4o-mini", "1", "2", "0.0500"}, findRecord(records, "gpt-4o-mini"))
	assert.Equal(t, []string{"assistant", "1"}, findRecord(records, "assistant"))
}

// TestExportService_ExportSummary_DefaultConfig tests that zero config values
// fall back to the defaults
func TestExportService_ExportSummary_DefaultConfig(t *testing.T) {
	f := newExportFixture(ExportConfig{})
	f.stubSummaryData([]usage.UsageEvent{})

	f.storage.On("Upload", mock.Anything, mock.AnythingOfType("string"), mock.Anything, "text/csv").Return(nil)
	f.storage.On("GenerateDownloadURL", mock.Anything, mock.AnythingOfType("string"), 1*time.Hour).
		Return("https://storage.example.com/signed", time.Now(), nil)

	query := SummaryQuery{Start: "2024-03-01", End: "2024-03-02"}
	result, err := f.service.ExportSummary(context.Background(), query, summaryNow)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.StorageKey, "usage-exports/"), result.StorageKey)
	f.storage.AssertExpectations(t)
}

// TestExportService_ExportSummary_UploadFailure tests that a failed upload
// aborts before presigning
func TestExportService_ExportSummary_UploadFailure(t *testing.T) {
	f := newExportFixture(ExportConfig{})
	f.stubSummaryData([]usage.UsageEvent{})

	f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError)

	query := SummaryQuery{Start: "2024-03-01", End: "2024-03-02"}
	result, err := f.service.ExportSummary(context.Background(), query, summaryNow)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "failed to upload export")
	f.storage.AssertNotCalled(t, "GenerateDownloadURL", mock.Anything, mock.Anything, mock.Anything)
}

// TestExportService_ExportSummary_PresignFailure tests presign error propagation
func TestExportService_ExportSummary_PresignFailure(t *testing.T) {
	f := newExportFixture(ExportConfig{})
	f.stubSummaryData([]usage.UsageEvent{})

	f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.storage.On("GenerateDownloadURL", mock.Anything, mock.Anything, mock.Anything).
		Return("", time.Time{}, assert.AnError)

	query := SummaryQuery{Start: "2024-03-01", End: "2024-03-02"}
	result, err := f.service.ExportSummary(context.Background(), query, summaryNow)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "failed to presign export download")
}

// TestExportService_ExportSummary_SummaryError tests that a rejected query
// never reaches storage
func TestExportService_ExportSummary_SummaryError(t *testing.T) {
	f := newExportFixture(ExportConfig{})

	result, err := f.service.ExportSummary(context.Background(), SummaryQuery{Start: "garbage"}, summaryNow)

	require.Error(t, err)
	assert.Nil(t, result)
	var invalidDate *InvalidDateError
	require.ErrorAs(t, err, &invalidDate)
	f.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
