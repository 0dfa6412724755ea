package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"studybuddy-matcher/internal/metrics"
	"studybuddy-matcher/internal/models"
	s3service "studybuddy-matcher/internal/services/s3"
	"studybuddy-matcher/internal/utils"
)

// maxReportedErrors caps the row errors echoed back to the caller.
const maxReportedErrors = 10

// ProfileWriter stores imported profiles.
type ProfileWriter interface {
	BulkUpsert(ctx context.Context, profiles []*models.Profile) (*models.BulkInsertResult, error)
}

// CacheInvalidator drops cached rankings after the pool changes.
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context) (int, error)
}

// ObjectStore reads and archives uploaded files.
type ObjectStore interface {
	DownloadFile(ctx context.Context, bucket, key string) ([]byte, error)
	MoveFile(ctx context.Context, bucket, sourceKey, destKey string) error
}

// ProfileImportResult is the result of importing a CSV file.
type ProfileImportResult struct {
	Message  string   `json:"message"`
	BatchID  string   `json:"batch_id"`
	Source   string   `json:"source,omitempty"`
	Rows     int      `json:"rows"`
	Inserted int      `json:"inserted"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// ProfileImporter parses profile CSVs and stores the valid rows.
type ProfileImporter struct {
	profiles ProfileWriter
	cache    CacheInvalidator
}

// NewProfileImporter creates an importer. cache may be nil.
func NewProfileImporter(profiles ProfileWriter, cache CacheInvalidator) *ProfileImporter {
	return &ProfileImporter{profiles: profiles, cache: cache}
}

// Import parses content and upserts every valid profile under a fresh batch id.
func (i *ProfileImporter) Import(ctx context.Context, content []byte, source string) (*ProfileImportResult, error) {
	logger := utils.ComponentLogger("profile-import")
	batchID := uuid.New().String()

	structure := utils.ValidateCSVStructure(string(content))
	if len(structure.MissingColumns) > 0 {
		return nil, fmt.Errorf("invalid CSV: %w: %s", utils.ErrMissingColumns, strings.Join(structure.MissingColumns, ", "))
	}

	profiles, parseErrors := utils.NewCSVParser().ParseProfiles(string(content), batchID)

	result := &ProfileImportResult{
		BatchID: batchID,
		Source:  source,
		Rows:    structure.RowCount,
		Failed:  len(parseErrors),
	}

	if len(profiles) == 0 {
		if len(parseErrors) > 0 && isStructuralError(parseErrors[0]) {
			return nil, fmt.Errorf("invalid CSV: %w", parseErrors[0])
		}
		result.Message = "No valid profiles found in CSV"
		result.Errors = limitErrors(errorStrings(parseErrors))
		if len(parseErrors) > 0 && errors.Is(parseErrors[0], utils.ErrNoDataRows) {
			result.Failed--
		}
		metrics.ProfilesImported.WithLabelValues("failed").Add(float64(result.Failed))
		return result, nil
	}

	logger.Info("Parsed profile CSV",
		utils.String("batchID", batchID),
		utils.String("source", source),
		utils.Int("validProfiles", len(profiles)),
		utils.Int("parseErrors", len(parseErrors)))

	inserted, err := i.profiles.BulkUpsert(ctx, profiles)
	if err != nil {
		logger.Error("Failed to store profiles", utils.Error(err))
		return nil, fmt.Errorf("failed to store profiles: %w", err)
	}

	result.Message = "CSV processed successfully"
	result.Inserted = inserted.InsertedCount
	result.Failed += inserted.FailedCount
	result.Errors = limitErrors(append(errorStrings(parseErrors), inserted.Errors...))

	metrics.ProfilesImported.WithLabelValues("inserted").Add(float64(result.Inserted))
	metrics.ProfilesImported.WithLabelValues("failed").Add(float64(result.Failed))

	if result.Inserted > 0 && i.cache != nil {
		removed, err := i.cache.InvalidateAll(ctx)
		if err != nil {
			logger.Warn("Failed to invalidate partner cache", utils.Error(err))
		} else {
			logger.Info("Invalidated partner cache", utils.Int("keys", removed))
		}
	}

	logger.Info("Imported profiles",
		utils.String("batchID", batchID),
		utils.Int("inserted", result.Inserted),
		utils.Int("failed", result.Failed))

	return result, nil
}

// ProfileImportHandler handles S3 events for uploaded profile CSVs.
type ProfileImportHandler struct {
	objects  ObjectStore
	importer *ProfileImporter
}

// NewProfileImportHandler creates a new profile import handler.
func NewProfileImportHandler(objects ObjectStore, importer *ProfileImporter) *ProfileImportHandler {
	return &ProfileImportHandler{objects: objects, importer: importer}
}

// Handle imports every CSV object named in the event and archives it.
func (h *ProfileImportHandler) Handle(ctx context.Context, s3Event events.S3Event) ([]ProfileImportResult, error) {
	logger := utils.ComponentLogger("profile-import")
	results := make([]ProfileImportResult, 0, len(s3Event.Records))

	for _, record := range s3Event.Records {
		bucket := record.S3.Bucket.Name
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return results, fmt.Errorf("failed to decode S3 key: %w", err)
		}

		if !strings.HasSuffix(strings.ToLower(key), ".csv") {
			logger.Info("Skipping non-CSV object", utils.String("key", key))
			continue
		}

		logger.Info("Processing profile CSV",
			utils.String("bucket", bucket),
			utils.String("key", key))

		content, err := h.objects.DownloadFile(ctx, bucket, key)
		if err != nil {
			return results, fmt.Errorf("failed to download CSV: %w", err)
		}

		result, err := h.importer.Import(ctx, content, key)
		if err != nil {
			return results, err
		}

		if err := h.objects.MoveFile(ctx, bucket, key, s3service.ArchiveKey(key)); err != nil {
			logger.Warn("Failed to archive file", utils.String("key", key), utils.Error(err))
		}

		results = append(results, *result)
	}

	return results, nil
}

func isStructuralError(err error) bool {
	return errors.Is(err, utils.ErrEmptyCSV) ||
		errors.Is(err, utils.ErrMissingColumns) ||
		errors.Is(err, utils.ErrInvalidHeader)
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}

func limitErrors(errs []string) []string {
	if len(errs) > maxReportedErrors {
		return errs[:maxReportedErrors]
	}
	return errs
}
