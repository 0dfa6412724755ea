package handlers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"studybuddy-matcher/internal/handlers"
	"studybuddy-matcher/internal/models"
	"studybuddy-matcher/internal/utils"
)

type mockProfileWriter struct {
	mock.Mock
}

func (m *mockProfileWriter) BulkUpsert(ctx context.Context, profiles []*models.Profile) (*models.BulkInsertResult, error) {
	args := m.Called(ctx, profiles)
	r, _ := args.Get(0).(*models.BulkInsertResult)
	return r, args.Error(1)
}

type mockInvalidator struct {
	mock.Mock
}

func (m *mockInvalidator) InvalidateAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) DownloadFile(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockObjectStore) MoveFile(ctx context.Context, bucket, src, dst string) error {
	return m.Called(ctx, bucket, src, dst).Error(0)
}

const importCSV = `uid,academic_level,region,subjects
STU001,SHS 1,Volta,Mathematics
STU002,SHS 1,Atlantis,Physics
STU003,SHS 2,Eastern,Biology`

func TestProfileImporter_Import(t *testing.T) {
	ctx := context.Background()

	writer := new(mockProfileWriter)
	writer.On("BulkUpsert", ctx, mock.MatchedBy(func(p []*models.Profile) bool {
		return len(p) == 2 && p[0].UID == "STU001" && p[1].UID == "STU003" && p[0].BatchID != ""
	})).Return(&models.BulkInsertResult{InsertedCount: 2}, nil)

	cache := new(mockInvalidator)
	cache.On("InvalidateAll", ctx).Return(7, nil)

	result, err := handlers.NewProfileImporter(writer, cache).Import(ctx, []byte(importCSV), "profiles.csv")
	require.NoError(t, err)

	assert.Equal(t, "CSV processed successfully", result.Message)
	assert.Equal(t, 3, result.Rows)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "line 3")
	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, "profiles.csv", result.Source)

	writer.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestProfileImporter_NoValidRows(t *testing.T) {
	ctx := context.Background()
	writer := new(mockProfileWriter)

	result, err := handlers.NewProfileImporter(writer, nil).Import(ctx, []byte("uid,academic_level,region\nA,SHS 1,Atlantis"), "bad.csv")
	require.NoError(t, err)

	assert.Equal(t, "No valid profiles found in CSV", result.Message)
	assert.Zero(t, result.Inserted)
	assert.Equal(t, 1, result.Failed)
	writer.AssertNotCalled(t, "BulkUpsert", mock.Anything, mock.Anything)
}

func TestProfileImporter_StructuralErrors(t *testing.T) {
	importer := handlers.NewProfileImporter(new(mockProfileWriter), nil)

	_, err := importer.Import(context.Background(), []byte(""), "empty.csv")
	assert.ErrorIs(t, err, utils.ErrEmptyCSV)

	_, err = importer.Import(context.Background(), []byte("name\nAma"), "cols.csv")
	assert.ErrorIs(t, err, utils.ErrMissingColumns)
}

func TestProfileImporter_RejectsMissingColumnsBeforeParsing(t *testing.T) {
	writer := new(mockProfileWriter)

	_, err := handlers.NewProfileImporter(writer, nil).Import(context.Background(), []byte("uid,name\nama,Ama\n"), "partial.csv")

	require.ErrorIs(t, err, utils.ErrMissingColumns)
	assert.ErrorContains(t, err, "academic_level, region")
	writer.AssertNotCalled(t, "BulkUpsert", mock.Anything, mock.Anything)
}

func TestProfileImporter_StoreFailure(t *testing.T) {
	ctx := context.Background()
	writer := new(mockProfileWriter)
	writer.On("BulkUpsert", ctx, mock.Anything).Return(nil, errors.New("connection reset"))

	cache := new(mockInvalidator)

	_, err := handlers.NewProfileImporter(writer, cache).Import(ctx, []byte(importCSV), "profiles.csv")
	assert.ErrorContains(t, err, "failed to store profiles")
	cache.AssertNotCalled(t, "InvalidateAll", mock.Anything)
}

func TestProfileImportHandler_Handle(t *testing.T) {
	ctx := context.Background()

	objects := new(mockObjectStore)
	objects.On("DownloadFile", ctx, "profiles-bucket", "uploads/2026/10/19/abc_class list.csv").Return([]byte(importCSV), nil)
	objects.On("MoveFile", ctx, "profiles-bucket", "uploads/2026/10/19/abc_class list.csv", "processed/2026/10/19/abc_class list.csv").Return(nil)

	writer := new(mockProfileWriter)
	writer.On("BulkUpsert", ctx, mock.Anything).Return(&models.BulkInsertResult{InsertedCount: 2}, nil)

	handler := handlers.NewProfileImportHandler(objects, handlers.NewProfileImporter(writer, nil))

	event := events.S3Event{Records: []events.S3EventRecord{
		s3Record("profiles-bucket", "uploads/2026/10/19/abc_class+list.csv"),
		s3Record("profiles-bucket", "uploads/readme.txt"),
	}}

	results, err := handler.Handle(ctx, event)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Inserted)

	objects.AssertExpectations(t)
}

func TestProfileImportHandler_DownloadFailure(t *testing.T) {
	ctx := context.Background()

	objects := new(mockObjectStore)
	objects.On("DownloadFile", ctx, "b", "uploads/x.csv").Return(nil, errors.New("access denied"))

	handler := handlers.NewProfileImportHandler(objects, handlers.NewProfileImporter(new(mockProfileWriter), nil))

	_, err := handler.Handle(ctx, events.S3Event{Records: []events.S3EventRecord{s3Record("b", "uploads/x.csv")}})
	assert.ErrorContains(t, err, "access denied")
	objects.AssertNotCalled(t, "MoveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func s3Record(bucket, key string) events.S3EventRecord {
	var r events.S3EventRecord
	r.S3.Bucket.Name = bucket
	r.S3.Object.Key = key
	return r
}
