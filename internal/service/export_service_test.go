package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claudyne/claudyne-content-api/internal/dto"
	"github.com/claudyne/claudyne-content-api/internal/models"
	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
	"github.com/claudyne/claudyne-content-api/pkg/jobs"
	"github.com/claudyne/claudyne-content-api/pkg/storage"
)

type mockExportJobRepo struct {
	jobs map[string]*models.ExportJob
	seq  int
}

func (m *mockExportJobRepo) Create(ctx context.Context, job *models.ExportJob) error {
	m.seq++
	job.ID = fmt.Sprintf("job-%d", m.seq)
	job.CreatedAt = time.Now()
	copy := *job
	m.jobs[job.ID] = &copy
	return nil
}

func (m *mockExportJobRepo) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if job, ok := m.jobs[id]; ok {
		copy := *job
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExportJobRepo) MarkProcessing(ctx context.Context, id string) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = models.ExportStatusProcessing
	return nil
}

func (m *mockExportJobRepo) MarkCompleted(ctx context.Context, id, filePath, downloadURL string, expiresAt time.Time) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now()
	job.Status = models.ExportStatusCompleted
	job.FilePath = &filePath
	job.DownloadURL = &downloadURL
	job.ExpiresAt = &expiresAt
	job.CompletedAt = &now
	return nil
}

func (m *mockExportJobRepo) MarkFailed(ctx context.Context, id, message string) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = models.ExportStatusFailed
	job.ErrorMessage = &message
	return nil
}

type mockExportSubjectReader struct {
	subjects []models.Subject
}

func (m *mockExportSubjectReader) List(ctx context.Context) ([]models.Subject, error) {
	return m.subjects, nil
}

type mockExportLessonCounter struct {
	counts map[string]models.LessonCounts
}

func (m *mockExportLessonCounter) CountsBySubject(ctx context.Context, subjectIDs []string) (map[string]models.LessonCounts, error) {
	return m.counts, nil
}

type mockEnqueuer struct {
	enqueued []jobs.Job
	fail     bool
}

func (m *mockEnqueuer) Enqueue(job jobs.Job) error {
	if m.fail {
		return fmt.Errorf("queue full")
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func newExportFixture(t *testing.T) (*ExportService, *mockExportJobRepo, *mockEnqueuer) {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	repo := &mockExportJobRepo{jobs: map[string]*models.ExportJob{}}
	subjects := &mockExportSubjectReader{subjects: []models.Subject{
		{ID: "s1", Title: "Mathématiques", Category: "Sciences", Level: "Tle", ReviewStatus: models.ReviewStatusApproved, Active: true, Version: 3},
		{ID: "s2", Title: "Histoire", Category: "Lettres", Level: "3ème", ReviewStatus: models.ReviewStatusDraft, Version: 1},
	}}
	lessons := &mockExportLessonCounter{counts: map[string]models.LessonCounts{
		"s1": {Total: 4, Live: 2},
	}}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	audit := &mockAuditLogger{}
	queue := &mockEnqueuer{}

	svc := NewExportService(repo, subjects, lessons, store, signer, audit, ExportConfig{
		APIPrefix: "/api/v1",
		ResultTTL: time.Hour,
	}, nil, nil, nil)
	svc.AttachQueue(queue)
	return svc, repo, queue
}

func TestExportRequestQueuesJob(t *testing.T) {
	svc, repo, queue := newExportFixture(t)

	job, err := svc.Request(context.Background(), dto.CreateExportRequest{Format: "CSV"}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, models.ExportFormatCSV, job.Format)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].Payload)
	assert.Equal(t, ExportJobType, queue.enqueued[0].Type)
	assert.Contains(t, repo.jobs, job.ID)
}

func TestExportRequestUnsupportedFormat(t *testing.T) {
	svc, repo, _ := newExportFixture(t)

	_, err := svc.Request(context.Background(), dto.CreateExportRequest{Format: "xlsx"}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.jobs)
}

func TestExportRequestEnqueueFailureMarksJobFailed(t *testing.T) {
	svc, repo, queue := newExportFixture(t)
	queue.fail = true

	_, err := svc.Request(context.Background(), dto.CreateExportRequest{Format: "csv"}, "admin-1")
	require.Error(t, err)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestProcessJobCompletesCSVExport(t *testing.T) {
	svc, repo, _ := newExportFixture(t)

	job, err := svc.Request(context.Background(), dto.CreateExportRequest{Format: "csv"}, "admin-1")
	require.NoError(t, err)

	err = svc.ProcessJob(context.Background(), jobs.Job{ID: job.ID, Type: ExportJobType, Payload: job.ID})
	require.NoError(t, err)

	stored := repo.jobs[job.ID]
	assert.Equal(t, models.ExportStatusCompleted, stored.Status)
	require.NotNil(t, stored.FilePath)
	require.NotNil(t, stored.DownloadURL)
	assert.True(t, strings.HasPrefix(*stored.DownloadURL, "/api/v1/export/"))
	assert.True(t, strings.HasSuffix(*stored.FilePath, ".csv"))
}

func TestProcessJobBadPayload(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	err := svc.ProcessJob(context.Background(), jobs.Job{ID: "x", Type: ExportJobType, Payload: 42})
	require.Error(t, err)
}

func TestResolveDownloadRoundTrip(t *testing.T) {
	svc, repo, _ := newExportFixture(t)

	job, err := svc.Request(context.Background(), dto.CreateExportRequest{Format: "csv"}, "admin-1")
	require.NoError(t, err)
	require.NoError(t, svc.ProcessJob(context.Background(), jobs.Job{ID: job.ID, Payload: job.ID}))

	url := *repo.jobs[job.ID].DownloadURL
	token := url[strings.LastIndex(url, "/")+1:]

	download, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck

	assert.Equal(t, models.ExportFormatCSV, download.Format)
	assert.True(t, strings.HasSuffix(download.Filename, ".csv"))

	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Mathématiques")
	assert.Contains(t, string(content), "Live Lessons")
}

func TestResolveDownloadRejectsForgedToken(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	_, err := svc.ResolveDownload(context.Background(), "job-1.9999999999.cGF0aA.deadbeef")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestResolveDownloadRequiresCompletedJob(t *testing.T) {
	svc, repo, _ := newExportFixture(t)

	job, err := svc.Request(context.Background(), dto.CreateExportRequest{Format: "pdf"}, "admin-1")
	require.NoError(t, err)

	// Sign a token for a job that never finished processing.
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	token, _, err := signer.Generate(job.ID, "catalog_pending.pdf")
	require.NoError(t, err)
	url := "/api/v1/export/" + token
	repo.jobs[job.ID].DownloadURL = &url

	_, err = svc.ResolveDownload(context.Background(), token)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestStatusUnknownJob(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	_, err := svc.Status(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
