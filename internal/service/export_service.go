package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/claudyne/claudyne-content-api/internal/dto"
	"github.com/claudyne/claudyne-content-api/internal/models"
	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
	"github.com/claudyne/claudyne-content-api/pkg/export"
	"github.com/claudyne/claudyne-content-api/pkg/jobs"
	"github.com/claudyne/claudyne-content-api/pkg/storage"
)

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath, downloadURL string, expiresAt time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
}

type exportSubjectReader interface {
	List(ctx context.Context) ([]models.Subject, error)
}

type exportLessonCounter interface {
	CountsBySubject(ctx context.Context, subjectIDs []string) (map[string]models.LessonCounts, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportJobType identifies queued review-state export jobs.
const ExportJobType = "catalog_export"

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService produces review-state snapshots of the whole catalog for
// editorial staff. Each row carries the subject's review status, activation
// flag and live lesson count, so reviewers can see exactly why an item is or
// is not publicly visible.
type ExportService struct {
	repo     exportJobRepository
	subjects exportSubjectReader
	lessons  exportLessonCounter
	storage  fileStorage
	queue    jobEnqueuer
	audit    auditLogger
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(repo exportJobRepository, subjects exportSubjectReader, lessons exportLessonCounter, store fileStorage, signer *storage.SignedURLSigner, audit auditLogger, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		repo:     repo,
		subjects: subjects,
		lessons:  lessons,
		storage:  store,
		audit:    audit,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// AttachQueue wires the background queue after both sides exist.
func (s *ExportService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Request records a new export job and enqueues it for processing.
func (s *ExportService) Request(ctx context.Context, req dto.CreateExportRequest, requestedBy string) (*models.ExportJob, error) {
	format := models.ExportFormat(strings.ToLower(req.Format))
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", req.Format))
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue unavailable")
	}

	job := &models.ExportJob{
		RequestedBy: requestedBy,
		Format:      format,
		Status:      models.ExportStatusQueued,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType, Payload: job.ID}); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, "failed to enqueue"); markErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}

	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     &job.RequestedBy,
			Action:     models.AuditActionExportRequest,
			Resource:   "export",
			ResourceID: &job.ID,
			NewValues:  []byte(fmt.Sprintf(`{"format":%q}`, format)),
			IPAddress:  "system",
			UserAgent:  "export-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	return job, nil
}

// Status returns the job as seen by its requester.
func (s *ExportService) Status(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return job, nil
}

// ProcessJob is the queue handler. It renders the snapshot, stores the file
// and records a signed download URL on the job.
func (s *ExportService) ProcessJob(ctx context.Context, job jobs.Job) error {
	jobID, ok := job.Payload.(string)
	if !ok || jobID == "" {
		return fmt.Errorf("export job payload missing id")
	}

	record, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}
	if err := s.repo.MarkProcessing(ctx, jobID); err != nil {
		s.logger.Warn("failed to mark export processing", zap.Error(err))
	}

	relPath, downloadURL, expiresAt, err := s.generate(ctx, record)
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, jobID, err.Error()); markErr != nil {
			s.logger.Warn("failed to mark export failed", zap.Error(markErr))
		}
		return fmt.Errorf("generate export %s: %w", jobID, err)
	}

	if err := s.repo.MarkCompleted(ctx, jobID, relPath, downloadURL, expiresAt); err != nil {
		return fmt.Errorf("complete export %s: %w", jobID, err)
	}
	s.logger.Info("export completed", zap.String("job_id", jobID), zap.String("file", relPath))
	return nil
}

func (s *ExportService) generate(ctx context.Context, job *models.ExportJob) (relPath, downloadURL string, expiresAt time.Time, err error) {
	dataset, title, err := s.buildDataset(ctx)
	if err != nil {
		return "", "", time.Time{}, err
	}

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return "", "", time.Time{}, err
	}

	filename := fmt.Sprintf("catalog_%s.%s", time.Now().UTC().Format("20060102_150405"), job.Format)
	relPath, err = s.storage.Save(filename, payload)
	if err != nil {
		return "", "", time.Time{}, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return "", "", time.Time{}, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	downloadURL = fmt.Sprintf("%s/export/%s", prefix, token)
	return relPath, downloadURL, expiresAt, nil
}

func (s *ExportService) buildDataset(ctx context.Context) (export.Dataset, string, error) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}

	counts := map[string]models.LessonCounts{}
	if len(subjects) > 0 {
		ids := make([]string, len(subjects))
		for i, subject := range subjects {
			ids[i] = subject.ID
		}
		counts, err = s.lessons.CountsBySubject(ctx, ids)
		if err != nil {
			return export.Dataset{}, "", err
		}
	}

	headers := []string{"Title", "Category", "Level", "Review Status", "Active", "Version", "Lessons", "Live Lessons", "Created At"}
	rows := make([]map[string]string, 0, len(subjects))
	for _, subject := range subjects {
		c := counts[subject.ID]
		rows = append(rows, map[string]string{
			"Title":         subject.Title,
			"Category":      subject.Category,
			"Level":         subject.Level,
			"Review Status": string(subject.ReviewStatus),
			"Active":        fmt.Sprintf("%t", subject.Active),
			"Version":       fmt.Sprintf("%d", subject.Version),
			"Lessons":       fmt.Sprintf("%d", c.Total),
			"Live Lessons":  fmt.Sprintf("%d", c.Live),
			"Created At":    subject.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	dataset := export.Dataset{Headers: headers, Rows: rows}
	title := fmt.Sprintf("Catalog Review State %s", time.Now().UTC().Format("2006-01-02"))
	return dataset, title, nil
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ResolveDownload validates a signed token and opens the stored export file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.DownloadURL == nil || !strings.HasSuffix(*job.DownloadURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// StartCleanup boots a goroutine that purges expired export files periodically.
func (s *ExportService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Cleanup(0); err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
				}
			}
		}
	}()
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}
