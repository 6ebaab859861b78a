package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"staffqa/internal/events"
	"staffqa/internal/metrics"
	"staffqa/internal/model"
	"staffqa/internal/pkg/textextract"
	"staffqa/internal/repository"
	"staffqa/internal/storage"
)

var contentTypes = map[string]string{
	textextract.TypePDF:  "application/pdf",
	textextract.TypeTXT:  "text/plain; charset=utf-8",
	textextract.TypeDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

type DocumentService struct {
	docRepo   *repository.DocumentRepository
	store     storage.Store
	maxBytes  int64
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

type UploadInput struct {
	Filename string
	// Size is the client reported size; the body is still capped at the limit.
	Size int64
	Body io.Reader
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	store storage.Store,
	maxBytes int64,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DocumentService {
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	return &DocumentService{
		docRepo:   docRepo,
		store:     store,
		maxBytes:  maxBytes,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

func (s *DocumentService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload validates, extracts and stores a document. Nothing is persisted
// unless text extraction succeeds.
func (s *DocumentService) Upload(ctx context.Context, actor *model.User, input UploadInput) (*model.Document, error) {
	if err := Require(actor, model.RoleAdmin); err != nil {
		return nil, err
	}

	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(input.Filename), `\`, "/"))
	if name == "" || name == "." || name == "/" || input.Body == nil {
		return nil, fmt.Errorf("%w: no file selected", ErrInvalidInput)
	}
	fileType := textextract.FileType(name)
	if !textextract.Supported(fileType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if input.Size > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	text, err := textextract.Extract(fileType, data)
	if err != nil {
		s.metrics.ExtractionFailures.WithLabelValues(fileType).Inc()
		s.logger.Warn("text extraction failed", zap.String("filename", name), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrExtraction, name)
	}

	key := strings.ReplaceAll(uuid.NewString(), "-", "") + "." + fileType
	if err := s.store.Put(ctx, key, data, contentTypes[fileType]); err != nil {
		return nil, err
	}

	doc := &model.Document{
		Filename:         key,
		OriginalFilename: name,
		FileType:         fileType,
		Content:          text,
		FileSize:         int64(len(data)),
		UploadedBy:       actor.ID,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn("remove orphaned blob failed", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	s.metrics.Uploads.WithLabelValues(fileType).Inc()
	s.logger.Info("document uploaded",
		zap.Uint("document_id", doc.ID),
		zap.String("filename", name),
		zap.Int("text_chars", len(text)),
	)
	publishEvent(ctx, s.publisher, s.logger, events.New(events.TypeDocumentUploaded, actor.ID, map[string]any{
		"document_id": doc.ID,
		"filename":    name,
		"file_type":   fileType,
	}))
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	return s.docRepo.List(ctx)
}

func (s *DocumentService) Get(ctx context.Context, id uint) (*model.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}

// Delete removes the stored file and the row. A blob that is already gone is
// not an error.
func (s *DocumentService) Delete(ctx context.Context, actor *model.User, id uint) error {
	if err := Require(actor, model.RoleAdmin); err != nil {
		return err
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.Filename); err != nil && !errors.Is(err, storage.ErrInvalidKey) {
		return err
	}
	if err := s.docRepo.Delete(ctx, doc.ID); err != nil {
		return err
	}

	s.logger.Info("document deleted", zap.Uint("document_id", doc.ID), zap.Uint("actor_id", actor.ID))
	publishEvent(ctx, s.publisher, s.logger, events.New(events.TypeDocumentDeleted, actor.ID, map[string]any{
		"document_id": doc.ID,
		"filename":    doc.OriginalFilename,
	}))
	return nil
}
