package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"docmanager/internal/domain"
	"docmanager/internal/logger"
	"docmanager/internal/model"
	"docmanager/internal/repository"
	"docmanager/internal/storage"
)

var tracer = otel.Tracer("docmanager/internal/service")

// DocumentService defines the ingestion and lifecycle use cases for documents.
type DocumentService interface {
	// Upload admits, extracts and persists f, attributed to the identity named author.
	Upload(ctx context.Context, f *FileUpload, author string) (*model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Delete removes a document and returns its state before removal.
	Delete(ctx context.Context, id string) (*model.Document, error)

	// DownloadURL returns a time-limited link to the archived original file.
	DownloadURL(ctx context.Context, id string) (string, error)
}

// DocumentDeps are the collaborators of the document service. Store may be
// nil, in which case original files are not archived.
type DocumentDeps struct {
	Admission     *FileAdmission
	Gateway       *ExtractionGateway
	Users         repository.UserRepository
	Repo          repository.DocumentRepository
	Store         storage.Storage
	PresignExpiry time.Duration
	Logger        *zap.Logger
}

type documentService struct {
	admission     *FileAdmission
	gateway       *ExtractionGateway
	users         repository.UserRepository
	repo          repository.DocumentRepository
	store         storage.Storage
	presignExpiry time.Duration
	logger        *zap.Logger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(d DocumentDeps) DocumentService {
	l := d.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &documentService{
		admission:     d.Admission,
		gateway:       d.Gateway,
		users:         d.Users,
		repo:          d.Repo,
		store:         d.Store,
		presignExpiry: d.PresignExpiry,
		logger:        l,
	}
}

func (s *documentService) Upload(ctx context.Context, f *FileUpload, author string) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Upload")
	defer span.End()
	log := logger.FromContext(ctx, s.logger)

	if err := s.admission.Validate(f); err != nil {
		return nil, recordErr(span, err)
	}
	author = strings.TrimSpace(author)
	if author == "" {
		return nil, recordErr(span, domain.NewValidationError("author is required"))
	}
	span.SetAttributes(
		attribute.String("document.author", author),
		attribute.Int64("document.size", f.Size),
	)

	var stored *model.Document
	err := s.gateway.WithExtraction(ctx, f, func(ctx context.Context, ex *Extraction, staged *StagedFile) error {
		user, err := s.users.FindByUsername(ctx, author)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NewNotFoundError("user not found: " + author)
			}
			return domain.NewInfrastructureError("failed to resolve author", err)
		}

		id, err := uuid.NewV7()
		if err != nil {
			return domain.NewInfrastructureError("failed to generate document id", err)
		}
		doc := &model.Document{
			ID:          id.String(),
			Title:       ex.Title,
			ContentType: ex.ContentType,
			Author:      author,
			UploadedBy:  user.ID,
			Content:     ex.Text,
		}

		if s.store != nil {
			key, err := s.archive(ctx, doc, f.Filename, staged)
			if err != nil {
				return domain.NewInfrastructureError("failed to archive original file", err)
			}
			doc.StoragePath = key
		}

		stored, err = s.repo.Create(ctx, doc)
		if err != nil {
			if rbErr := s.rollbackArchive(ctx, doc.StoragePath); rbErr != nil {
				log.Error("archive rollback failed",
					zap.String("document_id", doc.ID),
					zap.String("storage_path", doc.StoragePath),
					zap.Error(rbErr),
				)
				err = fmt.Errorf("db save failed: %w; rollback delete failed: %v", err, rbErr)
			}
			switch {
			case errors.Is(err, repository.ErrUnknownReference):
				return domain.NewNotFoundError("user not found: " + author)
			case errors.Is(err, repository.ErrDuplicateKey):
				return domain.NewInfrastructureError("document id already exists", err)
			}
			return domain.NewInfrastructureError("failed to save document", err)
		}
		return nil
	})
	if err != nil {
		return nil, recordErr(span, err)
	}

	span.SetAttributes(attribute.String("document.id", stored.ID))
	log.Info("document uploaded",
		zap.String("document_id", stored.ID),
		zap.String("content_type", stored.ContentType),
		zap.String("author", stored.Author),
		zap.Int("content_bytes", len(stored.Content)),
	)
	return stored, nil
}

func (s *documentService) archive(ctx context.Context, doc *model.Document, filename string, staged *StagedFile) (string, error) {
	fh, err := staged.Open()
	if err != nil {
		return "", err
	}
	defer fh.Close()

	key := storage.ObjectKey(doc.ID, filename)
	info, err := s.store.Put(ctx, key, fh, storage.PutObjectOptions{
		Size:        staged.Size(),
		ContentType: doc.ContentType,
		Metadata: map[string]string{
			"original-filename": url.QueryEscape(filename),
		},
	})
	if err != nil {
		return "", err
	}
	return info.Key, nil
}

func (s *documentService) rollbackArchive(ctx context.Context, key string) error {
	if s.store == nil || key == "" {
		return nil
	}
	return s.store.Delete(ctx, key)
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Get", trace.WithAttributes(attribute.String("document.id", id)))
	defer span.End()

	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, recordErr(span, err)
	}
	return doc, nil
}

// Delete removes the database row first, then the archived object. A failure
// to remove the archived object is logged and does not fail the call.
func (s *documentService) Delete(ctx context.Context, id string) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Delete", trace.WithAttributes(attribute.String("document.id", id)))
	defer span.End()
	log := logger.FromContext(ctx, s.logger)

	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, recordErr(span, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recordErr(span, domain.NewNotFoundError("document not found"))
		}
		return nil, recordErr(span, domain.NewInfrastructureError("failed to delete document", err))
	}

	if s.store != nil && doc.StoragePath != "" {
		if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
			log.Warn("failed to delete archived original",
				zap.String("document_id", id),
				zap.String("storage_path", doc.StoragePath),
				zap.Error(err),
			)
		}
	}

	log.Info("document deleted", zap.String("document_id", id))
	return doc, nil
}

// DownloadURL presigns a GET for the archived original file.
func (s *documentService) DownloadURL(ctx context.Context, id string) (string, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.DownloadURL", trace.WithAttributes(attribute.String("document.id", id)))
	defer span.End()

	doc, err := s.find(ctx, id)
	if err != nil {
		return "", recordErr(span, err)
	}
	if s.store == nil || doc.StoragePath == "" {
		return "", recordErr(span, domain.NewNotFoundError("original file is not available"))
	}

	u, err := s.store.PresignGet(ctx, doc.StoragePath, s.presignExpiry)
	if err != nil {
		return "", recordErr(span, domain.NewInfrastructureError("failed to create download link", err))
	}
	return u, nil
}

func (s *documentService) find(ctx context.Context, id string) (*model.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("id is required")
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("document not found")
		}
		return nil, domain.NewInfrastructureError("failed to load document", err)
	}
	return doc, nil
}

// recordErr marks span as failed for server-side errors and returns err.
func recordErr(span trace.Span, err error) error {
	if !domain.IsClientError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
