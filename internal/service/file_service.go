package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fieldline/casework-api/internal/auth"
	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/mapper"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/fieldline/casework-api/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileService handles case attachments: site-visit photos and drawing files.
// Content lives in the storage backend; the database row carries the metadata.
type FileService struct {
	fileRepo     *repository.FileRepository
	caseRepo     *repository.CaseRepository
	activityRepo *repository.ActivityRepository
	storage      storage.Storage
	logger       *zap.Logger
}

// NewFileService creates a new FileService
func NewFileService(
	fileRepo *repository.FileRepository,
	caseRepo *repository.CaseRepository,
	activityRepo *repository.ActivityRepository,
	storage storage.Storage,
	logger *zap.Logger,
) *FileService {
	return &FileService{
		fileRepo:     fileRepo,
		caseRepo:     caseRepo,
		activityRepo: activityRepo,
		storage:      storage,
		logger:       logger,
	}
}

// UploadToCase uploads a file and attaches it to a case
func (s *FileService) UploadToCase(ctx context.Context, caseID uuid.UUID, filename, contentType string, data io.Reader) (*domain.FileDTO, error) {
	c, err := s.caseRepo.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	storagePath, size, err := s.storage.Upload(ctx, filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	file := &domain.File{
		CaseID:      caseID,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		StoragePath: storagePath,
	}
	if userCtx, ok := auth.FromContext(ctx); ok {
		file.UploadedBy = userCtx.UserID.String()
	}

	if err := s.fileRepo.Create(ctx, file); err != nil {
		// Best effort cleanup so storage doesn't accumulate orphans
		if delErr := s.storage.Delete(ctx, storagePath); delErr != nil {
			s.logger.Warn("failed to cleanup file from storage after DB error",
				zap.Error(delErr),
				zap.String("storagePath", storagePath),
			)
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	s.logFileActivity(ctx, file, "File uploaded",
		fmt.Sprintf("File '%s' was uploaded to case '%s'", filename, c.Title))

	dto := mapper.ToFileDTO(file)
	return &dto, nil
}

// ListByCase returns all files attached to a case
func (s *FileService) ListByCase(ctx context.Context, caseID uuid.UUID) ([]domain.FileDTO, error) {
	if _, err := s.caseRepo.GetByID(ctx, caseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	files, err := s.fileRepo.ListByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list case files: %w", err)
	}

	dtos := make([]domain.FileDTO, len(files))
	for i := range files {
		dtos[i] = mapper.ToFileDTO(&files[i])
	}
	return dtos, nil
}

// GetByID retrieves a file by its ID
func (s *FileService) GetByID(ctx context.Context, id uuid.UUID) (*domain.FileDTO, error) {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	dto := mapper.ToFileDTO(file)
	return &dto, nil
}

// Download retrieves a file's content for download
// Returns: reader, filename, content-type, error
func (s *FileService) Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, string, error) {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", ErrNotFound
		}
		return nil, "", "", fmt.Errorf("failed to get file: %w", err)
	}

	reader, err := s.storage.Download(ctx, file.StoragePath)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to download file: %w", err)
	}

	return reader, file.Filename, file.ContentType, nil
}

// Delete removes a file from both storage and database
func (s *FileService) Delete(ctx context.Context, id uuid.UUID) error {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get file: %w", err)
	}

	// Delete from storage (log warning if fails, continue)
	if err := s.storage.Delete(ctx, file.StoragePath); err != nil {
		s.logger.Warn("failed to delete file from storage",
			zap.Error(err),
			zap.String("storagePath", file.StoragePath),
			zap.String("fileID", id.String()),
		)
	}

	if err := s.fileRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	s.logFileActivity(ctx, file, "File deleted",
		fmt.Sprintf("File '%s' was deleted", file.Filename))

	return nil
}

// logFileActivity creates an activity entry for file operations, best effort
func (s *FileService) logFileActivity(ctx context.Context, file *domain.File, title, body string) {
	activity := &domain.Activity{
		CaseID: file.CaseID,
		Title:  title,
		Body:   body,
	}
	if userCtx, ok := auth.FromContext(ctx); ok {
		activity.ActorID = userCtx.UserID.String()
		activity.ActorName = userCtx.DisplayName
	}

	if err := s.activityRepo.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to create file activity",
			zap.Error(err),
			zap.String("fileID", file.ID.String()),
		)
	}
}
