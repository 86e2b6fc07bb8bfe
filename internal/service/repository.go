package service

import (
	"context"
	"errors"
	"time"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/db"
	"github.com/railmadad/backend/internal/models"
)

// Repositories are satisfied by *db.Store and *memstore.Store.

type CategoryRepository interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (models.Category, error)
	InsertCategory(ctx context.Context, c models.Category) error
	UpdateCategory(ctx context.Context, c models.Category) error
}

type ComplaintRepository interface {
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id string) (models.Complaint, error)
	GetComplaintByComplaintID(ctx context.Context, complaintID string) (models.Complaint, error)
	ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, int, error)
	ComplaintsSince(ctx context.Context, since time.Time, ownerID string) ([]models.Complaint, error)
	UpdateComplaint(ctx context.Context, c *models.Complaint, expectedVersion int64) error
}

type MediaRepository interface {
	InsertMedia(ctx context.Context, m models.Media, chunks []models.MediaChunk) error
	GetMedia(ctx context.Context, id string) (models.Media, error)
	GetMediaChunks(ctx context.Context, id string) ([]models.MediaChunk, error)
	AttachMedia(ctx context.Context, mediaID, complaintID string) error
	DeleteMedia(ctx context.Context, id string) error
	SaveMediaAnalysis(ctx context.Context, mediaID string, a models.Analysis) error
}

type UserRepository interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (models.User, error)
	CreateUser(ctx context.Context, u models.User) error
	UpdateUser(ctx context.Context, u models.User) error
	ListWorkers(ctx context.Context, f models.WorkerFilter) ([]models.User, error)
}

// Repository bundles every store the services need.
type Repository interface {
	CategoryRepository
	ComplaintRepository
	MediaRepository
	UserRepository
	Ping(ctx context.Context) error
}

// storeError maps storage sentinels onto typed errors.
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return apperrors.Clone(apperrors.ErrNotFound, what+" not found")
	case errors.Is(err, db.ErrVersionConflict):
		return apperrors.Clone(apperrors.ErrConflict, "")
	case errors.Is(err, db.ErrDuplicate):
		return apperrors.Clone(apperrors.ErrDuplicateName, "")
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(err, apperrors.ErrInternal, "")
}
