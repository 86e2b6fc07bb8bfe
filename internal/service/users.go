package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/auth"
	"github.com/railmadad/backend/internal/models"
)

type UserService struct {
	Repo      UserRepository
	Validator *validator.Validate
	now       func() time.Time
}

func NewUserService(repo UserRepository, v *validator.Validate) *UserService {
	return &UserService{Repo: repo, Validator: v, now: time.Now}
}

type AvailabilityRequest struct {
	Available    *bool   `json:"available"`
	IsOnline     *bool   `json:"isOnline"`
	CurrentTrain *string `json:"currentTrain" validate:"omitempty,max=10"`
	Station      *string `json:"station" validate:"omitempty,max=100"`
}

func (s *UserService) Me(ctx context.Context, p auth.Principal) (models.User, error) {
	if err := requireUser(p); err != nil {
		return models.User{}, err
	}
	u, err := s.Repo.GetUser(ctx, p.UserID)
	if err != nil {
		return models.User{}, storeError(err, "user")
	}
	return u, nil
}

// UpdateAvailability lets a worker report duty status and the train they are on.
func (s *UserService) UpdateAvailability(ctx context.Context, p auth.Principal, req AvailabilityRequest) (models.User, error) {
	if !auth.Authorize(p, models.RoleWorker) {
		return models.User{}, apperrors.Clone(apperrors.ErrForbidden, "")
	}
	if err := s.Validator.Struct(req); err != nil {
		return models.User{}, validationError(err)
	}
	u, err := s.Repo.GetUser(ctx, p.UserID)
	if err != nil {
		return models.User{}, storeError(err, "user")
	}
	if req.Available != nil {
		u.Available = *req.Available
	}
	if req.IsOnline != nil {
		u.IsOnline = *req.IsOnline
	}
	if req.CurrentTrain != nil {
		u.CurrentTrain = strings.TrimSpace(*req.CurrentTrain)
	}
	if req.Station != nil {
		u.Station = strings.TrimSpace(*req.Station)
	}
	now := s.now().UTC()
	u.LastActive = &now
	if err := s.Repo.UpdateUser(ctx, u); err != nil {
		return models.User{}, storeError(err, "user")
	}
	return u, nil
}

func (s *UserService) ListWorkers(ctx context.Context, p auth.Principal, f models.WorkerFilter) ([]models.User, error) {
	if !auth.Authorize(p, models.RoleAdmin) {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "")
	}
	f.TrainNumber = strings.TrimSpace(f.TrainNumber)
	items, err := s.Repo.ListWorkers(ctx, f)
	if err != nil {
		return nil, storeError(err, "user")
	}
	if items == nil {
		items = []models.User{}
	}
	return items, nil
}
