package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/db"
	"github.com/railmadad/backend/internal/models"
)

type CategoryService struct {
	Repo      CategoryRepository
	Validator *validator.Validate
	now       func() time.Time
}

func NewCategoryService(repo CategoryRepository, v *validator.Validate) *CategoryService {
	return &CategoryService{Repo: repo, Validator: v, now: time.Now}
}

type CreateCategoryRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Priority    string   `json:"priority" validate:"required,oneof=CRITICAL HIGH MEDIUM LOW"`
	Color       string   `json:"color" validate:"omitempty,hexcolor"`
	Aliases     []string `json:"aliases" validate:"dive,max=100"`
}

type UpdateCategoryRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string   `json:"description" validate:"omitempty,max=500"`
	Priority    *string   `json:"priority" validate:"omitempty,oneof=CRITICAL HIGH MEDIUM LOW"`
	Color       *string   `json:"color" validate:"omitempty,hexcolor"`
	Aliases     *[]string `json:"aliases"`
	IsActive    *bool     `json:"isActive"`
}

// List returns categories ordered by priority rank, then name.
func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	items, err := s.Repo.ListCategories(ctx, activeOnly)
	if err != nil {
		return nil, storeError(err, "category")
	}
	SortCategories(items)
	if items == nil {
		items = []models.Category{}
	}
	return items, nil
}

func SortCategories(items []models.Category) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Priority.Rank(), items[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
}

func (s *CategoryService) Get(ctx context.Context, id string) (models.Category, error) {
	c, err := s.Repo.GetCategory(ctx, id)
	if err != nil {
		return models.Category{}, storeError(err, "category")
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (models.Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.Validator.Struct(req); err != nil {
		return models.Category{}, validationError(err)
	}
	if _, err := s.Repo.GetCategoryByName(ctx, req.Name); err == nil {
		return models.Category{}, apperrors.Clone(apperrors.ErrDuplicateName, "category with this name already exists")
	} else if !errors.Is(err, db.ErrNotFound) {
		return models.Category{}, storeError(err, "category")
	}

	now := s.now().UTC()
	c := models.Category{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Priority:    models.Priority(req.Priority),
		Color:       req.Color,
		Aliases:     cleanAliases(req.Aliases),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.InsertCategory(ctx, c); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return models.Category{}, apperrors.Clone(apperrors.ErrDuplicateName, "category with this name already exists")
		}
		return models.Category{}, storeError(err, "category")
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, req UpdateCategoryRequest) (models.Category, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return models.Category{}, apperrors.Clone(apperrors.ErrValidation, "name cannot be empty")
		}
		req.Name = &name
	}
	if err := s.Validator.Struct(req); err != nil {
		return models.Category{}, validationError(err)
	}
	c, err := s.Repo.GetCategory(ctx, id)
	if err != nil {
		return models.Category{}, storeError(err, "category")
	}

	if req.Name != nil {
		name := *req.Name
		if !strings.EqualFold(name, c.Name) {
			if existing, err := s.Repo.GetCategoryByName(ctx, name); err == nil && existing.ID != c.ID {
				return models.Category{}, apperrors.Clone(apperrors.ErrDuplicateName, "category with this name already exists")
			}
		}
		c.Name = name
	}
	if req.Description != nil {
		c.Description = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		c.Priority = models.Priority(*req.Priority)
	}
	if req.Color != nil {
		c.Color = *req.Color
	}
	if req.Aliases != nil {
		c.Aliases = cleanAliases(*req.Aliases)
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	c.UpdatedAt = s.now().UTC()

	if err := s.Repo.UpdateCategory(ctx, c); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return models.Category{}, apperrors.Clone(apperrors.ErrDuplicateName, "category with this name already exists")
		}
		return models.Category{}, storeError(err, "category")
	}
	return c, nil
}

// Deactivate soft-deletes a category. Deactivating an inactive category succeeds.
func (s *CategoryService) Deactivate(ctx context.Context, id string) error {
	c, err := s.Repo.GetCategory(ctx, id)
	if err != nil {
		return storeError(err, "category")
	}
	if !c.IsActive {
		return nil
	}
	c.IsActive = false
	c.UpdatedAt = s.now().UTC()
	return storeError(s.Repo.UpdateCategory(ctx, c), "category")
}

// Resolve maps a free-form label (usually from the AI provider) onto an active category:
// exact name, then the alias table, then substring containment either way with the
// longest category name winning. Returns nil when nothing matches.
func (s *CategoryService) Resolve(ctx context.Context, label string) (*models.Category, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return nil, nil
	}
	items, err := s.Repo.ListCategories(ctx, true)
	if err != nil {
		return nil, storeError(err, "category")
	}
	SortCategories(items)

	for i := range items {
		if strings.ToLower(items[i].Name) == label {
			return &items[i], nil
		}
	}
	for i := range items {
		for _, a := range items[i].Aliases {
			if strings.ToLower(strings.TrimSpace(a)) == label {
				return &items[i], nil
			}
		}
	}
	var best *models.Category
	for i := range items {
		name := strings.ToLower(items[i].Name)
		if strings.Contains(label, name) || strings.Contains(name, label) {
			if best == nil || len(items[i].Name) > len(best.Name) {
				best = &items[i]
			}
		}
	}
	return best, nil
}

func cleanAliases(in []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, a := range in {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
