// Package seed loads reference data (categories, field staff, admins) from YAML.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/auth"
	"github.com/railmadad/backend/internal/db"
	"github.com/railmadad/backend/internal/models"
	"github.com/railmadad/backend/internal/service"
)

//go:embed default.yaml
var defaultData []byte

type File struct {
	Categories []service.CreateCategoryRequest `yaml:"categories"`
	Workers    []Person                        `yaml:"workers"`
	Admins     []Person                        `yaml:"admins"`
}

type Person struct {
	Name         string   `yaml:"name"`
	Phone        string   `yaml:"phone"`
	Email        string   `yaml:"email"`
	Department   string   `yaml:"department"`
	Skills       []string `yaml:"skills"`
	CurrentTrain string   `yaml:"currentTrain"`
	Station      string   `yaml:"station"`
}

type Report struct {
	CategoriesCreated int
	CategoriesSkipped int
	UsersCreated      int
	UsersSkipped      int
}

func Default() (File, error) {
	return Parse(defaultData)
}

// Parse decodes a seed file. Unknown keys are rejected so typos surface early.
func Parse(data []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("parse seed file: %w", err)
	}
	return f, nil
}

type Seeder struct {
	Categories *service.CategoryService
	Users      service.UserRepository
	Logger     zerolog.Logger
	DryRun     bool
}

// Apply inserts whatever is missing. Existing categories (by name) and users (by phone)
// are left untouched, so the seeder can be re-run safely.
func (s *Seeder) Apply(ctx context.Context, f File) (Report, error) {
	var rep Report
	for _, req := range f.Categories {
		if s.DryRun {
			if _, err := s.Categories.Repo.GetCategoryByName(ctx, strings.TrimSpace(req.Name)); err == nil {
				rep.CategoriesSkipped++
			} else {
				rep.CategoriesCreated++
			}
			continue
		}
		c, err := s.Categories.Create(ctx, req)
		switch {
		case errors.Is(err, apperrors.ErrDuplicateName):
			rep.CategoriesSkipped++
		case err != nil:
			return rep, fmt.Errorf("category %q: %w", req.Name, err)
		default:
			rep.CategoriesCreated++
			s.Logger.Info().Str("category_id", c.ID).Str("name", c.Name).Msg("category created")
		}
	}

	for _, p := range f.Workers {
		if err := s.person(ctx, p, models.RoleWorker, &rep); err != nil {
			return rep, err
		}
	}
	for _, p := range f.Admins {
		if err := s.person(ctx, p, models.RoleAdmin, &rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (s *Seeder) person(ctx context.Context, p Person, role models.Role, rep *Report) error {
	phone, err := auth.NormalizePhone(p.Phone)
	if err != nil {
		return fmt.Errorf("%s %q: %w", role, p.Name, err)
	}
	if _, err := s.Users.GetUserByPhone(ctx, phone); err == nil {
		rep.UsersSkipped++
		return nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("lookup %s: %w", phone, err)
	}

	rep.UsersCreated++
	if s.DryRun {
		return nil
	}
	u := models.User{
		ID:           uuid.NewString(),
		PhoneNumber:  phone,
		Email:        p.Email,
		Name:         p.Name,
		Role:         role,
		IsVerified:   true,
		Available:    role == models.RoleWorker,
		CurrentTrain: p.CurrentTrain,
		Station:      p.Station,
		Department:   p.Department,
		Skills:       p.Skills,
		CreatedAt:    time.Now().UTC(),
	}
	if u.Skills == nil {
		u.Skills = []string{}
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("create %s %q: %w", role, p.Name, err)
	}
	s.Logger.Info().Str("user_id", u.ID).Str("role", string(role)).Msg("user created")
	return nil
}
