package service

import (
	"context"
	"time"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/auth"
	"github.com/railmadad/backend/internal/models"
)

var statRanges = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// Stats summarises complaints created within rng. Non-admins see only their own.
func (s *ComplaintService) Stats(ctx context.Context, p auth.Principal, rng string) (models.Stats, error) {
	if err := requireUser(p); err != nil {
		return models.Stats{}, err
	}
	if rng == "" {
		rng = "7d"
	}
	window, ok := statRanges[rng]
	if !ok {
		return models.Stats{}, apperrors.Clone(apperrors.ErrValidation, "range must be one of 24h, 7d, 30d, 90d")
	}
	owner := p.UserID
	if auth.Authorize(p, models.RoleAdmin) {
		owner = ""
	}
	items, err := s.Repo.ComplaintsSince(ctx, s.clock().Add(-window), owner)
	if err != nil {
		return models.Stats{}, storeError(err, "complaint")
	}
	return computeStats(rng, items), nil
}

func computeStats(rng string, items []models.Complaint) models.Stats {
	st := models.Stats{Range: rng, Total: len(items)}
	var (
		hours      float64
		timed      int
		confidence float64
	)
	for _, c := range items {
		if c.Status == models.StatusResolved || c.Status == models.StatusClosed {
			st.Resolved++
			if c.Resolution != nil && c.Resolution.ResolvedAt != nil {
				hours += c.Resolution.ResolvedAt.Sub(c.CreatedAt).Hours()
				timed++
			}
		}
		if c.AIAnalysis != nil {
			confidence += c.AIAnalysis.Confidence
		}
	}
	if st.Total > 0 {
		st.ResolutionRate = float64(st.Resolved) / float64(st.Total) * 100
		st.AIAccuracy = confidence / float64(st.Total) * 100
	}
	if timed > 0 {
		st.AvgResolutionHours = hours / float64(timed)
	}
	return st
}
