package service

import (
	"context"
	"fmt"

	"github.com/railmadad/backend/internal/ai"
	"github.com/railmadad/backend/internal/models"
	"github.com/railmadad/backend/internal/notify"
)

// enrich runs the AI analysis for a freshly submitted complaint and stores the result.
// Failures are logged; the complaint keeps the priority it was created with.
func (s *ComplaintService) enrich(ctx context.Context, complaintID, description string, atts []ai.Attachment) {
	res := s.Enricher.Analyze(ctx, description, atts)
	log := s.Logger.With().Str("complaint_id", complaintID).Logger()

	for i, att := range atts {
		if err := s.Repo.SaveMediaAnalysis(ctx, att.MediaID, res.Media[i]); err != nil {
			log.Warn().Err(err).Str("media_id", att.MediaID).Msg("save media analysis failed")
		}
	}

	var category *models.Category
	agg := res.Aggregate
	if !agg.Fallback {
		cat, err := s.Categories.Resolve(ctx, agg.Category)
		if err != nil {
			log.Warn().Err(err).Str("label", agg.Category).Msg("resolve ai category failed")
		}
		category = cat
	}

	c, err := s.mutate(ctx, complaintID, func(c *models.Complaint) error {
		applyAnalysis(c, res, category)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("store ai analysis failed")
		return
	}
	log.Info().
		Str("category", agg.Category).
		Str("priority", string(c.Priority)).
		Float64("confidence", agg.Confidence).
		Bool("fallback", agg.Fallback).
		Msg("complaint enriched")

	s.notify(ctx, notify.EventEnriched, c, fmt.Sprintf("Complaint %s has been reviewed and marked %s priority.", c.ComplaintID, c.Priority))
}

// applyAnalysis stores the analysis on the complaint. A category chosen by the
// submitter, and the priority it implies, is never replaced.
func applyAnalysis(c *models.Complaint, res ai.Result, category *models.Category) {
	agg := res.Aggregate.Clone()
	c.AIAnalysis = &agg
	for i := range c.MediaFiles {
		if i < len(res.Media) {
			a := res.Media[i].Clone()
			c.MediaFiles[i].AIAnalysis = &a
		}
	}

	if agg.Fallback || c.CategoryID != nil {
		return
	}
	if category != nil {
		id := category.ID
		c.CategoryID = &id
		c.Priority = category.Priority
		return
	}
	if agg.Priority.Valid() {
		c.Priority = agg.Priority
	}
}
