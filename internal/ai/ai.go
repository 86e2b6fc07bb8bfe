package ai

import (
	"context"
	"strings"

	"github.com/railmadad/backend/internal/models"
)

const FallbackCategory = "Other"

// Attachment is a media file handed to the adapter for analysis.
type Attachment struct {
	MediaID     string
	Filename    string
	ContentType string
	Data        []byte
}

type Adapter interface {
	AnalyzeText(ctx context.Context, description string) (models.Analysis, error)
	AnalyzeMedia(ctx context.Context, att Attachment) (models.Analysis, error)
}

// Fallback is the analysis used whenever the provider fails or times out.
func Fallback() models.Analysis {
	return models.Analysis{
		Category:   FallbackCategory,
		Categories: []string{},
		Priority:   models.PriorityMedium,
		Keywords:   []string{},
		Summary:    "",
		Confidence: 0,
		Fallback:   true,
	}
}

// NormalizePriority maps provider spellings ("High", "urgent") onto the enum.
func NormalizePriority(raw string) models.Priority {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CRITICAL", "URGENT", "EMERGENCY":
		return models.PriorityCritical
	case "HIGH":
		return models.PriorityHigh
	case "LOW":
		return models.PriorityLow
	}
	return models.PriorityMedium
}

func normalize(a models.Analysis) models.Analysis {
	a.Priority = NormalizePriority(string(a.Priority))
	a.Category = strings.TrimSpace(a.Category)
	if a.Category == "" {
		a.Category = FallbackCategory
	}
	if a.Keywords == nil {
		a.Keywords = []string{}
	}
	if len(a.Categories) == 0 {
		a.Categories = []string{a.Category}
	}
	if a.Confidence < 0 {
		a.Confidence = 0
	}
	if a.Confidence > 1 {
		a.Confidence = 1
	}
	return a
}
