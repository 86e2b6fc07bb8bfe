package ai

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/railmadad/backend/internal/models"
	"github.com/railmadad/backend/internal/utils"
)

type keywordRule struct {
	category string
	priority models.Priority
	words    []string
}

// Rules are checked in order; the first category with a hit wins, every hit becomes a keyword.
var mockRules = []keywordRule{
	{"Health Issue or Accident", models.PriorityCritical, []string{"medical", "injur", "accident", "unconscious", "bleeding", "heart", "doctor"}},
	{"Harassment", models.PriorityHigh, []string{"harass", "molest", "abuse", "stalk"}},
	{"Theft or Robbery", models.PriorityHigh, []string{"theft", "stolen", "robbery", "pickpocket", "snatch"}},
	{"Ticketing and Reservations", models.PriorityHigh, []string{"ticket", "reservation", "booking", "waitlist"}},
	{"Seat Reserved by Other Person", models.PriorityMedium, []string{"my seat", "occupied", "berth taken"}},
	{"AC or Fan Issue", models.PriorityMedium, []string{"ac ", "air condition", "fan", "cooling", " hot "}},
	{"Toilet Issues", models.PriorityMedium, []string{"toilet", "washroom", "lavatory", "flush"}},
	{"Cleanliness", models.PriorityMedium, []string{"dirty", "clean", "cockroach", "garbage", "smell", " rat "}},
	{"Water Availability", models.PriorityMedium, []string{"water", " tap "}},
	{"Food Quality", models.PriorityMedium, []string{"food", "meal", "pantry", "stale", "catering"}},
	{"Electrical Issues", models.PriorityMedium, []string{"light", "socket", "charging", "electric", "switch"}},
	{"Staff Behavior", models.PriorityMedium, []string{"staff", "rude", " tte ", "conductor", "attendant"}},
	{"Delayed Train", models.PriorityMedium, []string{"delay", " late ", "running late"}},
	{"Overcrowding", models.PriorityMedium, []string{"crowd", "unreserved passengers"}},
	{"Refund Issues", models.PriorityMedium, []string{"refund"}},
	{"Accessibility Issues", models.PriorityHigh, []string{"wheelchair", "disabled", "ramp"}},
	{"Bed Roll", models.PriorityLow, []string{"bedroll", "bed roll", "blanket", "pillow", "linen"}},
	{"Luggage Issues", models.PriorityLow, []string{"luggage", "baggage", "suitcase"}},
}

// MockAdapter classifies by keyword tables and derives confidence from a hash of the input,
// so the same input always yields the same analysis.
type MockAdapter struct {
	ModelVersion string
}

func (m MockAdapter) AnalyzeText(ctx context.Context, description string) (models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return models.Analysis{}, err
	}
	a := classify(description)
	a.Summary = summarize(description)
	a.Confidence = hashedConfidence(description)
	if a.Category == FallbackCategory {
		a.Confidence = 0.4
	}
	a.ModelVersion = m.ModelVersion
	return a, nil
}

func (m MockAdapter) AnalyzeMedia(ctx context.Context, att Attachment) (models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return models.Analysis{}, err
	}
	name := strings.TrimSuffix(att.Filename, filepath.Ext(att.Filename))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	a := classify(name)
	a.Summary = fmt.Sprintf("%s attachment %s", models.MediaType(att.ContentType), att.Filename)
	a.Confidence = hashedConfidence(fmt.Sprintf("%s:%d:%d", att.Filename, len(att.Data), utils.HashBytesToUint64(att.Data)))
	a.ModelVersion = m.ModelVersion
	return a, nil
}

func classify(text string) models.Analysis {
	lower := " " + strings.ToLower(text) + " "
	a := models.Analysis{Category: FallbackCategory, Priority: models.PriorityMedium, Keywords: []string{}, Categories: []string{}}
	for _, rule := range mockRules {
		hit := false
		for _, w := range rule.words {
			if strings.Contains(lower, w) {
				hit = true
				a.Keywords = append(a.Keywords, strings.TrimSpace(w))
			}
		}
		if !hit {
			continue
		}
		a.Categories = append(a.Categories, rule.category)
		if a.Category == FallbackCategory {
			a.Category = rule.category
			a.Priority = rule.priority
		}
	}
	if len(a.Categories) == 0 {
		a.Categories = []string{FallbackCategory}
	}
	return a
}

func hashedConfidence(s string) float64 {
	h := utils.HashStringToUint64(s)
	return 0.6 + float64(h%36)/100
}

func summarize(s string) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= 120 {
		return string(r)
	}
	return strings.TrimSpace(string(r[:117])) + "..."
}
