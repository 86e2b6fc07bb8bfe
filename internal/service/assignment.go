package service

import (
	"sort"
	"strings"

	"github.com/railmadad/backend/internal/models"
	"github.com/railmadad/backend/internal/utils"
)

type EligibilityResult struct {
	Eligible   []models.User
	ReasonCode string
	ReasonText string
	Stages     []EligibilityStage
	TrainMatch bool
}

type EligibilityStage struct {
	Name       string
	Candidates []models.User
}

// categorySkills maps category names to the worker skill that handles them.
var categorySkills = map[string]string{
	"Cleanliness":              "housekeeping",
	"Toilet Issues":            "housekeeping",
	"Bed Roll":                 "housekeeping",
	"AC or Fan Issue":          "electrical",
	"Electrical Issues":        "electrical",
	"Water Availability":       "maintenance",
	"Food Quality":             "catering",
	"Health Issue or Accident": "medical",
	"Theft or Robbery":         "security",
	"Harassment":               "security",
	"Staff Behavior":           "security",
}

// FilterEligibleWorkers narrows workers in stages: available, online, on the complaint's
// train, holding the category skill. Every stage after availability is a preference:
// when a stage would leave nobody, the previous stage's candidates are kept.
func FilterEligibleWorkers(workers []models.User, complaint models.Complaint, categoryName string) EligibilityResult {
	result := EligibilityResult{}
	result.Stages = append(result.Stages, EligibilityStage{Name: "all_workers", Candidates: workers})

	available := filterWorkers(workers, func(u models.User) bool { return u.Available })
	result.Stages = append(result.Stages, EligibilityStage{Name: "available", Candidates: available})
	if len(available) == 0 {
		result.ReasonCode = "NO_AVAILABLE_WORKERS"
		result.ReasonText = "No worker is currently available"
		return result
	}

	candidates := available
	online := filterWorkers(candidates, func(u models.User) bool { return u.IsOnline })
	result.Stages = append(result.Stages, EligibilityStage{Name: "online", Candidates: online})
	if len(online) > 0 {
		candidates = online
	}

	train := strings.TrimSpace(complaint.TrainInfo.TrainNumber)
	if train != "" {
		onTrain := filterWorkers(candidates, func(u models.User) bool {
			return strings.EqualFold(strings.TrimSpace(u.CurrentTrain), train)
		})
		result.Stages = append(result.Stages, EligibilityStage{Name: "train_rule", Candidates: onTrain})
		if len(onTrain) > 0 {
			candidates = onTrain
			result.TrainMatch = true
		}
	}

	if skill, ok := categorySkills[categoryName]; ok {
		skilled := filterWorkers(candidates, func(u models.User) bool { return hasSkill(u.Skills, skill) })
		result.Stages = append(result.Stages, EligibilityStage{Name: "skill_rule", Candidates: skilled})
		if len(skilled) > 0 {
			candidates = skilled
		}
	}

	result.Eligible = candidates
	switch {
	case result.TrainMatch:
		result.ReasonCode = "TRAIN_MATCH"
		result.ReasonText = "Worker is on board train " + train
	case train != "":
		result.ReasonCode = "NO_WORKER_ON_TRAIN"
		result.ReasonText = "No available worker on train " + train + ", using all available workers"
	default:
		result.ReasonCode = "AVAILABLE"
		result.ReasonText = "Least loaded available worker"
	}
	return result
}

// PickAssignee sorts by active load then ID and picks one of the two least loaded
// workers using a hash of the complaint ID, so repeated calls agree.
func PickAssignee(complaintID string, eligible []models.User) (models.User, []models.User) {
	sorted := append([]models.User(nil), eligible...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ActiveLoad == sorted[j].ActiveLoad {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].ActiveLoad < sorted[j].ActiveLoad
	})

	top := sorted
	if len(top) > 2 {
		top = sorted[:2]
	}
	// only tie-break between equally loaded workers
	if len(top) == 2 && top[0].ActiveLoad != top[1].ActiveLoad {
		return top[0], top
	}
	idx := int(utils.HashStringToUint64(complaintID) % uint64(len(top)))
	return top[idx], top
}

func hasSkill(skills []string, target string) bool {
	for _, s := range skills {
		if strings.EqualFold(strings.TrimSpace(s), target) {
			return true
		}
	}
	return false
}

func filterWorkers(workers []models.User, keep func(models.User) bool) []models.User {
	out := make([]models.User, 0, len(workers))
	for _, w := range workers {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}
