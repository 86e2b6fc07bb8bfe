package service

import (
	"testing"

	"github.com/railmadad/backend/internal/models"
)

func TestFilterEligibleWorkersPrefersTrainAndSkill(t *testing.T) {
	workers := []models.User{
		{ID: "w1", Available: true, CurrentTrain: "12951", Skills: []string{"housekeeping"}},
		{ID: "w2", Available: true, CurrentTrain: "12951", Skills: []string{"electrical"}},
		{ID: "w3", Available: true, CurrentTrain: "12002", Skills: []string{"housekeeping"}},
		{ID: "w4", Available: false, CurrentTrain: "12951", Skills: []string{"housekeeping"}},
	}
	complaint := models.Complaint{TrainInfo: models.TrainInfo{TrainNumber: "12951"}}

	res := FilterEligibleWorkers(workers, complaint, "Cleanliness")
	if len(res.Eligible) != 1 || res.Eligible[0].ID != "w1" {
		t.Fatalf("expected only w1 eligible, got %+v", res.Eligible)
	}
	if !res.TrainMatch || res.ReasonCode != "TRAIN_MATCH" {
		t.Fatalf("expected train match, got %s", res.ReasonCode)
	}
}

func TestFilterEligibleWorkersFallsBackWhenNobodyOnTrain(t *testing.T) {
	workers := []models.User{
		{ID: "w1", Available: true, CurrentTrain: "12002"},
		{ID: "w2", Available: true},
	}
	complaint := models.Complaint{TrainInfo: models.TrainInfo{TrainNumber: "12951"}}

	res := FilterEligibleWorkers(workers, complaint, "Delayed Train")
	if len(res.Eligible) != 2 {
		t.Fatalf("expected both workers eligible, got %+v", res.Eligible)
	}
	if res.ReasonCode != "NO_WORKER_ON_TRAIN" {
		t.Fatalf("expected NO_WORKER_ON_TRAIN, got %s", res.ReasonCode)
	}
}

func TestFilterEligibleWorkersNoneAvailable(t *testing.T) {
	res := FilterEligibleWorkers([]models.User{{ID: "w1"}}, models.Complaint{}, "")
	if len(res.Eligible) != 0 || res.ReasonCode != "NO_AVAILABLE_WORKERS" {
		t.Fatalf("expected no eligible workers, got %+v", res)
	}
}

func TestPickAssigneeDeterministic(t *testing.T) {
	eligible := []models.User{
		{ID: "w1", ActiveLoad: 5},
		{ID: "w2", ActiveLoad: 1},
		{ID: "w3", ActiveLoad: 1},
	}
	assignee1, top2 := PickAssignee("RM000001", eligible)
	assignee2, _ := PickAssignee("RM000001", eligible)
	if assignee1.ID != assignee2.ID {
		t.Fatalf("expected deterministic assignment")
	}
	if len(top2) != 2 {
		t.Fatalf("expected top2 length 2")
	}
	if assignee1.ID == "w1" {
		t.Fatalf("expected one of the least loaded workers, got w1")
	}
}

func TestPickAssigneePrefersSmallerLoad(t *testing.T) {
	workers := []models.User{
		{ID: "w1", ActiveLoad: 5},
		{ID: "w2", ActiveLoad: 1},
		{ID: "w3", ActiveLoad: 3},
	}
	for _, id := range []string{"RM000001", "RM000002", "RM000099"} {
		assignee, _ := PickAssignee(id, workers)
		if assignee.ID != "w2" {
			t.Fatalf("expected worker with smaller load, got %s", assignee.ID)
		}
	}
}
