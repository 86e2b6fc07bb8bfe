package service

import (
	"fmt"
	"time"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/auth"
	"github.com/railmadad/backend/internal/models"
)

type actor int

const (
	actorAdmin actor = iota
	actorAssignee
	actorSubmitter
)

type transition struct {
	from, to models.Status
}

// transitions lists every accepted edge with the actors allowed to take it.
// Any pair not listed, including same-status moves, is rejected.
var transitions = map[transition][]actor{
	{models.StatusPendingReview, models.StatusApproved}: {actorAdmin},
	{models.StatusPendingReview, models.StatusRejected}: {actorAdmin},
	{models.StatusApproved, models.StatusInProgress}:    {actorAdmin, actorAssignee},
	{models.StatusApproved, models.StatusResolved}:      {actorAdmin, actorAssignee},
	{models.StatusInProgress, models.StatusResolved}:    {actorAdmin, actorAssignee},
	{models.StatusResolved, models.StatusClosed}:        {actorAdmin, actorSubmitter},
}

var statusLabels = map[models.Status]string{
	models.StatusPendingReview: "Submitted",
	models.StatusApproved:      "Approved",
	models.StatusRejected:      "Rejected",
	models.StatusInProgress:    "In Progress",
	models.StatusResolved:      "Resolved",
	models.StatusClosed:        "Closed",
}

func IsTerminal(s models.Status) bool {
	return s == models.StatusRejected || s == models.StatusClosed
}

// CheckTransition validates a status change for p on c. It returns ErrInvalidTransition
// for an edge that does not exist and ErrForbidden for an edge p may not take.
func CheckTransition(c models.Complaint, to models.Status, p auth.Principal) error {
	if !to.Valid() {
		return apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("unknown status %q", to))
	}
	allowed, ok := transitions[transition{from: c.Status, to: to}]
	if !ok {
		return apperrors.Clone(apperrors.ErrInvalidTransition, fmt.Sprintf("cannot move complaint from %s to %s", c.Status, to))
	}
	for _, a := range allowed {
		if actsAs(c, p, a) {
			return nil
		}
	}
	return apperrors.Clone(apperrors.ErrForbidden, fmt.Sprintf("not allowed to move complaint to %s", to))
}

func actsAs(c models.Complaint, p auth.Principal, a actor) bool {
	switch a {
	case actorAdmin:
		return auth.Authorize(p, models.RoleAdmin)
	case actorAssignee:
		return auth.Authorize(p, models.RoleWorker) && c.Assignment != nil && c.Assignment.StaffID == p.UserID
	case actorSubmitter:
		return p.UserID != "" && c.UserID == p.UserID
	}
	return false
}

// ApplyTransition moves c to status and appends exactly one timeline entry.
// Callers must run CheckTransition first.
func ApplyTransition(c *models.Complaint, to models.Status, p auth.Principal, note string, now time.Time) {
	if note == "" {
		note = fmt.Sprintf("Status updated to %s", to)
	}
	c.Status = to
	c.Timeline = append(c.Timeline, models.TimelineEntry{
		Status:      to,
		Label:       statusLabels[to],
		Description: note,
		Timestamp:   now,
		UpdatedBy:   p.UserID,
	})

	if c.Assignment != nil {
		switch to {
		case models.StatusInProgress:
			c.Assignment.Status = models.AssignmentInProgress
		case models.StatusResolved, models.StatusClosed:
			c.Assignment.Status = models.AssignmentCompleted
		}
	}
	if to == models.StatusResolved {
		if c.Resolution == nil {
			c.Resolution = &models.Resolution{}
		}
		c.Resolution.ResolvedAt = &now
		c.Resolution.ResolvedBy = p.UserID
	}
}

func initialTimeline(submittedBy string, now time.Time) []models.TimelineEntry {
	return []models.TimelineEntry{{
		Status:      models.StatusPendingReview,
		Label:       statusLabels[models.StatusPendingReview],
		Description: "Complaint received",
		Timestamp:   now,
		UpdatedBy:   submittedBy,
	}}
}
