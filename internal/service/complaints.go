package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/railmadad/backend/internal/ai"
	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/auth"
	"github.com/railmadad/backend/internal/db"
	"github.com/railmadad/backend/internal/models"
	"github.com/railmadad/backend/internal/notify"
)

// Dispatcher delivers complaint events without blocking the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, e notify.Event)
}

type Recorder interface {
	ComplaintSubmitted(priority string)
	TransitionAccepted(from, to string)
}

type ComplaintService struct {
	Repo       Repository
	Categories *CategoryService
	Media      *MediaService
	Enricher   *ai.Enricher
	Notifier   Dispatcher
	Metrics    Recorder
	Validator  *validator.Validate
	Logger     zerolog.Logger

	now func() time.Time
	wg  sync.WaitGroup
}

func NewComplaintService(repo Repository, cats *CategoryService, media *MediaService, enricher *ai.Enricher, v *validator.Validate, logger zerolog.Logger) *ComplaintService {
	return &ComplaintService{
		Repo:       repo,
		Categories: cats,
		Media:      media,
		Enricher:   enricher,
		Validator:  v,
		Logger:     logger,
		now:        time.Now,
	}
}

type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type SubmitRequest struct {
	PNRNumber      string           `json:"pnrNumber" validate:"required,len=10,numeric"`
	CategoryID     string           `json:"categoryId" validate:"omitempty,max=64"`
	Description    string           `json:"description" validate:"required,max=5000"`
	TrainInfo      models.TrainInfo `json:"trainInfo"`
	ContactChannel string           `json:"contactChannel" validate:"omitempty,oneof=sms email whatsapp none"`
	ContactEmail   string           `json:"contactEmail" validate:"omitempty,email"`
	Latitude       *float64         `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude      *float64         `json:"longitude" validate:"omitempty,min=-180,max=180"`
	Files          []Upload         `json:"-" validate:"-"`
}

type ResolutionRequest struct {
	Notes string `json:"notes" validate:"required,max=2000"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

type UpdateRequest struct {
	Status     *models.Status     `json:"status"`
	Priority   *models.Priority   `json:"priority"`
	Notes      string             `json:"notes" validate:"max=2000"`
	Resolution *ResolutionRequest `json:"resolution"`
	Feedback   *FeedbackRequest   `json:"feedback"`
}

func (r UpdateRequest) empty() bool {
	return r.Status == nil && r.Priority == nil && r.Resolution == nil && r.Feedback == nil
}

type AssignRequest struct {
	WorkerID string `json:"workerId" validate:"max=64"`
	Reason   string `json:"reason" validate:"max=500"`
}

type WorkerSuggestion struct {
	Workers     []models.User `json:"workers"`
	Recommended *models.User  `json:"recommended,omitempty"`
	ReasonCode  string        `json:"reasonCode"`
	Reason      string        `json:"reason"`
}

func (s *ComplaintService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func requireUser(p auth.Principal) error {
	if p.UserID == "" {
		return apperrors.Clone(apperrors.ErrUnauthenticated, "")
	}
	return nil
}

// Submit validates and stores a new complaint, then enriches it in the background.
func (s *ComplaintService) Submit(ctx context.Context, p auth.Principal, req SubmitRequest) (models.Complaint, error) {
	if err := requireUser(p); err != nil {
		return models.Complaint{}, err
	}
	req.PNRNumber = strings.TrimSpace(req.PNRNumber)
	if req.PNRNumber == "" {
		req.PNRNumber = ExtractJourney(req.Description).PNR
	}
	req.CategoryID = strings.TrimSpace(req.CategoryID)
	req.Description = strings.TrimSpace(req.Description)
	req.ContactChannel = strings.ToLower(strings.TrimSpace(req.ContactChannel))
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	if err := s.Validator.Struct(req); err != nil {
		return models.Complaint{}, validationError(err)
	}

	priority := models.PriorityMedium
	var categoryID *string
	if req.CategoryID != "" {
		cat, err := s.Repo.GetCategory(ctx, req.CategoryID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return models.Complaint{}, storeError(err, "category")
		}
		if err != nil || !cat.IsActive {
			return models.Complaint{}, apperrors.Clone(apperrors.ErrValidation, "unknown or inactive category")
		}
		priority = cat.Priority
		categoryID = &cat.ID
	}

	now := s.clock()
	c := models.Complaint{
		ID:             uuid.NewString(),
		UserID:         p.UserID,
		PNRNumber:      req.PNRNumber,
		Description:    req.Description,
		CategoryID:     categoryID,
		Priority:       priority,
		Status:         models.StatusPendingReview,
		MediaFiles:     []models.MediaRef{},
		TrainInfo:      mergeTrainInfo(req.TrainInfo, ExtractJourney(req.Description).Train),
		ContactChannel: req.ContactChannel,
		ContactEmail:   req.ContactEmail,
		Timeline:       initialTimeline(p.UserID, now),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if c.TrainInfo.CurrentStation == "" && req.Latitude != nil && req.Longitude != nil {
		if st, _, ok := NearestStation(*req.Latitude, *req.Longitude); ok {
			c.TrainInfo.CurrentStation = st.Name
		}
	}

	atts := make([]ai.Attachment, 0, len(req.Files))
	stored := make([]string, 0, len(req.Files))
	for _, f := range req.Files {
		m, err := s.Media.Store(ctx, f.Data, f.Filename, f.ContentType, p.UserID)
		if err != nil {
			s.Media.discard(context.WithoutCancel(ctx), stored)
			return models.Complaint{}, err
		}
		stored = append(stored, m.ID)
		c.MediaFiles = append(c.MediaFiles, models.MediaRef{
			Type:     models.MediaType(m.ContentType),
			FileID:   m.ID,
			URL:      "/api/media/" + m.ID,
			Filename: m.Filename,
		})
		atts = append(atts, ai.Attachment{MediaID: m.ID, Filename: m.Filename, ContentType: m.ContentType, Data: f.Data})
	}

	if err := s.Repo.CreateComplaint(ctx, &c); err != nil {
		s.Media.discard(context.WithoutCancel(ctx), stored)
		return models.Complaint{}, storeError(err, "complaint")
	}
	for _, ref := range c.MediaFiles {
		if err := s.Repo.AttachMedia(ctx, ref.FileID, c.ID); err != nil {
			s.Logger.Warn().Err(err).Str("complaint_id", c.ComplaintID).Str("media_id", ref.FileID).Msg("attach media failed")
		}
	}

	if s.Metrics != nil {
		s.Metrics.ComplaintSubmitted(string(c.Priority))
	}
	s.notify(ctx, notify.EventSubmitted, c, fmt.Sprintf("Your complaint %s has been registered.", c.ComplaintID))
	if s.Enricher != nil {
		bg := context.WithoutCancel(ctx)
		complaintID := c.ComplaintID
		s.background(func() { s.enrich(bg, complaintID, req.Description, atts) })
	}
	return c, nil
}

// Get returns a complaint the principal may read: its submitter, its assignee or an admin.
func (s *ComplaintService) Get(ctx context.Context, p auth.Principal, id string) (models.Complaint, error) {
	if err := requireUser(p); err != nil {
		return models.Complaint{}, err
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return models.Complaint{}, err
	}
	if !canRead(c, p) {
		return models.Complaint{}, apperrors.Clone(apperrors.ErrForbidden, "not allowed to view this complaint")
	}
	return c, nil
}

func canRead(c models.Complaint, p auth.Principal) bool {
	return auth.Authorize(p, models.RoleAdmin) ||
		c.UserID == p.UserID ||
		(c.Assignment != nil && c.Assignment.StaffID == p.UserID)
}

func (s *ComplaintService) load(ctx context.Context, id string) (models.Complaint, error) {
	id = strings.TrimSpace(id)
	var (
		c   models.Complaint
		err error
	)
	if strings.HasPrefix(strings.ToUpper(id), models.ComplaintIDPrefix) {
		c, err = s.Repo.GetComplaintByComplaintID(ctx, strings.ToUpper(id))
	} else {
		c, err = s.Repo.GetComplaint(ctx, id)
	}
	if err != nil {
		return models.Complaint{}, storeError(err, "complaint")
	}
	return c, nil
}

// List applies the filter; non-admin callers only ever see their own complaints.
func (s *ComplaintService) List(ctx context.Context, p auth.Principal, f models.ComplaintFilter) ([]models.Complaint, int, models.ComplaintFilter, error) {
	if err := requireUser(p); err != nil {
		return nil, 0, f, err
	}
	if !auth.Authorize(p, models.RoleAdmin) {
		f.OwnerID = p.UserID
		f.AssigneeID = ""
	}
	return s.list(ctx, f)
}

// ListAssigned returns complaints assigned to the calling worker.
func (s *ComplaintService) ListAssigned(ctx context.Context, p auth.Principal, f models.ComplaintFilter) ([]models.Complaint, int, models.ComplaintFilter, error) {
	if !auth.Authorize(p, models.RoleWorker) {
		return nil, 0, f, apperrors.Clone(apperrors.ErrForbidden, "")
	}
	f.OwnerID = ""
	f.AssigneeID = p.UserID
	return s.list(ctx, f)
}

func (s *ComplaintService) list(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, int, models.ComplaintFilter, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, f, apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("unknown status %q", f.Status))
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, 0, f, apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("unknown priority %q", f.Priority))
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Normalize()
	items, total, err := s.Repo.ListComplaints(ctx, f)
	if err != nil {
		return nil, 0, f, storeError(err, "complaint")
	}
	if items == nil {
		items = []models.Complaint{}
	}
	return items, total, f, nil
}

// Update validates the whole patch against the state machine and field permissions,
// then writes it with optimistic concurrency.
func (s *ComplaintService) Update(ctx context.Context, p auth.Principal, id string, req UpdateRequest) (models.Complaint, error) {
	if err := requireUser(p); err != nil {
		return models.Complaint{}, err
	}
	if err := s.Validator.Struct(req); err != nil {
		return models.Complaint{}, validationError(err)
	}
	if req.empty() {
		return models.Complaint{}, apperrors.Clone(apperrors.ErrValidation, "nothing to update")
	}

	var from models.Status
	c, err := s.mutate(ctx, id, func(c *models.Complaint) error {
		from = c.Status
		if !canRead(*c, p) {
			return apperrors.Clone(apperrors.ErrForbidden, "not allowed to modify this complaint")
		}
		return applyUpdate(c, p, req, s.clock())
	})
	if err != nil {
		return models.Complaint{}, err
	}

	if req.Status != nil {
		if s.Metrics != nil {
			s.Metrics.TransitionAccepted(string(from), string(c.Status))
		}
		s.notify(ctx, notify.EventStatusChanged, c, fmt.Sprintf("Complaint %s is now %s.", c.ComplaintID, statusLabels[c.Status]))
	}
	return c, nil
}

func applyUpdate(c *models.Complaint, p auth.Principal, req UpdateRequest, now time.Time) error {
	target := c.Status
	if req.Status != nil {
		if err := CheckTransition(*c, *req.Status, p); err != nil {
			return err
		}
		target = *req.Status
	}
	if req.Priority != nil {
		if !auth.Authorize(p, models.RoleAdmin) {
			return apperrors.Clone(apperrors.ErrForbidden, "only admins may change priority")
		}
		if !req.Priority.Valid() {
			return apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("unknown priority %q", *req.Priority))
		}
	}
	if req.Resolution != nil && !actsAs(*c, p, actorAdmin) && !actsAs(*c, p, actorAssignee) {
		return apperrors.Clone(apperrors.ErrForbidden, "only the assignee or an admin may record resolution notes")
	}
	if req.Feedback != nil {
		if !actsAs(*c, p, actorSubmitter) {
			return apperrors.Clone(apperrors.ErrForbidden, "only the submitter may leave feedback")
		}
		if target != models.StatusResolved && target != models.StatusClosed {
			return apperrors.Clone(apperrors.ErrValidation, "feedback is accepted only after resolution")
		}
	}

	if req.Status != nil {
		ApplyTransition(c, *req.Status, p, strings.TrimSpace(req.Notes), now)
	}
	if req.Priority != nil {
		c.Priority = *req.Priority
	}
	if req.Resolution != nil {
		if c.Resolution == nil {
			c.Resolution = &models.Resolution{}
		}
		c.Resolution.Notes = strings.TrimSpace(req.Resolution.Notes)
	}
	if req.Feedback != nil {
		if c.Resolution == nil {
			c.Resolution = &models.Resolution{}
		}
		c.Resolution.Feedback = &models.Feedback{
			Rating:    req.Feedback.Rating,
			Comment:   strings.TrimSpace(req.Feedback.Comment),
			CreatedAt: now,
		}
	}
	return nil
}

// mutate loads the complaint, applies fn and writes it back. A version conflict is
// retried once against a fresh read before surfacing as Conflict.
func (s *ComplaintService) mutate(ctx context.Context, id string, fn func(c *models.Complaint) error) (models.Complaint, error) {
	for attempt := 0; attempt < 2; attempt++ {
		c, err := s.load(ctx, id)
		if err != nil {
			return models.Complaint{}, err
		}
		expected := c.Version
		if err := fn(&c); err != nil {
			return models.Complaint{}, err
		}
		c.UpdatedAt = s.clock()
		err = s.Repo.UpdateComplaint(ctx, &c, expected)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, db.ErrVersionConflict) {
			return models.Complaint{}, storeError(err, "complaint")
		}
		s.Logger.Debug().Str("complaint_id", c.ComplaintID).Int("attempt", attempt+1).Msg("version conflict")
	}
	return models.Complaint{}, apperrors.Clone(apperrors.ErrConflict, "complaint was modified concurrently, retry")
}

// Assign hands an approved complaint to a worker. An empty WorkerID lets the
// train-aware selector choose.
func (s *ComplaintService) Assign(ctx context.Context, p auth.Principal, id string, req AssignRequest) (models.Complaint, error) {
	if !auth.Authorize(p, models.RoleAdmin) {
		return models.Complaint{}, apperrors.Clone(apperrors.ErrForbidden, "only admins may assign complaints")
	}
	if err := s.Validator.Struct(req); err != nil {
		return models.Complaint{}, validationError(err)
	}

	reason := strings.TrimSpace(req.Reason)
	var worker models.User
	if workerID := strings.TrimSpace(req.WorkerID); workerID != "" {
		u, err := s.Repo.GetUser(ctx, workerID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return models.Complaint{}, apperrors.Clone(apperrors.ErrValidation, "unknown worker")
			}
			return models.Complaint{}, storeError(err, "user")
		}
		if u.Role != models.RoleWorker {
			return models.Complaint{}, apperrors.Clone(apperrors.ErrValidation, "assignee must be a worker")
		}
		worker = u
	} else {
		sug, err := s.SuggestWorkers(ctx, p, id)
		if err != nil {
			return models.Complaint{}, err
		}
		if sug.Recommended == nil {
			return models.Complaint{}, apperrors.Clone(apperrors.ErrConflict, sug.Reason)
		}
		worker = *sug.Recommended
		if reason == "" {
			reason = sug.Reason
		}
	}

	c, err := s.mutate(ctx, id, func(c *models.Complaint) error {
		if c.Status != models.StatusApproved && c.Status != models.StatusInProgress {
			return apperrors.Clone(apperrors.ErrInvalidTransition, fmt.Sprintf("cannot assign a complaint in status %s", c.Status))
		}
		status := models.AssignmentPending
		if c.Status == models.StatusInProgress {
			status = models.AssignmentInProgress
		}
		c.Assignment = &models.Assignment{
			StaffID:    worker.ID,
			StaffName:  worker.Name,
			AssignedAt: s.clock(),
			AssignedBy: p.UserID,
			Status:     status,
			Reason:     reason,
		}
		return nil
	})
	if err != nil {
		return models.Complaint{}, err
	}
	s.notify(ctx, notify.EventAssigned, c, fmt.Sprintf("Complaint %s has been assigned to our staff.", c.ComplaintID))
	return c, nil
}

// SuggestWorkers ranks available workers for a complaint, preferring those on its train.
func (s *ComplaintService) SuggestWorkers(ctx context.Context, p auth.Principal, id string) (WorkerSuggestion, error) {
	if !auth.Authorize(p, models.RoleAdmin) {
		return WorkerSuggestion{}, apperrors.Clone(apperrors.ErrForbidden, "")
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return WorkerSuggestion{}, err
	}
	workers, err := s.Repo.ListWorkers(ctx, models.WorkerFilter{})
	if err != nil {
		return WorkerSuggestion{}, storeError(err, "user")
	}

	categoryName := ""
	if c.CategoryID != nil {
		if cat, err := s.Repo.GetCategory(ctx, *c.CategoryID); err == nil {
			categoryName = cat.Name
		}
	} else if c.AIAnalysis != nil && !c.AIAnalysis.Fallback {
		categoryName = c.AIAnalysis.Category
	}

	res := FilterEligibleWorkers(workers, c, categoryName)
	out := WorkerSuggestion{Workers: res.Eligible, ReasonCode: res.ReasonCode, Reason: res.ReasonText}
	if out.Workers == nil {
		out.Workers = []models.User{}
	}
	if len(res.Eligible) > 0 {
		pick, _ := PickAssignee(c.ComplaintID, res.Eligible)
		out.Recommended = &pick
	}
	return out, nil
}

// WorkerProgress lets an assigned worker start or complete a complaint.
func (s *ComplaintService) WorkerProgress(ctx context.Context, p auth.Principal, id, progress, notes string) (models.Complaint, error) {
	if !auth.Authorize(p, models.RoleWorker) {
		return models.Complaint{}, apperrors.Clone(apperrors.ErrForbidden, "")
	}
	var to models.Status
	switch progress {
	case models.AssignmentInProgress:
		to = models.StatusInProgress
	case models.AssignmentCompleted:
		to = models.StatusResolved
	default:
		return models.Complaint{}, apperrors.Clone(apperrors.ErrValidation, "status must be in_progress or completed")
	}
	return s.Update(ctx, p, id, UpdateRequest{Status: &to, Notes: notes})
}

func (s *ComplaintService) notify(ctx context.Context, typ string, c models.Complaint, msg string) {
	if s.Notifier == nil {
		return
	}
	e := notify.Event{
		Type:         typ,
		ComplaintID:  c.ComplaintID,
		UserID:       c.UserID,
		Status:       c.Status,
		Priority:     c.Priority,
		Channel:      c.ContactChannel,
		ContactEmail: c.ContactEmail,
		Message:      msg,
		OccurredAt:   s.clock(),
	}
	if c.Assignment != nil {
		e.AssigneeID = c.Assignment.StaffID
	}
	s.Notifier.Dispatch(ctx, e)
}

func (s *ComplaintService) background(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Drain waits for background enrichment to finish or ctx to end.
func (s *ComplaintService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
