package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railmadad/backend/internal/ai"
	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/auth"
	"github.com/railmadad/backend/internal/db"
	"github.com/railmadad/backend/internal/memstore"
	"github.com/railmadad/backend/internal/models"
	"github.com/railmadad/backend/internal/notify"
)

var complaintIDPattern = regexp.MustCompile(`^RM\d{6,}$`)

var (
	adminP  = auth.Principal{UserID: "admin-1", Role: models.RoleAdmin}
	aliceP  = auth.Principal{UserID: "alice", Role: models.RoleUser}
	bobP    = auth.Principal{UserID: "bob", Role: models.RoleUser}
	worker1 = auth.Principal{UserID: "w1", Role: models.RoleWorker}
	worker2 = auth.Principal{UserID: "w2", Role: models.RoleWorker}
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingDispatcher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type failingAdapter struct{}

func (failingAdapter) AnalyzeText(ctx context.Context, description string) (models.Analysis, error) {
	return models.Analysis{}, errors.New("provider down")
}

func (failingAdapter) AnalyzeMedia(ctx context.Context, att ai.Attachment) (models.Analysis, error) {
	return models.Analysis{}, errors.New("provider down")
}

type testEnv struct {
	store  *memstore.Store
	svc    *ComplaintService
	cats   *CategoryService
	events *recordingDispatcher
}

func newTestEnv(t *testing.T, adapter ai.Adapter) *testEnv {
	t.Helper()
	store := memstore.New()
	v := NewValidator()
	cats := NewCategoryService(store, v)
	media := NewMediaService(store, 4)
	enricher := &ai.Enricher{Adapter: adapter, Timeout: time.Second, Logger: zerolog.Nop()}
	svc := NewComplaintService(store, cats, media, enricher, v, zerolog.Nop())
	events := &recordingDispatcher{}
	svc.Notifier = events

	ctx := context.Background()
	for _, u := range []models.User{
		{ID: "admin-1", PhoneNumber: "+919000000001", Role: models.RoleAdmin},
		{ID: "alice", PhoneNumber: "+919000000002", Role: models.RoleUser},
		{ID: "bob", PhoneNumber: "+919000000003", Role: models.RoleUser},
		{ID: "w1", PhoneNumber: "+919000000004", Role: models.RoleWorker, Name: "Ravi", Available: true, CurrentTrain: "12951"},
		{ID: "w2", PhoneNumber: "+919000000005", Role: models.RoleWorker, Name: "Meena", Available: true, CurrentTrain: "12002"},
	} {
		require.NoError(t, store.CreateUser(ctx, u))
	}
	return &testEnv{store: store, svc: svc, cats: cats, events: events}
}

func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.svc.Drain(ctx))
}

func (e *testEnv) submit(t *testing.T, p auth.Principal, desc string) models.Complaint {
	t.Helper()
	c, err := e.svc.Submit(context.Background(), p, SubmitRequest{PNRNumber: "1234567890", Description: desc})
	require.NoError(t, err)
	return c
}

func statusPtr(s models.Status) *models.Status { return &s }

func TestSubmitCreatesPendingComplaint(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{ModelVersion: "mock"})
	ctx := context.Background()

	c, err := env.svc.Submit(ctx, aliceP, SubmitRequest{PNRNumber: "1234567890", Description: "Dirty toilet"})
	require.NoError(t, err)
	assert.Regexp(t, complaintIDPattern, c.ComplaintID)
	assert.Equal(t, models.StatusPendingReview, c.Status)
	assert.Equal(t, models.PriorityMedium, c.Priority)
	require.Len(t, c.Timeline, 1)
	assert.Equal(t, "Complaint received", c.Timeline[0].Description)

	env.drain(t)
	got, err := env.svc.Get(ctx, aliceP, c.ComplaintID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, got.Status)
	assert.Len(t, got.Timeline, 1)
	require.NotNil(t, got.AIAnalysis)
	assert.False(t, got.AIAnalysis.Fallback)
	assert.Contains(t, env.events.types(), notify.EventSubmitted)
	assert.Contains(t, env.events.types(), notify.EventEnriched)
}

func TestEventsCarryContactChannel(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()

	_, err := env.svc.Submit(ctx, aliceP, SubmitRequest{
		PNRNumber:      "1234567890",
		Description:    "Fan not working",
		ContactChannel: "Email",
		ContactEmail:   "alice@example.com",
	})
	require.NoError(t, err)
	env.drain(t)

	env.events.mu.Lock()
	defer env.events.mu.Unlock()
	require.NotEmpty(t, env.events.events)
	for _, e := range env.events.events {
		assert.Equal(t, notify.ChannelEmail, e.Channel, e.Type)
		assert.Equal(t, "alice@example.com", e.ContactEmail, e.Type)
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	inactive, err := env.cats.Create(ctx, CreateCategoryRequest{Name: "Legacy", Priority: "LOW"})
	require.NoError(t, err)
	require.NoError(t, env.cats.Deactivate(ctx, inactive.ID))

	cases := []struct {
		name string
		p    auth.Principal
		req  SubmitRequest
		want *apperrors.Error
	}{
		{"missing pnr", aliceP, SubmitRequest{Description: "Dirty toilet"}, apperrors.ErrValidation},
		{"short pnr", aliceP, SubmitRequest{PNRNumber: "123456789", Description: "Dirty toilet"}, apperrors.ErrValidation},
		{"letters in pnr", aliceP, SubmitRequest{PNRNumber: "12345abcde", Description: "Dirty toilet"}, apperrors.ErrValidation},
		{"missing description", aliceP, SubmitRequest{PNRNumber: "1234567890", Description: "   "}, apperrors.ErrValidation},
		{"unknown category", aliceP, SubmitRequest{PNRNumber: "1234567890", Description: "Dirty toilet", CategoryID: "nope"}, apperrors.ErrValidation},
		{"inactive category", aliceP, SubmitRequest{PNRNumber: "1234567890", Description: "Dirty toilet", CategoryID: inactive.ID}, apperrors.ErrValidation},
		{"anonymous", auth.Principal{}, SubmitRequest{PNRNumber: "1234567890", Description: "Dirty toilet"}, apperrors.ErrUnauthenticated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Submit(ctx, tc.p, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSubmitExtractsJourneyDetails(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	c := env.submit(t, aliceP, "Train 12951 coach B4 seat 32, the fan is not working")
	assert.Equal(t, "12951", c.TrainInfo.TrainNumber)
	assert.Equal(t, "B4", c.TrainInfo.CoachNumber)
	assert.Equal(t, "32", c.TrainInfo.SeatNumber)
	env.drain(t)
}

func TestSubmitStoresMedia(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	data := []byte("\x89PNG\r\n\x1a\n-fake-image-payload")

	c, err := env.svc.Submit(ctx, aliceP, SubmitRequest{
		PNRNumber:   "1234567890",
		Description: "Broken window glass",
		Files:       []Upload{{Filename: "window.png", Data: data}},
	})
	require.NoError(t, err)
	require.Len(t, c.MediaFiles, 1)
	assert.Equal(t, "image", c.MediaFiles[0].Type)
	assert.Equal(t, "/api/media/"+c.MediaFiles[0].FileID, c.MediaFiles[0].URL)

	got, m, err := env.svc.Media.Fetch(ctx, c.MediaFiles[0].FileID)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, c.ID, m.ComplaintID)

	env.drain(t)
	stored, err := env.svc.Get(ctx, aliceP, c.ComplaintID)
	require.NoError(t, err)
	require.NotNil(t, stored.MediaFiles[0].AIAnalysis)
}

type failingCreateStore struct {
	*memstore.Store
}

func (failingCreateStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return errors.New("disk full")
}

type insertRecorder struct {
	*memstore.Store
	ids []string
}

func (r *insertRecorder) InsertMedia(ctx context.Context, m models.Media, chunks []models.MediaChunk) error {
	r.ids = append(r.ids, m.ID)
	return r.Store.InsertMedia(ctx, m, chunks)
}

func TestSubmitDiscardsMediaWhenComplaintNotStored(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	rec := &insertRecorder{Store: env.store}
	env.svc.Media.Repo = rec
	env.svc.Repo = failingCreateStore{Store: env.store}

	_, err := env.svc.Submit(ctx, aliceP, SubmitRequest{
		PNRNumber:   "1234567890",
		Description: "Broken window glass",
		Files: []Upload{
			{Filename: "a.png", Data: []byte("first")},
			{Filename: "b.png", Data: []byte("second")},
		},
	})
	require.Error(t, err)
	require.Len(t, rec.ids, 2)
	for _, id := range rec.ids {
		_, err := env.store.GetMedia(ctx, id)
		assert.ErrorIs(t, err, db.ErrNotFound)
	}
}

func TestUnattachedMediaVisibleToUploaderAndAdmin(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	m, err := env.svc.Media.Store(ctx, []byte("orphan"), "orphan.txt", "text/plain", aliceP.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice", m.UploadedBy)

	got, _, err := env.svc.OpenMedia(ctx, aliceP, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "orphan", string(got))

	_, _, err = env.svc.OpenMedia(ctx, adminP, m.ID)
	require.NoError(t, err)

	_, _, err = env.svc.OpenMedia(ctx, bobP, m.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, _, err = env.svc.OpenMedia(ctx, worker1, m.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestSubmitTakesPNRFromDescription(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	c, err := env.svc.Submit(context.Background(), aliceP, SubmitRequest{Description: "PNR 4521789630, coach S3 has no water"})
	require.NoError(t, err)
	assert.Equal(t, "4521789630", c.PNRNumber)

	_, err = env.svc.Submit(context.Background(), aliceP, SubmitRequest{PNRNumber: "1234567890", Description: "PNR 4521789630 no water"})
	require.NoError(t, err)
	env.drain(t)
}

func TestSubmitFillsStationFromCoordinates(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	lat, lon := 28.6425, 77.2210

	c, err := env.svc.Submit(ctx, aliceP, SubmitRequest{PNRNumber: "1234567890", Description: "No water", Latitude: &lat, Longitude: &lon})
	require.NoError(t, err)
	assert.Equal(t, "New Delhi", c.TrainInfo.CurrentStation)

	typed := SubmitRequest{PNRNumber: "1234567890", Description: "No water", Latitude: &lat, Longitude: &lon}
	typed.TrainInfo.CurrentStation = "Ghaziabad"
	c, err = env.svc.Submit(ctx, aliceP, typed)
	require.NoError(t, err)
	assert.Equal(t, "Ghaziabad", c.TrainInfo.CurrentStation)

	far := 10.0
	c, err = env.svc.Submit(ctx, aliceP, SubmitRequest{PNRNumber: "1234567890", Description: "No water", Latitude: &far, Longitude: &far})
	require.NoError(t, err)
	assert.Empty(t, c.TrainInfo.CurrentStation)

	bad := 123.0
	_, err = env.svc.Submit(ctx, aliceP, SubmitRequest{PNRNumber: "1234567890", Description: "No water", Latitude: &bad, Longitude: &lon})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	env.drain(t)
}

func TestEnrichmentResolvesCategoryWhenNoneGiven(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	toilet, err := env.cats.Create(ctx, CreateCategoryRequest{Name: "Toilet Issues", Priority: "HIGH"})
	require.NoError(t, err)

	c := env.submit(t, aliceP, "Dirty toilet")
	env.drain(t)

	got, err := env.svc.Get(ctx, aliceP, c.ComplaintID)
	require.NoError(t, err)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, toilet.ID, *got.CategoryID)
	assert.Equal(t, models.PriorityHigh, got.Priority)
}

func TestEnrichmentKeepsSubmitterCategory(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	food, err := env.cats.Create(ctx, CreateCategoryRequest{Name: "Food Quality", Priority: "LOW"})
	require.NoError(t, err)
	_, err = env.cats.Create(ctx, CreateCategoryRequest{Name: "Health Issue or Accident", Priority: "CRITICAL"})
	require.NoError(t, err)

	c, err := env.svc.Submit(ctx, aliceP, SubmitRequest{PNRNumber: "1234567890", Description: "Stale food made me call a doctor", CategoryID: food.ID})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityLow, c.Priority)
	env.drain(t)

	got, err := env.svc.Get(ctx, aliceP, c.ComplaintID)
	require.NoError(t, err)
	require.NotNil(t, got.AIAnalysis)
	assert.Equal(t, food.ID, *got.CategoryID)
	assert.Equal(t, models.PriorityLow, got.Priority)
}

func TestEnrichmentFallbackKeepsPriority(t *testing.T) {
	env := newTestEnv(t, failingAdapter{})
	ctx := context.Background()

	c := env.submit(t, aliceP, "Something went wrong on my journey")
	env.drain(t)

	got, err := env.svc.Get(ctx, aliceP, c.ComplaintID)
	require.NoError(t, err)
	require.NotNil(t, got.AIAnalysis)
	assert.True(t, got.AIAnalysis.Fallback)
	assert.Equal(t, ai.FallbackCategory, got.AIAnalysis.Category)
	assert.Equal(t, models.PriorityMedium, got.Priority)
	assert.Nil(t, got.CategoryID)
}

func TestLifecycleTimeline(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	c := env.submit(t, aliceP, "Dirty toilet")
	env.drain(t)

	approved, err := env.svc.Update(ctx, adminP, c.ComplaintID, UpdateRequest{Status: statusPtr(models.StatusApproved)})
	require.NoError(t, err)
	assert.Len(t, approved.Timeline, 2)

	_, err = env.svc.Update(ctx, adminP, c.ComplaintID, UpdateRequest{Status: statusPtr(models.StatusApproved)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = env.svc.Assign(ctx, adminP, c.ComplaintID, AssignRequest{WorkerID: "w1"})
	require.NoError(t, err)

	started, err := env.svc.WorkerProgress(ctx, worker1, c.ComplaintID, models.AssignmentInProgress, "On my way")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, started.Status)
	assert.Equal(t, models.AssignmentInProgress, started.Assignment.Status)
	assert.Equal(t, "On my way", started.Timeline[len(started.Timeline)-1].Description)

	resolved, err := env.svc.WorkerProgress(ctx, worker1, c.ComplaintID, models.AssignmentCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, resolved.Status)
	assert.Equal(t, models.AssignmentCompleted, resolved.Assignment.Status)
	require.NotNil(t, resolved.Resolution)
	require.NotNil(t, resolved.Resolution.ResolvedAt)
	assert.Equal(t, "w1", resolved.Resolution.ResolvedBy)

	closed, err := env.svc.Update(ctx, aliceP, c.ComplaintID, UpdateRequest{Status: statusPtr(models.StatusClosed)})
	require.NoError(t, err)
	assert.Len(t, closed.Timeline, 5)

	_, err = env.svc.Update(ctx, adminP, c.ComplaintID, UpdateRequest{Status: statusPtr(models.StatusApproved)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	final, err := env.svc.Get(ctx, adminP, c.ComplaintID)
	require.NoError(t, err)
	assert.Len(t, final.Timeline, 5)
	assert.Equal(t, models.StatusClosed, final.Status)
}

func TestUpdatePermissions(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	c := env.submit(t, aliceP, "Dirty toilet")
	env.drain(t)

	_, err := env.svc.Update(ctx, aliceP, c.ComplaintID, UpdateRequest{Status: statusPtr(models.StatusApproved)})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	high := models.PriorityHigh
	_, err = env.svc.Update(ctx, aliceP, c.ComplaintID, UpdateRequest{Priority: &high})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.svc.Get(ctx, bobP, c.ComplaintID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.svc.Update(ctx, adminP, c.ComplaintID, UpdateRequest{Status: statusPtr(models.StatusApproved)})
	require.NoError(t, err)
	_, err = env.svc.Assign(ctx, adminP, c.ComplaintID, AssignRequest{WorkerID: "w1"})
	require.NoError(t, err)

	_, err = env.svc.WorkerProgress(ctx, worker2, c.ComplaintID, models.AssignmentInProgress, "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.svc.Get(ctx, worker1, c.ComplaintID)
	assert.NoError(t, err)

	_, err = env.svc.Get(ctx, aliceP, "RM999999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = env.svc.Update(ctx, adminP, c.ComplaintID, UpdateRequest{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestFeedbackRules(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	c := env.submit(t, aliceP, "Dirty toilet")
	env.drain(t)

	fb := &FeedbackRequest{Rating: 4, Comment: "Quick fix"}
	_, err := env.svc.Update(ctx, aliceP, c.ComplaintID, UpdateRequest{Feedback: fb})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.svc.Update(ctx, adminP, c.ComplaintID, UpdateRequest{Status: statusPtr(models.StatusApproved)})
	require.NoError(t, err)
	_, err = env.svc.Update(ctx, adminP, c.ComplaintID, UpdateRequest{
		Status:     statusPtr(models.StatusResolved),
		Resolution: &ResolutionRequest{Notes: "Coach cleaned at Kota"},
	})
	require.NoError(t, err)

	_, err = env.svc.Update(ctx, adminP, c.ComplaintID, UpdateRequest{Feedback: fb})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.svc.Update(ctx, aliceP, c.ComplaintID, UpdateRequest{Feedback: &FeedbackRequest{Rating: 6}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	got, err := env.svc.Update(ctx, aliceP, c.ComplaintID, UpdateRequest{Feedback: fb})
	require.NoError(t, err)
	require.NotNil(t, got.Resolution.Feedback)
	assert.Equal(t, 4, got.Resolution.Feedback.Rating)
	assert.Equal(t, "Coach cleaned at Kota", got.Resolution.Notes)
	assert.Len(t, got.Timeline, 3)
}

func TestListIsScopedToOwner(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	env.submit(t, aliceP, "Dirty toilet")
	env.submit(t, aliceP, "Fan not working")
	env.submit(t, bobP, "Stale food served")
	env.drain(t)

	items, total, _, err := env.svc.List(ctx, bobP, models.ComplaintFilter{OwnerID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "bob", items[0].UserID)

	_, total, f, err := env.svc.List(ctx, adminP, models.ComplaintFilter{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 10, f.Limit)

	items, total, _, err = env.svc.List(ctx, adminP, models.ComplaintFilter{Search: "FAN"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Fan not working", items[0].Description)

	_, _, _, err = env.svc.List(ctx, adminP, models.ComplaintFilter{Status: "OPEN"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAssignSelectsWorkerOnTrain(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	c := env.submit(t, aliceP, "Train 12951 coach B4, toilet is dirty")
	env.drain(t)

	_, err := env.svc.Assign(ctx, adminP, c.ComplaintID, AssignRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = env.svc.Update(ctx, adminP, c.ComplaintID, UpdateRequest{Status: statusPtr(models.StatusApproved)})
	require.NoError(t, err)

	sug, err := env.svc.SuggestWorkers(ctx, adminP, c.ComplaintID)
	require.NoError(t, err)
	assert.Equal(t, "TRAIN_MATCH", sug.ReasonCode)
	require.NotNil(t, sug.Recommended)
	assert.Equal(t, "w1", sug.Recommended.ID)

	got, err := env.svc.Assign(ctx, adminP, c.ComplaintID, AssignRequest{})
	require.NoError(t, err)
	require.NotNil(t, got.Assignment)
	assert.Equal(t, "w1", got.Assignment.StaffID)
	assert.Equal(t, models.AssignmentPending, got.Assignment.Status)
	assert.Len(t, got.Timeline, 2)
	assert.Contains(t, env.events.types(), notify.EventAssigned)

	_, err = env.svc.Assign(ctx, aliceP, c.ComplaintID, AssignRequest{WorkerID: "w2"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = env.svc.Assign(ctx, adminP, c.ComplaintID, AssignRequest{WorkerID: "bob"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assigned, total, _, err := env.svc.ListAssigned(ctx, worker1, models.ComplaintFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, c.ComplaintID, assigned[0].ComplaintID)
}

type conflictingStore struct {
	*memstore.Store
	conflicts int
}

func (s *conflictingStore) UpdateComplaint(ctx context.Context, c *models.Complaint, expectedVersion int64) error {
	if s.conflicts > 0 {
		s.conflicts--
		return db.ErrVersionConflict
	}
	return s.Store.UpdateComplaint(ctx, c, expectedVersion)
}

func TestUpdateRetriesOnceOnVersionConflict(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	c := env.submit(t, aliceP, "Dirty toilet")
	env.drain(t)

	wrapped := &conflictingStore{Store: env.store, conflicts: 1}
	env.svc.Repo = wrapped
	got, err := env.svc.Update(ctx, adminP, c.ComplaintID, UpdateRequest{Status: statusPtr(models.StatusApproved)})
	require.NoError(t, err)
	assert.Len(t, got.Timeline, 2)

	wrapped.conflicts = 2
	_, err = env.svc.Update(ctx, adminP, c.ComplaintID, UpdateRequest{Status: statusPtr(models.StatusInProgress)})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	stored, err := env.store.GetComplaintByComplaintID(ctx, c.ComplaintID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.Len(t, stored.Timeline, 2)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, ai.MockAdapter{})
	ctx := context.Background()
	a := env.submit(t, aliceP, "Dirty toilet")
	env.submit(t, aliceP, "Fan not working")
	env.submit(t, bobP, "Stale food served")
	env.drain(t)

	_, err := env.svc.Update(ctx, adminP, a.ComplaintID, UpdateRequest{Status: statusPtr(models.StatusApproved)})
	require.NoError(t, err)
	_, err = env.svc.Update(ctx, adminP, a.ComplaintID, UpdateRequest{Status: statusPtr(models.StatusResolved)})
	require.NoError(t, err)

	all, err := env.svc.Stats(ctx, adminP, "")
	require.NoError(t, err)
	assert.Equal(t, "7d", all.Range)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, 1, all.Resolved)
	assert.InDelta(t, 33.33, all.ResolutionRate, 0.01)
	assert.Greater(t, all.AIAccuracy, 0.0)

	own, err := env.svc.Stats(ctx, bobP, "30d")
	require.NoError(t, err)
	assert.Equal(t, 1, own.Total)
	assert.Equal(t, 0, own.Resolved)

	_, err = env.svc.Stats(ctx, bobP, "1y")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
