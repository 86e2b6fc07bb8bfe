package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Rank orders priorities from most to least urgent. Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

func (p Priority) Valid() bool {
	return p.Rank() < 4
}

type Status string

const (
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusApproved      Status = "APPROVED"
	StatusRejected      Status = "REJECTED"
	StatusInProgress    Status = "IN_PROGRESS"
	StatusResolved      Status = "RESOLVED"
	StatusClosed        Status = "CLOSED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingReview, StatusApproved, StatusRejected, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

type Role string

const (
	RoleUser   Role = "user"
	RoleWorker Role = "worker"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleWorker || r == RoleAdmin
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Color       string    `json:"color,omitempty"`
	Aliases     []string  `json:"aliases"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Analysis struct {
	Category     string   `json:"category"`
	Categories   []string `json:"categories"`
	Priority     Priority `json:"priority"`
	Keywords     []string `json:"keywords"`
	Summary      string   `json:"summary"`
	Confidence   float64  `json:"confidence"`
	Fallback     bool     `json:"fallback"`
	ModelVersion string   `json:"modelVersion,omitempty"`
}

type MediaRef struct {
	Type       string    `json:"type"`
	FileID     string    `json:"fileId"`
	URL        string    `json:"url"`
	Filename   string    `json:"filename"`
	AIAnalysis *Analysis `json:"aiAnalysis,omitempty"`
}

type TrainInfo struct {
	TrainNumber    string `json:"trainNumber,omitempty"`
	TrainName      string `json:"trainName,omitempty"`
	CoachNumber    string `json:"coachNumber,omitempty"`
	SeatNumber     string `json:"seatNumber,omitempty"`
	CurrentStation string `json:"currentStation,omitempty"`
	NextStation    string `json:"nextStation,omitempty"`
}

func (t TrainInfo) Empty() bool {
	return t == TrainInfo{}
}

type TimelineEntry struct {
	Status      Status    `json:"status"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	UpdatedBy   string    `json:"updatedBy,omitempty"`
}

const (
	AssignmentPending    = "pending"
	AssignmentInProgress = "in_progress"
	AssignmentCompleted  = "completed"
)

type Assignment struct {
	StaffID    string    `json:"staffId"`
	StaffName  string    `json:"staffName,omitempty"`
	AssignedAt time.Time `json:"assignedAt"`
	AssignedBy string    `json:"assignedBy"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
}

type Feedback struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Resolution struct {
	ResolvedBy string     `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Feedback   *Feedback  `json:"feedback,omitempty"`
}

type Complaint struct {
	ID             string          `json:"id"`
	ComplaintID    string          `json:"complaintId"`
	UserID         string          `json:"userId"`
	PNRNumber      string          `json:"pnrNumber"`
	Description    string          `json:"description"`
	CategoryID     *string         `json:"categoryId,omitempty"`
	Priority       Priority        `json:"priority"`
	Status         Status          `json:"status"`
	MediaFiles     []MediaRef      `json:"mediaFiles"`
	TrainInfo      TrainInfo       `json:"trainInfo"`
	ContactChannel string          `json:"contactChannel,omitempty"`
	ContactEmail   string          `json:"contactEmail,omitempty"`
	Department     string          `json:"department,omitempty"`
	AIAnalysis     *Analysis       `json:"aiAnalysis,omitempty"`
	Timeline       []TimelineEntry `json:"timeline"`
	Assignment     *Assignment     `json:"assignment,omitempty"`
	Resolution     *Resolution     `json:"resolution,omitempty"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (c Complaint) Clone() Complaint {
	out := c
	if c.CategoryID != nil {
		v := *c.CategoryID
		out.CategoryID = &v
	}
	out.MediaFiles = append([]MediaRef(nil), c.MediaFiles...)
	for i := range out.MediaFiles {
		if a := out.MediaFiles[i].AIAnalysis; a != nil {
			cp := a.Clone()
			out.MediaFiles[i].AIAnalysis = &cp
		}
	}
	if c.AIAnalysis != nil {
		cp := c.AIAnalysis.Clone()
		out.AIAnalysis = &cp
	}
	out.Timeline = append([]TimelineEntry(nil), c.Timeline...)
	if c.Assignment != nil {
		a := *c.Assignment
		out.Assignment = &a
	}
	if c.Resolution != nil {
		r := *c.Resolution
		if r.ResolvedAt != nil {
			t := *r.ResolvedAt
			r.ResolvedAt = &t
		}
		if r.Feedback != nil {
			f := *r.Feedback
			r.Feedback = &f
		}
		out.Resolution = &r
	}
	return out
}

func (a Analysis) Clone() Analysis {
	out := a
	out.Categories = append([]string(nil), a.Categories...)
	out.Keywords = append([]string(nil), a.Keywords...)
	return out
}

type Media struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaintId,omitempty"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	ChunkSize   int       `json:"chunkSize"`
	ChunkCount  int       `json:"chunkCount"`
	AIAnalysis  *Analysis `json:"aiAnalysis,omitempty"`
	UploadedBy  string    `json:"uploadedBy,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type MediaChunk struct {
	MediaID string
	N       int
	Data    []byte
}

type User struct {
	ID           string     `json:"id"`
	PhoneNumber  string     `json:"phoneNumber"`
	Email        string     `json:"email,omitempty"`
	Username     string     `json:"username,omitempty"`
	Name         string     `json:"name,omitempty"`
	Role         Role       `json:"role"`
	IsVerified   bool       `json:"isVerified"`
	Available    bool       `json:"available"`
	IsOnline     bool       `json:"isOnline"`
	CurrentTrain string     `json:"currentTrain,omitempty"`
	Station      string     `json:"station,omitempty"`
	Department   string     `json:"department,omitempty"`
	Skills       []string   `json:"skills"`
	ActiveLoad   int        `json:"activeLoad"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	LastActive   *time.Time `json:"lastActive,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type ComplaintFilter struct {
	Status     Status
	CategoryID string
	Priority   Priority
	Search     string
	OwnerID    string
	AssigneeID string
	Since      *time.Time
	Page       int
	Limit      int
}

// Normalize clamps pagination to sane bounds. Page is capped so Offset never overflows.
func (f *ComplaintFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if maxPage := math.MaxInt32 / f.Limit; f.Page > maxPage {
		f.Page = maxPage
	}
}

func (f ComplaintFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type WorkerFilter struct {
	TrainNumber   string
	AvailableOnly bool
}

type Stats struct {
	Range              string  `json:"range"`
	Total              int     `json:"total"`
	Resolved           int     `json:"resolved"`
	ResolutionRate     float64 `json:"resolutionRate"`
	AvgResolutionHours float64 `json:"avgResolutionTime"`
	AIAccuracy         float64 `json:"aiAccuracy"`
}

const ComplaintIDPrefix = "RM"

// FormatComplaintID renders a sequence value as RM000042. Values above 999999 widen naturally.
func FormatComplaintID(seq int64) string {
	return fmt.Sprintf("%s%06d", ComplaintIDPrefix, seq)
}

// MediaType buckets a MIME type into image, video, audio or unknown.
func MediaType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	}
	return "unknown"
}
