package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/railmadad/backend/internal/models"
)

const maxIDAttempts = 5

const complaintColumns = `id, complaint_id, user_id, pnr_number, description, category_id, priority, status,
	media_files, train_info, contact_channel, contact_email, department, ai_analysis, timeline,
	assignment, resolution, version, created_at, updated_at`

// CreateComplaint reserves the next complaint number and inserts the record.
// A collision on complaint_id (rows inserted outside the sequence) is retried with a fresh value.
func (s *Store) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	payload, err := encodeComplaint(c)
	if err != nil {
		return err
	}
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		var seq int64
		if err := s.Pool.QueryRow(ctx, `SELECT nextval('complaint_seq')`).Scan(&seq); err != nil {
			return fmt.Errorf("reserve complaint id: %w", err)
		}
		c.ComplaintID = models.FormatComplaintID(seq)
		if c.Version == 0 {
			c.Version = 1
		}

		_, err = s.Pool.Exec(ctx, `INSERT INTO complaints (`+complaintColumns+`, assigned_to)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
			c.ID, c.ComplaintID, c.UserID, c.PNRNumber, c.Description, c.CategoryID, string(c.Priority), string(c.Status),
			payload.media, payload.train, c.ContactChannel, c.ContactEmail, c.Department, payload.ai, payload.timeline,
			payload.assignment, payload.resolution, c.Version, c.CreatedAt, c.UpdatedAt, assignedTo(c))
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err, "complaints_complaint_id_key") {
			return err
		}
	}
	return fmt.Errorf("allocate complaint id after %d attempts: %w", maxIDAttempts, ErrDuplicate)
}

func (s *Store) GetComplaint(ctx context.Context, id string) (models.Complaint, error) {
	c, err := scanComplaint(s.Pool.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, id))
	return c, notFound(err)
}

func (s *Store) GetComplaintByComplaintID(ctx context.Context, complaintID string) (models.Complaint, error) {
	c, err := scanComplaint(s.Pool.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE complaint_id = $1`, complaintID))
	return c, notFound(err)
}

func (s *Store) ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, int, error) {
	f.Normalize()
	where, args := complaintWhere(f)

	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM complaints`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + complaintColumns + ` FROM complaints` + where +
		` ORDER BY created_at DESC, complaint_id DESC LIMIT $` + fmt.Sprint(len(args)+1) + ` OFFSET $` + fmt.Sprint(len(args)+2)
	args = append(args, f.Limit, f.Offset())

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// ComplaintsSince returns every complaint created at or after since, optionally for one owner.
func (s *Store) ComplaintsSince(ctx context.Context, since time.Time, ownerID string) ([]models.Complaint, error) {
	where, args := complaintWhere(models.ComplaintFilter{OwnerID: ownerID, Since: &since})
	rows, err := s.Pool.Query(ctx, `SELECT `+complaintColumns+` FROM complaints`+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateComplaint writes c only if the stored version still equals expectedVersion.
func (s *Store) UpdateComplaint(ctx context.Context, c *models.Complaint, expectedVersion int64) error {
	payload, err := encodeComplaint(c)
	if err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE complaints SET
			category_id = $3, priority = $4, status = $5, media_files = $6, train_info = $7,
			department = $8, ai_analysis = $9, timeline = $10, assignment = $11, assigned_to = $12,
			resolution = $13, updated_at = $14, version = version + 1
		WHERE id = $1 AND version = $2`,
		c.ID, expectedVersion, c.CategoryID, string(c.Priority), string(c.Status), payload.media, payload.train,
		c.Department, payload.ai, payload.timeline, payload.assignment, assignedTo(c), payload.resolution, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM complaints WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	c.Version = expectedVersion + 1
	return nil
}

func complaintWhere(f models.ComplaintFilter) (string, []any) {
	var args []any
	var wheres []string
	if f.Status != "" {
		args = append(args, string(f.Status))
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		wheres = append(wheres, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.Priority != "" {
		args = append(args, string(f.Priority))
		wheres = append(wheres, fmt.Sprintf("priority = $%d", len(args)))
	}
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		wheres = append(wheres, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.AssigneeID != "" {
		args = append(args, f.AssigneeID)
		wheres = append(wheres, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		wheres = append(wheres, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		wheres = append(wheres, fmt.Sprintf("(complaint_id ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if len(wheres) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wheres, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func assignedTo(c *models.Complaint) *string {
	if c.Assignment == nil || c.Assignment.StaffID == "" {
		return nil
	}
	id := c.Assignment.StaffID
	return &id
}

type complaintPayload struct {
	media      []byte
	train      []byte
	ai         []byte
	timeline   []byte
	assignment []byte
	resolution []byte
}

func encodeComplaint(c *models.Complaint) (complaintPayload, error) {
	var p complaintPayload
	var err error
	media := c.MediaFiles
	if media == nil {
		media = []models.MediaRef{}
	}
	if p.media, err = json.Marshal(media); err != nil {
		return p, err
	}
	if p.train, err = json.Marshal(c.TrainInfo); err != nil {
		return p, err
	}
	timeline := c.Timeline
	if timeline == nil {
		timeline = []models.TimelineEntry{}
	}
	if p.timeline, err = json.Marshal(timeline); err != nil {
		return p, err
	}
	if p.ai, err = marshalNullable(c.AIAnalysis); err != nil {
		return p, err
	}
	if p.assignment, err = marshalNullable(c.Assignment); err != nil {
		return p, err
	}
	if p.resolution, err = marshalNullable(c.Resolution); err != nil {
		return p, err
	}
	return p, nil
}

func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func scanComplaint(row pgx.Row) (models.Complaint, error) {
	var (
		c                                            models.Complaint
		priority, status                             string
		media, train, ai, timeline, assign, resolved []byte
	)
	err := row.Scan(&c.ID, &c.ComplaintID, &c.UserID, &c.PNRNumber, &c.Description, &c.CategoryID, &priority, &status,
		&media, &train, &c.ContactChannel, &c.ContactEmail, &c.Department, &ai, &timeline,
		&assign, &resolved, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return models.Complaint{}, err
	}
	c.Priority = models.Priority(priority)
	c.Status = models.Status(status)

	if err := json.Unmarshal(media, &c.MediaFiles); err != nil {
		return models.Complaint{}, fmt.Errorf("decode media_files: %w", err)
	}
	if err := json.Unmarshal(train, &c.TrainInfo); err != nil {
		return models.Complaint{}, fmt.Errorf("decode train_info: %w", err)
	}
	if err := json.Unmarshal(timeline, &c.Timeline); err != nil {
		return models.Complaint{}, fmt.Errorf("decode timeline: %w", err)
	}
	if len(ai) > 0 {
		c.AIAnalysis = &models.Analysis{}
		if err := json.Unmarshal(ai, c.AIAnalysis); err != nil {
			return models.Complaint{}, fmt.Errorf("decode ai_analysis: %w", err)
		}
	}
	if len(assign) > 0 {
		c.Assignment = &models.Assignment{}
		if err := json.Unmarshal(assign, c.Assignment); err != nil {
			return models.Complaint{}, fmt.Errorf("decode assignment: %w", err)
		}
	}
	if len(resolved) > 0 {
		c.Resolution = &models.Resolution{}
		if err := json.Unmarshal(resolved, c.Resolution); err != nil {
			return models.Complaint{}, fmt.Errorf("decode resolution: %w", err)
		}
	}
	return c, nil
}
