package db

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/railmadad/backend/internal/models"
)

// InsertMedia writes the media row and all of its chunks in one transaction.
func (s *Store) InsertMedia(ctx context.Context, m models.Media, chunks []models.MediaChunk) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO media (id, complaint_id, filename, content_type, size, chunk_size, chunk_count, uploaded_by, uploaded_at)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)`,
			m.ID, m.ComplaintID, m.Filename, m.ContentType, m.Size, m.ChunkSize, m.ChunkCount, m.UploadedBy, m.UploadedAt)
		if err != nil {
			return err
		}
		rows := make([][]any, 0, len(chunks))
		for _, ch := range chunks {
			rows = append(rows, []any{m.ID, ch.N, ch.Data})
		}
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"media_chunks"}, []string{"media_id", "n", "data"}, pgx.CopyFromRows(rows))
		return err
	})
}

func (s *Store) GetMedia(ctx context.Context, id string) (models.Media, error) {
	var (
		m           models.Media
		complaintID *string
		ai          []byte
	)
	err := s.Pool.QueryRow(ctx, `SELECT id, complaint_id, filename, content_type, size, chunk_size, chunk_count, ai_analysis, uploaded_by, uploaded_at
		FROM media WHERE id = $1`, id).
		Scan(&m.ID, &complaintID, &m.Filename, &m.ContentType, &m.Size, &m.ChunkSize, &m.ChunkCount, &ai, &m.UploadedBy, &m.UploadedAt)
	if err != nil {
		return models.Media{}, notFound(err)
	}
	if complaintID != nil {
		m.ComplaintID = *complaintID
	}
	if len(ai) > 0 {
		m.AIAnalysis = &models.Analysis{}
		if err := json.Unmarshal(ai, m.AIAnalysis); err != nil {
			return models.Media{}, err
		}
	}
	return m, nil
}

// GetMediaChunks returns the chunks ordered by sequence number.
func (s *Store) GetMediaChunks(ctx context.Context, id string) ([]models.MediaChunk, error) {
	rows, err := s.Pool.Query(ctx, `SELECT n, data FROM media_chunks WHERE media_id = $1 ORDER BY n ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MediaChunk
	for rows.Next() {
		ch := models.MediaChunk{MediaID: id}
		if err := rows.Scan(&ch.N, &ch.Data); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *Store) AttachMedia(ctx context.Context, mediaID, complaintID string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE media SET complaint_id = $2 WHERE id = $1`, mediaID, complaintID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMedia removes a media row; its chunks go with it by cascade.
func (s *Store) DeleteMedia(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	return err
}

func (s *Store) SaveMediaAnalysis(ctx context.Context, mediaID string, a models.Analysis) error {
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE media SET ai_analysis = $2 WHERE id = $1`, mediaID, b)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
