package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/auth"
	"github.com/railmadad/backend/internal/models"
)

const DefaultChunkSize = 255 << 10

type MediaService struct {
	Repo      MediaRepository
	ChunkSize int
	now       func() time.Time
}

func NewMediaService(repo MediaRepository, chunkSize int) *MediaService {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &MediaService{Repo: repo, ChunkSize: chunkSize, now: time.Now}
}

// Store splits data into fixed-size chunks and persists them with the media record.
func (s *MediaService) Store(ctx context.Context, data []byte, filename, contentType, uploadedBy string) (models.Media, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		filename = "upload"
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	m := models.Media{
		ID:          uuid.NewString(),
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		ChunkSize:   s.ChunkSize,
		UploadedBy:  uploadedBy,
		UploadedAt:  s.now().UTC(),
	}
	chunks := splitChunks(m.ID, data, s.ChunkSize)
	m.ChunkCount = len(chunks)

	if err := s.Repo.InsertMedia(ctx, m, chunks); err != nil {
		return models.Media{}, storeError(err, "media")
	}
	return m, nil
}

// Fetch reassembles the chunks in ascending sequence order.
func (s *MediaService) Fetch(ctx context.Context, id string) ([]byte, models.Media, error) {
	m, err := s.Repo.GetMedia(ctx, id)
	if err != nil {
		return nil, models.Media{}, storeError(err, "media")
	}
	chunks, err := s.Repo.GetMediaChunks(ctx, id)
	if err != nil {
		return nil, models.Media{}, storeError(err, "media")
	}

	var buf bytes.Buffer
	buf.Grow(int(m.Size))
	for i, ch := range chunks {
		if ch.N != i {
			return nil, models.Media{}, apperrors.Wrap(fmt.Errorf("media %s: chunk %d missing", id, i), apperrors.ErrInternal, "")
		}
		buf.Write(ch.Data)
	}
	if int64(buf.Len()) != m.Size {
		return nil, models.Media{}, apperrors.Wrap(fmt.Errorf("media %s: size %d, want %d", id, buf.Len(), m.Size), apperrors.ErrInternal, "")
	}
	return buf.Bytes(), m, nil
}

func splitChunks(mediaID string, data []byte, size int) []models.MediaChunk {
	if len(data) == 0 {
		return []models.MediaChunk{{MediaID: mediaID, N: 0, Data: []byte{}}}
	}
	out := make([]models.MediaChunk, 0, (len(data)+size-1)/size)
	for n, off := 0, 0; off < len(data); n, off = n+1, off+size {
		end := off + size
		if end > len(data) {
			end = len(data)
		}
		out = append(out, models.MediaChunk{MediaID: mediaID, N: n, Data: data[off:end]})
	}
	return out
}

// discard removes media stored for a submission that did not go through.
func (s *MediaService) discard(ctx context.Context, ids []string) {
	for _, id := range ids {
		_ = s.Repo.DeleteMedia(ctx, id)
	}
}

// OpenMedia returns attachment bytes to principals allowed to read the owning complaint.
// Media not yet attached to a complaint is visible to its uploader and admins only.
func (s *ComplaintService) OpenMedia(ctx context.Context, p auth.Principal, mediaID string) ([]byte, models.Media, error) {
	if err := requireUser(p); err != nil {
		return nil, models.Media{}, err
	}
	data, m, err := s.Media.Fetch(ctx, mediaID)
	if err != nil {
		return nil, models.Media{}, err
	}
	if m.ComplaintID != "" {
		c, err := s.Repo.GetComplaint(ctx, m.ComplaintID)
		if err != nil {
			return nil, models.Media{}, storeError(err, "complaint")
		}
		if !canRead(c, p) {
			return nil, models.Media{}, apperrors.Clone(apperrors.ErrForbidden, "not allowed to view this file")
		}
		return data, m, nil
	}
	if m.UploadedBy != p.UserID && !p.IsAdmin() {
		return nil, models.Media{}, apperrors.Clone(apperrors.ErrForbidden, "not allowed to view this file")
	}
	return data, m, nil
}
