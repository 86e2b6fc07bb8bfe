package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/memstore"
)

func TestMediaRoundTripAcrossChunkSizes(t *testing.T) {
	ctx := context.Background()
	payload := bytes.Repeat([]byte("0123456789abcdef"), 1000)

	for _, size := range []int{1, 7, 1024, len(payload), len(payload) * 2} {
		s := NewMediaService(memstore.New(), size)
		m, err := s.Store(ctx, payload, "clip.mp4", "video/mp4", "alice")
		require.NoError(t, err)
		assert.Equal(t, (len(payload)+size-1)/size, m.ChunkCount, "chunk size %d", size)

		got, meta, err := s.Fetch(ctx, m.ID)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(payload, got), "chunk size %d", size)
		assert.Equal(t, "video/mp4", meta.ContentType)
		assert.Equal(t, int64(len(payload)), meta.Size)
	}
}

func TestMediaStoreSniffsContentType(t *testing.T) {
	s := NewMediaService(memstore.New(), 0)
	assert.Equal(t, DefaultChunkSize, s.ChunkSize)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	m, err := s.Store(context.Background(), png, "../../etc/photo.png", "", "alice")
	require.NoError(t, err)
	assert.Equal(t, "image/png", m.ContentType)
	assert.Equal(t, "photo.png", m.Filename)
}

func TestMediaEmptyFileAndMissing(t *testing.T) {
	s := NewMediaService(memstore.New(), 16)
	ctx := context.Background()

	m, err := s.Store(ctx, nil, "empty.txt", "text/plain", "alice")
	require.NoError(t, err)
	got, _, err := s.Fetch(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, _, err = s.Fetch(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSplitChunksOrder(t *testing.T) {
	chunks := splitChunks("m1", []byte("abcdefg"), 3)
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.N)
		assert.Equal(t, "m1", ch.MediaID)
	}
	assert.Equal(t, "g", string(chunks[2].Data))
}
