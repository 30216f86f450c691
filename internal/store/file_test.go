package store

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/dmorgan81/imagegen/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90w\x53\xde")

func fixedClock() func() time.Time {
	ts := time.Date(2026, 10, 19, 15, 30, 45, 0, time.Local)
	return func() time.Time { return ts }
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func stubLink(t *testing.T, fn func(oldname, newname string) error) {
	t.Helper()
	orig := link
	link = fn
	t.Cleanup(func() { link = orig })
}

func TestFileStore_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("writes the payload under a timestamped name", func(t *testing.T) {
		dir := t.TempDir()
		s := &FileStore{Dir: dir, Prefix: "image", Now: fixedClock()}

		out, err := s.Save(ctx, SaveParams{Data: pngBytes, MediaType: "image/png"})
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "image-20261019-153045.png"), out.Path)
		assert.Equal(t, len(pngBytes), out.Size)
		assert.Equal(t, "image/png", out.MediaType)

		data, err := os.ReadFile(out.Path)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, data)
		assert.Equal(t, []string{"image-20261019-153045.png"}, dirNames(t, dir))
	})

	t.Run("never overwrites an existing file", func(t *testing.T) {
		dir := t.TempDir()
		existing := filepath.Join(dir, "image-20261019-153045.png")
		require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "image-20261019-153045-1.png"), []byte("me too"), 0o644))
		s := &FileStore{Dir: dir, Prefix: "image", Now: fixedClock()}

		out, err := s.Save(ctx, SaveParams{Data: pngBytes, MediaType: "image/png"})
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "image-20261019-153045-2.png"), out.Path)
		kept, err := os.ReadFile(existing)
		require.NoError(t, err)
		assert.Equal(t, "keep me", string(kept))
		written, err := os.ReadFile(out.Path)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, written)
	})

	t.Run("repeated saves in the same second get distinct paths", func(t *testing.T) {
		dir := t.TempDir()
		s := &FileStore{Dir: dir, Prefix: "image", Now: fixedClock()}

		first, err := s.Save(ctx, SaveParams{Data: []byte("one"), MediaType: "image/jpeg"})
		require.NoError(t, err)
		second, err := s.Save(ctx, SaveParams{Data: []byte("two"), MediaType: "image/jpeg"})
		require.NoError(t, err)

		assert.NotEqual(t, first.Path, second.Path)
		assert.ElementsMatch(t, []string{"image-20261019-153045.jpg", "image-20261019-153045-1.jpg"}, dirNames(t, dir))
	})

	t.Run("creates a missing output directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "images")
		s := &FileStore{Dir: dir, Prefix: "image", Now: fixedClock()}

		out, err := s.Save(ctx, SaveParams{Data: pngBytes})
		require.NoError(t, err)
		assert.Equal(t, ".png", filepath.Ext(out.Path))
	})

	t.Run("unusable directory is a write failure and leaves nothing behind", func(t *testing.T) {
		parent := t.TempDir()
		blocker := filepath.Join(parent, "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
		s := &FileStore{Dir: filepath.Join(blocker, "images"), Prefix: "image", Now: fixedClock()}

		_, err := s.Save(ctx, SaveParams{Data: pngBytes, MediaType: "image/png"})
		require.ErrorIs(t, err, errs.ErrFileWrite)
		assert.Equal(t, []string{"blocker"}, dirNames(t, parent))
	})

	t.Run("copies when hard links are unsupported", func(t *testing.T) {
		stubLink(t, func(oldname, newname string) error {
			return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: syscall.EPERM}
		})
		dir := t.TempDir()
		existing := filepath.Join(dir, "image-20261019-153045.png")
		require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0o644))
		s := &FileStore{Dir: dir, Prefix: "image", Now: fixedClock()}

		out, err := s.Save(ctx, SaveParams{Data: pngBytes, MediaType: "image/png"})
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "image-20261019-153045-1.png"), out.Path)
		written, err := os.ReadFile(out.Path)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, written)
		kept, err := os.ReadFile(existing)
		require.NoError(t, err)
		assert.Equal(t, "keep me", string(kept))
		assert.ElementsMatch(t, []string{"image-20261019-153045.png", "image-20261019-153045-1.png"}, dirNames(t, dir))
	})

	t.Run("temp file is removed when no name can be published", func(t *testing.T) {
		calls := 0
		stubLink(t, func(oldname, newname string) error {
			calls++
			return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: syscall.EEXIST}
		})
		dir := t.TempDir()
		s := &FileStore{Dir: dir, Prefix: "image", Now: fixedClock()}

		_, err := s.Save(ctx, SaveParams{Data: pngBytes, MediaType: "image/png"})
		require.ErrorIs(t, err, errs.ErrFileWrite)
		assert.Equal(t, maxNameAttempts, calls)
		assert.Empty(t, dirNames(t, dir))
	})

	t.Run("cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		s := &FileStore{Dir: dir, Prefix: "image", Now: fixedClock()}

		_, err := s.Save(cctx, SaveParams{Data: pngBytes})
		require.ErrorIs(t, err, errs.ErrFileWrite)
		assert.Empty(t, dirNames(t, dir))
	})
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		data      []byte
		wantExt   string
		wantType  string
	}{
		{"png", "image/png", nil, ".png", "image/png"},
		{"jpeg", "image/jpeg", nil, ".jpg", "image/jpeg"},
		{"webp", "image/webp", nil, ".webp", "image/webp"},
		{"parameters and case", "Image/PNG; q=1", nil, ".png", "image/png"},
		{"unknown type", "image/x-made-up", pngBytes, ".bin", "image/x-made-up"},
		{"generic binary", "application/octet-stream", pngBytes, ".bin", "application/octet-stream"},
		{"sniffed when missing", "", pngBytes, ".png", "image/png"},
		{"nothing to go on", "", []byte{0x00, 0x01, 0x02, 0x03}, ".bin", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, mediaType := Extension(tt.mediaType, tt.data)
			assert.Equal(t, tt.wantExt, ext)
			assert.Equal(t, tt.wantType, mediaType)
		})
	}
}
