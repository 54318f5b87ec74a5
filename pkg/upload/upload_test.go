package upload

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gridpreview/pkg/grid"
	"gridpreview/pkg/logger"
	"gridpreview/pkg/storage"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 4, 2), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestValidator(t *testing.T) {
	v := NewValidator(1 << 20)

	info, err := v.Validate(pngBytes(t, 30, 20))
	require.NoError(t, err)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, 30, info.Width)
	assert.Equal(t, 20, info.Height)
	assert.Equal(t, ".png", info.Ext())
	assert.Equal(t, "image/png", info.ContentType())

	info, err = v.Validate(gifBytes(t))
	require.NoError(t, err)
	assert.Equal(t, "gif", info.Format)

	_, err = v.Validate(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = v.Validate([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = NewValidator(10).Validate(pngBytes(t, 30, 20))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestValidatorReadLimit(t *testing.T) {
	data := pngBytes(t, 64, 64)
	v := NewValidator(int64(len(data) - 1))

	_, _, err := v.ReadAndValidate(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrTooLarge)

	got, info, err := NewValidator(0).ReadAndValidate(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, 64, info.Width)
}

func TestInfoExt(t *testing.T) {
	assert.Equal(t, ".jpg", Info{Format: "jpeg"}.Ext())
	assert.Equal(t, ".webp", Info{Format: "webp"}.Ext())
	assert.Equal(t, "", Info{}.Ext())
}

func newUploader(t *testing.T) (*Uploader, *grid.Engine, *storage.BlobStore) {
	t.Helper()
	store, err := storage.NewBlobStore(t.TempDir())
	require.NoError(t, err)
	engine := grid.NewEngine(grid.Options{Capacity: 12, QuotaLimit: 3, MaxPerCall: 3})
	t.Cleanup(engine.Close)
	return NewUploader(NewValidator(1<<20), store, engine, logger.NewNopLogger()), engine, store
}

func files(t *testing.T, n int) []File {
	out := make([]File, n)
	for i := range out {
		out[i] = File{Name: "f.png", Data: bytes.NewReader(pngBytes(t, 8+i, 8))}
	}
	return out
}

func TestUploaderAdd(t *testing.T) {
	u, engine, store := newUploader(t)

	state, admitted, err := u.Add(files(t, 4))
	require.NoError(t, err)
	assert.Equal(t, 3, admitted)
	assert.Equal(t, 3, state.Quota.Count)
	assert.Equal(t, 3, store.Count())

	for _, c := range state.Cells {
		assert.Equal(t, grid.Uploaded, c.Origin)
		assert.True(t, store.Exists(c.ImageURL))
	}

	_, admitted, err = u.Add(files(t, 1))
	assert.ErrorIs(t, err, grid.ErrQuotaExceeded)
	assert.Zero(t, admitted)
	assert.Equal(t, 3, store.Count())

	engine.ResetQuota()
	_, admitted, err = u.Add(files(t, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, admitted)
}

func TestUploaderRejectsInvalidBatch(t *testing.T) {
	u, engine, store := newUploader(t)

	batch := []File{
		{Name: "ok.png", Data: bytes.NewReader(pngBytes(t, 8, 8))},
		{Name: "notes.txt", Data: bytes.NewReader([]byte("hello"))},
	}
	_, _, err := u.Add(batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.Empty(t, engine.State().Cells)
	assert.Zero(t, engine.State().Quota.Count)
	assert.Zero(t, store.Count())
}

func TestUploaderAddPathsAndPrune(t *testing.T) {
	u, engine, store := newUploader(t)

	dir := t.TempDir()
	var paths []string
	for i := 0; i < 2; i++ {
		p := filepath.Join(dir, "img"+string(rune('a'+i))+".png")
		require.NoError(t, os.WriteFile(p, pngBytes(t, 10, 10), 0644))
		paths = append(paths, p)
	}

	state, admitted, err := u.AddPaths(paths)
	require.NoError(t, err)
	assert.Equal(t, 2, admitted)

	engine.DeleteCell(state.Cells[0].ID)
	removed, err := u.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Count())

	_, _, err = u.AddPaths([]string{filepath.Join(dir, "missing.png")})
	assert.Error(t, err)
}

func TestUploaderPruneKeepsExtraRefs(t *testing.T) {
	u, engine, store := newUploader(t)

	state, _, err := u.Add([]File{
		{Name: "a.png", Data: bytes.NewReader(pngBytes(t, 4, 4))},
		{Name: "b.png", Data: bytes.NewReader(pngBytes(t, 4, 4))},
	})
	require.NoError(t, err)
	saved := state.Cells[0].ImageURL

	engine.DeleteCell(state.Cells[0].ID)
	engine.DeleteCell(state.Cells[1].ID)

	removed, err := u.Prune(saved)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.True(t, store.Exists(saved))
}
