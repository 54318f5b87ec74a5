package snapshot

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gridpreview/pkg/grid"
	"gridpreview/pkg/logger"
)

func sampleState() grid.State {
	s := grid.NewState(12, 3)
	s = grid.MergeFetched(s, []grid.Record{
		{ID: "p1", ImageURL: "https://cdn/p1.jpg", Caption: "one"},
		{ID: "p2", ImageURL: "https://cdn/p2.jpg", Caption: "two"},
	})
	s, _, _ = grid.AddUploads(s, []string{"blob://a.png"}, 3, func() string { return "uploaded-a" })
	return grid.ToggleDeletion(s, "p1")
}

func TestSaveLoad(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)

	assert.False(t, mgr.Exists("feed"))
	missing, err := mgr.Load("feed")
	require.NoError(t, err)
	assert.Nil(t, missing)

	saved, err := mgr.Save("feed", "natgeo", sampleState())
	require.NoError(t, err)
	assert.True(t, mgr.Exists("feed"))

	loaded, err := mgr.Load("feed")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "feed", loaded.Name)
	assert.Equal(t, "natgeo", loaded.Username)
	assert.Equal(t, 12, loaded.Capacity)
	assert.Equal(t, sampleState().Cells, loaded.Cells)
	assert.True(t, saved.CreatedAt.Equal(loaded.CreatedAt))

	resaved, err := mgr.Save("feed", "natgeo", grid.NewState(12, 3))
	require.NoError(t, err)
	assert.True(t, saved.CreatedAt.Equal(resaved.CreatedAt))
	assert.Empty(t, resaved.Cells)
}

func TestRestoreIntoEngine(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)
	_, err = mgr.Save("", "", sampleState())
	require.NoError(t, err)

	engine := grid.NewEngine(grid.Options{Capacity: 12, QuotaLimit: 3})
	defer engine.Close()
	engine.AddUploads([]string{"blob://other.png"})

	ok, err := mgr.Restore(DefaultName, engine)
	require.NoError(t, err)
	assert.True(t, ok)

	state := engine.State()
	assert.Equal(t, sampleState().Cells, state.Cells)
	assert.Zero(t, state.Quota.Count)
	assert.Empty(t, state.SelectedForDeletion)

	ok, err = mgr.Restore("nope", engine)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListAndDelete(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, logger.NewNopLogger())
	require.NoError(t, err)

	for _, name := range []string{"b", "a"} {
		_, err := mgr.Save(name, "", sampleState())
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	names, err := mgr.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, mgr.Delete("a"))
	require.NoError(t, mgr.Delete("a"))
	assert.False(t, mgr.Exists("a"))
}

func TestInvalidNames(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)

	for _, name := range []string{"../escape", `a\b`, ".."} {
		_, err := mgr.Save(name, "", sampleState())
		assert.ErrorIs(t, err, ErrInvalidName)
	}
}

func TestCorruptLayout(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"+fileSuffix), []byte("{"), 0644))

	_, err = mgr.Load("bad")
	assert.Error(t, err)
}

func TestDefaultDirectory(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_DATA_HOME only applies on linux")
	}
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	mgr, err := NewManager("", logger.NewNopLogger())
	require.NoError(t, err)
	assert.DirExists(t, mgr.Dir())
}

func TestUploadRefs(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, logger.NewNopLogger())
	require.NoError(t, err)

	_, err = mgr.Save("one", "natgeo", sampleState())
	require.NoError(t, err)

	other := grid.NewState(12, 3)
	other, _, _ = grid.AddUploads(other, []string{"blob://b.png", "blob://c.png"}, 3, grid.NewUploadID)
	_, err = mgr.Save("two", "", other)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken"+fileSuffix), []byte("{"), 0644))

	refs, err := mgr.UploadRefs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"blob://a.png", "blob://b.png", "blob://c.png"}, refs)
}
