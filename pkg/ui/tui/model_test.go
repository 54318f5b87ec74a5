package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "gridpreview/pkg/errors"
	"gridpreview/pkg/grid"
	"gridpreview/pkg/imagesource"
	"gridpreview/pkg/logger"
	"gridpreview/pkg/snapshot"
)

type fakeSource struct {
	posts []imagesource.Post
	err   error
	calls []string
}

func (f *fakeSource) FetchPosts(_ context.Context, username string) ([]imagesource.Post, error) {
	f.calls = append(f.calls, username)
	return f.posts, f.err
}

func (f *fakeSource) FetchImage(context.Context, string) (*imagesource.Image, error) {
	return nil, errors.New("not used")
}

// engineUploads treats each path as an already stored image reference
type engineUploads struct {
	engine *grid.Engine
}

func (u engineUploads) AddPaths(paths []string) (grid.State, int, error) {
	return u.engine.AddUploads(paths)
}

type stubTimer struct{ stopped bool }

func (t *stubTimer) Stop() bool {
	t.stopped = true
	return true
}

type harness struct {
	model   *Model
	engine  *grid.Engine
	source  *fakeSource
	layouts *snapshot.Manager
	clears  []func()
}

func newHarness(t *testing.T, posts ...imagesource.Post) *harness {
	t.Helper()
	h := &harness{source: &fakeSource{posts: posts}}

	seq := 0
	h.engine = grid.NewEngine(grid.Options{
		NewID: func() string {
			seq++
			return "up-" + string(rune('0'+seq))
		},
		AfterFunc: func(_ time.Duration, f func()) grid.Timer {
			h.clears = append(h.clears, f)
			return &stubTimer{}
		},
	})

	layouts, err := snapshot.NewManager(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)
	h.layouts = layouts

	h.model = NewModel(Deps{
		Engine:     h.engine,
		Source:     h.source,
		Uploads:    engineUploads{engine: h.engine},
		Layouts:    layouts,
		LayoutName: "test",
	})
	h.model.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	return h
}

// press sends keys and runs any resulting commands to completion
func (h *harness) press(keys ...tea.KeyMsg) {
	for _, k := range keys {
		_, cmd := h.model.Update(k)
		h.run(cmd)
	}
}

func (h *harness) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			h.run(c)
		}
	case spinner.TickMsg, tea.QuitMsg, nil:
	default:
		_, next := h.model.Update(msg)
		h.run(next)
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func samplePosts(n int) []imagesource.Post {
	posts := make([]imagesource.Post, n)
	for i := range posts {
		id := string(rune('a' + i))
		posts[i] = imagesource.Post{ID: id, ImageURL: "https://cdn.example.com/" + id + ".jpg", Caption: "post " + id}
	}
	return posts
}

func ids(cells []grid.Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.ID
	}
	return out
}

func TestSearchLoadsPosts(t *testing.T) {
	h := newHarness(t, samplePosts(4)...)

	h.press(runes("/"), runes("@natgeo"), key(tea.KeyEnter))

	require.Equal(t, []string{"@natgeo"}, h.source.calls)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(h.model.State().Cells))
	assert.Empty(t, h.model.Notice())
	assert.Equal(t, "natgeo", h.model.username)
	assert.False(t, h.model.loading)
}

func TestSearchEmptyUsername(t *testing.T) {
	h := newHarness(t, samplePosts(1)...)

	h.press(runes("/"), runes("   "), key(tea.KeyEnter))

	assert.Empty(t, h.source.calls)
	assert.Equal(t, MsgUsernameRequired, h.model.Notice())
}

func TestSearchNoPostsKeepsGrid(t *testing.T) {
	h := newHarness(t, samplePosts(2)...)
	h.press(runes("/"), runes("natgeo"), key(tea.KeyEnter))
	require.Len(t, h.model.State().Cells, 2)

	h.source.posts = []imagesource.Post{}
	h.press(runes("/"), runes("ghost"), key(tea.KeyEnter))

	assert.Equal(t, MsgUsernameNotFound, h.model.Notice())
	assert.Len(t, h.model.State().Cells, 2)
}

func TestSearchErrorNotice(t *testing.T) {
	h := newHarness(t)
	h.source.err = errs.Transport(404, "unexpected status code: 404", nil)

	h.press(runes("/"), runes("natgeo"), key(tea.KeyEnter))

	assert.Equal(t, MsgUsernameWrong, h.model.Notice())
	assert.Empty(t, h.model.State().Cells)
}

func TestEscapeCancelsInput(t *testing.T) {
	h := newHarness(t, samplePosts(1)...)

	h.press(runes("/"), runes("natgeo"), key(tea.KeyEsc), key(tea.KeyEnter))

	assert.Empty(t, h.source.calls)
	assert.Equal(t, modeBrowse, h.model.mode)
}

func TestUploadsGoInFrontAndConsumeQuota(t *testing.T) {
	h := newHarness(t, samplePosts(3)...)
	h.press(runes("/"), runes("natgeo"), key(tea.KeyEnter))

	h.press(runes("u"), runes("one.png two.png"), key(tea.KeyEnter))

	state := h.model.State()
	assert.Equal(t, []string{"up-1", "up-2", "a", "b", "c"}, ids(state.Cells))
	assert.Equal(t, 2, state.Quota.Count)
	assert.True(t, state.CanUpload())

	h.press(runes("u"), runes("three.png four.png"), key(tea.KeyEnter))
	state = h.model.State()
	assert.Equal(t, 4, state.Quota.Count)
	assert.False(t, state.CanUpload())
	assert.Contains(t, h.model.Notice(), "Please watch an ad")

	// the gate stays closed until the ad is watched
	h.press(runes("u"))
	assert.Equal(t, modeBrowse, h.model.mode)

	h.press(runes("a"))
	assert.Zero(t, h.model.State().Quota.Count)
	assert.Empty(t, h.model.Notice())

	h.press(runes("u"))
	assert.Equal(t, modeUpload, h.model.mode)
}

func TestCursorMovement(t *testing.T) {
	h := newHarness(t, samplePosts(5)...)
	h.press(runes("/"), runes("natgeo"), key(tea.KeyEnter))

	h.press(key(tea.KeyRight), key(tea.KeyRight))
	assert.Equal(t, 2, h.model.Cursor())

	// no wrap past the last cell
	h.press(key(tea.KeyDown))
	assert.Equal(t, 2, h.model.Cursor())

	h.press(key(tea.KeyLeft), key(tea.KeyDown))
	assert.Equal(t, 4, h.model.Cursor())

	h.press(key(tea.KeyUp))
	assert.Equal(t, 1, h.model.Cursor())
}

func TestToggleAndDelete(t *testing.T) {
	h := newHarness(t, samplePosts(3)...)
	h.press(runes("/"), runes("natgeo"), key(tea.KeyEnter))
	h.press(runes("u"), runes("one.png"), key(tea.KeyEnter))

	// x without a selection does nothing
	h.press(runes("x"))
	assert.Len(t, h.model.State().Cells, 4)

	h.press(key(tea.KeyEnter))
	assert.Equal(t, "up-1", h.model.State().SelectedForDeletion)

	h.press(runes("x"))
	state := h.model.State()
	assert.Equal(t, []string{"a", "b", "c"}, ids(state.Cells))
	assert.Zero(t, state.Quota.Count)
	assert.Empty(t, state.SelectedForDeletion)
}

func TestSelectionAutoClears(t *testing.T) {
	h := newHarness(t, samplePosts(2)...)
	h.press(runes("/"), runes("natgeo"), key(tea.KeyEnter))

	h.press(key(tea.KeyEnter))
	require.Equal(t, "a", h.model.State().SelectedForDeletion)
	require.Len(t, h.clears, 1)

	h.clears[0]()
	h.model.Update(StateMsg{})

	assert.Empty(t, h.model.State().SelectedForDeletion)
}

func TestReorderUploaded(t *testing.T) {
	h := newHarness(t, samplePosts(2)...)
	h.press(runes("/"), runes("natgeo"), key(tea.KeyEnter))
	h.press(runes("u"), runes("1 2 3"), key(tea.KeyEnter))
	require.Equal(t, []string{"up-1", "up-2", "up-3", "a", "b"}, ids(h.model.State().Cells))

	h.press(runes("]"))
	assert.Equal(t, []string{"up-2", "up-1", "up-3", "a", "b"}, ids(h.model.State().Cells))
	assert.Equal(t, 1, h.model.Cursor())

	// the last uploaded cell cannot move into the fetched cells
	h.press(runes("]"), runes("]"))
	assert.Equal(t, []string{"up-2", "up-3", "up-1", "a", "b"}, ids(h.model.State().Cells))
	assert.Equal(t, 2, h.model.Cursor())

	h.press(runes("["), runes("["), runes("["))
	assert.Equal(t, []string{"up-1", "up-2", "up-3", "a", "b"}, ids(h.model.State().Cells))
	assert.Equal(t, 0, h.model.Cursor())

	// fetched cells are not movable
	h.press(key(tea.KeyDown), runes("["))
	assert.Equal(t, []string{"up-1", "up-2", "up-3", "a", "b"}, ids(h.model.State().Cells))
}

func TestSaveLayout(t *testing.T) {
	h := newHarness(t, samplePosts(2)...)
	h.press(runes("/"), runes("natgeo"), key(tea.KeyEnter))

	h.press(runes("s"))

	layout, err := h.layouts.Load("test")
	require.NoError(t, err)
	require.NotNil(t, layout)
	assert.Equal(t, "natgeo", layout.Username)
	assert.Len(t, layout.Cells, 2)
}

func TestInitFetchesGivenUsername(t *testing.T) {
	h := newHarness(t, samplePosts(1)...)
	h.model.username = "natgeo"

	h.run(h.model.Init())

	assert.Equal(t, []string{"natgeo"}, h.source.calls)
	assert.Len(t, h.model.State().Cells, 1)
}

func TestAddLogMessageBounded(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < maxLogMessages+10; i++ {
		h.model.AddLogMessage("INFO", "message")
	}
	assert.Len(t, h.model.logMessages, maxLogMessages)

	h.press(key(tea.KeyCtrlL))
	assert.Empty(t, h.model.logMessages)
}

func TestViewRendersGrid(t *testing.T) {
	h := newHarness(t, samplePosts(2)...)
	h.press(runes("/"), runes("natgeo"), key(tea.KeyEnter))
	h.press(key(tea.KeyEnter))

	view := h.model.View()
	assert.Contains(t, view, "GRID")
	assert.Contains(t, view, "@natgeo")
	assert.Contains(t, view, "delete")
	assert.Contains(t, view, "post b")
}

func TestViewBeforeResize(t *testing.T) {
	model := NewModel(Deps{Engine: grid.NewEngine(grid.Options{}), Source: &fakeSource{}})
	assert.Equal(t, "Initializing...", model.View())
}
