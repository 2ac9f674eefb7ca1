package outbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/0xmhha/podpost/pkg/logger"
	"github.com/0xmhha/podpost/pkg/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePublisher records drafts and fails those whose text is in failOn.
type fakePublisher struct {
	mu     sync.Mutex
	drafts []Draft
	failOn map[string]error
}

func (p *fakePublisher) Publish(_ context.Context, draft Draft) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err, ok := p.failOn[draft.Text]; ok {
		return err
	}
	p.drafts = append(p.drafts, draft)
	return nil
}

func (p *fakePublisher) published() []Draft {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Draft(nil), p.drafts...)
}

// fakeWatcher is a watcher.Watcher driven by the test.
type fakeWatcher struct {
	events  chan watcher.Event
	errors  chan error
	started chan string
	stopped bool
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{
		events:  make(chan watcher.Event, 10),
		errors:  make(chan error, 10),
		started: make(chan string, 1),
	}
}

func (w *fakeWatcher) Start(_ context.Context, dir string) error {
	w.started <- dir
	return nil
}

func (w *fakeWatcher) Stop() error {
	w.stopped = true
	return nil
}

func (w *fakeWatcher) Events() <-chan watcher.Event { return w.events }
func (w *fakeWatcher) Errors() <-chan error         { return w.errors }
func (w *fakeWatcher) Close() error                 { return nil }

func writeDraft(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestOutbox(t *testing.T, w watcher.Watcher, pub Publisher) (*Outbox, string) {
	t.Helper()

	dir := t.TempDir()
	ob, err := New(Config{
		Dir:            dir,
		DefaultAspects: []string{"public"},
	}, w, pub, logger.Noop())
	require.NoError(t, err)
	return ob, dir
}

func waitForResult(t *testing.T, ob *Outbox) Result {
	t.Helper()

	select {
	case res := <-ob.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for outbox result")
		return Result{}
	}
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New(Config{}, nil, &fakePublisher{}, logger.Noop())
	assert.ErrorIs(t, err, ErrNoDir)
}

func TestProcessFilePublishes(t *testing.T) {
	pub := &fakePublisher{}
	ob, dir := newTestOutbox(t, nil, pub)
	require.NoError(t, ob.ensureDirs())

	path := writeDraft(t, dir, "hello.txt", "---\naspects: [1, 2]\nextra:\n  services: [twitter]\n---\nHello pod\n")

	res, err := ob.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, filepath.Join(dir, SentDir, "hello.txt"), res.Dest)
	assert.NoError(t, res.Err)
	assert.False(t, res.Timestamp.IsZero())

	drafts := pub.published()
	require.Len(t, drafts, 1)
	assert.Equal(t, "Hello pod", drafts[0].Text)
	assert.Equal(t, []string{"1", "2"}, drafts[0].Aspects)
	assert.Equal(t, map[string]any{"services": []any{"twitter"}}, drafts[0].Extra)
	assert.Equal(t, path, drafts[0].Source)

	assert.NoFileExists(t, path)
	assert.FileExists(t, res.Dest)
}

func TestProcessFileDefaultAspects(t *testing.T) {
	pub := &fakePublisher{}
	ob, dir := newTestOutbox(t, nil, pub)
	require.NoError(t, ob.ensureDirs())

	path := writeDraft(t, dir, "plain.md", "Just text")

	_, err := ob.ProcessFile(context.Background(), path)
	require.NoError(t, err)

	drafts := pub.published()
	require.Len(t, drafts, 1)
	assert.Equal(t, []string{"public"}, drafts[0].Aspects)
}

func TestProcessFilePublishFailure(t *testing.T) {
	rejected := errors.New("Error code message")
	pub := &fakePublisher{failOn: map[string]error{"Rejected": rejected}}
	ob, dir := newTestOutbox(t, nil, pub)
	require.NoError(t, ob.ensureDirs())

	path := writeDraft(t, dir, "bad.txt", "Rejected")

	res, err := ob.ProcessFile(context.Background(), path)
	assert.ErrorIs(t, err, rejected)
	assert.ErrorIs(t, res.Err, rejected)
	assert.Equal(t, filepath.Join(dir, FailedDir, "bad.txt"), res.Dest)

	note, readErr := os.ReadFile(res.Dest + ".error")
	require.NoError(t, readErr)
	assert.Equal(t, "Error code message\n", string(note))
	assert.NoFileExists(t, path)
}

func TestProcessFileParseFailure(t *testing.T) {
	pub := &fakePublisher{}
	ob, dir := newTestOutbox(t, nil, pub)
	require.NoError(t, ob.ensureDirs())

	path := writeDraft(t, dir, "empty.txt", "   \n")

	res, err := ob.ProcessFile(context.Background(), path)
	assert.ErrorIs(t, err, ErrEmptyDraft)
	assert.Equal(t, filepath.Join(dir, FailedDir, "empty.txt"), res.Dest)
	assert.Empty(t, pub.published())
}

func TestProcessFileMissing(t *testing.T) {
	pub := &fakePublisher{}
	ob, dir := newTestOutbox(t, nil, pub)

	res, err := ob.ProcessFile(context.Background(), filepath.Join(dir, "gone.txt"))
	require.NoError(t, err)
	assert.Empty(t, res.Dest)
	assert.Empty(t, pub.published())
}

func TestProcessFileNameCollision(t *testing.T) {
	pub := &fakePublisher{}
	ob, dir := newTestOutbox(t, nil, pub)
	require.NoError(t, ob.ensureDirs())
	ob.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	first := writeDraft(t, dir, "same.txt", "one")
	res1, err := ob.ProcessFile(context.Background(), first)
	require.NoError(t, err)

	second := writeDraft(t, dir, "same.txt", "two")
	res2, err := ob.ProcessFile(context.Background(), second)
	require.NoError(t, err)

	assert.NotEqual(t, res1.Dest, res2.Dest)
	assert.FileExists(t, res1.Dest)
	assert.FileExists(t, res2.Dest)
	assert.Equal(t, filepath.Join(dir, SentDir, "same-20240501-100000.000000000.txt"), res2.Dest)
}

func TestDrain(t *testing.T) {
	rejected := errors.New("nope")
	pub := &fakePublisher{failOn: map[string]error{"bad": rejected}}
	ob, dir := newTestOutbox(t, nil, pub)

	writeDraft(t, dir, "b.txt", "second")
	writeDraft(t, dir, "a.md", "first")
	writeDraft(t, dir, "c.txt", "bad")
	writeDraft(t, dir, "ignored.png", "binary")
	writeDraft(t, dir, ".hidden.txt", "hidden")

	n, err := ob.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	drafts := pub.published()
	require.Len(t, drafts, 2)
	assert.Equal(t, "first", drafts[0].Text)
	assert.Equal(t, "second", drafts[1].Text)

	assert.FileExists(t, filepath.Join(dir, "ignored.png"))
	assert.FileExists(t, filepath.Join(dir, ".hidden.txt"))
	assert.FileExists(t, filepath.Join(dir, FailedDir, "c.txt"))
	assert.DirExists(t, filepath.Join(dir, SentDir))
}

func TestRun(t *testing.T) {
	pub := &fakePublisher{}
	fw := newFakeWatcher()
	ob, dir := newTestOutbox(t, fw, pub)

	writeDraft(t, dir, "existing.txt", "already here")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ob.Run(ctx) }()

	select {
	case started := <-fw.started:
		assert.Equal(t, dir, started)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher not started")
	}

	res := waitForResult(t, ob)
	assert.Equal(t, filepath.Join(dir, "existing.txt"), res.Path)

	path := writeDraft(t, dir, "new.txt", "fresh draft")
	fw.events <- watcher.Event{Path: path, Op: watcher.OpCreate, Timestamp: time.Now()}

	res = waitForResult(t, ob)
	assert.Equal(t, path, res.Path)
	assert.NoError(t, res.Err)

	// A late event for a file already moved is ignored.
	fw.events <- watcher.Event{Path: path, Op: watcher.OpWrite, Timestamp: time.Now()}
	fw.errors <- errors.New("transient")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	drafts := pub.published()
	require.Len(t, drafts, 2)
	assert.Equal(t, "already here", drafts[0].Text)
	assert.Equal(t, "fresh draft", drafts[1].Text)
	assert.True(t, fw.stopped)
}

func TestRunCircuitBreaker(t *testing.T) {
	fw := newFakeWatcher()
	ob, _ := newTestOutbox(t, fw, &fakePublisher{})

	fw.errors <- watcher.ErrCircuitBreakerOpen

	err := ob.Run(context.Background())
	assert.ErrorIs(t, err, watcher.ErrCircuitBreakerOpen)
}

func TestRunWithoutWatcher(t *testing.T) {
	ob, _ := newTestOutbox(t, nil, &fakePublisher{})

	assert.ErrorIs(t, ob.Run(context.Background()), ErrNoWatcher)
}

func TestRunTwice(t *testing.T) {
	fw := newFakeWatcher()
	ob, _ := newTestOutbox(t, fw, &fakePublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ob.Run(ctx) }()
	<-fw.started

	assert.ErrorIs(t, ob.Run(ctx), ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-done)
}
