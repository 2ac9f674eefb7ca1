package outbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/0xmhha/podpost/pkg/logger"
	"github.com/0xmhha/podpost/pkg/watcher"
)

// Outbox publishes draft files through a Publisher.
type Outbox struct {
	config     Config
	watcher    watcher.Watcher
	publisher  Publisher
	logger     logger.Logger
	extensions map[string]bool

	mu      sync.Mutex
	running bool

	// processMu serializes ProcessFile so a file is never published twice.
	processMu sync.Mutex

	results chan Result
	now     func() time.Time
}

// New creates an outbox. w may be nil when only ProcessFile and Drain are used.
func New(cfg Config, w watcher.Watcher, pub Publisher, log logger.Logger) (*Outbox, error) {
	if cfg.Dir == "" {
		return nil, ErrNoDir
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".txt", ".md"}
	}

	extensions := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = true
	}

	return &Outbox{
		config:     cfg,
		watcher:    w,
		publisher:  pub,
		logger:     log.With("component", "outbox"),
		extensions: extensions,
		results:    make(chan Result, 16),
		now:        time.Now,
	}, nil
}

// Results reports every processed file. Results are dropped when nobody
// reads them; the channel is never closed.
func (o *Outbox) Results() <-chan Result {
	return o.results
}

// Run publishes the drafts already in the directory, then every draft the
// watcher reports, until ctx is cancelled. A cancelled context is a normal
// shutdown and returns nil.
func (o *Outbox) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	if o.watcher == nil {
		return ErrNoWatcher
	}

	if err := o.ensureDirs(); err != nil {
		return err
	}

	if err := o.watcher.Start(ctx, o.config.Dir); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() {
		if err := o.watcher.Stop(); err != nil && !errors.Is(err, watcher.ErrNotStarted) {
			o.logger.Warn("failed to stop watcher", "error", err)
		}
	}()

	// Files dropped while the watcher was starting are caught by the drain;
	// ProcessFile skips those already moved.
	if _, err := o.Drain(ctx); err != nil {
		return err
	}

	o.logger.Info("outbox running", "dir", o.config.Dir)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("outbox stopped", "reason", "context cancelled")
			return nil

		case event, ok := <-o.watcher.Events():
			if !ok {
				return nil
			}
			o.logger.Debug("draft changed", "path", event.Path, "op", event.Op.String())
			if _, err := o.ProcessFile(ctx, event.Path); err != nil {
				o.logger.Warn("draft not published", "path", event.Path, "error", err)
			}

		case err, ok := <-o.watcher.Errors():
			if !ok {
				return nil
			}
			if errors.Is(err, watcher.ErrCircuitBreakerOpen) {
				return fmt.Errorf("outbox watcher failing: %w", err)
			}
			o.logger.Warn("watcher error", "error", err)
		}
	}
}

// Drain processes every draft currently in the directory in name order and
// returns the number of files processed.
func (o *Outbox) Drain(ctx context.Context) (int, error) {
	if err := o.ensureDirs(); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(o.config.Dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read outbox: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && o.isDraft(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	processed := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return processed, nil
		}

		path := filepath.Join(o.config.Dir, name)
		res, err := o.ProcessFile(ctx, path)
		if err != nil {
			o.logger.Warn("draft not published", "path", path, "error", err)
		}
		if res.Dest != "" {
			processed++
		}
	}

	return processed, nil
}

// ProcessFile publishes one draft and moves it to sent/ or failed/.
//
// A file that no longer exists is skipped. The returned error is the parse
// or publish error; the file has been moved to failed/ in that case.
func (o *Outbox) ProcessFile(ctx context.Context, path string) (Result, error) {
	o.processMu.Lock()
	defer o.processMu.Unlock()

	res := Result{Path: path}

	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			o.logger.Debug("draft already gone", "path", path)
			return res, nil
		}
		return res, fmt.Errorf("failed to read draft: %w", err)
	}

	draft, err := ParseDraft(data)
	if err == nil {
		draft.Source = path
		if len(draft.Aspects) == 0 {
			draft.Aspects = append([]string(nil), o.config.DefaultAspects...)
		}
		err = o.publisher.Publish(ctx, draft)
	}

	if err != nil {
		res.Err = err
		dest, moveErr := o.moveFailed(path, err)
		if moveErr != nil {
			o.logger.Warn("failed to move draft", "path", path, "error", moveErr)
		}
		res.Dest = dest
		o.emit(&res)
		return res, err
	}

	dest, moveErr := o.move(path, SentDir)
	res.Dest = dest
	if moveErr != nil {
		// Published, but the file is still in the outbox.
		res.Err = moveErr
		o.emit(&res)
		return res, moveErr
	}

	o.logger.Info("draft published", "path", path, "dest", dest)
	o.emit(&res)
	return res, nil
}

func (o *Outbox) emit(res *Result) {
	res.Timestamp = o.now()

	select {
	case o.results <- *res:
	default:
		o.logger.Debug("result dropped", "path", res.Path)
	}
}

// moveFailed moves path to failed/ and writes the reason next to it.
func (o *Outbox) moveFailed(path string, reason error) (string, error) {
	dest, err := o.move(path, FailedDir)
	if err != nil {
		return "", err
	}

	note := dest + ".error"
	if writeErr := os.WriteFile(note, []byte(reason.Error()+"\n"), 0600); writeErr != nil {
		o.logger.Warn("failed to write error note", "path", note, "error", writeErr)
	}

	return dest, nil
}

// move renames path into sub, adding a timestamp when the name is taken.
func (o *Outbox) move(path, sub string) (string, error) {
	dir := filepath.Join(o.config.Dir, sub)
	name := filepath.Base(path)
	dest := filepath.Join(dir, name)

	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		stamp := o.now().Format("20060102-150405.000000000")
		dest = filepath.Join(dir, strings.TrimSuffix(name, ext)+"-"+stamp+ext)
	}

	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("failed to move draft to %s: %w", sub, err)
	}

	return dest, nil
}

func (o *Outbox) ensureDirs() error {
	for _, sub := range []string{SentDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(o.config.Dir, sub), 0700); err != nil {
			return fmt.Errorf("failed to create outbox directory: %w", err)
		}
	}
	return nil
}

func (o *Outbox) isDraft(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return o.extensions[strings.ToLower(filepath.Ext(name))]
}
