package main

import (
	"context"
	"fmt"
	"io"

	"github.com/0xmhha/podpost/pkg/outbox"
	"github.com/0xmhha/podpost/pkg/watcher"
)

// podPublisher publishes outbox drafts through the app's pod client and
// records them in the history.
type podPublisher struct {
	app *app
}

// Publish implements outbox.Publisher.
func (p *podPublisher) Publish(ctx context.Context, draft outbox.Draft) error {
	if err := p.app.ensureLogin(ctx, false); err != nil {
		return err
	}

	post, err := p.app.client.Post(ctx, draft.Text, draft.Aspects, draft.Extra)
	if err != nil {
		return err
	}

	if err := p.app.recordPost(post, draft.Text, draft.Aspects, draft.Source); err != nil {
		p.app.log.Warn("failed to record post", "guid", post.GUID, "error", err)
	}
	// Cookies may rotate on every request.
	if err := p.app.saveSession(); err != nil {
		p.app.log.Warn("failed to save session", "error", err)
	}

	return nil
}

// outboxCommand publishes drafts from a directory.
type outboxCommand struct {
	dir  string
	once bool
}

func parseOutboxArgs(args []string) (*outboxCommand, error) {
	fs := newFlagSet("outbox")
	dir := fs.String("dir", "", "outbox directory (default: outbox.dir)")
	once := fs.Bool("once", false, "publish the drafts present and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &outboxCommand{dir: *dir, once: *once}, nil
}

// runOutboxCommand runs the outbox command until ctx is cancelled.
func runOutboxCommand(ctx context.Context, g globalOptions, args []string) error {
	cmd, err := parseOutboxArgs(args)
	if err != nil {
		return err
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.close()

	dir := a.cfg.Outbox.Dir
	if cmd.dir != "" {
		dir = cmd.dir
	}
	dir = expandHome(dir)

	// Fail before watching when the account cannot sign in.
	if err := a.ensureLogin(ctx, false); err != nil {
		return err
	}

	cfg := outbox.Config{
		Dir:            dir,
		DefaultAspects: a.cfg.Outbox.DefaultAspects,
	}
	publisher := &podPublisher{app: a}

	if cmd.once {
		ob, err := outbox.New(cfg, nil, publisher, a.log)
		if err != nil {
			return fmt.Errorf("failed to create outbox: %w", err)
		}

		n, err := ob.Drain(ctx)
		if err != nil {
			return err
		}
		for drained := false; !drained; {
			select {
			case res := <-ob.Results():
				printResult(a.out, res)
			default:
				drained = true
			}
		}
		fmt.Fprintf(a.out, "Processed %d draft(s)\n", n)
		return nil
	}

	w, err := watcher.New(watcher.Config{
		DebounceInterval: a.cfg.Outbox.Debounce,
	}, a.log)
	if err != nil {
		return fmt.Errorf("failed to initialize watcher: %w", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			a.log.Error("failed to close watcher", "error", err)
		}
	}()

	ob, err := outbox.New(cfg, w, publisher, a.log)
	if err != nil {
		return fmt.Errorf("failed to create outbox: %w", err)
	}

	fmt.Fprintf(a.out, "Watching %s - press Ctrl+C to stop\n", dir)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-runCtx.Done():
				return
			case res := <-ob.Results():
				printResult(a.out, res)
			}
		}
	}()

	err = ob.Run(runCtx)
	cancel()
	<-done

	return err
}

// printResult writes one line per processed draft.
func printResult(w io.Writer, res outbox.Result) {
	if res.Err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", res.Path, res.Err)
		return
	}
	fmt.Fprintf(w, "sent    %s\n", res.Path)
}
