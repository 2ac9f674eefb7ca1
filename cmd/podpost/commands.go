package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/0xmhha/podpost/pkg/config"
	"github.com/0xmhha/podpost/pkg/display"
	"github.com/0xmhha/podpost/pkg/pod"
	"github.com/0xmhha/podpost/pkg/store"
)

// listTarget selects what the list command shows.
type listTarget string

const (
	listAspects  listTarget = "aspects"
	listServices listTarget = "services"
)

var (
	errEmptyText   = errors.New("nothing to post: the text is empty")
	errDeleteUsage = errors.New("usage: podpost delete <post|comment> <id>")
)

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// newFormatter creates the formatter named by format.
func newFormatter(format string, compact bool) (display.Formatter, error) {
	f, err := display.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	return display.New(display.Config{
		Format:         f,
		ShowTimestamps: true,
		Compact:        compact,
	}), nil
}

// runInitCommand connects to the pod.
func runInitCommand(ctx context.Context, g globalOptions, args []string) error {
	fs := newFlagSet("init")
	force := fs.Bool("force", false, "drop the saved session and fetch a new token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.close()

	if *force {
		a.client.Reset()
	}
	if err := a.client.Initialize(ctx); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Connected to %s\n", a.podURL())
	return nil
}

// runLoginCommand signs in with the configured account.
func runLoginCommand(ctx context.Context, g globalOptions, args []string) error {
	fs := newFlagSet("login")
	force := fs.Bool("force", false, "sign in again even if already signed in")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ensureLogin(ctx, *force); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Signed in to %s as %s\n", a.podURL(), a.client.Username())
	return nil
}

// listCommand shows aspects or services.
type listCommand struct {
	target  listTarget
	force   bool
	format  string
	compact bool
}

func parseListArgs(target listTarget, args []string) (*listCommand, error) {
	fs := newFlagSet(string(target))
	force := fs.Bool("force", false, "reload from the pod")
	format := fs.String("format", "table", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &listCommand{
		target:  target,
		force:   *force,
		format:  *format,
		compact: *compact,
	}, nil
}

// runListCommand runs the aspects and services commands.
func runListCommand(ctx context.Context, g globalOptions, target listTarget, args []string) error {
	cmd, err := parseListArgs(target, args)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(cmd.format, cmd.compact)
	if err != nil {
		return err
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ensureLogin(ctx, false); err != nil {
		return err
	}

	switch cmd.target {
	case listServices:
		services, err := a.client.Services(ctx, cmd.force)
		if err != nil {
			return err
		}
		return formatter.FormatServices(a.out, services)
	default:
		aspects, err := a.client.Aspects(ctx, cmd.force)
		if err != nil {
			return err
		}
		return formatter.FormatAspects(a.out, aspects)
	}
}

// extraFlag collects repeated key=value flags. Values that parse as JSON
// are decoded, anything else is kept as a string.
type extraFlag map[string]any

func (e extraFlag) String() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (e extraFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("invalid extra %q: want key=value", s)
	}

	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err == nil {
		e[key] = decoded
	} else {
		e[key] = value
	}
	return nil
}

// postCommand publishes a status message.
type postCommand struct {
	text    string
	aspects []string
	extra   map[string]any
	format  string
}

// parsePostArgs parses the post flags. A single "-" argument reads the text
// from stdin.
func parsePostArgs(args []string, stdin io.Reader) (*postCommand, error) {
	fs := newFlagSet("post")
	aspects := fs.String("aspects", "", "comma-separated aspect IDs or \"public\"")
	format := fs.String("format", "simple", "output format (table, json, simple)")
	extra := extraFlag{}
	fs.Var(extra, "extra", "extra request field as key=value (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cmd := &postCommand{
		aspects: splitList(*aspects),
		format:  *format,
	}
	if len(extra) > 0 {
		cmd.extra = extra
	}

	rest := fs.Args()
	if len(rest) == 1 && rest[0] == "-" {
		if stdin == nil {
			return nil, errEmptyText
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		cmd.text = strings.TrimSpace(string(data))
	} else {
		cmd.text = strings.TrimSpace(strings.Join(rest, " "))
	}

	if cmd.text == "" {
		return nil, errEmptyText
	}

	return cmd, nil
}

// runPostCommand runs the post command.
func runPostCommand(ctx context.Context, g globalOptions, args []string) error {
	cmd, err := parsePostArgs(args, g.stdin)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(cmd.format, false)
	if err != nil {
		return err
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ensureLogin(ctx, false); err != nil {
		return err
	}

	post, err := a.client.Post(ctx, cmd.text, cmd.aspects, cmd.extra)
	if err != nil {
		return err
	}

	if err := a.recordPost(post, cmd.text, cmd.aspects, "cli"); err != nil {
		a.log.Warn("failed to record post", "guid", post.GUID, "error", err)
	}

	return formatter.FormatPost(a.out, post)
}

// runDeleteCommand deletes a post or comment.
func runDeleteCommand(ctx context.Context, g globalOptions, args []string) error {
	if len(args) != 2 {
		return errDeleteUsage
	}
	kind, id := args[0], args[1]

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ensureLogin(ctx, false); err != nil {
		return err
	}

	if err := a.client.Delete(ctx, kind, id); err != nil {
		return err
	}

	if kind == pod.KindPost {
		a.forgetPost(id)
	}

	fmt.Fprintf(a.out, "Deleted %s %s\n", kind, id)
	return nil
}

// forgetPost drops history records of this pod whose ID is id.
func (a *app) forgetPost(id string) {
	postID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}

	posts, err := a.store.ListPosts()
	if err != nil {
		a.log.Warn("failed to list posts", "error", err)
		return
	}

	for _, post := range posts {
		if post.ID != postID || post.PodURL != a.podURL() {
			continue
		}
		if err := a.store.DeletePost(post.PodURL, post.GUID); err != nil {
			a.log.Warn("failed to forget post", "guid", post.GUID, "error", err)
		}
	}
}

// historyCommand shows recorded posts.
type historyCommand struct {
	guid    string
	limit   int
	format  string
	compact bool
}

func parseHistoryArgs(args []string) (*historyCommand, error) {
	fs := newFlagSet("history")
	limit := fs.Int("limit", 0, "show at most N posts")
	format := fs.String("format", "table", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *limit < 0 {
		return nil, fmt.Errorf("invalid limit: %d", *limit)
	}

	cmd := &historyCommand{
		limit:   *limit,
		format:  *format,
		compact: *compact,
	}
	if rest := fs.Args(); len(rest) > 0 {
		cmd.guid = rest[0]
	}

	return cmd, nil
}

// runHistoryCommand runs the history command. It needs no pod connection.
func runHistoryCommand(g globalOptions, args []string) error {
	cmd, err := parseHistoryArgs(args)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(cmd.format, cmd.compact)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	st, err := store.New(store.Config{DBPath: cfg.Storage.DBPath}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("failed to close store", "error", err)
		}
	}()

	var posts []*store.PostRecord
	if cmd.guid != "" {
		posts, err = findPosts(st, cfg, cmd.guid)
		if err != nil {
			return err
		}
	} else {
		posts, err = st.ListPosts()
		if err != nil {
			return err
		}
		if cmd.limit > 0 && len(posts) > cmd.limit {
			posts = posts[:cmd.limit]
		}
	}

	return formatter.FormatPosts(g.stdout, posts)
}

// findPosts looks guid up on the configured pod. Without a pod, every
// recorded post with that GUID matches.
func findPosts(st store.Store, cfg *config.Config, guid string) ([]*store.PostRecord, error) {
	if cfg.Pod.Host != "" {
		podURL := pod.New(cfg.Pod.Host, pod.WithHTTPS(cfg.Pod.UseHTTPS())).BuildURL("")
		post, err := st.GetPost(podURL, guid)
		if err != nil {
			return nil, err
		}
		return []*store.PostRecord{post}, nil
	}

	all, err := st.ListPosts()
	if err != nil {
		return nil, err
	}

	var posts []*store.PostRecord
	for _, post := range all {
		if post.GUID == guid {
			posts = append(posts, post)
		}
	}
	if len(posts) == 0 {
		return nil, store.ErrPostNotFound
	}
	return posts, nil
}

// runLogoutCommand forgets the login. Token and cookies stay saved.
func runLogoutCommand(g globalOptions) error {
	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.close()

	a.client.Logout()
	fmt.Fprintf(a.out, "Logged out of %s\n", a.podURL())
	return nil
}

// runResetCommand forgets token, cookies and login.
func runResetCommand(g globalOptions) error {
	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.close()

	a.client.Reset()
	fmt.Fprintf(a.out, "Session for %s reset\n", a.podURL())
	return nil
}

// splitList splits a comma separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
