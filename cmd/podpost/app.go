package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xmhha/podpost/pkg/config"
	"github.com/0xmhha/podpost/pkg/logger"
	"github.com/0xmhha/podpost/pkg/pod"
	"github.com/0xmhha/podpost/pkg/store"
)

// globalOptions are the settings shared by every command.
type globalOptions struct {
	configPath string
	stdin      io.Reader
	stdout     io.Writer
}

// app holds the components a pod command works with.
type app struct {
	cfg    *config.Config
	log    logger.Logger
	store  store.Store
	client *pod.Client
	in     io.Reader
	out    io.Writer

	// restored reports whether token and cookies came from the store.
	restored bool
	password string
}

// loadConfig loads the configuration named by path or found on the search path.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// newApp loads the configuration, opens the store and restores the saved
// session of the configured pod.
func newApp(g globalOptions) (*app, error) {
	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidatePod(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w (set pod.host or PODPOST_HOST)", err)
	}

	log := newLogger(cfg)

	st, err := store.New(store.Config{
		DBPath: cfg.Storage.DBPath,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	client := pod.New(cfg.Pod.Host,
		pod.WithHTTPS(cfg.Pod.UseHTTPS()),
		pod.WithTimeout(cfg.Pod.Timeout),
		pod.WithProvider(cfg.Pod.Provider),
		pod.WithUserAgent(cfg.Pod.UserAgent),
		pod.WithLogger(log),
	)

	a := &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		client:   client,
		in:       g.stdin,
		out:      g.stdout,
		password: cfg.Account.Password,
	}
	a.restoreSession()

	return a, nil
}

// podURL is the key of the session in the store.
func (a *app) podURL() string {
	return a.client.BuildURL("")
}

func (a *app) restoreSession() {
	rec, err := a.store.LoadSession(a.podURL())
	if err != nil {
		if !errors.Is(err, store.ErrSessionNotFound) {
			a.log.Warn("failed to load saved session", "error", err)
		}
		return
	}

	a.restored = a.client.Restore(pod.SessionState{
		Host:     a.cfg.Pod.Host,
		UseHTTPS: a.cfg.Pod.UseHTTPS(),
		Token:    rec.Token,
		Cookies:  rec.Cookies,
	})
	a.log.Debug("session restored", "pod", rec.PodURL, "cookies", len(rec.Cookies))
}

// saveSession persists token and cookies, or removes the saved session
// when the client holds none.
func (a *app) saveSession() error {
	state := a.client.State()
	if state.Token == "" && len(state.Cookies) == 0 {
		return a.store.DeleteSession(a.podURL())
	}

	return a.store.SaveSession(&store.SessionRecord{
		PodURL:   a.podURL(),
		Username: state.Username,
		Token:    state.Token,
		Cookies:  state.Cookies,
	})
}

// close saves the session and closes the store.
func (a *app) close() {
	if err := a.saveSession(); err != nil {
		a.log.Error("failed to save session", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.log.Error("failed to close store", "error", err)
	}
}

// credentials returns the configured username and the password, asking for
// the password once when none is configured.
func (a *app) credentials() (string, string, error) {
	username := a.cfg.Account.Username
	if username == "" || a.password != "" {
		return username, a.password, nil
	}

	password, err := promptPassword(a.in, a.out, fmt.Sprintf("Password for %s@%s: ", username, a.cfg.Pod.Host))
	if err != nil {
		return "", "", err
	}
	a.password = password
	return username, password, nil
}

// ensureLogin initialises the connection and signs in. A saved session the
// pod no longer accepts is dropped and the sign in repeated with a fresh token.
func (a *app) ensureLogin(ctx context.Context, force bool) error {
	if err := a.client.Initialize(ctx); err != nil {
		return err
	}

	username, password, err := a.credentials()
	if err != nil {
		return err
	}

	err = a.client.Login(ctx, username, password, force)
	if errors.Is(err, pod.ErrLoginFailed) && a.restored {
		a.log.Info("saved session rejected, signing in again", "pod", a.podURL())
		a.restored = false
		a.client.Reset()
		if err := a.client.Initialize(ctx); err != nil {
			return err
		}
		err = a.client.Login(ctx, username, password, true)
	}

	return err
}

// recordPost adds a published post to the history.
// text is used when the pod does not echo it back.
func (a *app) recordPost(post *pod.Post, text string, aspects []string, source string) error {
	if post.Text != "" {
		text = post.Text
	}

	return a.store.RecordPost(&store.PostRecord{
		GUID:      post.GUID,
		ID:        post.ID,
		PodURL:    a.podURL(),
		Text:      text,
		Aspects:   pod.NormalizeAspects(aspects),
		Public:    post.Public,
		Permalink: post.Permalink,
		Source:    source,
	})
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
