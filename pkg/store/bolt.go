package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/0xmhha/podpost/pkg/logger"
	bolt "go.etcd.io/bbolt"
)

// Bucket names.
var (
	bucketSessions = []byte("sessions") // pod URL -> SessionRecord
	bucketPosts    = []byte("posts")    // pod URL NUL GUID -> PostRecord
)

// postKey scopes a GUID to its pod, so histories of two pods never collide.
func postKey(podURL, guid string) []byte {
	return []byte(podURL + "\x00" + guid)
}

// boltStore implements the Store interface using BoltDB.
type boltStore struct {
	db     *bolt.DB
	logger logger.Logger
	now    func() time.Time
}

// New opens (or creates) the database at cfg.DBPath.
//
// Parameters:
//   - cfg: Store configuration
//   - log: Logger instance
//
// Returns:
//   - Store with the sessions and posts buckets present
//   - Error if the database cannot be opened
func New(cfg Config, log logger.Logger) (Store, error) {
	// Set defaults.
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	dbPath := expandHome(cfg.DBPath)

	// Ensure directory exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database.
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets.
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSessions, bucketPosts} {
			if _, createErr := tx.CreateBucketIfNotExists(name); createErr != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, createErr)
			}
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	log.Debug("store opened", "db_path", dbPath)

	return &boltStore{
		db:     db,
		logger: log,
		now:    time.Now,
	}, nil
}

// SaveSession implements Store.SaveSession.
func (s *boltStore) SaveSession(record *SessionRecord) error {
	if record == nil {
		return ErrInvalidRecord
	}
	if record.PodURL == "" {
		return ErrEmptyKey
	}

	record.UpdatedAt = s.now()

	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		if err := tx.Bucket(bucketSessions).Put([]byte(record.PodURL), data); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}

		s.logger.Debug("session saved",
			"pod", record.PodURL,
			"cookies", len(record.Cookies))

		return nil
	})
}

// LoadSession implements Store.LoadSession.
func (s *boltStore) LoadSession(podURL string) (*SessionRecord, error) {
	if podURL == "" {
		return nil, ErrEmptyKey
	}

	var record *SessionRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(podURL))
		if data == nil {
			return ErrSessionNotFound
		}

		var r SessionRecord
		if unmarshalErr := json.Unmarshal(data, &r); unmarshalErr != nil {
			return fmt.Errorf("failed to unmarshal session: %w", unmarshalErr)
		}

		record = &r
		return nil
	})

	if err != nil {
		return nil, err
	}

	return record, nil
}

// DeleteSession implements Store.DeleteSession.
func (s *boltStore) DeleteSession(podURL string) error {
	if podURL == "" {
		return ErrEmptyKey
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketSessions).Delete([]byte(podURL)); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}

		s.logger.Debug("session deleted", "pod", podURL)
		return nil
	})
}

// RecordPost implements Store.RecordPost.
func (s *boltStore) RecordPost(record *PostRecord) error {
	if record == nil {
		return ErrInvalidRecord
	}
	if record.GUID == "" {
		return ErrEmptyKey
	}

	record.CreatedAt = s.now()

	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal post: %w", err)
		}

		if err := tx.Bucket(bucketPosts).Put(postKey(record.PodURL, record.GUID), data); err != nil {
			return fmt.Errorf("failed to store post: %w", err)
		}

		s.logger.Info("post recorded",
			"pod", record.PodURL,
			"guid", record.GUID,
			"id", record.ID,
			"source", record.Source)

		return nil
	})
}

// GetPost implements Store.GetPost.
func (s *boltStore) GetPost(podURL, guid string) (*PostRecord, error) {
	if guid == "" {
		return nil, ErrEmptyKey
	}

	var record *PostRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPosts).Get(postKey(podURL, guid))
		if data == nil {
			return ErrPostNotFound
		}

		var r PostRecord
		if unmarshalErr := json.Unmarshal(data, &r); unmarshalErr != nil {
			return fmt.Errorf("failed to unmarshal post: %w", unmarshalErr)
		}

		record = &r
		return nil
	})

	if err != nil {
		return nil, err
	}

	return record, nil
}

// ListPosts implements Store.ListPosts.
func (s *boltStore) ListPosts() ([]*PostRecord, error) {
	posts := make([]*PostRecord, 0, 10)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPosts).ForEach(func(k, v []byte) error {
			var record PostRecord
			if unmarshalErr := json.Unmarshal(v, &record); unmarshalErr != nil {
				s.logger.Warn("failed to unmarshal post",
					"key", strings.ReplaceAll(string(k), "\x00", " "),
					"error", unmarshalErr)
				return nil // Skip invalid entries.
			}

			posts = append(posts, &record)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	return posts, nil
}

// DeletePost implements Store.DeletePost.
func (s *boltStore) DeletePost(podURL, guid string) error {
	if guid == "" {
		return ErrEmptyKey
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketPosts).Delete(postKey(podURL, guid)); err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}

		s.logger.Debug("post forgotten", "pod", podURL, "guid", guid)
		return nil
	})
}

// Close implements Store.Close.
func (s *boltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.logger.Debug("store closed")
	return nil
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
