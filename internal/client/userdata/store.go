// Package userdata owns the single per-device user document (favorites,
// read history, downloads, reading streak, settings). Every mutation is a
// locked read-modify-write against the key-value store, so overlapping
// calls from different goroutines serialize instead of clobbering each
// other's writes.
package userdata

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beaconchurch/beacon/internal/client/models"
	"github.com/beaconchurch/beacon/internal/client/storage"
	"github.com/beaconchurch/beacon/internal/common"
	"github.com/beaconchurch/beacon/internal/logging"
)

// dateLayout is the calendar-day granularity used by the reading streak.
// Days are anchored to the device-local timezone.
const dateLayout = "2006-01-02"

type Store struct {
	kv  storage.Repository
	log logging.Logger

	mu  sync.Mutex
	now func() time.Time
}

func NewStore(kv storage.Repository, log logging.Logger) *Store {
	return &Store{
		kv:  kv,
		log: log.With("component", "userdata"),
		now: time.Now,
	}
}

// DeviceID returns the stable device identifier, generating and persisting
// one on first call.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	raw, err := s.kv.Get(ctx, common.KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}
	if len(raw) > 0 {
		return string(raw), nil
	}

	id := uuid.NewString()
	if err := s.kv.Set(ctx, common.KeyDeviceID, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	s.log.Info(ctx, "generated device id", "device_id", id)
	return id, nil
}

// Get returns the current document, creating and persisting a fresh default
// one on the first-ever call.
func (s *Store) Get(ctx context.Context) (*models.UserData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// ToggleFavorite flips membership of id in the kind's favorite set and
// reports whether the id is a favorite afterwards.
func (s *Store) ToggleFavorite(ctx context.Context, kind models.FavoriteKind, id int) (bool, error) {
	var nowFavorite bool
	err := s.mutate(ctx, func(doc *models.UserData) error {
		set := favoriteSet(doc, kind)
		if set == nil {
			return fmt.Errorf("unknown favorite kind %q", kind)
		}
		if slices.Contains(*set, id) {
			*set = slices.DeleteFunc(*set, func(v int) bool { return v == id })
			nowFavorite = false
		} else {
			*set = append(*set, id)
			slices.Sort(*set)
			nowFavorite = true
		}
		return nil
	})
	return nowFavorite, err
}

// MarkDevotionalRead records id as read and recomputes the reading streak.
// The recomputation is idempotent per calendar day: a second read on the
// same day never double-increments.
func (s *Store) MarkDevotionalRead(ctx context.Context, id int) error {
	return s.mutate(ctx, func(doc *models.UserData) error {
		if !slices.Contains(doc.ReadDevotionals, id) {
			doc.ReadDevotionals = append(doc.ReadDevotionals, id)
			slices.Sort(doc.ReadDevotionals)
		}

		now := s.now()
		today := now.Format(dateLayout)
		yesterday := now.AddDate(0, 0, -1).Format(dateLayout)

		st := &doc.ReadingStreak
		switch st.LastReadDate {
		case today:
			// already counted for today
		case yesterday:
			st.CurrentStreak++
		default:
			st.CurrentStreak = 1
		}
		st.LastReadDate = today
		if st.CurrentStreak > st.LongestStreak {
			st.LongestStreak = st.CurrentStreak
		}
		return nil
	})
}

// AddDownload records a downloaded audio sermon. A record with the same
// sermon id replaces the existing one, keeping at most one per sermon.
func (s *Store) AddDownload(ctx context.Context, rec models.DownloadRecord) error {
	return s.mutate(ctx, func(doc *models.UserData) error {
		doc.DownloadedAudio = slices.DeleteFunc(doc.DownloadedAudio, func(d models.DownloadRecord) bool {
			return d.SermonID == rec.SermonID
		})
		doc.DownloadedAudio = append(doc.DownloadedAudio, rec)
		return nil
	})
}

// RemoveDownload drops the record for sermonID, if any.
func (s *Store) RemoveDownload(ctx context.Context, sermonID int) error {
	return s.mutate(ctx, func(doc *models.UserData) error {
		doc.DownloadedAudio = slices.DeleteFunc(doc.DownloadedAudio, func(d models.DownloadRecord) bool {
			return d.SermonID == sermonID
		})
		return nil
	})
}

// UpdateSettings shallow-merges the non-nil fields of patch into the
// settings block.
func (s *Store) UpdateSettings(ctx context.Context, patch models.SettingsPatch) error {
	return s.mutate(ctx, func(doc *models.UserData) error {
		if patch.Notifications != nil {
			doc.AppSettings.Notifications = *patch.Notifications
		}
		if patch.AutoDownloadOnWifi != nil {
			doc.AppSettings.AutoDownloadOnWifi = *patch.AutoDownloadOnWifi
		}
		if patch.FontSize != nil {
			doc.AppSettings.FontSize = *patch.FontSize
		}
		if patch.Theme != nil {
			doc.AppSettings.Theme = *patch.Theme
		}
		return nil
	})
}

// SetLastSync stamps the document with the time of the last successful sync.
func (s *Store) SetLastSync(ctx context.Context, t time.Time) error {
	return s.mutate(ctx, func(doc *models.UserData) error {
		doc.LastSyncAt = t
		return nil
	})
}

// ClearAll resets the document to defaults, preserving the device id.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.DeviceID(ctx)
	if err != nil {
		return err
	}
	return s.save(ctx, models.DefaultUserData(id))
}

// mutate runs fn against the current document and persists the result. The
// persist completes before mutate returns, so no partial-write state is
// observable by other callers.
func (s *Store) mutate(ctx context.Context, fn func(doc *models.UserData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(ctx, doc)
}

func (s *Store) load(ctx context.Context) (*models.UserData, error) {
	raw, err := s.kv.Get(ctx, common.KeyUserData)
	if err != nil {
		return nil, fmt.Errorf("failed to read user data: %w", err)
	}

	if raw == nil {
		return s.freshDocument(ctx)
	}

	var doc models.UserData
	if err := json.Unmarshal(raw, &doc); err != nil {
		// A corrupt document is unrecoverable; start over rather than brick
		// the app. The device id lives under its own key and survives.
		s.log.Error(ctx, "user data corrupt, resetting", "error", err)
		return s.freshDocument(ctx)
	}
	return &doc, nil
}

func (s *Store) freshDocument(ctx context.Context) (*models.UserData, error) {
	id, err := s.DeviceID(ctx)
	if err != nil {
		return nil, err
	}
	doc := models.DefaultUserData(id)
	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) save(ctx context.Context, doc *models.UserData) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize user data: %w", err)
	}
	if err := s.kv.Set(ctx, common.KeyUserData, raw); err != nil {
		return fmt.Errorf("failed to persist user data: %w", err)
	}
	return nil
}

func favoriteSet(doc *models.UserData, kind models.FavoriteKind) *[]int {
	switch kind {
	case models.KindDevotionals:
		return &doc.Favorites.Devotionals
	case models.KindVideoSermons:
		return &doc.Favorites.VideoSermons
	case models.KindAudioSermons:
		return &doc.Favorites.AudioSermons
	default:
		return nil
	}
}
