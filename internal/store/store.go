// Package store persists user records as one JSON object per user, plus a
// shared users.json registry. It holds no business logic; callers own all
// semantics.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tubecast/internal/models"
)

var (
	// ErrUserExists is returned when creating a user whose username is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrScheduleNotFound is returned when no schedule matches the id.
	ErrScheduleNotFound = errors.New("schedule not found")
)

// Store reads and writes the JSON data directory. A single process-wide
// mutex serializes access; concurrent processes sharing the directory are
// not supported.
type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New creates the data directory if needed and returns a store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func (s *Store) usersFile() string {
	return filepath.Join(s.dir, "users.json")
}

func (s *Store) userDataFile(userID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("user_%s.json", userID))
}

// Users returns every registered user. A missing users.json yields an
// empty list.
func (s *Store) Users() ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readUsers()
}

// UserByUsername looks up a user by username.
func (s *Store) UserByUsername(username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

// CreateUser appends a new user to users.json and seeds the per-user data
// file.
func (s *Store) CreateUser(user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Username == user.Username {
			return ErrUserExists
		}
	}

	users = append(users, user)
	if err := s.writeJSON(s.usersFile(), users); err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}

	_, err = s.loadOrCreateUserData(user.ID)
	return err
}

// UserData returns the per-user record, creating an empty one on first
// access.
func (s *Store) UserData(userID string) (*models.UserData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadOrCreateUserData(userID)
}

// ReplaceGroups overwrites the user's discovered group list wholesale.
func (s *Store) ReplaceGroups(userID string, groups []models.Group) error {
	return s.update(userID, func(data *models.UserData) {
		data.Groups = groups
	})
}

// Schedules returns the user's schedule list.
func (s *Store) Schedules(userID string) ([]models.Schedule, error) {
	data, err := s.UserData(userID)
	if err != nil {
		return nil, err
	}
	return data.Schedules, nil
}

// CreateSchedule appends a schedule to the user's list.
func (s *Store) CreateSchedule(userID string, schedule models.Schedule) error {
	return s.update(userID, func(data *models.UserData) {
		data.Schedules = append(data.Schedules, schedule)
	})
}

// UpdateSchedule replaces the schedule with the same id, keeping its
// original creation time.
func (s *Store) UpdateSchedule(userID string, schedule models.Schedule) error {
	found := false
	err := s.update(userID, func(data *models.UserData) {
		for i := range data.Schedules {
			if data.Schedules[i].ID == schedule.ID {
				schedule.CreatedAt = data.Schedules[i].CreatedAt
				now := s.now()
				schedule.UpdatedAt = &now
				data.Schedules[i] = schedule
				found = true
				return
			}
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule removes the schedule with the given id.
func (s *Store) DeleteSchedule(userID, scheduleID string) error {
	found := false
	err := s.update(userID, func(data *models.UserData) {
		for i := range data.Schedules {
			if data.Schedules[i].ID == scheduleID {
				data.Schedules = append(data.Schedules[:i], data.Schedules[i+1:]...)
				found = true
				return
			}
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrScheduleNotFound
	}
	return nil
}

// AddStats increments the user's counters. Both values count attempts.
func (s *Store) AddStats(userID string, messages, videos int) error {
	return s.update(userID, func(data *models.UserData) {
		data.Stats.MessagesSent += messages
		data.Stats.VideosShared += videos
	})
}

// SystemStats aggregates totals across every registered user.
func (s *Store) SystemStats() (*models.SystemStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return nil, err
	}

	stats := &models.SystemStats{TotalUsers: len(users)}
	for _, u := range users {
		data, err := s.loadOrCreateUserData(u.ID)
		if err != nil {
			return nil, err
		}
		stats.TotalMessages += data.Stats.MessagesSent
		stats.TotalVideos += data.Stats.VideosShared
		stats.TotalSchedules += len(data.Schedules)
		stats.TotalGroups += len(data.Groups)
	}
	return stats, nil
}

// update applies a mutation to the user's record under the store lock and
// writes it back with a refreshed LastUpdate.
func (s *Store) update(userID string, mutate func(*models.UserData)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadOrCreateUserData(userID)
	if err != nil {
		return err
	}

	mutate(data)
	data.LastUpdate = s.now()

	if err := s.writeJSON(s.userDataFile(userID), data); err != nil {
		return fmt.Errorf("failed to save user data for %s: %w", userID, err)
	}
	return nil
}

func (s *Store) readUsers() ([]models.User, error) {
	raw, err := os.ReadFile(s.usersFile())
	if errors.Is(err, os.ErrNotExist) {
		return []models.User{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}

	var users []models.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users: %w", err)
	}
	return users, nil
}

func (s *Store) loadOrCreateUserData(userID string) (*models.UserData, error) {
	raw, err := os.ReadFile(s.userDataFile(userID))
	if errors.Is(err, os.ErrNotExist) {
		data := &models.UserData{
			UserID:     userID,
			Groups:     []models.Group{},
			Schedules:  []models.Schedule{},
			CreatedAt:  s.now(),
			LastUpdate: s.now(),
		}
		if err := s.writeJSON(s.userDataFile(userID), data); err != nil {
			return nil, fmt.Errorf("failed to create user data for %s: %w", userID, err)
		}
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user data for %s: %w", userID, err)
	}

	var data models.UserData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse user data for %s: %w", userID, err)
	}
	return &data, nil
}

// writeJSON writes through a temp file and rename so readers never observe
// a partially written record.
func (s *Store) writeJSON(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
