package store

import (
	"errors"
	"testing"
	"time"

	"tubecast/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestCreateUser(t *testing.T) {
	s := newTestStore(t)

	user := models.User{ID: "u1", Username: "alice", PasswordHash: "x", CreatedAt: time.Now()}
	if err := s.CreateUser(user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := s.CreateUser(user); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate CreateUser error = %v, want ErrUserExists", err)
	}

	got, err := s.UserByUsername("alice")
	if err != nil {
		t.Fatalf("UserByUsername: %v", err)
	}
	if got.ID != "u1" {
		t.Errorf("UserByUsername id = %q, want u1", got.ID)
	}

	if _, err := s.UserByUsername("bob"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown UserByUsername error = %v, want ErrUserNotFound", err)
	}
}

func TestUserDataCreatedOnFirstAccess(t *testing.T) {
	s := newTestStore(t)

	data, err := s.UserData("u1")
	if err != nil {
		t.Fatalf("UserData: %v", err)
	}
	if data.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", data.UserID)
	}
	if len(data.Groups) != 0 || len(data.Schedules) != 0 {
		t.Errorf("new record not empty: %+v", data)
	}
	if data.Stats.MessagesSent != 0 || data.Stats.VideosShared != 0 {
		t.Errorf("new record stats not zero: %+v", data.Stats)
	}
}

func TestReplaceGroups(t *testing.T) {
	s := newTestStore(t)

	first := []models.Group{{ID: "g1", Name: "One", Participants: 3}}
	if err := s.ReplaceGroups("u1", first); err != nil {
		t.Fatalf("ReplaceGroups: %v", err)
	}

	second := []models.Group{{ID: "g2", Name: "Two", Participants: 5}}
	if err := s.ReplaceGroups("u1", second); err != nil {
		t.Fatalf("ReplaceGroups: %v", err)
	}

	data, err := s.UserData("u1")
	if err != nil {
		t.Fatalf("UserData: %v", err)
	}
	if len(data.Groups) != 1 || data.Groups[0].ID != "g2" {
		t.Errorf("groups not replaced wholesale: %+v", data.Groups)
	}
}

func TestScheduleLifecycle(t *testing.T) {
	s := newTestStore(t)

	schedule := models.Schedule{
		ID:     "s1",
		Name:   "morning",
		Hour:   8,
		Minute: 0,
		Days:   []int{1, 2, 3, 4, 5},
		Groups: []string{"g1"},
		Active: true,
	}

	if err := s.CreateSchedule("u1", schedule); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	schedule.Name = "renamed"
	if err := s.UpdateSchedule("u1", schedule); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}

	schedules, err := s.Schedules("u1")
	if err != nil {
		t.Fatalf("Schedules: %v", err)
	}
	if len(schedules) != 1 || schedules[0].Name != "renamed" {
		t.Fatalf("unexpected schedules: %+v", schedules)
	}

	if err := s.UpdateSchedule("u1", models.Schedule{ID: "missing"}); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("UpdateSchedule missing error = %v, want ErrScheduleNotFound", err)
	}

	if err := s.DeleteSchedule("u1", "s1"); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	if err := s.DeleteSchedule("u1", "s1"); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("second DeleteSchedule error = %v, want ErrScheduleNotFound", err)
	}
}

func TestAddStatsAccumulates(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddStats("u1", 3, 1); err != nil {
		t.Fatalf("AddStats: %v", err)
	}
	if err := s.AddStats("u1", 2, 1); err != nil {
		t.Fatalf("AddStats: %v", err)
	}

	data, err := s.UserData("u1")
	if err != nil {
		t.Fatalf("UserData: %v", err)
	}
	if data.Stats.MessagesSent != 5 || data.Stats.VideosShared != 2 {
		t.Errorf("stats = %+v, want {5 2}", data.Stats)
	}
}

func TestSystemStats(t *testing.T) {
	s := newTestStore(t)

	for _, u := range []models.User{
		{ID: "u1", Username: "alice"},
		{ID: "u2", Username: "bob"},
	} {
		if err := s.CreateUser(u); err != nil {
			t.Fatalf("CreateUser(%s): %v", u.Username, err)
		}
	}

	if err := s.AddStats("u1", 4, 2); err != nil {
		t.Fatalf("AddStats: %v", err)
	}
	if err := s.ReplaceGroups("u2", []models.Group{{ID: "g1"}, {ID: "g2"}}); err != nil {
		t.Fatalf("ReplaceGroups: %v", err)
	}
	if err := s.CreateSchedule("u2", models.Schedule{ID: "s1", Active: true}); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	stats, err := s.SystemStats()
	if err != nil {
		t.Fatalf("SystemStats: %v", err)
	}

	want := models.SystemStats{
		TotalUsers:     2,
		TotalMessages:  4,
		TotalVideos:    2,
		TotalSchedules: 1,
		TotalGroups:    2,
	}
	if *stats != want {
		t.Errorf("SystemStats = %+v, want %+v", *stats, want)
	}
}
