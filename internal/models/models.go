// Package models defines the persisted and transient record types shared
// across the application.
package models

import "time"

// User is an operator account. Credentials are only touched by the auth
// layer; everything else keys off ID.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Group is a WhatsApp group conversation discovered through a connected
// session. The list is replaced wholesale on every successful connection.
type Group struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Participants int    `json:"participants"`
}

// Schedule describes one recurring notification slot owned by a user.
// Either Hour/Minute/Days or CronExpr is set; CronExpr takes precedence
// when non-empty.
type Schedule struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Hour     int      `json:"hour"`
	Minute   int      `json:"minute"`
	Days     []int    `json:"days"`
	CronExpr string   `json:"cronExpr,omitempty"`
	Groups   []string `json:"groups"`
	Active   bool     `json:"active"`

	CreatedAt time.Time  `json:"created"`
	UpdatedAt *time.Time `json:"updated,omitempty"`
}

// HasDay reports whether the schedule fires on the given weekday (0=Sunday).
func (s *Schedule) HasDay(day int) bool {
	for _, d := range s.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Stats holds per-user delivery counters. Both count attempts, not
// confirmed deliveries.
type Stats struct {
	MessagesSent int `json:"messagesSent"`
	VideosShared int `json:"videosShared"`
}

// UserData is the JSON-object-per-user record owned by the store.
type UserData struct {
	UserID     string     `json:"userId"`
	Groups     []Group    `json:"groups"`
	Schedules  []Schedule `json:"schedules"`
	Stats      Stats      `json:"stats"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUpdate time.Time  `json:"lastUpdate"`
}

// VideoRecord is the latest-video metadata fetched fresh on every dispatch.
// It is never persisted.
type VideoRecord struct {
	VideoID      string    `json:"videoId"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnail"`
	Link         string    `json:"link"`
	PublishedAt  time.Time `json:"publishedAt"`
}

// SystemStats aggregates totals across every registered user.
type SystemStats struct {
	TotalUsers     int `json:"totalUsers"`
	TotalMessages  int `json:"totalMessages"`
	TotalVideos    int `json:"totalVideos"`
	TotalSchedules int `json:"totalSchedules"`
	TotalGroups    int `json:"totalGroups"`
}
