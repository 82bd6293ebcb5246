package models

import (
	"time"
)

// Имена событий
const (
	EventPageview = "pageview"
	EventDuration = "duration"
)

type Event struct {
	ID           int64     `json:"id"`
	SiteID       int64     `json:"site_id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Referrer     string    `json:"referrer,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	ScreenWidth  *int      `json:"screen_width,omitempty"`
	ScreenHeight *int      `json:"screen_height,omitempty"`
	Country      *string   `json:"country,omitempty"`
	IPHash       string    `json:"ip_hash"`
	DurationMs   *int64    `json:"duration_ms,omitempty"`
	InsertedAt   time.Time `json:"inserted_at"`
}
