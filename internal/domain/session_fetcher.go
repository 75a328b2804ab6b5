package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SessionFetcher fetches a published agenda from Sessionize (or a test double).
type SessionFetcher interface {
	Fetch(ctx context.Context, sessionizeID string) (SessionizeAgenda, error)
}

// SessionizeAgenda is the shape of the Sessionize "view/All" endpoint.
type SessionizeAgenda struct {
	Sessions   []SessionizeSession  `json:"sessions"`
	Speakers   []SessionizeSpeaker  `json:"speakers"`
	Rooms      []SessionizeRoom     `json:"rooms"`
	Categories []SessionizeCategory `json:"categories"`
}

// SessionizeSession is one agenda slot. Service sessions (breaks) have no speakers.
type SessionizeSession struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      *string   `json:"description"`
	StartsAt         WallClock `json:"startsAt"`
	EndsAt           WallClock `json:"endsAt"`
	IsServiceSession bool      `json:"isServiceSession"`
	Speakers         []string  `json:"speakers"`
	CategoryItems    []int     `json:"categoryItems"`
	RoomID           int       `json:"roomId"`
}

// SessionizeSpeaker is a speaker profile.
type SessionizeSpeaker struct {
	ID             string `json:"id"`
	FullName       string `json:"fullName"`
	Bio            string `json:"bio"`
	TagLine        string `json:"tagLine"`
	ProfilePicture string `json:"profilePicture"`
}

// SessionizeRoom is a venue room.
type SessionizeRoom struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SessionizeCategoryItem is one tag value inside a category.
type SessionizeCategoryItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SessionizeCategory groups category items (track, level, format...).
type SessionizeCategory struct {
	ID    int                      `json:"id"`
	Title string                   `json:"title"`
	Items []SessionizeCategoryItem `json:"items"`
}

// WallClock is a Sessionize timestamp. Sessionize publishes venue wall-clock
// times without an offset; the value is parsed as UTC and must be placed in the
// venue's location with InLocation.
type WallClock struct {
	time.Time
}

const wallClockLayout = "2006-01-02T15:04:05"

func (w *WallClock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("sessionize time: %w", err)
	}
	if s == "" {
		w.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		w.Time = t
		return nil
	}
	t, err := time.Parse(wallClockLayout, s)
	if err != nil {
		return fmt.Errorf("sessionize time %q: %w", s, err)
	}
	w.Time = t
	return nil
}

// InLocation returns the same wall-clock reading in loc.
func (w WallClock) InLocation(loc *time.Location) time.Time {
	t := w.Time
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
