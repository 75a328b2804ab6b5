package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Speaker is one person presenting a talk.
// swagger:model Speaker
type Speaker struct {
	Name  string `json:"name" yaml:"name"`
	Bio   string `json:"bio" yaml:"bio"`
	Photo string `json:"photo" yaml:"photo"`
}

// Talk is a scheduled session attendees can register for.
// MaxAttendees nil means unlimited seats.
// swagger:model Talk
type Talk struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	Speakers     []Speaker `json:"speakers"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	MaxAttendees *int      `json:"max_attendees"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewTalk returns a Talk with normalized tags. ID and timestamps are set by the store.
func NewTalk(title, description, location string, speakers []Speaker, start, end time.Time, maxAttendees *int, tags []string) *Talk {
	if speakers == nil {
		speakers = []Speaker{}
	}
	return &Talk{
		Title:        strings.TrimSpace(title),
		Description:  strings.TrimSpace(description),
		Location:     strings.TrimSpace(location),
		Speakers:     speakers,
		StartTime:    start,
		EndTime:      end,
		MaxAttendees: maxAttendees,
		Tags:         NormalizeTags(tags),
	}
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (t *Talk) Clone() *Talk {
	if t == nil {
		return nil
	}
	c := *t
	c.Speakers = append([]Speaker(nil), t.Speakers...)
	if c.Speakers == nil {
		c.Speakers = []Speaker{}
	}
	c.Tags = append([]string(nil), t.Tags...)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if t.MaxAttendees != nil {
		v := *t.MaxAttendees
		c.MaxAttendees = &v
	}
	return &c
}

// HasTag reports whether the talk carries tag, ignoring case.
func (t *Talk) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if strings.EqualFold(existing, tag) {
			return true
		}
	}
	return false
}

// Validate checks the talk fields and returns every problem found.
func (t *Talk) Validate() []string {
	var errs []string
	if len(strings.TrimSpace(t.Title)) < 3 {
		errs = append(errs, "title is required and must be at least 3 characters")
	}
	if len(strings.TrimSpace(t.Description)) < 10 {
		errs = append(errs, "description is required and must be at least 10 characters")
	}
	if len(strings.TrimSpace(t.Location)) < 2 {
		errs = append(errs, "location is required and must be at least 2 characters")
	}
	for i, sp := range t.Speakers {
		if len(strings.TrimSpace(sp.Name)) < 2 {
			errs = append(errs, fmt.Sprintf("speaker %d name is required and must be at least 2 characters", i+1))
		}
	}
	if t.StartTime.IsZero() {
		errs = append(errs, "start time is required")
	}
	if t.EndTime.IsZero() {
		errs = append(errs, "end time is required")
	}
	if !t.StartTime.IsZero() && !t.EndTime.IsZero() && !t.EndTime.After(t.StartTime) {
		errs = append(errs, "end time must be after start time")
	}
	if t.MaxAttendees != nil && *t.MaxAttendees < 1 {
		errs = append(errs, "max attendees must be a positive number")
	}
	return errs
}

// NormalizeTags trims tags and drops blanks and case-insensitive duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// TalkPatch is a partial talk update. Nil fields are left untouched.
// ClearMaxAttendees removes the capacity limit.
type TalkPatch struct {
	Title             *string
	Description       *string
	Location          *string
	Speakers          []Speaker
	StartTime         *time.Time
	EndTime           *time.Time
	MaxAttendees      *int
	ClearMaxAttendees bool
	Tags              []string
}

// Apply merges the patch into t in place.
func (p TalkPatch) Apply(t *Talk) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Location != nil {
		t.Location = strings.TrimSpace(*p.Location)
	}
	if p.Speakers != nil {
		t.Speakers = append([]Speaker{}, p.Speakers...)
	}
	if p.StartTime != nil {
		t.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		t.EndTime = *p.EndTime
	}
	if p.ClearMaxAttendees {
		t.MaxAttendees = nil
	} else if p.MaxAttendees != nil {
		v := *p.MaxAttendees
		t.MaxAttendees = &v
	}
	if p.Tags != nil {
		t.Tags = NormalizeTags(p.Tags)
	}
}

// TalkFilter narrows List results. Empty fields match everything.
type TalkFilter struct {
	Tag      string
	Location string
}

// Matches reports whether t satisfies the filter.
func (f TalkFilter) Matches(t *Talk) bool {
	if f.Tag != "" && !t.HasTag(f.Tag) {
		return false
	}
	if f.Location != "" && !strings.EqualFold(strings.TrimSpace(t.Location), strings.TrimSpace(f.Location)) {
		return false
	}
	return true
}

// TalkRepository stores talks. Lookups of unknown ids return ErrNotFound.
type TalkRepository interface {
	Create(ctx context.Context, talk *Talk) error
	GetByID(ctx context.Context, id string) (*Talk, error)
	List(ctx context.Context, filter TalkFilter) ([]*Talk, error)
	Update(ctx context.Context, id string, patch TalkPatch) (*Talk, error)
	// Delete reports whether a talk was removed.
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// TalkService defines the business logic for the talk catalogue.
type TalkService interface {
	Create(ctx context.Context, talk *Talk) error
	GetByID(ctx context.Context, id string) (*Talk, error)
	List(ctx context.Context, filter TalkFilter, page PaginationParams) ([]*Talk, int, error)
	Update(ctx context.Context, id string, patch TalkPatch) (*Talk, error)
	Delete(ctx context.Context, id string) error
	ImportSessionize(ctx context.Context, sessionizeID string) ([]*Talk, error)
}
