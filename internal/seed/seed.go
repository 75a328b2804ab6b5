// Package seed loads the bundled DevOpsDay Medellín agenda into a talk repository.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"talkregistration/internal/domain"
)

const wallClockLayout = "2006-01-02 15:04"

//go:embed agenda.yaml
var agendaYAML []byte

type agendaFile struct {
	Talks []agendaTalk `yaml:"talks"`
}

type agendaTalk struct {
	Title        string           `yaml:"title"`
	Description  string           `yaml:"description"`
	Speakers     []domain.Speaker `yaml:"speakers"`
	Start        string           `yaml:"start"`
	End          string           `yaml:"end"`
	Location     string           `yaml:"location"`
	MaxAttendees *int             `yaml:"max_attendees"`
	Tags         []string         `yaml:"tags"`
}

// Agenda parses the bundled agenda. Wall-clock times are read in loc.
func Agenda(loc *time.Location) ([]*domain.Talk, error) {
	return Parse(agendaYAML, loc)
}

// Parse decodes an agenda document into validated talks.
func Parse(data []byte, loc *time.Location) ([]*domain.Talk, error) {
	if loc == nil {
		loc = time.UTC
	}
	var file agendaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode agenda: %w", err)
	}

	talks := make([]*domain.Talk, 0, len(file.Talks))
	for i, item := range file.Talks {
		start, err := time.ParseInLocation(wallClockLayout, item.Start, loc)
		if err != nil {
			return nil, fmt.Errorf("agenda talk %d (%q): start: %w", i+1, item.Title, err)
		}
		end, err := time.ParseInLocation(wallClockLayout, item.End, loc)
		if err != nil {
			return nil, fmt.Errorf("agenda talk %d (%q): end: %w", i+1, item.Title, err)
		}
		talk := domain.NewTalk(item.Title, item.Description, item.Location, item.Speakers, start, end, item.MaxAttendees, item.Tags)
		if err := domain.NewValidationError(talk.Validate()); err != nil {
			return nil, fmt.Errorf("agenda talk %d (%q): %w", i+1, item.Title, err)
		}
		talks = append(talks, talk)
	}
	return talks, nil
}

// Load inserts the bundled agenda when repo holds no talks yet and returns
// the number of talks created.
func Load(ctx context.Context, repo domain.TalkRepository, loc *time.Location) (int, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count talks: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	talks, err := Agenda(loc)
	if err != nil {
		return 0, err
	}
	for i, talk := range talks {
		if err := repo.Create(ctx, talk); err != nil {
			return i, fmt.Errorf("create talk %q: %w", talk.Title, err)
		}
	}
	return len(talks), nil
}
