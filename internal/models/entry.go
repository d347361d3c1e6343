package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/hearth/internal/constants"
)

// MoodEntry records how a member felt at a moment.
type MoodEntry struct {
	ID       string    `json:"id"`
	MemberID string    `json:"memberId"`
	Date     time.Time `json:"date"`
	Emoji    string    `json:"emoji"`
	Color    string    `json:"color"`
	Note     string    `json:"note,omitempty"`
}

// ReflectionEntry holds either the structured feel/need/next triple or,
// for entries written by older releases, a free-form prompt and response.
type ReflectionEntry struct {
	ID         string    `json:"id"`
	MemberID   string    `json:"memberId"`
	Date       time.Time `json:"date"`
	FeelChoice string    `json:"feelChoice,omitempty"`
	NeedChoice string    `json:"needChoice,omitempty"`
	NextChoice string    `json:"nextChoice,omitempty"`
	Prompt     string    `json:"prompt,omitempty"`
	Response   string    `json:"response,omitempty"`
}

// IsLegacy reports whether the entry uses the prompt/response shape.
func (r ReflectionEntry) IsLegacy() bool {
	return r.FeelChoice == "" && r.NeedChoice == "" && r.NextChoice == "" && (r.Prompt != "" || r.Response != "")
}

// GratitudeEntry is a short free-text note of thanks.
type GratitudeEntry struct {
	ID       string    `json:"id"`
	MemberID string    `json:"memberId"`
	Date     time.Time `json:"date"`
	Text     string    `json:"text"`
}

// Entry is a read-only, log-agnostic view of any entry.
type Entry struct {
	Type     constants.EntryType
	ID       string
	MemberID string
	Date     time.Time
	Content  string
	Details  string
}

func (e MoodEntry) view() Entry {
	return Entry{
		Type:     constants.EntryTypeMood,
		ID:       e.ID,
		MemberID: e.MemberID,
		Date:     e.Date,
		Content:  e.Emoji,
		Details:  joinNonEmpty("; ", e.Color, e.Note),
	}
}

func (e ReflectionEntry) view() Entry {
	v := Entry{
		Type:     constants.EntryTypeReflection,
		ID:       e.ID,
		MemberID: e.MemberID,
		Date:     e.Date,
	}
	if e.IsLegacy() {
		v.Content = e.Response
		v.Details = e.Prompt
		return v
	}
	v.Content = e.FeelChoice
	v.Details = joinNonEmpty("; ",
		labelled("need", e.NeedChoice),
		labelled("next", e.NextChoice),
	)
	return v
}

func (e GratitudeEntry) view() Entry {
	return Entry{
		Type:     constants.EntryTypeGratitude,
		ID:       e.ID,
		MemberID: e.MemberID,
		Date:     e.Date,
		Content:  e.Text,
	}
}

// ParseEntryType validates a user-supplied entry type name.
func ParseEntryType(s string) (constants.EntryType, error) {
	switch t := constants.EntryType(s); t {
	case constants.EntryTypeMood, constants.EntryTypeReflection, constants.EntryTypeGratitude:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntryType, s)
}

func labelled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + ": " + value
}

func joinNonEmpty(sep string, parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
