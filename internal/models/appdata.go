package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/julianstephens/hearth/internal/constants"
)

// AppData is the persisted aggregate. Every mutation writes the whole value
// back; streaks, progress and prompts are always derived from it and never stored.
type AppData struct {
	FamilyMembers        []FamilyMember        `json:"familyMembers"`
	MoodEntries          []MoodEntry           `json:"moodEntries"`
	ReflectionEntries    []ReflectionEntry     `json:"reflectionEntries"`
	GratitudeEntries     []GratitudeEntry      `json:"gratitudeEntries"`
	GraduationMilestones []GraduationMilestone `json:"graduationMilestones"`
	GraduationSettings   GraduationSettings    `json:"graduationSettings"`
}

// NameKey folds a member name for case-insensitive comparison.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Normalize replaces nil slices with empty ones so the JSON shape is stable.
func (d *AppData) Normalize() {
	if d.FamilyMembers == nil {
		d.FamilyMembers = []FamilyMember{}
	}
	if d.MoodEntries == nil {
		d.MoodEntries = []MoodEntry{}
	}
	if d.ReflectionEntries == nil {
		d.ReflectionEntries = []ReflectionEntry{}
	}
	if d.GratitudeEntries == nil {
		d.GratitudeEntries = []GratitudeEntry{}
	}
	if d.GraduationMilestones == nil {
		d.GraduationMilestones = []GraduationMilestone{}
	}
	if d.GraduationSettings.PreferredOfflineActivities == nil {
		d.GraduationSettings.PreferredOfflineActivities = []string{}
	}
}

// Clone returns a deep copy.
func (d AppData) Clone() AppData {
	out := AppData{
		FamilyMembers:      append([]FamilyMember(nil), d.FamilyMembers...),
		MoodEntries:        append([]MoodEntry(nil), d.MoodEntries...),
		ReflectionEntries:  append([]ReflectionEntry(nil), d.ReflectionEntries...),
		GratitudeEntries:   append([]GratitudeEntry(nil), d.GratitudeEntries...),
		GraduationSettings: d.GraduationSettings,
	}
	out.GraduationMilestones = make([]GraduationMilestone, len(d.GraduationMilestones))
	for i, m := range d.GraduationMilestones {
		if m.AchievedDate != nil {
			t := *m.AchievedDate
			m.AchievedDate = &t
		}
		out.GraduationMilestones[i] = m
	}
	out.GraduationSettings.PreferredOfflineActivities = append([]string(nil), d.GraduationSettings.PreferredOfflineActivities...)
	if d.GraduationSettings.LastReadinessCheck != nil {
		t := *d.GraduationSettings.LastReadinessCheck
		out.GraduationSettings.LastReadinessCheck = &t
	}
	out.Normalize()
	return out
}

// Member looks up a member by id.
func (d *AppData) Member(id string) (FamilyMember, bool) {
	for _, m := range d.FamilyMembers {
		if m.ID == id {
			return m, true
		}
	}
	return FamilyMember{}, false
}

// MemberByName looks up a member by case-insensitive name.
func (d *AppData) MemberByName(name string) (FamilyMember, bool) {
	key := NameKey(name)
	for _, m := range d.FamilyMembers {
		if NameKey(m.Name) == key {
			return m, true
		}
	}
	return FamilyMember{}, false
}

// HasEntryID reports whether id is used by any entry in any of the three logs.
func (d *AppData) HasEntryID(id string) bool {
	for _, e := range d.MoodEntries {
		if e.ID == id {
			return true
		}
	}
	for _, e := range d.ReflectionEntries {
		if e.ID == id {
			return true
		}
	}
	for _, e := range d.GratitudeEntries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// prepareEntry validates the member id and assigns or checks the entry id.
func (d *AppData) prepareEntry(id *string, memberID string) error {
	if strings.TrimSpace(memberID) == "" {
		return ErrMemberRequired
	}
	if *id == "" {
		*id = NewID()
		for d.HasEntryID(*id) {
			*id = NewID()
		}
		return nil
	}
	if d.HasEntryID(*id) {
		return fmt.Errorf("%w: %s", ErrDuplicateID, *id)
	}
	return nil
}

// AppendMood appends e, assigning an id when empty. Existing entries are never touched.
func (d *AppData) AppendMood(e MoodEntry) (MoodEntry, error) {
	if err := d.prepareEntry(&e.ID, e.MemberID); err != nil {
		return MoodEntry{}, err
	}
	d.MoodEntries = append(d.MoodEntries, e)
	return e, nil
}

// AppendReflection appends e, assigning an id when empty.
func (d *AppData) AppendReflection(e ReflectionEntry) (ReflectionEntry, error) {
	if err := d.prepareEntry(&e.ID, e.MemberID); err != nil {
		return ReflectionEntry{}, err
	}
	d.ReflectionEntries = append(d.ReflectionEntries, e)
	return e, nil
}

// AppendGratitude appends e, assigning an id when empty.
func (d *AppData) AppendGratitude(e GratitudeEntry) (GratitudeEntry, error) {
	if err := d.prepareEntry(&e.ID, e.MemberID); err != nil {
		return GratitudeEntry{}, err
	}
	d.GratitudeEntries = append(d.GratitudeEntries, e)
	return e, nil
}

// RemoveEntry deletes the entry with id from the log of type t.
// Absent ids are a no-op; the return value reports whether anything was removed.
func (d *AppData) RemoveEntry(t constants.EntryType, id string) bool {
	switch t {
	case constants.EntryTypeMood:
		var removed bool
		d.MoodEntries, removed = removeWhere(d.MoodEntries, func(e MoodEntry) bool { return e.ID == id })
		return removed
	case constants.EntryTypeReflection:
		var removed bool
		d.ReflectionEntries, removed = removeWhere(d.ReflectionEntries, func(e ReflectionEntry) bool { return e.ID == id })
		return removed
	case constants.EntryTypeGratitude:
		var removed bool
		d.GratitudeEntries, removed = removeWhere(d.GratitudeEntries, func(e GratitudeEntry) bool { return e.ID == id })
		return removed
	}
	return false
}

// RemoveMemberEntries deletes every entry referencing memberID from all three
// logs and returns how many were removed.
func (d *AppData) RemoveMemberEntries(memberID string) int {
	before := d.EntryCount()
	d.MoodEntries, _ = removeWhere(d.MoodEntries, func(e MoodEntry) bool { return e.MemberID == memberID })
	d.ReflectionEntries, _ = removeWhere(d.ReflectionEntries, func(e ReflectionEntry) bool { return e.MemberID == memberID })
	d.GratitudeEntries, _ = removeWhere(d.GratitudeEntries, func(e GratitudeEntry) bool { return e.MemberID == memberID })
	return before - d.EntryCount()
}

// EntryCount is the total number of entries across the three logs.
func (d *AppData) EntryCount() int {
	return len(d.MoodEntries) + len(d.ReflectionEntries) + len(d.GratitudeEntries)
}

// Entries returns every entry as a log-agnostic view, oldest first.
func (d *AppData) Entries() []Entry {
	out := make([]Entry, 0, d.EntryCount())
	for _, e := range d.MoodEntries {
		out = append(out, e.view())
	}
	for _, e := range d.ReflectionEntries {
		out = append(out, e.view())
	}
	for _, e := range d.GratitudeEntries {
		out = append(out, e.view())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func removeWhere[T any](items []T, match func(T) bool) ([]T, bool) {
	kept := items[:0:0]
	removed := false
	for _, item := range items {
		if match(item) {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if !removed {
		return items, false
	}
	return kept, true
}

// appDataProbe detects which top-level fields a stored document carries.
type appDataProbe struct {
	GraduationMilestones json.RawMessage `json:"graduationMilestones"`
	GraduationSettings   json.RawMessage `json:"graduationSettings"`
}

// Missing records which graduation fields a stored document lacks.
type Missing struct {
	Milestones bool
	Settings   bool
}

// Legacy reports whether the document predates graduation tracking.
func (m Missing) Legacy() bool { return m.Milestones || m.Settings }

// DecodeAppData parses a stored document. legacy is true when the document
// predates graduation tracking (no milestone or settings fields); the caller
// is expected to seed defaults and write it back.
func DecodeAppData(raw []byte) (data AppData, legacy bool, err error) {
	data, missing, err := DecodeAppDataFields(raw)
	return data, missing.Legacy(), err
}

// DecodeAppDataFields parses a stored document and reports each absent
// graduation field separately.
func DecodeAppDataFields(raw []byte) (AppData, Missing, error) {
	var data AppData
	if err := json.Unmarshal(raw, &data); err != nil {
		return AppData{}, Missing{}, fmt.Errorf("failed to parse family data: %w", err)
	}
	var probe appDataProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return AppData{}, Missing{}, fmt.Errorf("failed to parse family data: %w", err)
	}
	missing := Missing{
		Milestones: isAbsent(probe.GraduationMilestones),
		Settings:   isAbsent(probe.GraduationSettings),
	}
	data.Normalize()
	return data, missing, nil
}

// EncodeAppData serializes d in its persisted shape.
func EncodeAppData(d AppData) ([]byte, error) {
	d.Normalize()
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize family data: %w", err)
	}
	return b, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
