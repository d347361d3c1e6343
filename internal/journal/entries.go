package journal

import (
	"fmt"
	"strings"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/models"
	"github.com/julianstephens/hearth/internal/utils"
)

// EntryFilter narrows Entries. Zero fields match everything.
type EntryFilter struct {
	MemberID string
	Type     constants.EntryType
	// Date is a YYYY-MM-DD calendar date in the journal's location.
	Date string
}

// requireMember checks that memberID names an existing member.
func requireMember(d *models.AppData, memberID string) error {
	if strings.TrimSpace(memberID) == "" {
		return models.ErrMemberRequired
	}
	if _, ok := d.Member(memberID); !ok {
		return fmt.Errorf("%w: %s", models.ErrMemberNotFound, memberID)
	}
	return nil
}

// AddMoodEntry records a mood for a member, dated now. It returns the stored
// entry and any milestones awaiting celebration after the progress check.
func (j *Journal) AddMoodEntry(e models.MoodEntry) (models.MoodEntry, []models.GraduationMilestone, error) {
	var (
		stored    models.MoodEntry
		celebrate []models.GraduationMilestone
	)
	err := j.update(func(d *models.AppData) error {
		if err := requireMember(d, e.MemberID); err != nil {
			return err
		}
		e.ID = ""
		e.Date = j.now()
		var err error
		if stored, err = d.AppendMood(e); err != nil {
			return err
		}
		celebrate = j.checkProgress(d)
		return nil
	})
	return stored, celebrate, err
}

// AddReflectionEntry records a reflection for a member, dated now.
func (j *Journal) AddReflectionEntry(e models.ReflectionEntry) (models.ReflectionEntry, []models.GraduationMilestone, error) {
	var (
		stored    models.ReflectionEntry
		celebrate []models.GraduationMilestone
	)
	err := j.update(func(d *models.AppData) error {
		if err := requireMember(d, e.MemberID); err != nil {
			return err
		}
		e.ID = ""
		e.Date = j.now()
		var err error
		if stored, err = d.AppendReflection(e); err != nil {
			return err
		}
		celebrate = j.checkProgress(d)
		return nil
	})
	return stored, celebrate, err
}

// AddGratitudeEntry records a gratitude note for a member, dated now.
func (j *Journal) AddGratitudeEntry(e models.GratitudeEntry) (models.GratitudeEntry, []models.GraduationMilestone, error) {
	var (
		stored    models.GratitudeEntry
		celebrate []models.GraduationMilestone
	)
	err := j.update(func(d *models.AppData) error {
		if err := requireMember(d, e.MemberID); err != nil {
			return err
		}
		e.ID = ""
		e.Date = j.now()
		var err error
		if stored, err = d.AppendGratitude(e); err != nil {
			return err
		}
		celebrate = j.checkProgress(d)
		return nil
	})
	return stored, celebrate, err
}

// DeleteEntry removes the entry with id from the log of type t. Deleting an
// absent id is a no-op and reports false.
func (j *Journal) DeleteEntry(t constants.EntryType, id string) (bool, error) {
	if _, err := models.ParseEntryType(string(t)); err != nil {
		return false, err
	}

	j.mu.RLock()
	present := false
	for _, e := range j.data.Entries() {
		if e.Type == t && e.ID == id {
			present = true
			break
		}
	}
	j.mu.RUnlock()
	if !present {
		return false, nil
	}

	removed := false
	err := j.update(func(d *models.AppData) error {
		removed = d.RemoveEntry(t, id)
		j.checkProgress(d)
		return nil
	})
	return removed, err
}

// Entries returns entries matching f, oldest first.
func (j *Journal) Entries(f EntryFilter) []models.Entry {
	j.mu.RLock()
	all := j.data.Entries()
	j.mu.RUnlock()

	out := make([]models.Entry, 0, len(all))
	for _, e := range all {
		if f.MemberID != "" && e.MemberID != f.MemberID {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Date != "" && utils.DateKey(e.Date, j.loc) != f.Date {
			continue
		}
		out = append(out, e)
	}
	return out
}
