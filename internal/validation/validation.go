// Package validation checks a dataset for integrity problems that the
// mutation path should never produce but an import, a legacy document or a
// hand-edited file can.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/hearth/internal/analytics"
	"github.com/julianstephens/hearth/internal/models"
)

// ConflictType names a kind of integrity problem.
type ConflictType string

const (
	ConflictOrphanedEntry       ConflictType = "orphaned_entry"
	ConflictDuplicateEntryID    ConflictType = "duplicate_entry_id"
	ConflictMissingEntryID      ConflictType = "missing_entry_id"
	ConflictDuplicateMemberName ConflictType = "duplicate_member_name"
	ConflictMilestoneNoDate     ConflictType = "milestone_without_date"
	ConflictMilestoneBehind     ConflictType = "milestone_behind_progress"
	ConflictCelebrationEarly    ConflictType = "celebration_before_achievement"
	ConflictInvalidTarget       ConflictType = "invalid_target"
	ConflictFutureEntry         ConflictType = "future_entry"
)

// Conflict is one detected problem.
type Conflict struct {
	Type        ConflictType
	Description string
	IDs         []string
}

// ValidationResult contains all detected conflicts.
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts.
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// Count returns the number of conflicts of type t.
func (vr *ValidationResult) Count(t ConflictType) int {
	n := 0
	for _, c := range vr.Conflicts {
		if c.Type == t {
			n++
		}
	}
	return n
}

// FormatReport returns a human-readable report of all conflicts.
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No problems detected."
	}

	var b strings.Builder
	b.WriteString("Problems detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Validator checks datasets. Calendar days are taken in Location.
type Validator struct {
	Location *time.Location
	Now      func() time.Time
}

// New creates a Validator using loc for calendar days.
func New(loc *time.Location) *Validator {
	if loc == nil {
		loc = time.Local
	}
	return &Validator{Location: loc, Now: time.Now}
}

// Validate runs every check against d.
func (v *Validator) Validate(d models.AppData) ValidationResult {
	var res ValidationResult
	v.checkMembers(&d, &res)
	v.checkEntries(&d, &res)
	v.checkMilestones(&d, &res)
	v.checkSettings(&d, &res)
	return res
}

func (v *Validator) checkMembers(d *models.AppData, res *ValidationResult) {
	byName := make(map[string][]string)
	for _, m := range d.FamilyMembers {
		key := models.NameKey(m.Name)
		byName[key] = append(byName[key], m.ID)
	}
	keys := make([]string, 0, len(byName))
	for k := range byName {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if ids := byName[k]; len(ids) > 1 {
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:        ConflictDuplicateMemberName,
				Description: fmt.Sprintf("%d members share the name %q", len(ids), k),
				IDs:         ids,
			})
		}
	}
}

func (v *Validator) checkEntries(d *models.AppData, res *ValidationResult) {
	now := v.Now()
	seen := make(map[string]int)
	var order []string

	for _, e := range d.Entries() {
		if e.ID == "" {
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:        ConflictMissingEntryID,
				Description: fmt.Sprintf("%s entry from %s has no id", e.Type, e.Date.In(v.Location).Format(time.DateOnly)),
			})
		} else {
			if seen[e.ID] == 0 {
				order = append(order, e.ID)
			}
			seen[e.ID]++
		}

		if _, ok := d.Member(e.MemberID); !ok {
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:        ConflictOrphanedEntry,
				Description: fmt.Sprintf("%s entry %s belongs to missing member %q", e.Type, e.ID, e.MemberID),
				IDs:         []string{e.ID},
			})
		}
		if e.Date.After(now) {
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:        ConflictFutureEntry,
				Description: fmt.Sprintf("%s entry %s is dated in the future (%s)", e.Type, e.ID, e.Date.In(v.Location).Format(time.DateTime)),
				IDs:         []string{e.ID},
			})
		}
	}

	for _, id := range order {
		if n := seen[id]; n > 1 {
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:        ConflictDuplicateEntryID,
				Description: fmt.Sprintf("entry id %s is used %d times", id, n),
				IDs:         []string{id},
			})
		}
	}
}

func (v *Validator) checkMilestones(d *models.AppData, res *ValidationResult) {
	total := analytics.TotalActiveDays(d, v.Location)
	for _, m := range d.GraduationMilestones {
		switch {
		case m.Achieved && m.AchievedDate == nil:
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:        ConflictMilestoneNoDate,
				Description: fmt.Sprintf("milestone %s is achieved but has no achievement date", m.ID),
				IDs:         []string{m.ID},
			})
		case !m.Achieved && m.CelebrationShown:
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:        ConflictCelebrationEarly,
				Description: fmt.Sprintf("milestone %s was celebrated before it was achieved", m.ID),
				IDs:         []string{m.ID},
			})
		case !m.Achieved && total >= m.Threshold:
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:        ConflictMilestoneBehind,
				Description: fmt.Sprintf("milestone %s needs %d active days and %d are recorded, but it is not achieved", m.ID, m.Threshold, total),
				IDs:         []string{m.ID},
			})
		}
	}
}

func (v *Validator) checkSettings(d *models.AppData, res *ValidationResult) {
	if t := d.GraduationSettings.TargetGraduationDays; t <= 0 {
		res.Conflicts = append(res.Conflicts, Conflict{
			Type:        ConflictInvalidTarget,
			Description: fmt.Sprintf("target graduation days is %d; the default will be used", t),
		})
	}
}
