// Package graduation tracks milestone achievement and graduation readiness.
//
// Milestones are one-way: once Achieved or CelebrationShown is set it is never
// cleared. Functions here take and return copies; callers own persistence.
package graduation

import (
	"math"
	"time"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/models"
)

// Progress is a read-only snapshot of graduation state.
type Progress struct {
	TotalActiveDays    int                          `json:"totalActiveDays"`
	TargetDays         int                          `json:"targetDays"`
	ProgressPercentage float64                      `json:"progressPercentage"`
	NextMilestone      *models.GraduationMilestone  `json:"nextMilestone,omitempty"`
	ReadyForGraduation bool                         `json:"readyForGraduation"`
	NearGraduation     bool                         `json:"nearGraduation"`
	AchievedMilestones []models.GraduationMilestone `json:"achievedMilestones"`
}

// DefaultMilestones returns the three fixed milestones, none achieved.
func DefaultMilestones() []models.GraduationMilestone {
	return []models.GraduationMilestone{
		{
			ID:          "milestone-15",
			Type:        constants.MilestoneFoundation,
			Threshold:   constants.FoundationThreshold,
			Title:       "Building the Habit",
			Description: "Your family has journaled on 15 different days. The foundation is in place.",
		},
		{
			ID:          "milestone-30",
			Type:        constants.MilestoneConsistency,
			Threshold:   constants.ConsistencyThreshold,
			Title:       "Finding Your Rhythm",
			Description: "30 active days. Reflection is becoming part of family life.",
		},
		{
			ID:          "milestone-45",
			Type:        constants.MilestoneGraduation,
			Threshold:   constants.GraduationThreshold,
			Title:       "Ready to Graduate",
			Description: "45 active days. Your family can carry these conversations offline.",
		},
	}
}

// DefaultSettings returns the settings seeded on first run.
func DefaultSettings() models.GraduationSettings {
	return models.GraduationSettings{
		TargetGraduationDays:       constants.DefaultTargetGraduationDays,
		ShowTransitionPrompts:      constants.DefaultShowTransitionPrompts,
		PreferredOfflineActivities: append([]string(nil), constants.DefaultOfflineActivities...),
	}
}

// Seed fills in graduation state missing from d. When the settings field was
// absent, d gets full default settings; stored settings only have an invalid
// target repaired. Existing milestones are kept and any missing threshold is
// added. It reports whether d changed.
func Seed(d *models.AppData, settingsMissing bool) bool {
	changed := false
	if settingsMissing {
		d.GraduationSettings = DefaultSettings()
		changed = true
	} else if d.GraduationSettings.TargetGraduationDays <= 0 {
		d.GraduationSettings.TargetGraduationDays = constants.DefaultTargetGraduationDays
		changed = true
	}

	have := make(map[int]bool, len(d.GraduationMilestones))
	for _, m := range d.GraduationMilestones {
		have[m.Threshold] = true
	}
	for _, m := range DefaultMilestones() {
		if !have[m.Threshold] {
			d.GraduationMilestones = append(d.GraduationMilestones, m)
			changed = true
		}
	}
	return changed
}

// CheckProgress marks every unachieved milestone whose threshold is met as
// achieved at now. It returns the updated milestones and those that are
// achieved but not yet celebrated, including ones achieved by earlier checks.
func CheckProgress(milestones []models.GraduationMilestone, totalActiveDays int, now time.Time) (updated, celebrate []models.GraduationMilestone) {
	updated = make([]models.GraduationMilestone, len(milestones))
	copy(updated, milestones)
	celebrate = []models.GraduationMilestone{}

	for i := range updated {
		m := &updated[i]
		if !m.Achieved && totalActiveDays >= m.Threshold {
			stamp := now
			m.Achieved = true
			m.AchievedDate = &stamp
		}
		if m.Achieved && !m.CelebrationShown {
			celebrate = append(celebrate, *m)
		}
	}
	return updated, celebrate
}

// Pending returns achieved milestones whose celebration was not acknowledged.
func Pending(milestones []models.GraduationMilestone) []models.GraduationMilestone {
	out := []models.GraduationMilestone{}
	for _, m := range milestones {
		if m.Achieved && !m.CelebrationShown {
			out = append(out, m)
		}
	}
	return out
}

// Acknowledge sets CelebrationShown on the milestone with id. Unknown ids and
// already-acknowledged milestones are a no-op; changed reports otherwise.
func Acknowledge(milestones []models.GraduationMilestone, id string) (updated []models.GraduationMilestone, changed bool) {
	updated = make([]models.GraduationMilestone, len(milestones))
	copy(updated, milestones)
	for i := range updated {
		if updated[i].ID == id && !updated[i].CelebrationShown {
			updated[i].CelebrationShown = true
			changed = true
		}
	}
	return updated, changed
}

// Snapshot computes graduation progress. A non-positive target falls back to
// the default target.
func Snapshot(milestones []models.GraduationMilestone, settings models.GraduationSettings, totalActiveDays int) Progress {
	target := settings.TargetGraduationDays
	if target <= 0 {
		target = constants.DefaultTargetGraduationDays
	}
	pct := math.Min(100, 100*float64(totalActiveDays)/float64(target))

	p := Progress{
		TotalActiveDays:    totalActiveDays,
		TargetDays:         target,
		ProgressPercentage: pct,
		ReadyForGraduation: totalActiveDays >= target,
		NearGraduation:     pct >= constants.NearGraduationPercent,
		AchievedMilestones: []models.GraduationMilestone{},
	}
	for _, m := range milestones {
		if m.Achieved {
			p.AchievedMilestones = append(p.AchievedMilestones, m)
			continue
		}
		if p.NextMilestone == nil || m.Threshold < p.NextMilestone.Threshold {
			next := m
			p.NextMilestone = &next
		}
	}
	return p
}
