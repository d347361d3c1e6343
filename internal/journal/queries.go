package journal

import (
	"time"

	"github.com/julianstephens/hearth/internal/analytics"
	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/graduation"
	"github.com/julianstephens/hearth/internal/models"
	"github.com/julianstephens/hearth/internal/prompts"
)

// StreakData reports the current streak and active-day totals.
func (j *Journal) StreakData() analytics.StreakData {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return analytics.Streak(&j.data, j.today())
}

// DayActivityLevel classifies the calendar day containing date.
func (j *Journal) DayActivityLevel(date time.Time) constants.ActivityLevel {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return analytics.DayLevel(&j.data, date.In(j.loc))
}

// ActivityCalendar returns per-day activity for the last days days.
func (j *Journal) ActivityCalendar(days int) []analytics.DayActivity {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return analytics.Calendar(&j.data, j.today(), days)
}

// GraduationProgress returns the current graduation snapshot.
func (j *Journal) GraduationProgress() graduation.Progress {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progressLocked()
}

func (j *Journal) progressLocked() graduation.Progress {
	total := analytics.TotalActiveDays(&j.data, j.loc)
	return graduation.Snapshot(j.data.GraduationMilestones, j.data.GraduationSettings, total)
}

// TransitionPrompts returns the prompts applicable right now, in display order.
func (j *Journal) TransitionPrompts() []prompts.Prompt {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return prompts.Evaluate(j.progressLocked(), j.data.GraduationSettings)
}

// Settings returns the graduation settings.
func (j *Journal) Settings() models.GraduationSettings {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.data.Clone().GraduationSettings
}

// UpdateGraduationSettings merges patch into the stored settings.
func (j *Journal) UpdateGraduationSettings(patch models.SettingsPatch) (models.GraduationSettings, error) {
	if patch.IsEmpty() {
		return j.Settings(), nil
	}
	var merged models.GraduationSettings
	err := j.update(func(d *models.AppData) error {
		d.GraduationSettings = patch.Merge(d.GraduationSettings)
		if d.GraduationSettings.PreferredOfflineActivities == nil {
			d.GraduationSettings.PreferredOfflineActivities = []string{}
		}
		merged = d.GraduationSettings
		return nil
	})
	return merged, err
}

// Celebrations returns achieved milestones not yet acknowledged.
func (j *Journal) Celebrations() []models.GraduationMilestone {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return graduation.Pending(j.data.GraduationMilestones)
}

// AcknowledgeCelebration marks a milestone's celebration as shown. Unknown or
// already-acknowledged ids are a no-op.
func (j *Journal) AcknowledgeCelebration(id string) bool {
	j.mu.RLock()
	_, changed := graduation.Acknowledge(j.data.GraduationMilestones, id)
	j.mu.RUnlock()
	if !changed {
		return false
	}

	_ = j.update(func(d *models.AppData) error {
		d.GraduationMilestones, changed = graduation.Acknowledge(d.GraduationMilestones, id)
		return nil
	})
	return changed
}
