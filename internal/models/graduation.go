package models

import (
	"time"

	"github.com/julianstephens/hearth/internal/constants"
)

// GraduationMilestone is a fixed active-day threshold. Achieved and
// CelebrationShown only ever move from false to true.
type GraduationMilestone struct {
	ID               string                  `json:"id"`
	Type             constants.MilestoneType `json:"type"`
	Threshold        int                     `json:"threshold"`
	Achieved         bool                    `json:"achieved"`
	AchievedDate     *time.Time              `json:"achievedDate,omitempty"`
	Title            string                  `json:"title"`
	Description      string                  `json:"description"`
	CelebrationShown bool                    `json:"celebrationShown"`
}

// GraduationSettings is user configuration for the graduation flow.
type GraduationSettings struct {
	TargetGraduationDays         int        `json:"targetGraduationDays"`
	ShowTransitionPrompts        bool       `json:"showTransitionPrompts"`
	PreferredOfflineActivities   []string   `json:"preferredOfflineActivities"`
	ReadinessAssessmentCompleted bool       `json:"readinessAssessmentCompleted"`
	LastReadinessCheck           *time.Time `json:"lastReadinessCheck,omitempty"`
}

// SettingsPatch is a partial update of GraduationSettings. Nil fields are left unchanged.
type SettingsPatch struct {
	TargetGraduationDays         *int
	ShowTransitionPrompts        *bool
	PreferredOfflineActivities   *[]string
	ReadinessAssessmentCompleted *bool
	LastReadinessCheck           *time.Time
}

// Merge applies the non-nil fields of p to s and returns the result.
func (p SettingsPatch) Merge(s GraduationSettings) GraduationSettings {
	if p.TargetGraduationDays != nil {
		s.TargetGraduationDays = *p.TargetGraduationDays
	}
	if p.ShowTransitionPrompts != nil {
		s.ShowTransitionPrompts = *p.ShowTransitionPrompts
	}
	if p.PreferredOfflineActivities != nil {
		s.PreferredOfflineActivities = append([]string(nil), (*p.PreferredOfflineActivities)...)
	}
	if p.ReadinessAssessmentCompleted != nil {
		s.ReadinessAssessmentCompleted = *p.ReadinessAssessmentCompleted
	}
	if p.LastReadinessCheck != nil {
		t := *p.LastReadinessCheck
		s.LastReadinessCheck = &t
	}
	return s
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p.TargetGraduationDays == nil && p.ShowTransitionPrompts == nil &&
		p.PreferredOfflineActivities == nil && p.ReadinessAssessmentCompleted == nil &&
		p.LastReadinessCheck == nil
}
