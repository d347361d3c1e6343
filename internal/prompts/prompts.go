// Package prompts evaluates which transition prompts apply to the current
// graduation progress. It holds no state; dismissal is up to the caller.
package prompts

import (
	"strings"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/graduation"
	"github.com/julianstephens/hearth/internal/models"
)

// Prompt is a contextual suggestion shown to the family.
type Prompt struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type rule struct {
	id      string
	title   string
	applies func(p graduation.Progress, s models.GraduationSettings) bool
	message func(p graduation.Progress, s models.GraduationSettings) string
}

// rules are evaluated in order; the result keeps this order.
var rules = []rule{
	{
		id:    constants.PromptEncourageConsistency,
		title: "Keep the rhythm going",
		applies: func(p graduation.Progress, _ models.GraduationSettings) bool {
			return p.TotalActiveDays >= constants.FoundationThreshold && p.TotalActiveDays < constants.ConsistencyThreshold
		},
		message: func(p graduation.Progress, _ models.GraduationSettings) string {
			return "You've built a real foundation. Try checking in at the same time each day to make it stick."
		},
	},
	{
		id:    constants.PromptSuggestOffline,
		title: "Take it offline",
		applies: func(p graduation.Progress, _ models.GraduationSettings) bool {
			return p.TotalActiveDays >= constants.ConsistencyThreshold && p.TotalActiveDays < constants.GraduationThreshold
		},
		message: func(_ graduation.Progress, s models.GraduationSettings) string {
			if len(s.PreferredOfflineActivities) == 0 {
				return "Try having today's reflection out loud, away from the screen."
			}
			return "Try today's reflection away from the screen: " + strings.Join(s.PreferredOfflineActivities, ", ") + "."
		},
	},
	{
		id:    constants.PromptGraduationReady,
		title: "Ready to graduate",
		applies: func(p graduation.Progress, s models.GraduationSettings) bool {
			return p.ReadyForGraduation && !s.ReadinessAssessmentCompleted
		},
		message: func(p graduation.Progress, _ models.GraduationSettings) string {
			return "Your family has reached its goal. Take the readiness check to decide what comes next."
		},
	},
}

// Evaluate returns the applicable prompts in rule order. Nothing is returned
// when prompts are disabled in settings.
func Evaluate(p graduation.Progress, s models.GraduationSettings) []Prompt {
	out := []Prompt{}
	if !s.ShowTransitionPrompts {
		return out
	}
	for _, r := range rules {
		if r.applies(p, s) {
			out = append(out, Prompt{ID: r.id, Title: r.title, Message: r.message(p, s)})
		}
	}
	return out
}
