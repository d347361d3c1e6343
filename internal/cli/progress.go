package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/models"
	"github.com/julianstephens/hearth/internal/utils"
)

const barWidth = 30

type StreakCmd struct{}

func (c *StreakCmd) Run(ctx *Context) error {
	s := ctx.Journal.StreakData()
	ctx.printf("🔥 Current streak: %d %s\n", s.CurrentStreak, plural(s.CurrentStreak, "day", "days"))
	ctx.printf("📅 Active days:    %d\n", s.TotalActiveDays)
	if s.CurrentStreak == constants.MaxStreakScanDays {
		ctx.println(mutedStyle.Render(fmt.Sprintf("   Streaks are counted up to %d days.", constants.MaxStreakScanDays)))
	}
	if n := len(s.ActivityDates); n > 0 {
		ctx.printf("   Last active:    %s\n", s.ActivityDates[n-1])
	}
	return nil
}

type CalendarCmd struct {
	Days int    `help:"Number of days to show." default:"28"`
	Date string `help:"Show the activity level of a single day (YYYY-MM-DD or 'today')."`
}

func (c *CalendarCmd) Run(ctx *Context) error {
	if c.Date != "" {
		key, err := parseDay(ctx, c.Date)
		if err != nil {
			return err
		}
		day, _ := utils.ParseDateInLocation(key, ctx.Journal.Location())
		level := ctx.Journal.DayActivityLevel(day)
		ctx.printf("%s  %s  %s\n", key, levelCell(level), level)
		return nil
	}
	if c.Days <= 0 {
		return fmt.Errorf("--days must be positive")
	}

	cells := ctx.Journal.ActivityCalendar(c.Days)
	ctx.println(titleStyle.Render(fmt.Sprintf("Last %d days", c.Days)))

	var row []string
	for i, cell := range cells {
		row = append(row, levelCell(cell.Level))
		if len(row) == 7 || i == len(cells)-1 {
			ctx.printf("  %s  %s\n", strings.Join(row, " "), mutedStyle.Render(cell.Date))
			row = row[:0]
		}
	}

	legend := []string{}
	for _, level := range []constants.ActivityLevel{constants.ActivityNone, constants.ActivityLow, constants.ActivityMedium, constants.ActivityHigh} {
		legend = append(legend, levelCell(level)+" "+string(level))
	}
	ctx.println(mutedStyle.Render("  " + strings.Join(legend, "  ")))
	return nil
}

type ProgressCmd struct{}

func (c *ProgressCmd) Run(ctx *Context) error {
	p := ctx.Journal.GraduationProgress()

	filled := int(p.ProgressPercentage / 100 * barWidth)
	bar := barFilledStyle.Render(strings.Repeat("█", filled)) + barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
	ctx.println(titleStyle.Render("Graduation progress"))
	ctx.printf("  %s %3.0f%%  (%d of %d active days)\n", bar, p.ProgressPercentage, p.TotalActiveDays, p.TargetDays)

	for _, m := range p.AchievedMilestones {
		when := ""
		if m.AchievedDate != nil {
			when = " on " + m.AchievedDate.In(ctx.Journal.Location()).Format(constants.DateFormat)
		}
		ctx.printf("  ✓ %s (%d days)%s\n", m.Title, m.Threshold, when)
	}
	if p.NextMilestone != nil {
		left := p.NextMilestone.Threshold - p.TotalActiveDays
		ctx.printf("  → Next: %s in %d more active %s\n", p.NextMilestone.Title, left, plural(left, "day", "days"))
	}

	switch {
	case p.ReadyForGraduation:
		ctx.println(lipgloss.NewStyle().Bold(true).Render("  Your family is ready to graduate."))
	case p.NearGraduation:
		ctx.println("  Graduation is within reach.")
	}
	return nil
}

type CelebrateCmd struct {
	Ack string `help:"Mark the milestone with this id as celebrated."`
	All bool   `help:"Mark every pending celebration as celebrated."`
}

func (c *CelebrateCmd) Run(ctx *Context) error {
	pending := ctx.Journal.Celebrations()

	switch {
	case c.Ack != "":
		if !ctx.Journal.AcknowledgeCelebration(c.Ack) {
			ctx.printf("Nothing to celebrate for %s.\n", c.Ack)
			return nil
		}
		ctx.printf("✓ Celebrated %s\n", c.Ack)
		return nil
	case c.All:
		for _, m := range pending {
			ctx.Journal.AcknowledgeCelebration(m.ID)
		}
		ctx.printf("✓ Celebrated %d %s\n", len(pending), plural(len(pending), "milestone", "milestones"))
		return nil
	}

	if len(pending) == 0 {
		ctx.println("No celebrations waiting.")
		return nil
	}
	for _, m := range pending {
		ctx.printf("🎉 %s  %s\n   %s\n", m.Title, mutedStyle.Render(m.ID), m.Description)
	}
	return nil
}

type PromptsCmd struct {
	All bool `help:"Show every applicable prompt instead of the first."`
}

func (c *PromptsCmd) Run(ctx *Context) error {
	list := ctx.Journal.TransitionPrompts()
	if len(list) == 0 {
		ctx.println("No suggestions right now.")
		return nil
	}
	if !c.All {
		list = list[:1]
	}
	for _, p := range list {
		ctx.println(promptStyle.Render(titleStyle.Render(p.Title) + "\n" + p.Message))
	}
	return nil
}

type SettingsCmd struct {
	Target          *int     `help:"Active days needed to graduate."`
	Prompts         string   `help:"Show transition prompts (on or off)."`
	Activities      []string `help:"Preferred offline activities (comma separated)." sep:","`
	ClearActivities bool     `help:"Remove every preferred offline activity."`
	ReadinessDone   bool     `help:"Record that the readiness assessment was completed today."`
}

func (c *SettingsCmd) Run(ctx *Context) error {
	var patch models.SettingsPatch
	if c.Target != nil {
		if *c.Target <= 0 {
			return fmt.Errorf("--target must be positive")
		}
		patch.TargetGraduationDays = c.Target
	}
	switch strings.ToLower(c.Prompts) {
	case "":
	case "on":
		on := true
		patch.ShowTransitionPrompts = &on
	case "off":
		off := false
		patch.ShowTransitionPrompts = &off
	default:
		return fmt.Errorf("--prompts must be on or off, got %q", c.Prompts)
	}
	if c.ClearActivities {
		empty := []string{}
		patch.PreferredOfflineActivities = &empty
	} else if len(c.Activities) > 0 {
		activities := trimAll(c.Activities)
		patch.PreferredOfflineActivities = &activities
	}
	if c.ReadinessDone {
		done := true
		now := ctx.Now()
		patch.ReadinessAssessmentCompleted = &done
		patch.LastReadinessCheck = &now
	}

	settings, err := ctx.Journal.UpdateGraduationSettings(patch)
	if err != nil {
		return err
	}
	if !patch.IsEmpty() {
		ctx.println("Settings updated.")
	}

	ctx.println("Graduation settings:")
	ctx.printf("  Target days:          %d\n", settings.TargetGraduationDays)
	ctx.printf("  Transition prompts:   %v\n", settings.ShowTransitionPrompts)
	ctx.printf("  Offline activities:   %s\n", strings.Join(settings.PreferredOfflineActivities, ", "))
	ctx.printf("  Readiness assessed:   %v\n", settings.ReadinessAssessmentCompleted)
	if settings.LastReadinessCheck != nil {
		ctx.printf("  Last readiness check: %s\n", settings.LastReadinessCheck.In(ctx.Journal.Location()).Format(constants.DateFormat))
	}
	return nil
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
