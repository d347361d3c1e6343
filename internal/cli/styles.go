package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/hearth/internal/constants"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	barFilledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("236"))

	promptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)

	levelStyles = map[constants.ActivityLevel]lipgloss.Style{
		constants.ActivityNone:   lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
		constants.ActivityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("58")),
		constants.ActivityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("136")),
		constants.ActivityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

// levelCell renders one heatmap cell.
func levelCell(level constants.ActivityLevel) string {
	glyph := "■"
	if level == constants.ActivityNone {
		glyph = "·"
	}
	return levelStyles[level].Render(glyph)
}
