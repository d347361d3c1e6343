package cli

import (
	"fmt"
	"strings"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/journal"
	"github.com/julianstephens/hearth/internal/models"
	"github.com/julianstephens/hearth/internal/utils"
)

type MoodCmd struct {
	Member string `short:"m" required:"" help:"Member name or id."`
	Emoji  string `arg:"" help:"Mood emoji."`
	Color  string `help:"Mood color."`
	Note   string `help:"Optional note."`
}

func (c *MoodCmd) Run(ctx *Context) error {
	m, err := ctx.ResolveMember(c.Member)
	if err != nil {
		return err
	}
	e, celebrate, err := ctx.Journal.AddMoodEntry(models.MoodEntry{
		MemberID: m.ID,
		Emoji:    c.Emoji,
		Color:    c.Color,
		Note:     c.Note,
	})
	if err != nil {
		return err
	}
	ctx.printf("✓ %s feels %s\n", m.Name, e.Emoji)
	ctx.announce(celebrate)
	return nil
}

type ReflectCmd struct {
	Member   string `short:"m" required:"" help:"Member name or id."`
	Feel     string `help:"How I feel."`
	Need     string `help:"What I need."`
	Next     string `help:"What I'll do next."`
	Prompt   string `help:"Free-form prompt (instead of feel/need/next)."`
	Response string `help:"Free-form response."`
}

func (c *ReflectCmd) Run(ctx *Context) error {
	m, err := ctx.ResolveMember(c.Member)
	if err != nil {
		return err
	}
	if c.Feel == "" && c.Need == "" && c.Next == "" && c.Response == "" {
		return fmt.Errorf("a reflection needs --feel, --need, --next or --response")
	}

	_, celebrate, err := ctx.Journal.AddReflectionEntry(models.ReflectionEntry{
		MemberID:   m.ID,
		FeelChoice: c.Feel,
		NeedChoice: c.Need,
		NextChoice: c.Next,
		Prompt:     c.Prompt,
		Response:   c.Response,
	})
	if err != nil {
		return err
	}
	ctx.printf("✓ Saved reflection for %s\n", m.Name)
	ctx.announce(celebrate)
	return nil
}

type GratitudeCmd struct {
	Member string `short:"m" required:"" help:"Member name or id."`
	Text   string `arg:"" help:"What you're grateful for."`
}

func (c *GratitudeCmd) Run(ctx *Context) error {
	m, err := ctx.ResolveMember(c.Member)
	if err != nil {
		return err
	}
	_, celebrate, err := ctx.Journal.AddGratitudeEntry(models.GratitudeEntry{MemberID: m.ID, Text: c.Text})
	if err != nil {
		return err
	}
	ctx.printf("✓ Saved gratitude for %s\n", m.Name)
	ctx.announce(celebrate)
	return nil
}

type EntryListCmd struct {
	Member string `short:"m" help:"Only entries by this member (name or id)."`
	Type   string `short:"t" help:"Only entries of this type (mood, reflection, gratitude)."`
	Date   string `short:"d" help:"Only entries on this date (YYYY-MM-DD or 'today')."`
	IDs    bool   `help:"Show entry ids."`
}

func (c *EntryListCmd) Run(ctx *Context) error {
	var filter journal.EntryFilter
	if c.Member != "" {
		m, err := ctx.ResolveMember(c.Member)
		if err != nil {
			return err
		}
		filter.MemberID = m.ID
	}
	if c.Type != "" {
		t, err := models.ParseEntryType(c.Type)
		if err != nil {
			return err
		}
		filter.Type = t
	}
	if c.Date != "" {
		date, err := parseDay(ctx, c.Date)
		if err != nil {
			return err
		}
		filter.Date = date
	}

	entries := ctx.Journal.Entries(filter)
	if len(entries) == 0 {
		ctx.println("No entries found.")
		return nil
	}

	names := make(map[string]string)
	for _, m := range ctx.Journal.Members() {
		names[m.ID] = m.Name
	}

	loc := ctx.Journal.Location()
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-10s %-12s %s", e.Date.In(loc).Format("2006-01-02 15:04"), e.Type, names[e.MemberID], e.Content)
		if e.Details != "" {
			line += mutedStyle.Render("  (" + e.Details + ")")
		}
		if c.IDs {
			line += mutedStyle.Render("  " + e.ID)
		}
		ctx.println(strings.TrimRight(line, " "))
	}
	return nil
}

type EntryDeleteCmd struct {
	Type string `arg:"" help:"Entry type (mood, reflection, gratitude)."`
	ID   string `arg:"" help:"Entry id."`
}

func (c *EntryDeleteCmd) Run(ctx *Context) error {
	t, err := models.ParseEntryType(c.Type)
	if err != nil {
		return err
	}
	removed, err := ctx.Journal.DeleteEntry(t, c.ID)
	if err != nil {
		return err
	}
	if !removed {
		ctx.printf("No %s entry with id %s.\n", t, c.ID)
		return nil
	}
	ctx.printf("✓ Deleted %s entry %s\n", t, c.ID)
	return nil
}

// parseDay accepts YYYY-MM-DD or "today" and returns a date key.
func parseDay(ctx *Context, s string) (string, error) {
	if strings.EqualFold(s, "today") {
		return ctx.Now().Format(constants.DateFormat), nil
	}
	t, err := utils.ParseDateInLocation(s, ctx.Journal.Location())
	if err != nil {
		return "", err
	}
	return t.Format(constants.DateFormat), nil
}
