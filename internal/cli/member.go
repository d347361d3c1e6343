package cli

import (
	"fmt"

	"github.com/julianstephens/hearth/internal/journal"
	"github.com/julianstephens/hearth/internal/models"
)

type MemberAddCmd struct {
	Name   string `arg:"" help:"Member name."`
	Avatar string `help:"Avatar emoji." default:"🙂"`
	Color  string `help:"Display color." default:"#f4a261"`
}

func (c *MemberAddCmd) Run(ctx *Context) error {
	m, err := ctx.Journal.AddMember(c.Name, c.Avatar, c.Color)
	if err != nil {
		return err
	}
	ctx.printf("✓ Added %s %s (%s)\n", m.Avatar, m.Name, m.ID)
	return nil
}

type MemberListCmd struct{}

func (c *MemberListCmd) Run(ctx *Context) error {
	members := ctx.Journal.Members()
	if len(members) == 0 {
		ctx.println("No family members yet.")
		return nil
	}

	counts := make(map[string]int)
	for _, e := range ctx.Journal.Entries(journal.EntryFilter{}) {
		counts[e.MemberID]++
	}

	ctx.println("Family:")
	for _, m := range members {
		ctx.printf("  %s %-16s %3d entries  %s\n", m.Avatar, m.Name, counts[m.ID], mutedStyle.Render(m.ID))
	}
	return nil
}

type MemberEditCmd struct {
	Member string  `arg:"" help:"Member name or id."`
	Name   *string `help:"New name."`
	Avatar *string `help:"New avatar emoji."`
	Color  *string `help:"New display color."`
}

func (c *MemberEditCmd) Run(ctx *Context) error {
	m, err := ctx.ResolveMember(c.Member)
	if err != nil {
		return err
	}
	patch := models.MemberPatch{Name: c.Name, Avatar: c.Avatar, Color: c.Color}
	if patch.Name == nil && patch.Avatar == nil && patch.Color == nil {
		ctx.println("No changes specified. Use --name, --avatar or --color.")
		return nil
	}

	updated, err := ctx.Journal.UpdateMember(m.ID, patch)
	if err != nil {
		return err
	}
	ctx.printf("✓ Updated %s %s\n", updated.Avatar, updated.Name)
	return nil
}

type MemberDeleteCmd struct {
	Member string `arg:"" help:"Member name or id."`
	Yes    bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *MemberDeleteCmd) Run(ctx *Context) error {
	m, err := ctx.ResolveMember(c.Member)
	if err != nil {
		return err
	}

	ok, err := ctx.confirm(c.Yes,
		fmt.Sprintf("Delete %s?", m.Name),
		"All of their mood, reflection and gratitude entries are deleted too.")
	if err != nil {
		return err
	}
	if !ok {
		ctx.println("Delete cancelled.")
		return nil
	}

	removed, err := ctx.Journal.DeleteMember(m.ID)
	if err != nil {
		return err
	}
	ctx.printf("✓ Deleted %s and %d entries\n", m.Name, removed)
	return nil
}
