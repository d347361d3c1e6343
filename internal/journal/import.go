package journal

import (
	"strings"

	"github.com/julianstephens/hearth/internal/logger"
	"github.com/julianstephens/hearth/internal/models"
)

// ImportResult counts what an import changed.
type ImportResult struct {
	MembersAdded   int                          `json:"membersAdded"`
	MembersMerged  int                          `json:"membersMerged"`
	EntriesAdded   int                          `json:"entriesAdded"`
	EntriesSkipped int                          `json:"entriesSkipped"`
	Celebrate      []models.GraduationMilestone `json:"celebrate"`
}

// ImportData merges incoming into the dataset without overwriting anything.
// Members are matched by case-insensitive name; an imported member whose name
// already exists is dropped and its entries are attached to the existing
// member. Entries are matched by id; an id already present is skipped.
// Entries whose member cannot be resolved are skipped. Imported milestones
// and settings are ignored.
func (j *Journal) ImportData(incoming models.AppData) (ImportResult, error) {
	var res ImportResult
	err := j.update(func(d *models.AppData) error {
		res = ImportResult{}
		memberMap := mergeMembers(d, incoming.FamilyMembers, &res)

		resolve := func(memberID string) (string, bool) {
			if id, ok := memberMap[memberID]; ok {
				return id, true
			}
			if _, ok := d.Member(memberID); ok {
				return memberID, true
			}
			return "", false
		}

		for _, e := range incoming.MoodEntries {
			id, ok := resolve(e.MemberID)
			if !ok || d.HasEntryID(e.ID) {
				res.EntriesSkipped++
				continue
			}
			e.MemberID = id
			if _, err := d.AppendMood(e); err != nil {
				res.EntriesSkipped++
				continue
			}
			res.EntriesAdded++
		}
		for _, e := range incoming.ReflectionEntries {
			id, ok := resolve(e.MemberID)
			if !ok || d.HasEntryID(e.ID) {
				res.EntriesSkipped++
				continue
			}
			e.MemberID = id
			if _, err := d.AppendReflection(e); err != nil {
				res.EntriesSkipped++
				continue
			}
			res.EntriesAdded++
		}
		for _, e := range incoming.GratitudeEntries {
			id, ok := resolve(e.MemberID)
			if !ok || d.HasEntryID(e.ID) {
				res.EntriesSkipped++
				continue
			}
			e.MemberID = id
			if _, err := d.AppendGratitude(e); err != nil {
				res.EntriesSkipped++
				continue
			}
			res.EntriesAdded++
		}

		res.Celebrate = j.checkProgress(d)
		return nil
	})
	if err == nil {
		logger.Info("Imported data", "membersAdded", res.MembersAdded, "membersMerged", res.MembersMerged,
			"entriesAdded", res.EntriesAdded, "entriesSkipped", res.EntriesSkipped)
	}
	return res, err
}

// mergeMembers adds members whose names are new and returns a map from
// imported member id to the id used in d.
func mergeMembers(d *models.AppData, incoming []models.FamilyMember, res *ImportResult) map[string]string {
	memberMap := make(map[string]string, len(incoming))
	for _, m := range incoming {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		if existing, ok := d.MemberByName(m.Name); ok {
			memberMap[m.ID] = existing.ID
			res.MembersMerged++
			continue
		}

		added := m
		added.Name = strings.TrimSpace(m.Name)
		if _, clash := d.Member(m.ID); clash || m.ID == "" {
			added.ID = models.NewID()
		}
		d.FamilyMembers = append(d.FamilyMembers, added)
		memberMap[m.ID] = added.ID
		res.MembersAdded++
	}
	return memberMap
}
