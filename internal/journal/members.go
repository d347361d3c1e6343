package journal

import (
	"fmt"
	"strings"

	"github.com/julianstephens/hearth/internal/models"
)

// Members returns the family roster in insertion order.
func (j *Journal) Members() []models.FamilyMember {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]models.FamilyMember(nil), j.data.FamilyMembers...)
}

// FindMember resolves ref as a member id first, then as a case-insensitive name.
func (j *Journal) FindMember(ref string) (models.FamilyMember, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if m, ok := j.data.Member(ref); ok {
		return m, true
	}
	return j.data.MemberByName(ref)
}

// AddMember adds a member with a fresh id. Names must be non-empty and unique ignoring case.
func (j *Journal) AddMember(name, avatar, color string) (models.FamilyMember, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.FamilyMember{}, models.ErrNameRequired
	}

	member := models.FamilyMember{ID: models.NewID(), Name: name, Avatar: avatar, Color: color}
	err := j.update(func(d *models.AppData) error {
		if _, taken := d.MemberByName(name); taken {
			return fmt.Errorf("%w: %s", models.ErrNameTaken, name)
		}
		d.FamilyMembers = append(d.FamilyMembers, member)
		return nil
	})
	if err != nil {
		return models.FamilyMember{}, err
	}
	return member, nil
}

// UpdateMember applies patch to the member with id. The id never changes.
func (j *Journal) UpdateMember(id string, patch models.MemberPatch) (models.FamilyMember, error) {
	var updated models.FamilyMember
	err := j.update(func(d *models.AppData) error {
		for i, m := range d.FamilyMembers {
			if m.ID != id {
				continue
			}
			next := patch.Apply(m)
			next.Name = strings.TrimSpace(next.Name)
			if next.Name == "" {
				return models.ErrNameRequired
			}
			if other, taken := d.MemberByName(next.Name); taken && other.ID != id {
				return fmt.Errorf("%w: %s", models.ErrNameTaken, next.Name)
			}
			d.FamilyMembers[i] = next
			updated = next
			return nil
		}
		return fmt.Errorf("%w: %s", models.ErrMemberNotFound, id)
	})
	return updated, err
}

// DeleteMember removes the member and every entry referencing it. It returns
// the number of entries removed.
func (j *Journal) DeleteMember(id string) (int, error) {
	removed := 0
	err := j.update(func(d *models.AppData) error {
		kept := d.FamilyMembers[:0:0]
		found := false
		for _, m := range d.FamilyMembers {
			if m.ID == id {
				found = true
				continue
			}
			kept = append(kept, m)
		}
		if !found {
			return fmt.Errorf("%w: %s", models.ErrMemberNotFound, id)
		}
		d.FamilyMembers = kept
		removed = d.RemoveMemberEntries(id)
		j.checkProgress(d)
		return nil
	})
	return removed, err
}
