package models

// FamilyMember is one person who records entries on the device.
// ID is assigned once at creation and never changes.
type FamilyMember struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Color  string `json:"color"`
}

// MemberPatch carries the fields of an UpdateMember call. Nil fields are left unchanged.
type MemberPatch struct {
	Name   *string
	Avatar *string
	Color  *string
}

// Apply merges the non-nil fields of p into m.
func (p MemberPatch) Apply(m FamilyMember) FamilyMember {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Avatar != nil {
		m.Avatar = *p.Avatar
	}
	if p.Color != nil {
		m.Color = *p.Color
	}
	return m
}
