package models

import "errors"

var (
	// ErrMemberRequired is returned when an entry has no member id.
	ErrMemberRequired = errors.New("entry requires a member id")
	// ErrMemberNotFound is returned when a member id does not exist.
	ErrMemberNotFound = errors.New("family member not found")
	// ErrDuplicateID is returned when an appended entry reuses an id already in a log.
	ErrDuplicateID = errors.New("entry id already exists")
	// ErrUnknownEntryType is returned for entry types outside mood/reflection/gratitude.
	ErrUnknownEntryType = errors.New("unknown entry type")
	// ErrNameTaken is returned when a member name collides case-insensitively with another member.
	ErrNameTaken = errors.New("a family member with that name already exists")
	// ErrNameRequired is returned when a member has an empty name.
	ErrNameRequired = errors.New("member name is required")
)
