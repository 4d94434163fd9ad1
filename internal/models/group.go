package models

import "regexp"

// Field limits for Group.
const (
	GroupTitleMaxLen       = 200
	GroupSlugMaxLen        = 40
	GroupDescriptionMaxLen = 400
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Group is a named community that posts may belong to.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"size:40;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"size:400" json:"description"`
}

func (g Group) String() string {
	return g.Title
}

// ValidSlug reports whether s is usable as a group slug.
func ValidSlug(s string) bool {
	return len(s) <= GroupSlugMaxLen && slugPattern.MatchString(s)
}
