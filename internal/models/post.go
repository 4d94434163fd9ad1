package models

import "time"

// postPreviewLen is the number of characters Post.String keeps.
const postPreviewLen = 15

// Post is a text entry written by a user, optionally filed under a group.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"not null;index" json:"pub_date"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	GroupID  *uint     `gorm:"index" json:"group_id"`
	// Image is a storage key under posts/, empty when the post has no image.
	Image string `gorm:"size:255" json:"image,omitempty"`

	Author *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Group  *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

// String returns the first characters of the post text.
func (p Post) String() string {
	runes := []rune(p.Text)
	if len(runes) <= postPreviewLen {
		return p.Text
	}
	return string(runes[:postPreviewLen])
}
