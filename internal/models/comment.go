package models

import "time"

// Comment is a reply to a post. PostID is nullable at the schema level;
// comments are removed together with their post.
type Comment struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"not null;index" json:"pub_date"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	PostID   *uint     `gorm:"index" json:"post_id"`

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
