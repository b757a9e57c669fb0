package models

import "time"

// Post represents a blog post with its cover image.
type Post struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"size:300;not null" json:"title"`
	Summary string `gorm:"size:500" json:"summary"`
	Content string `gorm:"type:text" json:"content"`
	// Cover is the public path of the cover file, e.g. "uploads/3f2a.jpg".
	Cover string `json:"cover"`
	// AuthorID is set once at creation and never changes.
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAuthoredBy reports whether userID owns the post.
func (p *Post) IsAuthoredBy(userID uint) bool {
	return p.AuthorID != 0 && p.AuthorID == userID
}

// Post event types published on the live feed.
const (
	PostEventCreated = "post_created"
	PostEventUpdated = "post_updated"
	PostEventDeleted = "post_deleted"
)

// PostEvent is the payload broadcast to feed subscribers when a post changes.
type PostEvent struct {
	Type     string    `json:"type"`
	PostID   uint      `json:"post_id"`
	AuthorID uint      `json:"author_id"`
	Title    string    `json:"title,omitempty"`
	At       time.Time `json:"at"`
}

// NewPostEvent builds a feed event for the given post.
func NewPostEvent(eventType string, post *Post) PostEvent {
	return PostEvent{
		Type:     eventType,
		PostID:   post.ID,
		AuthorID: post.AuthorID,
		Title:    post.Title,
		At:       time.Now().UTC(),
	}
}
