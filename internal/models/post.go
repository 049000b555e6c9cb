package models

import "time"

// Post is a content record owned by one board and one author.
type Post struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	BoardID      uint   `gorm:"not null;index" json:"board_id"`
	Board        *Board `gorm:"foreignKey:BoardID" json:"board,omitempty"`
	UserID       uint   `gorm:"not null;index" json:"author_id"`
	User         User   `gorm:"foreignKey:UserID" json:"author"`
	LastEditorID *uint  `gorm:"index" json:"last_editor_id,omitempty"`
	LastEditor   *User  `gorm:"foreignKey:LastEditorID" json:"last_editor,omitempty"`
	Title        string `gorm:"size:200;not null" json:"title"`
	Content      string `gorm:"type:text;not null" json:"content"`
	ImagePath    string `json:"image,omitempty"`
	Views        int64  `gorm:"not null;default:0" json:"views"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked     bool      `gorm:"->;-:migration" json:"liked"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
