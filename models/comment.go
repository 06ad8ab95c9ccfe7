package models

import "time"

// Comment - комментарий к посту, удаляется каскадом вместе с постом или автором
type Comment struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID   int64     `gorm:"index;not null" json:"post_id"`
	Post     *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID int64     `gorm:"index;not null" json:"author_id"`
	Author   *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	Created  time.Time `gorm:"index;autoCreateTime" json:"created"`
}

func (Comment) TableName() string {
	return "comments"
}
