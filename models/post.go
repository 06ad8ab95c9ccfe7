package models

import "time"

// Post - публикация автора. PubDate выставляется один раз при создании
// и дальше не меняется; сортировка лент - pub_date DESC, id DESC.
type Post struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	PubDate   time.Time `gorm:"index;autoCreateTime" json:"pub_date"`
	AuthorID  int64     `gorm:"index;not null" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	GroupID   *int64    `gorm:"index" json:"group_id"`
	Group     *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	Image     string    `gorm:"size:255" json:"image,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Post) TableName() string {
	return "posts"
}

// FeedPost - элемент ленты с данными автора и группы
type FeedPost struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	PubDate   time.Time `json:"pub_date"`
	AuthorID  int64     `json:"author_id"`
	Username  string    `json:"username"`
	GroupID   *int64    `json:"group_id,omitempty"`
	GroupSlug string    `json:"group_slug,omitempty"`
	Image     string    `json:"image,omitempty"`
}
