package models

// Group - сообщество, к которому может относиться пост
type Group struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"size:200;uniqueIndex" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
}

func (Group) TableName() string {
	return "groups"
}
