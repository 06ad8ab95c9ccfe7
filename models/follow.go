package models

import "time"

// Follow - направленная подписка: user читает посты author.
// Пара (user_id, author_id) уникальна, самоподписка отсекается на уровне сервиса.
type Follow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;index;uniqueIndex:idx_follow_unique" json:"user_id"`
	AuthorID  int64     `gorm:"not null;index;uniqueIndex:idx_follow_unique" json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Follow) TableName() string {
	return "follows"
}
