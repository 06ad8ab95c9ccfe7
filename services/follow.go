package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"yatube/db"
	"yatube/models"

	"gorm.io/gorm"
)

type FollowService struct{}

func NewFollowService() *FollowService {
	return &FollowService{}
}

// isDuplicateErr распознает нарушение уникального индекса (user_id, author_id).
// Текстовые проверки покрывают postgres и sqlite, которые не маппятся
// в gorm.ErrDuplicatedKey на всех версиях драйверов.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// Follow создает подписку user -> author. Повторная подписка и
// самоподписка - молчаливые no-op, без ошибки.
func (fs *FollowService) Follow(ctx context.Context, userID, authorID int64) error {
	if userID == authorID {
		return nil
	}

	edge := &models.Follow{UserID: userID, AuthorID: authorID}
	err := db.GetWriteDB(ctx).Create(edge).Error
	if err != nil {
		if isDuplicateErr(err) {
			// Гонка двух одинаковых запросов: ребро уже есть, это успех
			return nil
		}
		return fmt.Errorf("failed to create follow: %w", err)
	}
	return nil
}

// Unfollow удаляет подписку user -> author; отсутствующее ребро - no-op
func (fs *FollowService) Unfollow(ctx context.Context, userID, authorID int64) error {
	err := db.GetWriteDB(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	return nil
}

// IsFollowing проверяет наличие ребра; для анонима (userID == 0) всегда false
func (fs *FollowService) IsFollowing(ctx context.Context, userID, authorID int64) (bool, error) {
	if userID == 0 {
		return false, nil
	}

	var count int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return count > 0, nil
}

// FollowerIDs возвращает подписчиков автора (для рассылки уведомлений)
func (fs *FollowService) FollowerIDs(ctx context.Context, authorID int64) ([]int64, error) {
	var ids []int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Follow{}).
		Where("author_id = ?", authorID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return ids, nil
}
