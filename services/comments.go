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

type CommentService struct{}

func NewCommentService() *CommentService {
	return &CommentService{}
}

// AddComment добавляет комментарий к посту. Автор фиксируется сервером.
func (cs *CommentService) AddComment(ctx context.Context, actorID, postID int64, text string) (*models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required: %w", ErrValidation)
	}

	var count int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check post: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: actorID,
		Text:     text,
	}
	if err := db.GetWriteDB(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

// CommentsForPost возвращает комментарии поста, свежие сверху
func (cs *CommentService) CommentsForPost(ctx context.Context, postID int64) ([]models.Comment, error) {
	var post models.Post
	err := db.GetReadOnlyDB(ctx).First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	var comments []models.Comment
	err = db.GetReadOnlyDB(ctx).
		Where("post_id = ?", postID).
		Order("created DESC, id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	return comments, nil
}
