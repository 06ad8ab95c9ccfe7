package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"yatube/db"
	"yatube/models"

	"gorm.io/gorm"
)

type PostService struct{}

func NewPostService() *PostService {
	return &PostService{}
}

// CommentView - комментарий с именем автора для страницы поста
type CommentView struct {
	ID       int64  `json:"id"`
	AuthorID int64  `json:"author_id"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Created  string `json:"created"`
}

// PostDetailResult - страница поста: сам пост, число постов автора
// и комментарии, свежие сверху
type PostDetailResult struct {
	Post     *models.Post  `json:"post"`
	NPosts   int64         `json:"n_posts"`
	Comments []CommentView `json:"comments"`
}

// CreatePost публикует пост. Автор фиксируется сервером, присланное в теле
// значение автора никогда не используется. PubDate выставляется базой один раз.
func (ps *PostService) CreatePost(ctx context.Context, authorID int64, text string, groupID *int64, image string) (*models.Post, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required: %w", ErrValidation)
	}

	if groupID != nil {
		var count int64
		err := db.GetReadOnlyDB(ctx).Model(&models.Group{}).Where("id = ?", *groupID).Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check group: %w", err)
		}
		if count == 0 {
			return nil, fmt.Errorf("group %d: %w", *groupID, ErrNotFound)
		}
	}

	post := &models.Post{
		Text:     text,
		AuthorID: authorID,
		GroupID:  groupID,
		Image:    image,
	}
	if err := db.GetWriteDB(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	// Рассылка подписчикам не должна задерживать и тем более валить запрос
	notifyFollowers(ctx, post)

	return post, nil
}

// EditPost меняет текст/группу/картинку поста. Разрешено только автору,
// дата публикации не трогается.
func (ps *PostService) EditPost(ctx context.Context, actorID, postID int64, text string, groupID *int64, image string) (*models.Post, error) {
	var post models.Post
	err := db.GetWriteDB(ctx).First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	if post.AuthorID != actorID {
		return nil, fmt.Errorf("post %d belongs to another author: %w", postID, ErrForbidden)
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required: %w", ErrValidation)
	}

	if groupID != nil {
		var count int64
		err := db.GetReadOnlyDB(ctx).Model(&models.Group{}).Where("id = ?", *groupID).Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check group: %w", err)
		}
		if count == 0 {
			return nil, fmt.Errorf("group %d: %w", *groupID, ErrNotFound)
		}
	}

	err = db.GetWriteDB(ctx).Model(&post).Updates(map[string]interface{}{
		"text":     text,
		"group_id": groupID,
		"image":    image,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return &post, nil
}

// DeletePost удаляет пост автора вместе с комментариями
func (ps *PostService) DeletePost(ctx context.Context, actorID, postID int64) error {
	var post models.Post
	err := db.GetWriteDB(ctx).First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get post: %w", err)
	}

	if post.AuthorID != actorID {
		return fmt.Errorf("post %d belongs to another author: %w", postID, ErrForbidden)
	}

	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Delete(&post).Error; err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
		return nil
	})
}

// PostDetail возвращает пост со связанными автором и группой,
// общее число постов автора и комментарии
func (ps *PostService) PostDetail(ctx context.Context, postID int64) (*PostDetailResult, error) {
	var post models.Post
	err := db.GetReadOnlyDB(ctx).
		Preload("Author").
		Preload("Group").
		First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	var nPosts int64
	err = db.GetReadOnlyDB(ctx).Model(&models.Post{}).Where("author_id = ?", post.AuthorID).Count(&nPosts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count author posts: %w", err)
	}

	var comments []CommentView
	err = db.GetReadOnlyDB(ctx).
		Table("comments c").
		Select("c.id, c.author_id, u.username, c.text, c.created").
		Joins("JOIN users u ON c.author_id = u.id").
		Where("c.post_id = ?", postID).
		Order("c.created DESC, c.id DESC").
		Scan(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	if comments == nil {
		comments = []CommentView{}
	}

	return &PostDetailResult{Post: &post, NPosts: nPosts, Comments: comments}, nil
}

// DeleteUser удаляет пользователя со всем, что на него завязано:
// его комментарии, комментарии к его постам, посты, подписки в обе стороны, токены
func (ps *PostService) DeleteUser(ctx context.Context, userID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		ownPosts := tx.Model(&models.Post{}).Select("id").Where("author_id = ?", userID)

		if err := tx.Where("author_id = ? OR post_id IN (?)", userID, ownPosts).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Where("author_id = ?", userID).Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("failed to delete posts: %w", err)
		}
		if err := tx.Where("user_id = ? OR author_id = ?", userID, userID).Delete(&models.Follow{}).Error; err != nil {
			return fmt.Errorf("failed to delete follows: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserTokens{}).Error; err != nil {
			return fmt.Errorf("failed to delete tokens: %w", err)
		}
		if err := tx.Delete(&models.User{}, userID).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}

// DeleteGroup удаляет группу; её посты выживают с обнуленной группой
func (ps *PostService) DeleteGroup(ctx context.Context, groupID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Post{}).Where("group_id = ?", groupID).Update("group_id", nil).Error
		if err != nil {
			return fmt.Errorf("failed to detach posts: %w", err)
		}
		if err := tx.Delete(&models.Group{}, groupID).Error; err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		return nil
	})
}

// notifyFollowers публикует событие о новом посте для подписчиков автора.
// Список подписчиков читается в рамках запроса, сама доставка уходит в фон;
// ошибки здесь только логируются.
func notifyFollowers(ctx context.Context, post *models.Post) {
	followerIDs, err := NewFollowService().FollowerIDs(ctx, post.AuthorID)
	if err != nil {
		log.Printf("notify: failed to get followers for author %d: %v", post.AuthorID, err)
		return
	}
	if len(followerIDs) == 0 {
		return
	}

	go func() {
		for _, followerID := range followerIDs {
			event := FeedEvent{
				UserID:   followerID,
				PostID:   post.ID,
				AuthorID: post.AuthorID,
				Text:     post.Text,
				PubDate:  post.PubDate,
			}
			if err := PublishFeedEvent(context.Background(), event); err != nil {
				// RabbitMQ недоступен - пушим напрямую через WebSocket
				sendDirectWSEvent(event)
			}
		}
	}()
}
