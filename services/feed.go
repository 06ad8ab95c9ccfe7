package services

import (
	"context"
	"errors"
	"fmt"

	"yatube/config"
	"yatube/db"
	"yatube/models"

	"gorm.io/gorm"
)

type FeedService struct{}

func NewFeedService() *FeedService {
	return &FeedService{}
}

// AuthorFeedResult - лента автора вместе с данными профиля
type AuthorFeedResult struct {
	Author     *models.User `json:"author"`
	PostsCount int64        `json:"posts_count"`
	Following  bool         `json:"following"`
	Page       *Page        `json:"page_obj"`
}

// feedQuery - базовая выборка ленты: посты с автором и группой,
// свежие сверху, связки по id для стабильной пагинации
func feedQuery(ctx context.Context) *gorm.DB {
	return db.GetReadOnlyDB(ctx).
		Table("posts p").
		Select("p.id, p.text, p.pub_date, p.author_id, u.username, p.group_id, g.slug as group_slug, p.image").
		Joins("JOIN users u ON p.author_id = u.id").
		Joins("LEFT JOIN \"groups\" g ON p.group_id = g.id").
		Order("p.pub_date DESC, p.id DESC")
}

func (fs *FeedService) paginate(ctx context.Context, query *gorm.DB, count int64, number int) (*Page, error) {
	pageSize := config.PageSize()
	number, total := pageBounds(count, pageSize, number)

	var posts []models.FeedPost
	err := query.
		Limit(pageSize).
		Offset((number - 1) * pageSize).
		Scan(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get feed posts: %w", err)
	}

	return newPage(posts, number, total, count), nil
}

// Index возвращает страницу общей ленты: все посты, свежие сверху
func (fs *FeedService) Index(ctx context.Context, number int) (*Page, error) {
	var count int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Post{}).Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	return fs.paginate(ctx, feedQuery(ctx), count, number)
}

// GroupFeed возвращает группу по slug и страницу её постов
func (fs *FeedService) GroupFeed(ctx context.Context, slug string, number int) (*models.Group, *Page, error) {
	var group models.Group
	err := db.GetReadOnlyDB(ctx).Where("slug = ?", slug).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("group %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get group: %w", err)
	}

	var count int64
	err = db.GetReadOnlyDB(ctx).Model(&models.Post{}).Where("group_id = ?", group.ID).Count(&count).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count group posts: %w", err)
	}

	page, err := fs.paginate(ctx, feedQuery(ctx).Where("p.group_id = ?", group.ID), count, number)
	if err != nil {
		return nil, nil, err
	}
	return &group, page, nil
}

// AuthorFeed возвращает профиль автора, общее число его постов,
// признак подписки зрителя (false для анонима и для самого автора)
// и страницу постов
func (fs *FeedService) AuthorFeed(ctx context.Context, username string, viewerID int64, number int) (*AuthorFeedResult, error) {
	var author models.User
	err := db.GetReadOnlyDB(ctx).Where("username = ?", username).First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("author %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get author: %w", err)
	}

	var count int64
	err = db.GetReadOnlyDB(ctx).Model(&models.Post{}).Where("author_id = ?", author.ID).Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count author posts: %w", err)
	}

	page, err := fs.paginate(ctx, feedQuery(ctx).Where("p.author_id = ?", author.ID), count, number)
	if err != nil {
		return nil, err
	}

	following := false
	if viewerID != 0 && viewerID != author.ID {
		following, err = NewFollowService().IsFollowing(ctx, viewerID, author.ID)
		if err != nil {
			return nil, err
		}
	}

	return &AuthorFeedResult{
		Author:     &author,
		PostsCount: count,
		Following:  following,
		Page:       page,
	}, nil
}

// FollowedFeed возвращает страницу постов авторов, на которых подписан viewer
func (fs *FeedService) FollowedFeed(ctx context.Context, viewerID int64, number int) (*Page, error) {
	followedAuthors := func() *gorm.DB {
		return db.GetReadOnlyDB(ctx).
			Model(&models.Follow{}).
			Select("author_id").
			Where("user_id = ?", viewerID)
	}

	var count int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Post{}).
		Where("author_id IN (?)", followedAuthors()).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count followed posts: %w", err)
	}

	return fs.paginate(ctx, feedQuery(ctx).Where("p.author_id IN (?)", followedAuthors()), count, number)
}
