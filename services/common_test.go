package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"yatube/config"
	"yatube/db"
	"yatube/models"

	"github.com/brianvoe/gofakeit/v7"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open("file::memory:?_fk=1"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// In-memory sqlite живет в рамках одного соединения
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	db.ORM = database

	config.AppConfig = &config.ConfigSchema{}
	config.AppConfig.Feed.PageSize = config.DefaultPageSize
	config.AppConfig.Feed.CacheTTLSecs = config.DefaultCacheTTLSecs
}

func createTestUser(t *testing.T, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:  username,
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Password:  "x",
	}
	if err := db.ORM.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user %q: %v", username, err)
	}
	return user
}

func createTestGroup(t *testing.T, slug string) *models.Group {
	t.Helper()

	group := &models.Group{
		Title:       "Тестовая группа " + slug,
		Slug:        slug,
		Description: gofakeit.Sentence(5),
	}
	if err := db.ORM.Create(group).Error; err != nil {
		t.Fatalf("failed to create test group %q: %v", slug, err)
	}
	return group
}

// createTestPost создает пост с явной датой публикации, чтобы
// порядок в лентах был детерминированным
func createTestPost(t *testing.T, author *models.User, group *models.Group, text string, pubDate time.Time) *models.Post {
	t.Helper()

	post := &models.Post{
		Text:     text,
		AuthorID: author.ID,
		PubDate:  pubDate,
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	if err := db.ORM.Create(post).Error; err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}
	return post
}

func createTestComment(t *testing.T, author *models.User, post *models.Post, text string) *models.Comment {
	t.Helper()

	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		Text:     text,
	}
	if err := db.ORM.Create(comment).Error; err != nil {
		t.Fatalf("failed to create test comment: %v", err)
	}
	return comment
}

// seedPosts создает n постов автора подряд, возвращает их в порядке создания
func seedPosts(t *testing.T, author *models.User, group *models.Group, n int) []*models.Post {
	t.Helper()

	base := time.Now().Add(-time.Duration(n) * time.Minute)
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("Тестовый пост %d", i)
		posts = append(posts, createTestPost(t, author, group, text, base.Add(time.Duration(i)*time.Minute)))
	}
	return posts
}

func testCtx() context.Context {
	return context.Background()
}
