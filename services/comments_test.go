package services

import (
	"errors"
	"testing"
	"time"

	"yatube/db"
	"yatube/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComment(t *testing.T) {
	setupTestDB(t)
	cs := NewCommentService()

	author := createTestUser(t, "author")
	commenter := createTestUser(t, "commenter")
	post := createTestPost(t, author, nil, "пост", time.Now())

	comment, err := cs.AddComment(testCtx(), commenter.ID, post.ID, "комментарий")
	require.NoError(t, err)
	assert.Equal(t, commenter.ID, comment.AuthorID, "author is fixed server-side")
	assert.Equal(t, post.ID, comment.PostID)
	assert.False(t, comment.Created.IsZero())
}

func TestAddCommentValidation(t *testing.T) {
	setupTestDB(t)
	cs := NewCommentService()

	author := createTestUser(t, "author")
	post := createTestPost(t, author, nil, "пост", time.Now())

	_, err := cs.AddComment(testCtx(), author.ID, post.ID, "  ")
	assert.True(t, errors.Is(err, ErrValidation))

	var count int64
	require.NoError(t, db.ORM.Model(&models.Comment{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestAddCommentUnknownPost(t *testing.T) {
	setupTestDB(t)
	cs := NewCommentService()

	author := createTestUser(t, "author")

	_, err := cs.AddComment(testCtx(), author.ID, 777, "комментарий")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCommentsForPostNewestFirst(t *testing.T) {
	setupTestDB(t)
	cs := NewCommentService()

	author := createTestUser(t, "author")
	post := createTestPost(t, author, nil, "пост", time.Now())
	createTestComment(t, author, post, "первый")
	createTestComment(t, author, post, "второй")

	comments, err := cs.CommentsForPost(testCtx(), post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "второй", comments[0].Text)
	assert.Equal(t, "первый", comments[1].Text)
}
