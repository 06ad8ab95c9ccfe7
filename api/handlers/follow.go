package handlers

import (
	"errors"
	"net/http"

	"yatube/db"
	"yatube/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// FollowIndex - лента постов авторов, на которых подписан текущий пользователь
func FollowIndex(c *gin.Context) {
	viewerID := c.GetInt64("user_id")
	page, err := feedService.FollowedFeed(c.Request.Context(), viewerID, pageNumber(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get followed feed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"page_obj": page})
}

func authorByUsername(c *gin.Context) (*models.User, bool) {
	var author models.User
	err := db.GetReadOnlyDB(c.Request.Context()).
		Where("username = ?", c.Param("username")).
		First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Author not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get author"})
		return nil, false
	}
	return &author, true
}

// ProfileFollow подписывает актора на автора. Самоподписка и повтор -
// молчаливые no-op, ответ в любом случае редирект на профиль.
func ProfileFollow(c *gin.Context) {
	author, ok := authorByUsername(c)
	if !ok {
		return
	}

	viewerID := c.GetInt64("user_id")
	if err := followService.Follow(c.Request.Context(), viewerID, author.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to follow"})
		return
	}

	c.Redirect(http.StatusFound, "/profile/"+author.Username)
}

// ProfileUnfollow снимает подписку; отсутствующая подписка - тоже успех
func ProfileUnfollow(c *gin.Context) {
	author, ok := authorByUsername(c)
	if !ok {
		return
	}

	viewerID := c.GetInt64("user_id")
	if err := followService.Unfollow(c.Request.Context(), viewerID, author.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unfollow"})
		return
	}

	c.Redirect(http.StatusFound, "/profile/"+author.Username)
}
