package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"yatube/services"

	"github.com/gin-gonic/gin"
)

type commentForm struct {
	Text string `form:"text" json:"text"`
}

// AddComment добавляет комментарий от имени актора и возвращает
// на страницу поста. Невалидная форма тоже уводит на страницу поста,
// запись при этом не создается.
func AddComment(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	var form commentForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	actorID := c.GetInt64("user_id")
	_, err = commentService.AddComment(c.Request.Context(), actorID, postID, form.Text)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil && !errors.Is(err, services.ErrValidation) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment"})
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/posts/%d", postID))
}
