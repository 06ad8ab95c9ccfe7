package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"yatube/services"

	"github.com/gin-gonic/gin"
)

const jsonContentType = "application/json; charset=utf-8"

var (
	feedService    = services.NewFeedService()
	postService    = services.NewPostService()
	commentService = services.NewCommentService()
	followService  = services.NewFollowService()
)

// HomeCache - кэш главной страницы. Владеет им server.go: создает с TTL из
// конфига и передает сюда через UseHomeCache до регистрации маршрутов.
var HomeCache services.PageCache

func UseHomeCache(cache services.PageCache) {
	HomeCache = cache
}

// indexContext - контекст главной страницы; типизирован, чтобы
// сериализация была детерминированной и кэш отдавал байт-в-байт
type indexContext struct {
	PageObj services.Page `json:"page_obj"`
}

func pageNumber(c *gin.Context) int {
	number, err := strconv.Atoi(c.Query("page"))
	if err != nil || number < 1 {
		return 1
	}
	return number
}

type postForm struct {
	Text    string `form:"text" json:"text"`
	GroupID *int64 `form:"group_id" json:"group_id"`
	Image   string `form:"image" json:"image"`
}

// formContext отдает форму поста обратно с пофилдовыми ошибками
func formContext(form postForm, fieldErrors map[string]string) gin.H {
	return gin.H{
		"form": gin.H{
			"text":     form.Text,
			"group_id": form.GroupID,
			"image":    form.Image,
			"errors":   fieldErrors,
		},
	}
}

// Index - главная страница: общая лента через кэш.
// Ключ кэша - только номер страницы; записи кэш не сбрасывают,
// устаревший ответ в пределах TTL отдается всем как есть.
func Index(c *gin.Context) {
	number := pageNumber(c)
	key := services.IndexPageKey(number)

	if HomeCache != nil {
		if body, ok := HomeCache.Get(c.Request.Context(), key); ok {
			c.Data(http.StatusOK, jsonContentType, body)
			return
		}
	}

	page, err := feedService.Index(c.Request.Context(), number)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get feed"})
		return
	}

	body, err := json.Marshal(indexContext{PageObj: *page})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render feed"})
		return
	}

	if HomeCache != nil {
		HomeCache.Set(c.Request.Context(), key, body)
	}
	c.Data(http.StatusOK, jsonContentType, body)
}

// GroupPosts - лента группы по slug
func GroupPosts(c *gin.Context) {
	group, page, err := feedService.GroupFeed(c.Request.Context(), c.Param("slug"), pageNumber(c))
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get group feed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group":    group,
		"page_obj": page,
	})
}

// Profile - лента автора с числом постов и признаком подписки зрителя
func Profile(c *gin.Context) {
	viewerID := c.GetInt64("user_id")
	result, err := feedService.AuthorFeed(c.Request.Context(), c.Param("username"), viewerID, pageNumber(c))
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Author not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get author feed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"author":      result.Author,
		"posts_count": result.PostsCount,
		"following":   result.Following,
		"page_obj":    result.Page,
	})
}

// PostDetail - страница поста с комментариями и формой комментария
func PostDetail(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	detail, err := postService.PostDetail(c.Request.Context(), postID)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post":     detail.Post,
		"n_posts":  detail.NPosts,
		"comments": detail.Comments,
		"form": gin.H{
			"text": gin.H{"label": "Комментарий", "help_text": "Текст нового комментария", "value": ""},
		},
	})
}

// PostCreate публикует пост от имени аутентифицированного актора.
// Автор из тела запроса не принимается никогда.
func PostCreate(c *gin.Context) {
	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	actorID := c.GetInt64("user_id")
	_, err := postService.CreatePost(c.Request.Context(), actorID, form.Text, form.GroupID, form.Image)
	if errors.Is(err, services.ErrValidation) {
		c.JSON(http.StatusOK, formContext(form, map[string]string{"text": "Обязательное поле"}))
		return
	}
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	c.Redirect(http.StatusFound, "/profile/"+c.GetString("username"))
}

// PostEdit правит пост. Чужой пост не трогается: не-автора молча
// уводим на страницу поста.
func PostEdit(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	actorID := c.GetInt64("user_id")
	_, err = postService.EditPost(c.Request.Context(), actorID, postID, form.Text, form.GroupID, form.Image)
	if errors.Is(err, services.ErrForbidden) {
		c.Redirect(http.StatusFound, fmt.Sprintf("/posts/%d", postID))
		return
	}
	if errors.Is(err, services.ErrValidation) {
		c.JSON(http.StatusOK, formContext(form, map[string]string{"text": "Обязательное поле"}))
		return
	}
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/posts/%d", postID))
}

// PostDelete удаляет пост автора (вместе с комментариями)
func PostDelete(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	actorID := c.GetInt64("user_id")
	err = postService.DeletePost(c.Request.Context(), actorID, postID)
	if errors.Is(err, services.ErrForbidden) {
		c.Redirect(http.StatusFound, fmt.Sprintf("/posts/%d", postID))
		return
	}
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}
