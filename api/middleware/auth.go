package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"yatube/services"

	"github.com/gin-gonic/gin"
)

var userService = services.NewUserService()

func tokenFromRequest(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := c.Cookie("auth_token"); err == nil {
		return cookie
	}
	return ""
}

// AuthRequired - middleware для защищенных маршрутов.
// Без валидного токена запрос уводится на логин с возвратным путем в next,
// чтобы после входа вернуть пользователя туда, куда он шел.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		user, err := userService.UserByToken(c.Request.Context(), token)
		if err != nil {
			next := url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, "/auth/login?next="+next)
			c.Abort()
			return
		}
		c.Set("user_id", user.ID)
		c.Set("username", user.Username)
		c.Next()
	}
}

// OptionalAuth выставляет user_id, если токен валиден; аноним проходит дальше
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token != "" {
			if user, err := userService.UserByToken(c.Request.Context(), token); err == nil {
				c.Set("user_id", user.ID)
				c.Set("username", user.Username)
			}
		}
		c.Next()
	}
}
