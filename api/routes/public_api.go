package routes

import (
	"yatube/api/handlers"
	"yatube/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PublicApi регистрирует все маршруты. Таблица явная:
// путь -> обработчик, auth-требования через middleware на группах.
func PublicApi(router *gin.Engine) {
	router.Use(middleware.PrometheusMiddleware("yatube"))

	// Аутентификация
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
		auth.POST("/logout", middleware.AuthRequired(), handlers.Logout)
	}
	router.GET("/auth/login", handlers.LoginPage)

	// Ленты: доступны анониму, зритель влияет только на признак подписки
	public := router.Group("/", middleware.OptionalAuth())
	{
		public.GET("", handlers.Index)
		public.GET("group/:slug", handlers.GroupPosts)
		public.GET("profile/:username", handlers.Profile)
		public.GET("posts/:post_id", handlers.PostDetail)
	}

	// Мутации и лента подписок: только для аутентифицированных
	protected := router.Group("/", middleware.AuthRequired())
	{
		protected.POST("create", handlers.PostCreate)
		protected.POST("posts/:post_id/edit", handlers.PostEdit)
		protected.POST("posts/:post_id/delete", handlers.PostDelete)
		protected.POST("posts/:post_id/comment", handlers.AddComment)
		protected.GET("follow", handlers.FollowIndex)
		protected.POST("profile/:username/follow", handlers.ProfileFollow)
		protected.POST("profile/:username/unfollow", handlers.ProfileUnfollow)
		protected.GET("ws/feed", handlers.WSFeedHandler)
	}

	// Служебные
	router.POST("/internal/cache/clear", handlers.ClearHomeCache)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
