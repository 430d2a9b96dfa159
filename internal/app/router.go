package app

import (
	"study_companion_backend/docs"
	"study_companion_backend/internal/config"
	"study_companion_backend/internal/middleware"
	"study_companion_backend/pkg/monitoring"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(s.user, time.Minute))
	{
		a.registerLearnerRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers) {
	profile := group.Group("/profile")
	{
		profile.GET("", c.user.GetProfile)
		profile.PUT("/preferences", c.user.UpdatePreferences)
	}

	sessions := group.Group("/sessions")
	{
		sessions.POST("", c.session.StartSession)
		sessions.GET("", c.session.ListSessions)
		sessions.GET("/active", c.session.ActiveSession)
		sessions.GET("/:id", c.session.GetSession)
		sessions.POST("/:id/pause", c.session.PauseSession)
		sessions.POST("/:id/resume", c.session.ResumeSession)
		sessions.POST("/:id/tick", c.session.Tick)
		sessions.POST("/:id/complete", c.session.CompleteSession)
	}

	quizzes := group.Group("/quizzes")
	{
		quizzes.POST("", c.quiz.CreateQuiz)
		quizzes.GET("/results", c.quiz.ListResults)
		quizzes.GET("/:id", c.quiz.GetQuiz)
		quizzes.POST("/:id/submit", c.quiz.SubmitQuiz)
	}

	flashcards := group.Group("/flashcards")
	{
		flashcards.POST("", c.flashcard.CreateCard)
		flashcards.GET("", c.flashcard.ListCards)
		flashcards.GET("/due", c.flashcard.ListDue)
		flashcards.POST("/generate", c.flashcard.GenerateCards)
		flashcards.POST("/:id/review", c.flashcard.ReviewCard)
	}

	badges := group.Group("/badges")
	{
		badges.GET("", c.badge.ListBadges)
		badges.POST("/evaluate", c.badge.Evaluate)
	}

	stats := group.Group("/stats")
	{
		stats.GET("", c.stats.GetStats)
		stats.GET("/streak", c.stats.GetStreak)
	}

	group.POST("/events", c.event.Ingest)

	chat := group.Group("/chat")
	{
		chat.POST("", c.chat.Ask)
		chat.GET("/history", c.chat.History)
	}

	documents := group.Group("/documents")
	{
		documents.POST("", c.document.UploadDocument)
		documents.GET("", c.document.ListDocuments)
	}
}
