package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/video-gateway/internal/api/dto"
	"github.com/cuongbtq/video-gateway/internal/api/handler"
	"github.com/cuongbtq/video-gateway/internal/metrics"
)

// PublicPaths are reachable without a token.
var PublicPaths = []string{"/login", "/signup"}

// HealthChecker reports whether the broker connection is up.
type HealthChecker interface {
	IsConnected() bool
}

// SetupRouter configures and returns the Gin router with all gateway routes
func SetupRouter(deps *handler.Dependencies, verifier TokenVerifier, m *metrics.Metrics) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(MetricsMiddleware(m))
	r.Use(CORSMiddleware())
	r.Use(AuthMiddleware(verifier, PublicPaths, deps.Logger))

	accountHandler := handler.NewAccountHandler(deps)
	jobHandler := handler.NewJobHandler(deps)
	interactionHandler := handler.NewInteractionHandler(deps)

	// Accounts
	r.POST("/login", accountHandler.Login)
	r.POST("/signup", accountHandler.Signup)

	// Video translation jobs
	r.POST("/process", jobHandler.CreateJob)
	r.GET("/translation_status", jobHandler.GetStatus)
	r.GET("/translations_by_user", jobHandler.ListByUser)

	// Content interaction
	r.POST("/generate-quiz", interactionHandler.GenerateQuiz)
	r.POST("/chat-with-content", interactionHandler.ChatWithContent)
	r.POST("/generate-summary", interactionHandler.GenerateSummary)
	r.POST("/convert-to-article", interactionHandler.ConvertToArticle)

	return r
}

// SetupOpsRouter serves health and metrics on the internal listener
func SetupOpsRouter(health HealthChecker, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		rabbit := "disconnected"
		if health.IsConnected() {
			rabbit = "connected"
		}
		c.JSON(http.StatusOK, dto.HealthResponse{
			Status:   "healthy",
			RabbitMQ: rabbit,
		})
	})

	r.GET("/metrics", gin.WrapH(m.Handler()))

	return r
}
