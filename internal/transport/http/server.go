package http

import (
	"github.com/gin-gonic/gin"

	"gopherai-docchat/internal/bootstrap"
	"gopherai-docchat/internal/transport/http/handler"
	"gopherai-docchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) (*gin.Engine, error) {
	gin.SetMode(app.Config.App.GinMode)
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(app.Logger), gin.Recovery())
	router.MaxMultipartMemory = app.Config.MaxUploadBytes()

	healthHandler := handler.NewHealthHandler(
		app.Config.App.Name,
		app.Config.App.Env,
		app.StartedAt,
		handler.HealthCheck{Name: app.Config.Database.Driver, Probe: app.PingDB},
		handler.HealthCheck{Name: "redis", Probe: app.PingRedis},
		handler.HealthCheck{Name: "rabbitmq", Probe: app.PingRabbitMQ},
		handler.HealthCheck{Name: "storage", Probe: app.Files.Ping},
	)
	router.GET("/healthz", healthHandler.Check)

	authHandler := handler.NewAuthHandler(app.AuthService)
	documentHandler := handler.NewDocumentHandler(app.DocumentService, app.Config.MaxUploadBytes())
	chatHandler := handler.NewChatHandler(app.ChatService)
	auth := middleware.AuthJWT(app.Config.Auth.JWTSecret)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", auth, authHandler.Me)

	docGroup := v1.Group("/documents")
	docGroup.Use(auth)
	docGroup.POST("/upload-url", documentHandler.GenerateUploadURL)
	docGroup.POST("", documentHandler.Create)
	docGroup.POST("/upload", documentHandler.Upload)
	docGroup.GET("", documentHandler.List)
	docGroup.GET("/search", documentHandler.Search)
	docGroup.GET("/:id", documentHandler.Get)
	docGroup.DELETE("/:id", documentHandler.Delete)
	docGroup.POST("/:id/questions", chatHandler.Ask)
	docGroup.GET("/:id/chats", chatHandler.List)

	return router, nil
}
