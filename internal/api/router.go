package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/docuchat/admin-gateway/docs"
	"github.com/docuchat/admin-gateway/internal/api/handler"
	"github.com/docuchat/admin-gateway/internal/api/middleware"
	"github.com/docuchat/admin-gateway/internal/core/ports"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(session ports.SessionManager, docs ports.DocumentService, chat ports.ChatService, rdb *redis.Client, db *mongo.Database, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("docuchat_admin"))

	// --- Handlers ---
	sessionHandler := handler.NewSessionHandler(session)
	documentHandler := handler.NewDocumentHandler(docs)
	chatHandler := handler.NewChatHandler(chat)
	requireReady := middleware.RequireReady(session)

	// --- Session routes (ungated: they drive the login flow) ---
	e.GET("/api/session", sessionHandler.State)
	e.GET("/api/session/watch", sessionHandler.Watch)
	e.POST("/api/session/login", sessionHandler.Login)
	e.POST("/api/session/refresh", sessionHandler.Refresh)
	e.DELETE("/api/session", sessionHandler.Logout)

	// --- Proxied admin routes (require a ready upstream session) ---
	docsGroup := e.Group("/api/documents", requireReady)
	docsGroup.GET("", documentHandler.List)
	docsGroup.POST("", documentHandler.Upload)
	docsGroup.GET("/types", documentHandler.Types)
	docsGroup.GET("/search/user", documentHandler.SearchByUser)
	docsGroup.GET("/search/department", documentHandler.SearchByDepartment)
	docsGroup.PUT("/:id", documentHandler.Update)
	docsGroup.DELETE("/:id", documentHandler.Delete)

	e.GET("/api/users", documentHandler.Users, requireReady)
	e.GET("/api/departments", documentHandler.Departments, requireReady)

	chatGroup := e.Group("/api/chat", requireReady)
	chatGroup.POST("", chatHandler.Ask)
	chatGroup.GET("/:id", chatHandler.History)

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(rdb, db)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	return e
}
