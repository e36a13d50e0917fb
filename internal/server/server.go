package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/shinyyama/marketplace-backend/internal/directory"
	"github.com/shinyyama/marketplace-backend/internal/events"
	"github.com/shinyyama/marketplace-backend/internal/handler"
	"github.com/shinyyama/marketplace-backend/internal/logging"
	appmw "github.com/shinyyama/marketplace-backend/internal/middleware"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/repository"
	"github.com/shinyyama/marketplace-backend/internal/service"
	"gorm.io/gorm"
)

type Deps struct {
	DB             *gorm.DB
	Directory      directory.Directory
	Verifier       appmw.TokenVerifier
	Bus            events.Bus
	Logger         zerolog.Logger
	AllowedOrigins []string // host suffixes, e.g. "vercel.app"
	GitSHA         string
	BuildTime      string
}

type Server struct {
	e *echo.Echo
}

func New(d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(logging.Middleware(d.Logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", logging.HeaderRequestID},
		ExposeHeaders:    []string{logging.HeaderRequestID},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			return AllowOrigin(origin, d.AllowedOrigins), nil
		},
	}))

	bus := d.Bus
	if bus == nil {
		bus = events.Noop{}
	}
	dir := d.Directory
	if dir == nil {
		dir = directory.NewStore(repository.NewUserRepository(d.DB), repository.NewProductRepository(d.DB), nil)
	}

	convRepo := repository.NewConversationRepository(d.DB)
	msgRepo := repository.NewMessageRepository(d.DB)
	notifRepo := repository.NewNotificationRepository(d.DB)

	convSvc := service.NewConversationService(convRepo, msgRepo, dir)
	notifSvc := service.NewNotificationService(notifRepo, dir)
	msgSvc := service.NewMessageService(convSvc, msgRepo, dir, notifSvc, bus)

	convHandler := handler.NewConversationHandler(convSvc, msgSvc)
	notifHandler := handler.NewNotificationHandler(notifSvc)
	userHandler := handler.NewUserHandler(dir)
	streamHandler := handler.NewStreamHandler(convSvc, bus, func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || AllowOrigin(origin, d.AllowedOrigins)
	})

	authMw := appmw.NewAuthMiddleware(d.Verifier)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    d.GitSHA,
			"build_time": d.BuildTime,
		})
	})

	api := e.Group("/api")
	api.GET("/users/:uid/public", userHandler.GetPublic)

	authed := api.Group("", authMw.RequireAuth)
	authed.GET("/conversations", convHandler.List)
	authed.POST("/conversations", convHandler.Create)
	authed.GET("/conversations/:id", convHandler.Get)
	authed.GET("/conversations/:id/messages", convHandler.ListMessages)
	authed.POST("/conversations/:id/messages", convHandler.CreateMessage)
	authed.DELETE("/conversations/:id/messages/:msgId", convHandler.DeleteMessage)
	authed.PUT("/conversations/:id/read", convHandler.MarkRead)
	authed.POST("/conversations/:id/read", convHandler.MarkRead)
	authed.GET("/conversations/:id/stream", streamHandler.Stream)
	authed.POST("/products/:id/conversations", convHandler.CreateFromProduct)
	authed.GET("/notifications", notifHandler.List)
	authed.POST("/notifications/read", notifHandler.MarkAllRead)

	admin := authed.Group("/admin", authMw.RequireRole(model.RoleAdmin))
	admin.POST("/notifications", notifHandler.SendAdminNotice)

	return &Server{e: e}
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// AllowOrigin accepts local development origins and any http(s) origin
// whose host ends with one of the suffixes.
func AllowOrigin(origin string, suffixes []string) bool {
	low := strings.ToLower(origin)
	if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
		strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, suffix := range suffixes {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix == "" {
			continue
		}
		if host == suffix || strings.HasSuffix(host, "."+strings.TrimPrefix(suffix, ".")) {
			return true
		}
	}
	return false
}
