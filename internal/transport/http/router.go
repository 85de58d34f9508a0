package httptransport

import (
	"log/slog"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/transport/http/handler"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/transport/http/middleware"
	sloggin "github.com/samber/slog-gin"

	"github.com/gin-gonic/gin"
)

func NewRouter(enqueueHandler *handler.EnqueueHandler, queryHandler *handler.QueryHandler, authHandler *handler.AuthHandler, jwtKey []byte, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(sloggin.New(logger.With("component", "http_access")))
	r.Use(middleware.Security())
	r.Use(middleware.Metrics())

	// Public auth routes.
	r.POST("/auth/magic-link", authHandler.RequestMagicLink)
	r.GET("/auth/verify", authHandler.Verify)

	// Public read-only routes — spec.md treats these collaborators as
	// arbitrary external readers, not operator-scoped.
	r.GET("/jobs", queryHandler.ListJobs)
	r.GET("/jobs/:id", queryHandler.GetJob)
	r.GET("/batches", queryHandler.ListBatches)
	r.GET("/batches/:id", queryHandler.GetBatch)
	r.GET("/repeat-urls", queryHandler.ListRepeatURLs)
	r.GET("/stats", queryHandler.Stats)

	// Mutating routes require a signed operator session.
	protected := r.Group("/", middleware.Auth(jwtKey))
	protected.POST("/batches", enqueueHandler.SubmitBatch)
	protected.POST("/repeat-urls", enqueueHandler.DeclareRepeat)

	return r
}
