package app

import (
	"bitwise74/paste-api/app/document"
	"bitwise74/paste-api/app/paste"
	"bitwise74/paste-api/app/root"
	"bitwise74/paste-api/aws"
	"bitwise74/paste-api/db"
	"bitwise74/paste-api/internal"
	"bitwise74/paste-api/internal/service"
	"bitwise74/paste-api/middleware"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

func NewRouter(ctx context.Context) (*gin.Engine, error) {
	d := &internal.Deps{}

	makeLogger()

	database, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	d.DB = database

	s3, err := aws.NewS3()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
	}
	d.S3 = s3

	router := gin.New()

	origins := strings.Split(viper.GetString("host.cors"), ",")

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	rateLimit := viper.GetInt("security.rate_limit")
	auth := middleware.NewPasteAuthMiddleware(database)
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
		CleanupInterval:   time.Second,
	})

	// Content arrives as JSON, so allow some envelope overhead on top of the
	// aggregate content limit
	bodyLimit := middleware.BodySizeLimiter(viper.GetInt64("paste.max_total_size") + 1<<20)

	m := router.Group("/api", rateLimiter)
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/config		-> Returns the configured paste limits
		m.GET("/config", root.Config)
	}

	p := m.Group("/pastes", bodyLimit)
	{
		// POST /api/pastes		-> Creates a paste, returns its token once
		p.POST("", func(c *gin.Context) { paste.PasteCreate(c, d) })

		// GET /api/pastes/bulk		-> Returns several pastes, without content
		p.GET("/bulk", func(c *gin.Context) { paste.PasteFetchBulk(c, d) })

		// GET /api/pastes/:id		-> Returns a paste, counts a view
		p.GET("/:id", func(c *gin.Context) { paste.PasteFetch(c, d) })

		// PATCH /api/pastes/:id	-> Partially updates a paste
		p.PATCH("/:id", auth, func(c *gin.Context) { paste.PastePatch(c, d) })

		// DELETE /api/pastes/:id	-> Deletes a paste with its documents
		p.DELETE("/:id", auth, func(c *gin.Context) { paste.PasteDelete(c, d) })
	}

	docs := p.Group("/:id/documents")
	{
		// GET /api/pastes/:id/documents/:documentID	-> Returns one document, counts a view
		docs.GET("/:documentID", func(c *gin.Context) { document.DocumentFetch(c, d) })

		// POST /api/pastes/:id/documents		-> Adds a document to a paste
		docs.POST("", auth, func(c *gin.Context) { document.DocumentCreate(c, d) })

		// PATCH /api/pastes/:id/documents/:documentID	-> Updates one document
		docs.PATCH("/:documentID", auth, func(c *gin.Context) { document.DocumentPatch(c, d) })

		// DELETE /api/pastes/:id/documents/:documentID	-> Removes one document, never the last
		docs.DELETE("/:documentID", auth, func(c *gin.Context) { document.DocumentDelete(c, d) })
	}

	cleanupTick := time.Duration(viper.GetInt("cleanup.interval_minutes")) * time.Minute
	service.ExpiryCleanup(ctx, cleanupTick, d)

	return router, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
