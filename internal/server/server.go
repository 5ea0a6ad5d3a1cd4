package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/fixctl/internal/auth"
	"github.com/danmuck/fixctl/internal/observability"
	"github.com/danmuck/fixctl/internal/protocol/schema"
	"github.com/danmuck/fixctl/internal/protocol/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

// Session is what the admin surface reads from a live FIX session.
type Session interface {
	Status() session.Status
	Pending() *session.PendingOrders
}

// Admin serves health, session state, pending orders, kinds and metrics.
type Admin struct {
	Name     string
	Addr     string
	Appeared time.Time

	router    *gin.Engine
	sess      Session
	kinds     *schema.Registry
	validator auth.Validator
}

func New(name, addr string, sess Session, kinds *schema.Registry, corsOrigins []string) *Admin {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.AdminMiddleware(name, log.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	if kinds == nil {
		kinds = schema.NewRegistry(schema.Builtins()...)
	}
	a := &Admin{
		Name:     name,
		Addr:     addr,
		Appeared: time.Now(),
		router:   r,
		sess:     sess,
		kinds:    kinds,
	}
	a.registerRoutes()
	return a
}

// RequireToken guards the session and kinds routes with a bearer token.
// /health and /metrics stay open.
func (a *Admin) RequireToken(v auth.Validator) {
	a.validator = v
}

func (a *Admin) authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.validator == nil {
			c.Next()
			return
		}
		if err := auth.CheckHeader(a.validator, c.GetHeader("Authorization")); err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

func (a *Admin) HTTPRouter() *gin.Engine {
	return a.router
}

// Serve listens until ctx is done, then shuts down gracefully.
func (a *Admin) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.Addr).Str("service", a.Name).Msg("admin server listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
