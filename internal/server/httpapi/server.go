// Package httpapi exposes the multipart upload gateway over HTTP using gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrijs2005/casupload/internal/api"
	"github.com/dmitrijs2005/casupload/internal/logging"
	"github.com/dmitrijs2005/casupload/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// formOverhead is allowed on top of the part itself for the other multipart
// fields and boundaries.
const formOverhead = 1 << 20

// defaultFormMemory is used when parts are unbounded; larger forms spill to
// temporary files.
const defaultFormMemory = 32 << 20

type uploadService interface {
	Begin(ctx context.Context, subject, key string) (string, error)
	UploadPart(ctx context.Context, subject, key, uploadID string, partNumber int, data []byte) (string, error)
	Complete(ctx context.Context, subject, key, uploadID string, parts []api.Part) (string, error)
	Abort(ctx context.Context, subject, key, uploadID string) error
	Open(ctx context.Context, key string) (*services.Object, error)
}

type Options struct {
	SecretKey   string
	MaxPartSize int64
	CORSOrigins []string
}

type Server struct {
	address     string
	uploads     uploadService
	logger      logging.Logger
	jwtSecret   []byte
	maxPartSize int64
	engine      *gin.Engine
}

func NewServer(address string, uploads uploadService, l logging.Logger, opts Options) *Server {
	s := &Server{
		address:     address,
		uploads:     uploads,
		logger:      l.With("module", "http_server"),
		jwtSecret:   []byte(opts.SecretKey),
		maxPartSize: opts.MaxPartSize,
	}

	r := gin.New()
	r.MaxMultipartMemory = s.formMemory()
	r.Use(gin.Recovery(), s.requestLogger())
	if c, ok := corsConfig(opts.CORSOrigins); ok {
		r.Use(cors.New(c))
	}

	g := r.Group("/", s.bearerAuth())
	g.POST(api.RouteStart, s.start)
	g.PUT(api.RouteUploadPart, s.uploadPart)
	g.POST(api.RouteComplete, s.complete)
	g.POST(api.RouteAbort, s.abort)

	r.GET(api.RouteFiles+"/:key", s.files)

	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func corsConfig(origins []string) (cors.Config, bool) {
	if len(origins) == 0 {
		return cors.Config{}, false
	}

	c := cors.DefaultConfig()
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	c.AddAllowHeaders("Authorization")
	if slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c, true
}
