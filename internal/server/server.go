// Package server exposes the speech evaluation pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/valpere/speechjudge/internal/evaluator"
	"github.com/valpere/speechjudge/internal/logging"
	"github.com/valpere/speechjudge/internal/transcriber"
)

const shutdownTimeout = 10 * time.Second

// Evaluator runs the pipeline. *evaluator.Evaluator satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, inputs []transcriber.AudioInput, opts transcriber.Options) (*evaluator.Evaluation, error)
}

// LanguageChecker compares a transcript with a language hint and returns the
// detected language. *validator.Validator satisfies it.
type LanguageChecker interface {
	Transcript(text, hint string) (string, error)
}

// Config configures the HTTP API.
type Config struct {
	Addr        string
	MaxUploadMB int64
	// Options are the transcription defaults; a request may override the
	// language.
	Options      transcriber.Options
	SystemPrompt string
}

// Server is the HTTP front end of the evaluator.
type Server struct {
	engine *gin.Engine
	eval   Evaluator
	langs  LanguageChecker
	config Config
	log    zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithLanguageChecker enables transcript language detection.
func WithLanguageChecker(lc LanguageChecker) Option {
	return func(s *Server) { s.langs = lc }
}

// New creates a Server with routes registered.
func New(eval Evaluator, cfg Config, opts ...Option) (*Server, error) {
	if eval == nil {
		return nil, errors.New("server: evaluator is required")
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 200
	}

	s := &Server{
		eval:   eval,
		config: cfg,
		log:    logging.Component("server"),
	}
	for _, o := range opts {
		o(s)
	}

	if s.log.GetLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.engine = gin.New()
	s.engine.MaxMultipartMemory = 32 << 20
	s.engine.Use(s.recovery(), requestID(), s.requestLogger())
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/v1/rubric", s.rubric)
	s.engine.POST("/v1/evaluations", s.createEvaluation)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on l until ctx is canceled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", l.Addr().String()).Msg("HTTP server started")
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return <-errCh
}
