package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/chatdemo/chatdemo-go/internal/config"
	"github.com/chatdemo/chatdemo-go/internal/errs"
	"github.com/chatdemo/chatdemo-go/internal/guardrails"
	"github.com/chatdemo/chatdemo-go/internal/metrics"
	"github.com/chatdemo/chatdemo-go/internal/pipeline"
	"github.com/chatdemo/chatdemo-go/internal/prompt"
	"github.com/chatdemo/chatdemo-go/internal/routing"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	placeholder     = "Search the topic you want"
)

type Server struct {
	cfg       *config.Config
	engine    *gin.Engine
	router    *routing.Router
	guards    *guardrails.Guardrails
	usage     *metrics.Usage
	pipelines map[string]*pipeline.Pipeline
	logger    *slog.Logger
}

// New builds one pipeline per routed backend and registers the routes.
func New(cfg *config.Config, rt *routing.Router, tmpl *prompt.ChatTemplate, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, ok := rt.Default(); !ok {
		return nil, errs.New(errs.ConfigurationMissing, "server: no backend registered", nil)
	}
	pipelines := make(map[string]*pipeline.Pipeline)
	for _, m := range rt.Models() {
		e, _ := rt.Lookup(m.Name)
		p, err := pipeline.Chain(tmpl, e.Provider, e.Model.Model,
			pipeline.WithBackend(m.Name), pipeline.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		pipelines[m.Name] = p
	}

	page, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(page)

	srv := &Server{
		cfg:       cfg,
		engine:    r,
		router:    rt,
		guards:    guardrails.New(cfg.Guardrails.Banned, cfg.Guardrails.MaxLength),
		usage:     metrics.NewUsage(),
		pipelines: pipelines,
		logger:    logger,
	}
	r.Use(srv.requestLogger())
	srv.registerRoutes()
	return srv, nil
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.index)
	s.engine.GET("/b/:backend", s.index)
	s.engine.GET("/healthz", s.health)

	api := s.engine.Group("/v1")
	api.POST("/ask", s.ask)
	api.GET("/backends", s.listBackends)
	api.GET("/stats", s.stats)
}

// Handler returns the instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.engine, "chatdemo")
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	s.logger.Info("listening", "address", s.cfg.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()
		s.logger.InfoContext(c.Request.Context(), "http request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

// entry resolves the backend named in the path, or the default one.
func (s *Server) entry(name string) (routing.Entry, bool) {
	if name == "" {
		return s.router.Default()
	}
	return s.router.Lookup(name)
}

func (s *Server) run(ctx context.Context, c *gin.Context, backend, question string) (*pipeline.Answer, error) {
	if err := s.guards.CheckInput(question); err != nil {
		s.logger.InfoContext(ctx, "input rejected", "request_id", c.GetString(requestIDKey), "err", err)
		return nil, err
	}
	p := s.pipelines[backend]
	a, err := p.Ask(ctx, pipeline.PromptRequest{ID: c.GetString(requestIDKey), Question: question})
	if err != nil {
		s.usage.Record(backend, 0, 0, err)
		return nil, err
	}
	s.usage.Record(backend, a.Usage.Total(), a.Elapsed, nil)
	return a, nil
}

func statusFor(err error) int {
	switch errs.CodeOf(err) {
	case errs.InputRejected:
		return http.StatusBadRequest
	case errs.BackendUnavailable:
		return http.StatusServiceUnavailable
	case errs.BackendError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
