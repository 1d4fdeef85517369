package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/manager"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
	binding.EnableDecoderDisallowUnknownFields = true
}

// TaskManager is the set of lifecycle operations served over HTTP
type TaskManager interface {
	List(ctx context.Context) ([]types.TaskView, error)
	Create(ctx context.Context, req manager.CreateRequest) (*types.LaunchResult, error)
	Stop(ctx context.Context, taskARN string) (*types.Task, error)
	Delete(ctx context.Context, name, taskARN string) error
}

// Server serves the task API along with health and metrics endpoints
type Server struct {
	manager TaskManager
	broker  *events.Broker
	engine  *gin.Engine
	logger  zerolog.Logger

	// streams is cancelled by Shutdown to end open /v1/events responses,
	// which http.Server.Shutdown would otherwise wait on
	streams      context.Context
	closeStreams context.CancelFunc

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a new API server
func NewServer(mgr TaskManager) *Server {
	engine := gin.New()
	// Task ARNs contain '/', so clients send them as %2F
	engine.UseRawPath = true
	engine.UnescapePathValues = true
	engine.HandleMethodNotAllowed = true

	s := &Server{
		manager: mgr,
		engine:  engine,
		logger:  log.WithComponent("api"),
	}
	s.streams, s.closeStreams = context.WithCancel(context.Background())

	engine.Use(s.requestID(), s.instrument(), gin.Recovery())

	v1 := engine.Group("/v1")
	v1.GET("/tasks", s.listTasks)
	v1.POST("/tasks", s.createTask)
	v1.POST("/tasks/:arn/stop", s.stopTask)
	v1.DELETE("/tasks/:name", s.deleteTask)
	v1.GET("/events", s.streamEvents)

	engine.GET("/health", gin.WrapF(metrics.HealthHandler()))
	engine.GET("/ready", gin.WrapF(metrics.ReadyHandler()))
	engine.GET("/live", gin.WrapF(metrics.LivenessHandler()))
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	return s
}

// SetEvents enables the event stream at /v1/events
func (s *Server) SetEvents(b *events.Broker) {
	s.broker = b
}

// Handler returns the HTTP handler for embedding in other servers
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.engine, "burrow-api")
}

// Start serves on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: /v1/events responses stay open
	}
	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	s.logger.Info().Str("addr", addr).Msg("API server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown ends open event streams, stops accepting requests and waits for
// in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeStreams()

	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
