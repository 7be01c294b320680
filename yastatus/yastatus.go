// Package yastatus serves the bot lifecycle state over HTTP.
//
//	GET /healthz  200 once plugins are initialized, 503 before
//	GET /plugins  init outcome of every plugin
package yastatus

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const readHeaderTimeout = 5 * time.Second

// Source is what the status surface reports on. *yabot.BotAPI implements it.
type Source interface {
	State() yabot.State
	PluginStatuses() []yabot.PluginStatus
}

// Health is the /healthz body.
type Health struct {
	State string `json:"state"`
}

// Plugins is the /plugins body.
type Plugins struct {
	State   string               `json:"state"`
	Plugins []yabot.PluginStatus `json:"plugins"`
}

// NewRouter builds the gin engine.
func NewRouter(source Source, log yalogger.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))

	engine.GET("/healthz", func(c *gin.Context) {
		state := source.State()

		code := http.StatusOK
		if state != yabot.StateReady {
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, Health{State: state.String()})
	})

	engine.GET("/plugins", func(c *gin.Context) {
		c.JSON(http.StatusOK, Plugins{
			State:   source.State().String(),
			Plugins: source.PluginStatuses(),
		})
	})

	return engine
}

func requestLogger(log yalogger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		c.Next()

		log.WithRequestUUID(uuid.New()).Debugf(
			"%s %s -> %d (%s)",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(started),
		)
	}
}

// Server runs the status router on its own listener.
type Server struct {
	server *http.Server
	log    yalogger.Logger
}

// New creates a Server listening on addr.
//
// Example usage:
//
//	status := yastatus.New(":8080", bot, log)
//	status.Start()
//	defer status.Shutdown(ctx)
func New(addr string, source Source, log yalogger.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(source, log),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		log: log,
	}
}

// Start serves in the background. A listener failure is logged.
func (s *Server) Start() {
	go func() {
		s.log.Infof("Status server listening on %s", s.server.Addr)

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("Status server stopped: %v", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) yaerrors.Error {
	if err := s.server.Shutdown(ctx); err != nil {
		return yaerrors.FromError(http.StatusInternalServerError, err, "failed to shutdown status server")
	}

	return nil
}
