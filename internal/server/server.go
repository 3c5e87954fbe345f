// Package server exposes a web step over HTTP so messages can be pushed to it
// without a pipeline engine.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/webstep/internal/common"
	"github.com/loykin/webstep/internal/httpc"
	"github.com/loykin/webstep/internal/step"
	"github.com/loykin/webstep/pkg/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Step is the part of *step.Step the server drives.
type Step interface {
	Name() string
	State() step.State
	EntitiesProcessed() int64
	Handle(ctx context.Context, msg message.Message, sink message.Sink) error
}

type Options struct {
	// Gatherer backs GET /metrics. Nil leaves the route unregistered.
	Gatherer prometheus.Gatherer
	Logger   *common.Logger
}

// intakeRequest is the body accepted by POST /messages and POST /control.
type intakeRequest struct {
	Headers map[string]string `json:"headers"`
	Payload []string          `json:"payload"`
}

type intakeResponse struct {
	Messages []message.Message `json:"messages"`
	Error    string            `json:"error,omitempty"`
}

type Server struct {
	engine *gin.Engine
	step   Step
	logger *common.Logger
}

func New(s Step, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	logger := opts.Logger
	if logger == nil {
		logger = common.GetLogger().WithComponent("server")
	}
	srv := &Server{engine: engine, step: s, logger: logger}

	engine.POST("/messages", srv.handleData)
	engine.POST("/control", srv.handleControl)
	engine.GET("/healthz", srv.handleHealth)
	if opts.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	return srv
}

func (s *Server) Handler() http.Handler {
	return s.engine.Handler()
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	hs := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("intake server listening", "addr", addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down intake server")
	return hs.Shutdown(sctx)
}

func (s *Server) handleData(c *gin.Context) {
	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.dispatch(c, message.NewData(req.Headers, req.Payload...))
}

func (s *Server) handleControl(c *gin.Context) {
	var req intakeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	s.dispatch(c, message.NewControl(req.Headers))
}

func (s *Server) dispatch(c *gin.Context, msg message.Message) {
	out := &message.Collector{}
	err := s.step.Handle(c.Request.Context(), msg, out)
	resp := intakeResponse{Messages: out.Messages()}
	if resp.Messages == nil {
		resp.Messages = []message.Message{}
	}
	if err != nil {
		resp.Error = err.Error()
		s.logger.Warn("message handling failed", "message_id", msg.ID, "error", err)
		c.JSON(statusFor(err), resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c *gin.Context) {
	st := s.step.State()
	code := http.StatusOK
	if st != step.StateReady && st != step.StateRunning {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"step":               s.step.Name(),
		"state":              st.String(),
		"entities_processed": s.step.EntitiesProcessed(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, httpc.ErrRemoteCall):
		return http.StatusBadGateway
	case errors.Is(err, step.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
