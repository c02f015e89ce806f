package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/agentflow/config"
	"github.com/mohammad-safakhou/agentflow/internal/telemetry"
	"github.com/mohammad-safakhou/agentflow/internal/workflow"
)

// Server is the HTTP front end over the workflow orchestrator.
type Server struct {
	cfg    *config.Config
	orch   *workflow.Orchestrator
	tele   *telemetry.Telemetry
	echo   *echo.Echo
	sched  *Scheduler
	logger *log.Logger
}

type executeRequest struct {
	UserRequest string `json:"user_request"`
	RequestID   string `json:"request_id"`
}

func New(cfg *config.Config, orch *workflow.Orchestrator, tele *telemetry.Telemetry) *Server {
	logger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	if tele != nil {
		logger = tele.Logger("HTTP")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie"},
		AllowCredentials: true,
	}))

	s := &Server{cfg: cfg, orch: orch, tele: tele, echo: e, logger: logger}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if tele != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(tele.Registry(), promhttp.HandlerOpts{})))
	}

	wf := e.Group("/workflow")
	if cfg.Server.JWTSecret != "" {
		wf.Use(AuthMiddleware([]byte(cfg.Server.JWTSecret)))
	}
	wf.POST("/execute", s.executeWorkflow)
	wf.GET("/status", s.allStatuses)
	wf.GET("/status/:request_id", s.oneStatus)

	s.sched = NewScheduler(cfg.Workflow.Schedules, orch, nil)
	return s
}

// Echo exposes the router for handler tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start runs the scheduler and blocks serving HTTP.
func (s *Server) Start() error {
	s.sched.Start()
	addr := s.cfg.Server.Address
	if addr == "" {
		addr = ":10001"
	}
	s.logger.Printf("listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown stops the scheduler and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sched.Stop()
	return s.echo.Shutdown(ctx)
}

func (s *Server) executeWorkflow(c echo.Context) error {
	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.UserRequest) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_request is required")
	}
	env := s.orch.Execute(c.Request().Context(), req.UserRequest, req.RequestID)
	return c.JSON(http.StatusOK, env)
}

func (s *Server) oneStatus(c echo.Context) error {
	id := c.Param("request_id")
	st, ok := s.orch.GetStatus(id)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"status": "not_found"})
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) allStatuses(c echo.Context) error {
	return c.JSON(http.StatusOK, s.orch.GetAllStatuses())
}
