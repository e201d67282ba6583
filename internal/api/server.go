package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fentz26/leadboard/internal/models"
	"github.com/fentz26/leadboard/internal/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by GET /health. Set at build time.
var Version = "0.1.0-dev"

// Server provides the HTTP API for the lead store.
type Server struct {
	service *Service
	addr    string
	log     *zap.Logger
	engine  *gin.Engine
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, addr string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		service: service,
		addr:    addr,
		log:     log,
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/health", s.health)

	leads := r.Group("/leads")
	leads.GET("", s.listLeads)
	leads.POST("", s.createLead)
	leads.GET("/stats", s.stats)
	leads.GET("/:id", s.getLead)
	leads.PATCH("/:id", s.updateLead)
	leads.DELETE("/:id", s.deleteLead)
	leads.POST("/:id/inspections", s.addInspection)
	leads.GET("/:id/events", s.listEvents)

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.log.Info("starting lead store daemon", zap.String("addr", s.addr), zap.String("version", Version))
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request failed", fields...)
			return
		}
		log.Debug("request", fields...)
	}
}

func (s *Server) health(c *gin.Context) {
	resp := HealthResponse{
		OK:      true,
		DB:      "ok",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.service.Ping(c.Request.Context()); err != nil {
		resp.OK = false
		resp.DB = "error: " + err.Error()
		c.JSON(http.StatusServiceUnavailable, Envelope{
			Data:  resp,
			Error: &ErrorBody{Code: CodeUnavailable, Message: "database unavailable"},
		})
		return
	}
	success(c, http.StatusOK, resp)
}

func (s *Server) listLeads(c *gin.Context) {
	var f store.ListFilter
	if raw := c.Query("status"); raw != "" {
		st, err := models.ParseStatus(raw)
		if err != nil {
			fail(c, http.StatusUnprocessableEntity, CodeInvalidStatus, err.Error())
			return
		}
		f.Status = st
	}
	f.Query = strings.TrimSpace(c.Query("q"))

	leads, err := s.service.ListLeads(c.Request.Context(), f)
	if err != nil {
		s.internalError(c, err)
		return
	}
	success(c, http.StatusOK, leads)
}

func (s *Server) createLead(c *gin.Context) {
	var req CreateLeadRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		fail(c, http.StatusUnprocessableEntity, CodeInvalidStatus, "unknown status")
		return
	}

	lead, err := s.service.CreateLead(c.Request.Context(), req.toLead())
	if err != nil {
		s.internalError(c, err)
		return
	}
	success(c, http.StatusCreated, lead)
}

func (s *Server) getLead(c *gin.Context) {
	lead, err := s.service.GetLead(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.serviceError(c, err)
		return
	}
	success(c, http.StatusOK, lead)
}

func (s *Server) updateLead(c *gin.Context) {
	var req UpdateLeadRequest
	if !s.bind(c, &req) {
		return
	}

	lead, err := s.service.UpdateLead(c.Request.Context(), c.Param("id"), req.toPatch())
	if err != nil {
		s.serviceError(c, err)
		return
	}
	success(c, http.StatusOK, lead)
}

func (s *Server) deleteLead(c *gin.Context) {
	if err := s.service.DeleteLead(c.Request.Context(), c.Param("id")); err != nil {
		s.serviceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addInspection(c *gin.Context) {
	var req AddInspectionRequest
	if !s.bind(c, &req) {
		return
	}

	in := &models.Inspection{
		LeadID:      c.Param("id"),
		ScheduledAt: req.ScheduledAt,
		Inspector:   req.Inspector,
		Findings:    req.Findings,
		Completed:   req.Completed,
	}
	created, err := s.service.AddInspection(c.Request.Context(), in)
	if err != nil {
		s.serviceError(c, err)
		return
	}
	success(c, http.StatusCreated, created)
}

func (s *Server) listEvents(c *gin.Context) {
	// Events outlive deleted leads, so a missing lead is not an error here.
	events, err := s.service.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.internalError(c, err)
		return
	}
	success(c, http.StatusOK, events)
}

func (s *Server) stats(c *gin.Context) {
	counts, err := s.service.Stats(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	success(c, http.StatusOK, counts)
}

// bind decodes and validates the JSON body, writing the error response
// itself when it returns false.
func (s *Server) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidStatus):
			fail(c, http.StatusUnprocessableEntity, CodeInvalidStatus, err.Error())
		case errors.Is(err, models.ErrInvalidEnum):
			fail(c, http.StatusUnprocessableEntity, CodeValidation, err.Error())
		default:
			fail(c, http.StatusBadRequest, CodeInvalidJSON, "invalid JSON body")
		}
		return false
	}
	if verrs := validateStruct(req); verrs != nil {
		failWithDetails(c, http.StatusUnprocessableEntity, CodeValidation, ErrValidation.Error(), verrs)
		return false
	}
	return true
}

func (s *Server) serviceError(c *gin.Context, err error) {
	if errors.Is(err, ErrLeadNotFound) {
		fail(c, http.StatusNotFound, CodeLeadNotFound, "lead not found")
		return
	}
	s.internalError(c, err)
}

func (s *Server) internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, CodeInternal, "internal error")
}
