package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/puntogafas/order-intake/internal/common"
	"github.com/puntogafas/order-intake/internal/entity"
	"github.com/puntogafas/order-intake/internal/export"
	"github.com/puntogafas/order-intake/internal/repository"
)

// Server is the HTTP front door: job intake, job inspection, health, and
// the verification-queue export. Pipeline execution happens in the worker,
// never in a request handler.
type Server struct {
	pool   *pgxpool.Pool
	jobs   repository.JobRepository
	export *export.Service
	logger *slog.Logger
}

func New(pool *pgxpool.Pool, jobs repository.JobRepository, exportSvc *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{pool: pool, jobs: jobs, export: exportSvc, logger: logger}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)
	r.POST("/jobs", s.createJob)
	r.GET("/jobs/:id", s.getJob)
	r.GET("/exports/orders.xlsx", s.exportOrders)

	return r
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	if err := repository.HealthCheck(c.Request.Context(), s.pool, 3*time.Second, s.logger); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "order-intake"})
}

// createJobRequest is the intake payload from the conversation frontend.
type createJobRequest struct {
	ConversationID string            `json:"conversation_id"`
	CustomerID     string            `json:"customer_id" binding:"required"`
	SedeID         string            `json:"sede_id"`
	RequestedBy    string            `json:"requested_by"`
	Payload        entity.JobPayload `json:"payload" binding:"required"`
}

func (s *Server) createJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job payload: " + err.Error()})
		return
	}

	job := &entity.Job{
		ConversationID: req.ConversationID,
		CustomerID:     req.CustomerID,
		SedeID:         req.SedeID,
		RequestedBy:    req.RequestedBy,
		Payload:        req.Payload,
	}
	id, err := s.jobs.Enqueue(c.Request.Context(), job)
	if err != nil {
		s.logger.Error("job intake failed", "customer_id", req.CustomerID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not enqueue job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": id, "status": "pending"})
}

func (s *Server) getJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := s.jobs.GetByID(c.Request.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		s.logger.Error("job lookup failed", "job_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load job"})
		return
	}

	c.JSON(http.StatusOK, job)
}

func (s *Server) exportOrders(c *gin.Context) {
	from, ok := parseDateParam(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(c, "to")
	if !ok {
		return
	}

	data, err := s.export.ExportOrderDraftsXLSX(c.Request.Context(), from, to)
	if err != nil {
		s.logger.Error("export failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="pedidos-ia.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func parseDateParam(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be YYYY-MM-DD"})
		return nil, false
	}
	return &t, true
}
