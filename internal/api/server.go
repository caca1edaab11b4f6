// Package api exposes the trust engine over HTTP. Handlers stay thin:
// they decode requests, delegate to the application services, and map
// domain errors onto status codes.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/attest-ml/go-attest/internal/application"
	"github.com/attest-ml/go-attest/internal/domain"
)

// Server routes HTTP requests to the application services.
type Server struct {
	explain     *application.ExplainService
	calibration *application.CalibrationService
	snapshots   *application.SnapshotService
	logger      *zap.Logger
}

// NewServer creates the HTTP server facade. Any service may be nil,
// in which case its routes respond with 503; this lets a deployment
// run, say, metrics aggregation without a model attached.
func NewServer(
	explain *application.ExplainService,
	calibration *application.CalibrationService,
	snapshots *application.SnapshotService,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		explain:     explain,
		calibration: calibration,
		snapshots:   snapshots,
		logger:      logger.Named("api"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/explain", s.requireService(s.explain == nil), s.handleExplain)
		v1.GET("/calibration", s.requireService(s.calibration == nil), s.handleCalibrationState)
		v1.POST("/calibration/records", s.requireService(s.calibration == nil), s.handleCalibrationIngest)
		v1.POST("/calibration/fit", s.requireService(s.calibration == nil), s.handleCalibrationFit)
		v1.POST("/records", s.requireService(s.snapshots == nil), s.handleRecordsIngest)
		v1.GET("/metrics/snapshot", s.requireService(s.snapshots == nil), s.handleSnapshot)
	}
	return r
}

// requireService short-circuits routes whose backing service is not
// configured in this deployment.
func (s *Server) requireService(missing bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if missing {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "service not configured in this deployment"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps domain errors to HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.Is(err, domain.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrStochasticUnsupported):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, application.ErrNotCalibrated):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
