package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attest-ml/go-attest/internal/application"
	"github.com/attest-ml/go-attest/internal/domain"
)

// explainRequest is the wire form of one explanation request.
type explainRequest struct {
	Image           imagePayload `json:"image" binding:"required"`
	WithUncertainty bool         `json:"with_uncertainty"`
}

type imagePayload struct {
	Width    int       `json:"width" binding:"required,gt=0"`
	Height   int       `json:"height" binding:"required,gt=0"`
	Channels int       `json:"channels" binding:"required,gt=0"`
	Pixels   []float64 `json:"pixels" binding:"required,min=1"`
}

func (p imagePayload) toDomain() (domain.Image, bool) {
	if len(p.Pixels) != p.Width*p.Height*p.Channels {
		return domain.Image{}, false
	}
	return domain.Image{
		Width:    p.Width,
		Height:   p.Height,
		Channels: p.Channels,
		Pixels:   p.Pixels,
	}, true
}

func (s *Server) handleExplain(c *gin.Context) {
	var req explainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	img, ok := req.Image.toDomain()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pixel buffer does not match declared resolution"})
		return
	}

	payload, err := s.explain.Explain(c.Request.Context(), application.ExplainRequest{
		Image:           img,
		WithUncertainty: req.WithUncertainty,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handleCalibrationState(c *gin.Context) {
	model, err := s.calibration.Latest()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

// calibrationRecordPayload is the wire form of one held-out
// observation. Logits and TrueLabel are optional; records without them
// participate in ECE only.
type calibrationRecordPayload struct {
	Confidence float64   `json:"confidence" binding:"min=0,max=1"`
	Correct    bool      `json:"correct"`
	Logits     []float64 `json:"logits,omitempty"`
	TrueLabel  *int      `json:"true_label,omitempty"`
}

func (s *Server) handleCalibrationIngest(c *gin.Context) {
	var req struct {
		Records []calibrationRecordPayload `json:"records" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records := make([]domain.CalibrationRecord, 0, len(req.Records))
	for _, p := range req.Records {
		r := domain.CalibrationRecord{
			Confidence: p.Confidence,
			Correct:    p.Correct,
			Logits:     p.Logits,
			TrueLabel:  -1,
		}
		if p.TrueLabel != nil {
			r.TrueLabel = *p.TrueLabel
		}
		records = append(records, r)
	}

	if err := s.calibration.Ingest(c.Request.Context(), records); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ingested": len(records)})
}

func (s *Server) handleCalibrationFit(c *gin.Context) {
	model, err := s.calibration.Fit(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

func (s *Server) handleRecordsIngest(c *gin.Context) {
	var req struct {
		Records []domain.InspectionRecord `json:"records" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for i, r := range req.Records {
		if r.CapturedAt.IsZero() {
			req.Records[i].CapturedAt = time.Now().UTC()
		}
	}
	if err := s.snapshots.Ingest(c.Request.Context(), req.Records); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ingested": len(req.Records)})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	from, err := parseTimeParam(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
		return
	}
	to, err := parseTimeParam(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
		return
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	snap, err := s.snapshots.Snapshot(c.Request.Context(), from, to, c.Query("label"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func parseTimeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
