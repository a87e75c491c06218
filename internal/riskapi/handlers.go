package riskapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skyrisk/weatherrisk-api/internal/risk/apierr"
	"github.com/skyrisk/weatherrisk-api/internal/risk/export"
	"github.com/skyrisk/weatherrisk-api/internal/risk/model"
)

// Handler serves the risk-assessment HTTP operations.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the risk-assessment routes under /api/v1/risk.
func Register(r *gin.Engine, h *Handler) {
	risk := r.Group("/api/v1/risk")
	{
		risk.GET("/assessment", h.HandleAssessment)
		risk.GET("/export", h.HandleExport)
		risk.GET("/coverage", h.HandleCoverage)
	}
	r.GET("/healthz", h.HandleLiveness)
}

func (h *Handler) HandleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) parseCollectionRequest(c *gin.Context) (CollectionRequest, error) {
	defaults := h.service.Defaults()

	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return CollectionRequest{}, apierr.New(apierr.KindValidationError, "lat must be a number")
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return CollectionRequest{}, apierr.New(apierr.KindValidationError, "lon must be a number")
	}
	date := c.Query("date")
	if date == "" {
		return CollectionRequest{}, apierr.New(apierr.KindValidationError, "date is required (YYYY-MM-DD)")
	}

	hour := defaults.Hour
	if h := c.Query("hour"); h != "" {
		parsed, err := strconv.Atoi(h)
		if err != nil {
			return CollectionRequest{}, apierr.New(apierr.KindValidationError, "hour must be an integer")
		}
		hour = parsed
	}

	windowDays := defaults.WindowDays
	if w := c.Query("windowDays"); w != "" {
		parsed, err := strconv.Atoi(w)
		if err != nil {
			return CollectionRequest{}, apierr.New(apierr.KindValidationError, "windowDays must be an integer")
		}
		windowDays = parsed
	}

	baselineStart := defaults.BaselineStart
	if b := c.Query("baseline_start"); b != "" {
		parsed, err := strconv.Atoi(b)
		if err != nil {
			return CollectionRequest{}, apierr.New(apierr.KindValidationError, "baseline_start must be an integer")
		}
		baselineStart = parsed
	}

	baselineEnd := time.Now().Year() - 1
	if b := c.Query("baseline_end"); b != "" {
		parsed, err := strconv.Atoi(b)
		if err != nil {
			return CollectionRequest{}, apierr.New(apierr.KindValidationError, "baseline_end must be an integer")
		}
		baselineEnd = parsed
	}

	if baselineStart > baselineEnd {
		return CollectionRequest{}, apierr.New(apierr.KindValidationError, "baseline_start must not be after baseline_end")
	}

	return CollectionRequest{
		Lat:           lat,
		Lon:           lon,
		TargetDate:    date,
		TargetHour:    hour,
		WindowDays:    windowDays,
		BaselineStart: baselineStart,
		BaselineEnd:   baselineEnd,
	}, nil
}

func (h *Handler) respondError(c *gin.Context, err error) {
	riskErr, ok := err.(*apierr.RiskError)
	if !ok {
		riskErr = apierr.New(apierr.KindInternal, "unexpected error").WithCause(err)
	}
	h.logger.Error("risk assessment request failed", "kind", riskErr.Kind, "error", riskErr.Error())
	c.JSON(riskErr.HTTPStatus(), gin.H{
		"error": riskErr.Message,
		"kind":  riskErr.Kind,
	})
}

type probabilityJSON struct {
	P             float64             `json:"p"`
	CILow         float64             `json:"ci_low"`
	CIHigh        float64             `json:"ci_high"`
	Level         float64             `json:"level"`
	N             int                 `json:"n"`
	K             int                 `json:"k"`
	CoverageYears int                 `json:"coverage_years"`
	ConditionKind model.ConditionKind `json:"condition_kind"`
	RelativeError float64             `json:"relative_error"`
}

func toProbabilityJSON(p model.ProbabilityResult) probabilityJSON {
	return probabilityJSON{
		P:             p.P,
		CILow:         p.CILow,
		CIHigh:        p.CIHigh,
		Level:         p.Level,
		N:             p.N,
		K:             p.K,
		CoverageYears: p.CoverageYears,
		ConditionKind: p.ConditionKind,
		RelativeError: p.RelativeError(),
	}
}

// HandleAssessment serves GET /api/v1/risk/assessment.
func (h *Handler) HandleAssessment(c *gin.Context) {
	req, err := h.parseCollectionRequest(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	collection, err := h.service.Collect(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	full := c.Query("detail") == "full"
	assessment, err := h.service.Assess(collection, full)
	if err != nil {
		h.respondError(c, err)
		return
	}

	probabilities := make(map[model.ConditionKind]probabilityJSON, len(assessment.Probabilities))
	for kind, result := range assessment.Probabilities {
		probabilities[kind] = toProbabilityJSON(result)
	}

	response := gin.H{
		"probabilities":     probabilities,
		"coverage":          assessment.Coverage,
		"coverageAdequate":  assessment.CoverageAdequate,
		"coverageReport":    assessment.CoverageReport,
		"thresholds":        assessment.Thresholds,
		"zone":              collection.Zone,
	}
	if full {
		response["distributions"] = assessment.Distributions
		response["trends"] = assessment.Trends
	}

	c.JSON(http.StatusOK, response)
}

// HandleExport serves GET /api/v1/risk/export.
func (h *Handler) HandleExport(c *gin.Context) {
	req, err := h.parseCollectionRequest(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	collection, err := h.service.Collect(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	rows := h.service.ExportRows(collection)

	format := c.DefaultQuery("format", "json")
	switch format {
	case "csv":
		body, err := export.ToCSV(rows)
		if err != nil {
			h.respondError(c, apierr.New(apierr.KindInternal, "csv export failed").WithCause(err))
			return
		}
		c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
	case "json":
		body, err := export.ToJSON(rows)
		if err != nil {
			h.respondError(c, apierr.New(apierr.KindInternal, "json export failed").WithCause(err))
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	default:
		h.respondError(c, apierr.New(apierr.KindValidationError, "format must be csv or json"))
	}
}

// HandleCoverage serves GET /api/v1/risk/coverage, the supplemented
// coverage-diagnostic endpoint.
func (h *Handler) HandleCoverage(c *gin.Context) {
	req, err := h.parseCollectionRequest(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	collection, err := h.service.Collect(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.service.CoverageReport(collection))
}
