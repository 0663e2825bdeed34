// Package dashboard serves the simulation web UI and its JSON API.
package dashboard

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/makey/solar-forecast/internal/cache"
	"github.com/makey/solar-forecast/internal/config"
	"github.com/makey/solar-forecast/internal/lead"
	"github.com/makey/solar-forecast/internal/projection"
	"github.com/makey/solar-forecast/pkg/constants"
	"github.com/makey/solar-forecast/pkg/output"
	"github.com/makey/solar-forecast/pkg/report"
	"github.com/makey/solar-forecast/pkg/validation"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed static/*
var staticFiles embed.FS

// errProjectionOverflow is returned when inputs are so large the projection
// leaves the range of float64.
var errProjectionOverflow = errors.New("inputs are too large to project")

// Options holds the collaborators of the dashboard handler. Nil collaborators
// are replaced with in-memory defaults.
type Options struct {
	Logger      *zap.Logger
	Config      *config.Configuration
	MaxBodySize int64
	Version     string
	Cache       cache.Cache
	Leads       lead.Store
	Limiter     *RateLimiter
	Now         func() time.Time

	// ExposeEvaluations serves the stored evaluation requests, contact
	// details included, on GET /api/evaluations.
	ExposeEvaluations bool
}

type handler struct {
	logger      *zap.Logger
	conf        *config.Configuration
	maxBodySize int64
	version     string
	cache       cache.Cache
	leads       lead.Store
	limiter     *RateLimiter
	now         func() time.Time
}

// NewHandler constructs the HTTP handler that serves the web UI and projection API.
func NewHandler(opts Options) http.Handler {
	h := &handler{
		logger:      opts.Logger,
		conf:        opts.Config,
		maxBodySize: opts.MaxBodySize,
		version:     strings.TrimSpace(opts.Version),
		cache:       opts.Cache,
		leads:       opts.Leads,
		limiter:     opts.Limiter,
		now:         opts.Now,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.conf == nil {
		h.conf = config.Default()
	}
	if h.maxBodySize <= 0 {
		h.maxBodySize = constants.DefaultMaxBodySizeBytes
	}
	if h.version == "" {
		h.version = "dev"
	}
	if h.cache == nil {
		h.cache = cache.NewMemory(1024)
	}
	if h.leads == nil {
		h.leads = lead.NewMemoryStore()
	}
	if h.now == nil {
		h.now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(h.limitBody)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.handleVersion)
		r.Get("/health", h.handleHealth)
		r.Get("/settings", h.handleSettings)

		r.Get("/projection", h.handleProjectionQuery)
		r.Post("/projection", h.handleProjectionJSON)
		r.Get("/projection.csv", h.handleProjectionCSV)
		r.Get("/report.pdf", h.handleReportPDF)

		r.Post("/inputs/export", h.handleInputsExport)

		r.With(h.rateLimit).Post("/evaluations", h.handleCreateEvaluation)
		if opts.ExposeEvaluations {
			r.Get("/evaluations", h.handleListEvaluations)
		}
	})

	// Static assets (web UI)
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	r.Handle("/*", http.FileServer(http.FS(sub)))

	return r
}

type projectionPayload struct {
	output.Report
	Factors  []output.Factor `json:"factors"`
	CSV      string          `json:"csv"`
	Warnings []string        `json:"warnings,omitempty"`
}

type projectionResponse struct {
	projectionPayload
	Duration string `json:"duration"`
	Cached   bool   `json:"cached"`
}

type settingsResponse struct {
	Dashboard config.DashboardConfig `json:"dashboard"`
	Defaults  projection.Inputs      `json:"defaults"`
	Program   projection.Parameters  `json:"program"`
	Team      []config.TeamMember    `json:"team"`
	Version   string                 `json:"version"`
}

type evaluationPayload struct {
	Contact lead.Contact       `json:"contact"`
	Inputs  *projection.Inputs `json:"inputs,omitempty"`
}

type evaluationResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request served",
			zap.String("op", "dashboard.request"),
			zap.String("requestId", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (h *handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	team := h.conf.Team
	if team == nil {
		team = []config.TeamMember{}
	}
	h.writeJSON(w, http.StatusOK, settingsResponse{
		Dashboard: h.conf.Dashboard,
		Defaults:  h.conf.Inputs,
		Program:   h.conf.Program,
		Team:      team,
		Version:   h.version,
	})
}

func (h *handler) handleProjectionQuery(w http.ResponseWriter, r *http.Request) {
	const op = "dashboard.handleProjectionQuery"

	in, err := h.inputsFromQuery(r.URL.Query())
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.runProjection(w, r, in, op)
}

func (h *handler) handleProjectionJSON(w http.ResponseWriter, r *http.Request) {
	const op = "dashboard.handleProjectionJSON"

	in := h.conf.Inputs
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondDecodeError(w, err, op)
		return
	}
	if err := validation.ValidateInputs(in); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.runProjection(w, r, in, op)
}

func (h *handler) runProjection(w http.ResponseWriter, r *http.Request, in projection.Inputs, op string) {
	start := time.Now()
	ctx := r.Context()
	key := cache.Key(in, h.conf.Program)

	var response projectionResponse
	if raw, ok := h.cache.Get(ctx, key); ok {
		if err := json.Unmarshal([]byte(raw), &response.projectionPayload); err == nil {
			response.Cached = true
		} else {
			h.logger.Warn("discarding unreadable cached projection",
				zap.String("op", op),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	if !response.Cached {
		payload, err := h.buildPayload(in)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		response.projectionPayload = payload
		h.storePayload(ctx, key, payload, op)
	}

	elapsed := time.Since(start)
	response.Duration = elapsed.String()

	h.logger.Info("projection computed",
		zap.String("op", op),
		zap.Float64("monthlyCost", in.MonthlyCostNow),
		zap.Float64("inflationPercent", in.AnnualInflationPercent),
		zap.Float64("systemCost", in.TotalSystemCost),
		zap.Bool("cached", response.Cached),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) buildPayload(in projection.Inputs) (projectionPayload, error) {
	p, err := h.calculate(in)
	if err != nil {
		return projectionPayload{}, err
	}
	return projectionPayload{
		Report:   output.NewReport(p),
		Factors:  output.SuccessFactors(p),
		CSV:      output.CsvString(p),
		Warnings: validation.InputWarnings(in, h.conf.Dashboard.Bounds()),
	}, nil
}

func (h *handler) storePayload(ctx context.Context, key string, payload projectionPayload, op string) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("failed to encode projection for cache", zap.String("op", op), zap.Error(err))
		return
	}
	if err := h.cache.Set(ctx, key, string(data)); err != nil {
		h.logger.Warn("failed to cache projection", zap.String("op", op), zap.Error(err))
	}
}

func (h *handler) calculate(in projection.Inputs) (projection.Projection, error) {
	p, err := projection.CalculateWith(in, h.conf.Program)
	if err != nil {
		return projection.Projection{}, err
	}
	final := p.Final()
	if math.IsInf(final.CumulativeTraditionalSpend, 0) || math.IsInf(final.CumulativeSolarSpend, 0) ||
		math.IsNaN(final.NetAccumulatedBenefit) {
		return projection.Projection{}, errProjectionOverflow
	}
	return p, nil
}

func (h *handler) handleProjectionCSV(w http.ResponseWriter, r *http.Request) {
	const op = "dashboard.handleProjectionCSV"

	in, err := h.inputsFromQuery(r.URL.Query())
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	p, err := h.calculate(in)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="proyeccion.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := output.CsvFormat(w, p); err != nil {
		h.logger.Error("failed to write CSV response", zap.String("op", op), zap.Error(err))
	}
}

func (h *handler) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	const op = "dashboard.handleReportPDF"

	in, err := h.inputsFromQuery(r.URL.Query())
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	p, err := h.calculate(in)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	data, err := report.GeneratePDF(p, report.Details{
		Title:       h.conf.Dashboard.Title,
		Team:        h.conf.Team,
		GeneratedAt: h.now(),
	})
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="proyeccion.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("failed to write PDF response", zap.String("op", op), zap.Error(err))
	}
}

func (h *handler) handleInputsExport(w http.ResponseWriter, r *http.Request) {
	const op = "dashboard.handleInputsExport"

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondDecodeError(w, err, op)
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	// The export must load back through the CLI.
	if _, err := config.LoadConfigurationFromReader(bytes.NewReader(yamlBytes)); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

func (h *handler) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "dashboard.handleCreateEvaluation"

	var payload evaluationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondDecodeError(w, err, op)
		return
	}

	in := h.conf.Inputs
	if payload.Inputs != nil {
		in = *payload.Inputs
	}
	if err := validation.ValidateInputs(in); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	p, err := h.calculate(in)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	req, err := lead.NewEvaluationRequest(payload.Contact, p, h.now())
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := h.leads.Save(r.Context(), req); err != nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, fmt.Sprintf("failed to record evaluation request: %v", err), op)
		return
	}

	h.logger.Info("evaluation requested",
		zap.String("op", op),
		zap.String("id", req.ID),
		zap.String("contact", req.Contact.Name),
		zap.Float64("netBenefit", req.NetBenefit),
	)

	h.writeJSON(w, http.StatusCreated, evaluationResponse{
		ID:      req.ID,
		Message: notificationMessage(h.conf.Team),
	})
}

func (h *handler) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	const op = "dashboard.handleListEvaluations"

	requests, err := h.leads.List(r.Context())
	if err != nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, fmt.Sprintf("failed to list evaluation requests: %v", err), op)
		return
	}
	if requests == nil {
		requests = []lead.EvaluationRequest{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluations": requests,
	})
}

// notificationMessage is the confirmation shown after an evaluation request.
func notificationMessage(team []config.TeamMember) string {
	names := make([]string, 0, len(team))
	for _, member := range team {
		if name := strings.TrimSpace(member.Name); name != "" {
			names = append(names, name)
		}
	}

	const closing = " Prepare su Carpeta Tributaria para la revisión."
	switch len(names) {
	case 0:
		return "¡Excelente! Nuestro equipo ha sido notificado." + closing
	case 1:
		return "¡Excelente! " + names[0] + " ha sido notificado." + closing
	default:
		joined := strings.Join(names[:len(names)-1], ", ") + " y " + names[len(names)-1]
		return "¡Excelente! " + joined + " han sido notificados." + closing
	}
}

func (h *handler) inputsFromQuery(q url.Values) (projection.Inputs, error) {
	in := h.conf.Inputs
	fields := []struct {
		name string
		dst  *float64
	}{
		{"monthlyCost", &in.MonthlyCostNow},
		{"inflationPercent", &in.AnnualInflationPercent},
		{"systemCost", &in.TotalSystemCost},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(q.Get(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return projection.Inputs{}, fmt.Errorf("invalid %s: %q", f.name, raw)
		}
		*f.dst = v
	}
	if err := validation.ValidateInputs(in); err != nil {
		return projection.Inputs{}, err
	}
	return in, nil
}

func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range []string{"inputs", "program", "dashboard", "team", "logging", "output"} {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; already {
			continue
		}
		remainingKeys = append(remainingKeys, key)
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	ordered := orderedConfig{items: items}
	return yaml.Marshal(ordered)
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

func (h *handler) respondDecodeError(w http.ResponseWriter, err error, op string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds limit of %d bytes", h.maxBodySize), op)
		return
	}
	h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
