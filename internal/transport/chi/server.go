package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/somunicate/dbas/internal/domain/demographic"
	"github.com/somunicate/dbas/internal/domain/dimension"
	"github.com/somunicate/dbas/internal/domain/search/metric"
	"github.com/somunicate/dbas/internal/domain/search/query"
	"github.com/somunicate/dbas/internal/domain/search/result"
	"github.com/somunicate/dbas/internal/domain/snapshot"
	"github.com/somunicate/dbas/internal/logger"
	"github.com/somunicate/dbas/internal/metrics"
	healthuc "github.com/somunicate/dbas/internal/usecase/health"
	matchuc "github.com/somunicate/dbas/internal/usecase/match"
	"github.com/somunicate/dbas/internal/version"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Matcher ranks the catalog for a query, once or per metric.
type Matcher interface {
	Match(ctx context.Context, q query.Query) (result.Selection, error)
	Compare(ctx context.Context, q query.Query, ms []metric.Metric) ([]matchuc.Outcome, error)
}

// Reference exposes and rebuilds the reference snapshot.
type Reference interface {
	Current() (*snapshot.Snapshot, error)
	Reload(ctx context.Context) (*snapshot.Snapshot, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Options holds request defaults and the audio location.
type Options struct {
	AudioDir      string
	DefaultTopN   int
	DefaultMetric metric.Metric
}

// Server serves the matching API.
type Server struct {
	matcher       Matcher
	reference     Reference
	health        HealthChecker
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	matcher Matcher,
	reference Reference,
	health HealthChecker,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.DefaultTopN <= 0 {
		opts.DefaultTopN = query.DefaultTopN
	}
	if opts.DefaultMetric == "" {
		opts.DefaultMetric = metric.Euclidean
	}
	return &Server{
		matcher:       matcher,
		reference:     reference,
		health:        health,
		opts:          opts,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/dimensions", s.ListDimensions)
	r.Get("/groups", s.ListGroups)
	r.Post("/match", s.Match)
	r.Post("/match/compare", s.Compare)
	r.Get("/sounds/{id}/audio", s.Audio)
	r.Post("/admin/reload", s.Reload)
}

// Handler returns a router serving the API without middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

// Match handles POST /match.
func (s *Server) Match(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeMatchRequest(w, r)
	if !ok {
		return
	}

	q, err := s.queryFromRequest(req)
	if err != nil {
		s.handleQueryError(w, err)
		return
	}

	sel, err := s.matcher.Match(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	logger.FromContext(r.Context()).Debug("Match served",
		zap.String("metric", string(q.Metric())),
		zap.Int("results", len(sel.Results)),
	)
	writeJSON(w, http.StatusOK, selectionToDTO(string(q.Metric()), sel))
}

// Compare handles POST /match/compare.
func (s *Server) Compare(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeMatchRequest(w, r)
	if !ok {
		return
	}

	q, err := s.queryFromRequest(req)
	if err != nil {
		s.handleQueryError(w, err)
		return
	}

	ms := make([]metric.Metric, 0, len(req.Metrics))
	for _, m := range req.Metrics {
		ms = append(ms, metric.Metric(m))
	}

	outcomes, err := s.matcher.Compare(r.Context(), q, ms)
	if err != nil {
		s.handleQueryError(w, err)
		return
	}

	resp := CompareResponse{Outcomes: make([]CompareOutcome, len(outcomes))}
	for i, o := range outcomes {
		resp.Outcomes[i] = outcomeToDTO(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListDimensions handles GET /dimensions.
func (s *Server) ListDimensions(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.reference.Current()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DimensionsResponse{
		Dimensions:           dimensionsToDTO(snap.Catalog.Dimensions()),
		MahalanobisAvailable: snap.MahalanobisAvailable(),
	})
}

// ListGroups handles GET /groups.
func (s *Server) ListGroups(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.reference.Current()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GroupsResponse{Groups: groupsToDTO(snap.Directory.Groups())})
}

// Reload handles POST /admin/reload.
func (s *Server) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.reference.Reload(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToDTO(snap))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:   string(report.Status),
		Checks:   checks,
		Entries:  report.Entries,
		Snapshot: report.Snapshot,
		Version:  version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}

func decodeMatchRequest(w http.ResponseWriter, r *http.Request) (MatchRequest, bool) {
	var req MatchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return MatchRequest{}, false
	}
	return req, true
}

// handleQueryError reports a rejected query with its full message: it only
// describes client input. Other errors go through the domain table.
func (s *Server) handleQueryError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	if status != http.StatusBadRequest {
		s.handleDomainError(w, err)
		return
	}
	writeError(w, status, code, err.Error())
}

func (s *Server) queryFromRequest(req MatchRequest) (query.Query, error) {
	dims := make([]dimension.Dimension, len(req.Targets))
	targets := make([]float64, len(req.Targets))
	for i, t := range req.Targets {
		dims[i] = dimension.Dimension(t.Dimension)
		targets[i] = t.Value
	}

	m := s.opts.DefaultMetric
	if req.Metric != nil {
		m = metric.Metric(*req.Metric)
	}

	groups, err := s.groupsFromRequest(req)
	if err != nil {
		return query.Query{}, err
	}

	topN := s.opts.DefaultTopN
	if req.TopN != nil {
		topN = *req.TopN
	}

	q, err := query.New(dims, targets, m, groups, derefFloat(req.MinLiking), derefFloat(req.MinFamiliarity), topN)
	if err != nil {
		return query.Query{}, fmt.Errorf("build query: %w", err)
	}
	return q, nil
}

// groupsFromRequest takes explicit group ids or resolves demographic criteria.
func (s *Server) groupsFromRequest(req MatchRequest) ([]demographic.GroupID, error) {
	ids := make([]demographic.GroupID, len(req.Groups))
	for i, g := range req.Groups {
		ids[i] = demographic.GroupID(g)
	}
	crit := demographic.Criteria{}
	if d := req.Demographics; d != nil {
		crit = demographic.Criteria{Genders: d.Genders, Migrations: d.Migrations, Ages: d.Ages}
	}
	if crit.IsEmpty() {
		return matchuc.ResolveGroups(nil, ids, crit)
	}

	snap, err := s.reference.Current()
	if err != nil {
		return nil, fmt.Errorf("resolve demographics: %w", err)
	}
	return matchuc.ResolveGroups(snap.Directory, ids, crit)
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
