package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	spektr "github.com/spektr-org/spektr-retail"
	"github.com/spektr-org/spektr-retail/delivery"
	"github.com/spektr-org/spektr-retail/engine"
)

// ============================================================================
// HTTP API
// ============================================================================
//   POST /api/query              question (or explicit plan) → chart data
//   GET  /api/dashboard-data     dataset summary
//   GET  /api/last-report-info   latest report metadata for the session
//   GET  /api/reports/latest     latest report body for the session
//   POST /api/send-to-slack      deliver the latest report
//   GET  /api/slack-channels     configured delivery channels
//   GET  /healthz
// ============================================================================

// DefaultChannel is used by send-to-slack when the body names none.
const DefaultChannel = "test_channel_1"

const maxBodyBytes = 1 << 20

// Options configures the HTTP surface.
type Options struct {
	CORSAllowedOrigins []string
	RateLimit          RateLimitConfig
}

// Server serves the analyst over HTTP.
type Server struct {
	analyst  *spektr.Analyst
	channels *delivery.Registry
	logger   *slog.Logger
	opts     Options
}

// New creates a Server. channels may be nil.
func New(analyst *spektr.Analyst, channels *delivery.Registry, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if channels == nil {
		channels = delivery.NewRegistry()
	}
	if opts.RateLimit.RequestsPerSecond <= 0 {
		opts.RateLimit.RequestsPerSecond = 2
	}
	if opts.RateLimit.Burst <= 0 {
		opts.RateLimit.Burst = 5
	}
	if len(opts.CORSAllowedOrigins) == 0 {
		opts.CORSAllowedOrigins = []string{"*"}
	}
	return &Server{analyst: analyst, channels: channels, logger: logger, opts: opts}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", SessionHeader, RequestIDHeader},
		ExposedHeaders: []string{SessionHeader, RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(session)
		r.With(rateLimiter(s.opts.RateLimit)).Post("/query", s.handleQuery)
		r.Get("/dashboard-data", s.handleDashboard)
		r.Get("/last-report-info", s.handleLastReportInfo)
		r.Get("/reports/latest", s.handleLatestReport)
		r.Post("/send-to-slack", s.handleSend)
		r.Get("/slack-channels", s.handleChannels)
	})
	return r
}

// ============================================================================
// HANDLERS
// ============================================================================

type queryRequest struct {
	Query string          `json:"query"`
	Plan  json.RawMessage `json:"plan,omitempty"`
}

type queryResponse struct {
	OriginalQuery  string              `json:"original_query"`
	ChartType      string              `json:"chart_type"`
	Title          string              `json:"title"`
	Data           []engine.DataPoint  `json:"data,omitempty"`
	Pairs          []engine.PairPoint  `json:"pairs,omitempty"`
	Share          []engine.PairPoint  `json:"share,omitempty"`
	SeriesA        string              `json:"series_a,omitempty"`
	SeriesB        string              `json:"series_b,omitempty"`
	XAxis          string              `json:"x_axis"`
	YAxis          string              `json:"y_axis"`
	Insights       string              `json:"insights"`
	Note           string              `json:"note,omitempty"`
	Period         string              `json:"period,omitempty"`
	RowCount       int                 `json:"row_count"`
	DualMetrics    bool                `json:"dual_metrics"`
	ComparisonMode string              `json:"comparison_mode,omitempty"`
	ChartConfig    *engine.ChartConfig `json:"chart_config,omitempty"`
	TableData      *engine.TableData   `json:"table_data,omitempty"`
	ReportFilename string              `json:"report_filename"`
	SessionID      string              `json:"session_id"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Query == "" && len(req.Plan) == 0 {
		s.writeError(w, r, fmt.Errorf("%w: query or plan is required", errBadRequest))
		return
	}

	sess := sessionID(r.Context())
	var (
		answer *spektr.Answer
		err    error
	)
	if len(req.Plan) > 0 {
		answer, err = s.analyst.RunRaw(r.Context(), sess, req.Query, req.Plan)
	} else {
		answer, err = s.analyst.Ask(r.Context(), sess, req.Query)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res := answer.Result
	writeJSON(w, http.StatusOK, queryResponse{
		OriginalQuery:  req.Query,
		ChartType:      res.ChartType,
		Title:          res.Title,
		Data:           res.Data,
		Pairs:          res.Pairs,
		Share:          res.Share,
		SeriesA:        res.SeriesA,
		SeriesB:        res.SeriesB,
		XAxis:          res.XAxis,
		YAxis:          res.YAxis,
		Insights:       res.Summary,
		Note:           res.Note,
		Period:         res.Period,
		RowCount:       res.RowCount,
		DualMetrics:    res.Dual,
		ComparisonMode: string(res.Comparison),
		ChartConfig:    res.ChartConfig,
		TableData:      res.TableData,
		ReportFilename: answer.Artifact.Filename,
		SessionID:      sess,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.analyst.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type reportInfo struct {
	Available bool   `json:"available"`
	Filename  string `json:"filename,omitempty"`
	Title     string `json:"title,omitempty"`
}

func (s *Server) handleLastReportInfo(w http.ResponseWriter, r *http.Request) {
	a, err := s.analyst.LatestReport(r.Context(), sessionID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusOK, reportInfo{Available: false})
		return
	}
	writeJSON(w, http.StatusOK, reportInfo{Available: true, Filename: a.Filename, Title: a.Title})
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	a, err := s.analyst.LatestReport(r.Context(), sessionID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", a.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
}

type sendRequest struct {
	Channel string `json:"channel"`
}

type sendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Channel string `json:"channel"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, err)
		return
	}
	if req.Channel == "" {
		req.Channel = DefaultChannel
	}

	a, err := s.analyst.LatestReport(r.Context(), sessionID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ch, err := s.channels.Send(r.Context(), req.Channel, a)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{
		Success: true,
		Message: fmt.Sprintf("Report sent to %s", ch.Name),
		Channel: ch.Key,
	})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.channels.Channels())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": spektr.Version})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
