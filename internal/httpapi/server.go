package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joelkehle/county-market-bot/internal/marketreport"
	"github.com/joelkehle/county-market-bot/internal/report"
)

const (
	CodeInvalidRequest    = "invalid_request"
	CodeMethodNotAllowed  = "method_not_allowed"
	CodeNotImplemented    = "not_implemented"
	CodeInternal          = "internal_error"
	CodeRenderFailed      = "render_failed"
	requestIDHeader       = "X-Request-ID"
	defaultReportFormat   = "json"
	markdownContentType   = "text/markdown; charset=utf-8"
	htmlContentType       = "text/html; charset=utf-8"
	pdfContentType        = "application/pdf"
	reportFilenameDefault = "market-report"
)

// Runner runs the market report pipeline for one address.
type Runner interface {
	Run(ctx context.Context, address string, opts marketreport.Options) (marketreport.Result, error)
}

// PDFRenderer turns a report into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, r report.Report) ([]byte, error)
}

type Server struct {
	runner Runner
	pdf    PDFRenderer
	log    *zap.Logger
}

// NewServer returns the HTTP API. pdf may be nil, in which case PDF
// requests answer 501.
func NewServer(runner Runner, pdf PDFRenderer, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{runner: runner, pdf: pdf, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/report", s.handleReport)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

type reportResponse struct {
	OK                bool          `json:"ok"`
	RequestID         string        `json:"request_id"`
	Address           string        `json:"address"`
	CountyKey         string        `json:"county_key"`
	AnalysisRequested bool          `json:"analysis_requested"`
	AnalysisAvailable bool          `json:"analysis_available"`
	Markdown          string        `json:"markdown"`
	Report            report.Report `json:"report"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

// writePipelineError maps a pipeline failure onto a status code. The message
// is the same text the chat front-end shows.
func writePipelineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := CodeInternal
	switch kind := marketreport.KindOf(err); kind {
	case marketreport.KindAddressUnresolvable:
		status, code = http.StatusUnprocessableEntity, string(kind)
	case marketreport.KindCountyNotInDataset:
		status, code = http.StatusNotFound, string(kind)
	case marketreport.KindDatasetUnavailable:
		status, code = http.StatusServiceUnavailable, string(kind)
	}
	writeError(w, status, code, marketreport.UserMessage(err))
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func parseBool(value string, def bool) (bool, error) {
	if strings.TrimSpace(value) == "" {
		return def, nil
	}
	return strconv.ParseBool(value)
}

func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(requestIDHeader)); id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	reqID := requestID(r)
	w.Header().Set(requestIDHeader, reqID)

	q := r.URL.Query()
	address := strings.TrimSpace(q.Get("address"))
	if address == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "address is required")
		return
	}
	format := strings.ToLower(strings.TrimSpace(q.Get("format")))
	if format == "" {
		format = defaultReportFormat
	}
	switch format {
	case "json", "markdown", "html", "pdf":
	default:
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "format must be one of json, markdown, html, pdf")
		return
	}
	if format == "pdf" && s.pdf == nil {
		writeError(w, http.StatusNotImplemented, CodeNotImplemented, "pdf rendering is not configured")
		return
	}
	withAnalysis, err := parseBool(q.Get("analysis"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "analysis must be a boolean")
		return
	}

	log := s.log.With(zap.String("request_id", reqID), zap.String("address", address), zap.String("format", format))
	res, err := s.runner.Run(r.Context(), address, marketreport.Options{WithAnalysis: withAnalysis})
	if err != nil {
		log.Info("report request failed", zap.Error(err))
		writePipelineError(w, err)
		return
	}

	switch format {
	case "markdown":
		w.Header().Set("Content-Type", markdownContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report.RenderMarkdown(res.Report)))
	case "html":
		doc, err := report.RenderHTML(res.Report)
		if err != nil {
			log.Error("html render failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, CodeRenderFailed, err.Error())
			return
		}
		w.Header().Set("Content-Type", htmlContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(doc))
	case "pdf":
		blob, err := s.pdf.Render(r.Context(), res.Report)
		if err != nil {
			log.Error("pdf render failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, CodeRenderFailed, err.Error())
			return
		}
		w.Header().Set("Content-Type", pdfContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+reportFilename(res)+`.pdf"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(blob)
	default:
		writeJSON(w, http.StatusOK, reportResponse{
			OK:                true,
			RequestID:         reqID,
			Address:           res.Address,
			CountyKey:         res.County.String(),
			AnalysisRequested: res.AnalysisRequested,
			AnalysisAvailable: res.AnalysisAvailable,
			Markdown:          report.RenderMarkdown(res.Report),
			Report:            res.Report,
		})
	}
	log.Info("report request served", zap.String("county_key", res.County.String()))
}

func reportFilename(res marketreport.Result) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, res.County.String())
	name = strings.Trim(name, "-")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	if name == "" {
		return reportFilenameDefault
	}
	return reportFilenameDefault + "-" + strings.ToLower(name)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "ok"})
}

