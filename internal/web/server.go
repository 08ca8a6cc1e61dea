// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"ocr-demarcator/internal/config"
	"ocr-demarcator/internal/demarcation"
	"ocr-demarcator/internal/formatters"
	"ocr-demarcator/internal/ingest"
	"ocr-demarcator/internal/observability"
	"ocr-demarcator/internal/version"

	// Import formatters to register them
	_ "ocr-demarcator/internal/formatters/csv"
	_ "ocr-demarcator/internal/formatters/json"
	_ "ocr-demarcator/internal/formatters/text"
	_ "ocr-demarcator/internal/formatters/xlsx"
	_ "ocr-demarcator/internal/formatters/xml"
	_ "ocr-demarcator/internal/formatters/yaml"

	"golang.org/x/net/netutil"
)

// maxRequestBody bounds request bodies; messages may embed a base64 PDF.
const maxRequestBody = 64 << 20

// Intake accepts demarcation requests for asynchronous processing.
type Intake interface {
	Send(ctx context.Context, body []byte) error
}

// Server is the HTTP front end: synchronous demarcation of supplied page
// text, and optional intake onto the input queue.
type Server struct {
	listen   string
	maxConns int
	intake   Intake
	observer *observability.StandardObserver
	mux      *http.ServeMux

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// DemarcateRequest is the body of POST /api/demarcate.
type DemarcateRequest struct {
	Pages   []string           `json:"pages"`
	Rules   []demarcation.Rule `json:"rules"`
	Format  string             `json:"format"`
	Verbose bool               `json:"verbose"`
}

// NewServer creates a server. intake may be nil, which disables
// POST /api/messages.
func NewServer(cfg config.ServerConfig, intake Intake, observer *observability.StandardObserver) *Server {
	s := &Server{
		listen:   cfg.Listen,
		maxConns: cfg.MaxConnections,
		intake:   intake,
		observer: observer,
		mux:      http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// GetComponentName returns the component identifier
func (s *Server) GetComponentName() string {
	return "web"
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// setupRoutes configures all HTTP route handlers
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/formats", s.handleFormats)
	s.mux.HandleFunc("/api/demarcate", s.handleDemarcate)
	s.mux.HandleFunc("/api/messages", s.handleMessages)
}

// createSecureServer creates an HTTP server with security timeouts
func (s *Server) createSecureServer() *http.Server {
	return &http.Server{
		Handler: s.mux,
		// Timeout for reading request headers (prevents slow header attacks)
		ReadHeaderTimeout: 15 * time.Second,
		// Timeout for reading entire request
		ReadTimeout: 60 * time.Second,
		// Timeout for writing response
		WriteTimeout: 60 * time.Second,
		// Timeout for idle connections
		IdleTimeout: 60 * time.Second,
		// Limit header size
		MaxHeaderBytes: 1 << 20,
	}
}

// Listen binds the configured address. Start calls it when needed.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr(), nil
	}

	listener, err := net.Listen("tcp", s.listen)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w\n"+
			"Troubleshooting: set server.listen to a free address or stop the process using it", s.listen, err)
	}
	if s.maxConns > 0 {
		listener = netutil.LimitListener(listener, s.maxConns)
	}
	s.listener = listener
	s.server = s.createSecureServer()
	return listener.Addr(), nil
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}

	s.observer.LogEvent(s.GetComponentName(), "start", nil, map[string]interface{}{"addr": addr.String()})

	s.mu.Lock()
	server, listener := s.server, s.listener
	s.mu.Unlock()

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// handleHealth provides a health check endpoint with version information
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorWithStatus(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	versionInfo := version.Full()
	healthData := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "ocr-demarcator",
		"version":   versionInfo["version"],
		"build_info": map[string]interface{}{
			"version":    versionInfo["version"],
			"commit":     versionInfo["commit"],
			"build_date": versionInfo["buildDate"],
			"go_version": versionInfo["goVersion"],
			"platform":   versionInfo["platform"],
		},
		"intake": s.intake != nil,
	}

	s.writeJSON(w, http.StatusOK, healthData)
}

// handleFormats lists the registered output formats
func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorWithStatus(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, formatters.GetSupportedFormats())
}

// handleDemarcate runs the engine over supplied page text
func (s *Server) handleDemarcate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorWithStatus(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var finishTiming func(bool, map[string]interface{})
	if s.observer != nil {
		finishTiming = s.observer.StartTiming(s.GetComponentName(), "demarcate", r.URL.Path)
	}

	var req DemarcateRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&req); err != nil {
		if finishTiming != nil {
			finishTiming(false, map[string]interface{}{"error": err.Error()})
		}
		s.sendError(w, "Invalid request body: "+err.Error())
		return
	}

	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = "json"
	}

	report := demarcation.DemarcateReport(req.Pages, req.Rules)
	content, mimeType, filename, err := formatters.ExportForWeb(format, report, formatters.FormatterOptions{
		NoColor: true,
		Verbose: req.Verbose,
	})
	if err != nil {
		if finishTiming != nil {
			finishTiming(false, map[string]interface{}{"error": err.Error()})
		}
		s.sendError(w, err.Error())
		return
	}

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{
			"pages": len(req.Pages), "rules": len(req.Rules), "format": format,
			"unmatched": len(report.Unmatched()),
		})
	}

	w.Header().Set("Content-Type", mimeType)
	if formatters.GetFormatInfo(format).Binary {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, content)
}

// handleMessages validates a demarcation request and queues it for the worker
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorWithStatus(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.intake == nil {
		s.sendErrorWithStatus(w, "Message intake is not configured", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.sendError(w, "Failed to read request body: "+err.Error())
		return
	}

	msg, err := ingest.DecodeMessage(body)
	if err != nil {
		s.sendError(w, err.Error())
		return
	}
	warnings, err := msg.Validate()
	if err != nil {
		s.sendError(w, err.Error())
		return
	}

	if err := s.intake.Send(r.Context(), body); err != nil {
		s.observer.LogEvent(s.GetComponentName(), "enqueue", err, nil)
		s.sendErrorWithStatus(w, "Failed to queue message", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success":        true,
		"upload_id":      msg.UploadID(),
		"missing_fields": warnings,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sendError sends a 400 error response
func (s *Server) sendError(w http.ResponseWriter, message string) {
	s.sendErrorWithStatus(w, message, http.StatusBadRequest)
}

// sendErrorWithStatus sends an error response with a specific HTTP status code
func (s *Server) sendErrorWithStatus(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{
		Success: false,
		Error:   s.enhanceErrorMessage(message, statusCode),
	})
}

// enhanceErrorMessage adds troubleshooting information to error messages
func (s *Server) enhanceErrorMessage(message string, statusCode int) string {
	switch {
	case strings.Contains(message, "Invalid request body"):
		return message + "\nTroubleshooting: POST JSON like {\"pages\":[\"...\"],\"rules\":[{...}],\"format\":\"json\"}"
	case strings.Contains(message, "unsupported format"):
		return message + "\nTroubleshooting: GET /api/formats lists the available formats"
	case statusCode == http.StatusInternalServerError:
		return message + "\nTroubleshooting: Check server logs for detailed error information"
	default:
		return message
	}
}
