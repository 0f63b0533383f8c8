package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"goPropertyTax/internal/logger"
	"goPropertyTax/taxcalc"
)

const apiVersion = "1.0.0"

const requestIDHeader = "X-Request-ID"

// WebServer serves the calculation API
type WebServer struct {
	settings *Settings
	engine   *taxcalc.Engine
	lggr     logger.Logger
	now      func() time.Time
}

// NewWebServer creates a new web server instance
func NewWebServer(settings *Settings, engine *taxcalc.Engine, lggr logger.Logger) *WebServer {
	return &WebServer{
		settings: settings,
		engine:   engine,
		lggr:     lggr.Named("http"),
		now:      time.Now,
	}
}

// APIError is the body of every non-2xx JSON response
type APIError struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is returned by /api/health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Handler returns the routed API wrapped in the request ID, access log and CORS middleware
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()

	for _, kind := range calcKinds {
		mux.HandleFunc("/api/"+string(kind), ws.handleCalculation(kind))
	}
	mux.HandleFunc("/api/report/{kind}", ws.handleReport)
	mux.HandleFunc("/api/health", ws.handleHealth)
	mux.HandleFunc("/api/rates", ws.handleRates)

	return ws.withRequestID(ws.withAccessLog(ws.withCORS(mux)))
}

// Start listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", ws.settings.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", ws.settings.Addr, err)
	}
	return ws.Serve(ctx, listener)
}

// Serve runs the server on an existing listener until ctx is cancelled
func (ws *WebServer) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:      ws.Handler(),
		ReadTimeout:  ws.settings.ReadTimeout,
		WriteTimeout: ws.settings.WriteTimeout,
	}

	ws.lggr.Infow("Starting web server", "addr", listener.Addr().String(), "version", apiVersion)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws.lggr.Infow("Shutting down web server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// handleCalculation runs one calculation kind and returns its result as JSON
func (ws *WebServer) handleCalculation(kind calcKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			sendJSONError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		result, _, err := ws.calculate(w, r, kind)
		if err != nil {
			ws.sendCalculationError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, result)
	}
}

// handleReport runs a calculation and returns the breakdown as a PDF download
func (ws *WebServer) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendJSONError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	kind := calcKind(r.PathValue("kind"))
	_, b, err := ws.calculate(w, r, kind)
	if err != nil {
		ws.sendCalculationError(w, r, err)
		return
	}

	pdfBytes, reportID, err := GenerateCalculationPDF(b, ws.now())
	if err != nil {
		ws.sendCalculationError(w, r, fmt.Errorf("generate PDF: %w", err))
		return
	}
	logger.FromContext(r.Context()).Infow("Generated report", "kind", kind, "report_id", reportID, "bytes", len(pdfBytes))

	filename := fmt.Sprintf("%s-%s.pdf", kind, reportID[:8])
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	w.Header().Set("X-Report-ID", reportID)
	if _, err := w.Write(pdfBytes); err != nil {
		logger.FromContext(r.Context()).Debugw("Failed to write report", "err", err)
	}
}

// handleHealth reports liveness
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		sendJSONError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Version: apiVersion})
}

// handleRates returns the rate tables the engine runs on
func (ws *WebServer) handleRates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendJSONError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, r, http.StatusOK, ws.engine.Tables())
}

// calculate decodes the request body over the form defaults and runs it.
// An empty body runs the defaults unchanged.
func (ws *WebServer) calculate(w http.ResponseWriter, r *http.Request, kind calcKind) (any, breakdown, error) {
	calc, err := newCalculation(kind)
	if err != nil {
		return nil, breakdown{}, err
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, ws.settings.MaxBodyBytes))
	if err := dec.Decode(calc.Input()); err != nil && !errors.Is(err, io.EOF) {
		return nil, breakdown{}, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	// The body must hold exactly one JSON value.
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, breakdown{}, fmt.Errorf("%w: unexpected data after the JSON body", errInvalidRequest)
	}

	return calc.Run(ws.engine)
}

func (ws *WebServer) sendCalculationError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errInvalidRequest), errors.Is(err, taxcalc.ErrInvalidDate):
		status = http.StatusBadRequest
	case errors.Is(err, errUnknownKind):
		status = http.StatusNotFound
	}

	lggr := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		lggr.Errorw("Calculation failed", "err", err)
	} else {
		lggr.Debugw("Rejected request", "err", err)
	}
	sendJSONError(w, r, status, err.Error())
}

// sendJSONError sends a JSON error response
func sendJSONError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, APIError{
		Error:     message,
		RequestID: w.Header().Get(requestIDHeader),
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Debugw("Failed to write response", "err", err)
	}
}

// =============================================================================
// Middleware
// =============================================================================

// withRequestID tags every request with an ID, reusing the caller's when it
// sends one, and stores a logger carrying it in the request context.
func (ws *WebServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := logger.WithContext(r.Context(), ws.lggr.With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (ws *WebServer) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		logger.FromContext(r.Context()).Infow("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
		)
	})
}

func (ws *WebServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && ws.settings.allowsOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
			w.Header().Set("Access-Control-Expose-Headers", requestIDHeader+", X-Report-ID, Content-Disposition")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
