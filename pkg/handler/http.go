package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// HTTPHandler serves the routes over plain net/http, for local development
type HTTPHandler struct {
	processor    *RequestProcessor
	maxBodyBytes int64
}

// NewHTTPHandler creates a net/http adapter for processor
func NewHTTPHandler(processor *RequestProcessor, maxBodyBytes int64) *HTTPHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = MaxBodyLength
	}
	return &HTTPHandler{processor: processor, maxBodyBytes: maxBodyBytes}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-Id")
	ctx, cancel := newRequestContext(r.Context(), requestID, clientIP(r), r.UserAgent())
	defer cancel()

	requestID, _ = ctx.Value(RequestIDContextKey).(string)
	log := slog.With(
		slog.String("requestId", requestID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.String("sourceIp", clientIP(r)),
		slog.String("userAgent", r.UserAgent()),
	)

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				err = fmt.Errorf("request body too large: %w", ErrInvalidJSON)
			}
			status, resp := respondError(ctx, err)
			h.write(w, status, resp)
			return
		}
	}

	status, resp := h.processor.Route(ctx, r.Method, r.URL.Path, string(body), log)
	h.write(w, status, resp)
}

func (h *HTTPHandler) write(w http.ResponseWriter, status int, resp Response) {
	status, body := encodeResponse(status, resp)
	for k, v := range ResponseHeaders {
		w.Header().Set(k, v)
	}
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		slog.Error("Error writing response", "error", err)
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
