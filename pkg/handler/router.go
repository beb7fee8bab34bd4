package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/boogy/jencoder/pkg/metrics"
	"github.com/boogy/jencoder/pkg/settings"
	"github.com/boogy/jencoder/pkg/types"
	"github.com/google/uuid"
)

// routeOf reduces a request path to one of the Route constants
func routeOf(p string) string {
	base := path.Base(path.Clean("/" + p))
	if base == "/" {
		return "/"
	}
	return "/" + base
}

// metricRoute returns the route label for metrics. Paths are client input, so
// anything that is not a served route shares one label.
func metricRoute(route string) string {
	switch route {
	case RouteGenerate, RouteDecode, RoutePublicKey, RouteAlgorithms,
		RouteSettings, RouteHealth, RouteFormat:
		return route
	default:
		return metrics.RouteOther
	}
}

// Route dispatches one request and returns the status code and response envelope
func (r *RequestProcessor) Route(ctx context.Context, method, rawPath, body string, log *slog.Logger) (int, Response) {
	route := routeOf(rawPath)
	method = strings.ToUpper(method)

	status, resp := r.dispatch(ctx, method, route, body, log)

	if startTime, ok := ctx.Value(StartTimeContextKey).(time.Time); ok {
		metrics.RecordHTTPRequest(metricRoute(route), status, time.Since(startTime))
	}
	return status, resp
}

func (r *RequestProcessor) dispatch(ctx context.Context, method, route, body string, log *slog.Logger) (int, Response) {
	switch route {
	case RouteHealth:
		return respondSuccess(ctx, "ok", map[string]string{"status": "ok"})

	case RouteAlgorithms:
		if method != http.MethodGet {
			return respondError(ctx, ErrMethodNotAllowed)
		}
		return respondSuccess(ctx, "Supported algorithms", r.Algorithms())

	case RouteGenerate:
		if method != http.MethodPost {
			return respondError(ctx, ErrMethodNotAllowed)
		}
		req, err := ParseGenerateRequest(body)
		if err != nil {
			return respondError(ctx, err)
		}
		resp, err := r.Generate(ctx, req, log)
		if err != nil {
			return respondError(ctx, err)
		}
		return respondSuccess(ctx, "Token generated", resp)

	case RouteDecode:
		if method != http.MethodPost {
			return respondError(ctx, ErrMethodNotAllowed)
		}
		req, err := ParseDecodeRequest(body)
		if err != nil {
			return respondError(ctx, err)
		}
		resp, err := r.Decode(ctx, req, log)
		if err != nil {
			return respondError(ctx, err)
		}
		return respondSuccess(ctx, "Token decoded, signature not verified", resp)

	case RouteFormat:
		if method != http.MethodPost {
			return respondError(ctx, ErrMethodNotAllowed)
		}
		req, err := ParseFormatRequest(body)
		if err != nil {
			return respondError(ctx, err)
		}
		resp, err := r.Format(ctx, req, log)
		if err != nil {
			return respondError(ctx, err)
		}
		return respondSuccess(ctx, "Payload formatted", resp)

	case RoutePublicKey:
		if method != http.MethodPost {
			return respondError(ctx, ErrMethodNotAllowed)
		}
		req, err := ParsePublicKeyRequest(body)
		if err != nil {
			return respondError(ctx, err)
		}
		resp, err := r.PublicKey(ctx, req, log)
		if err != nil {
			return respondError(ctx, err)
		}
		return respondSuccess(ctx, "Public key derived", resp)

	case RouteSettings:
		if r.settings == nil {
			return respondError(ctx, ErrRouteNotFound)
		}
		var (
			s   *settings.Settings
			err error
		)
		switch method {
		case http.MethodGet:
			s, err = r.LoadSettings(ctx)
		case http.MethodPut, http.MethodPost:
			s, err = r.SaveSettings(ctx, body, log)
		case http.MethodDelete:
			s, err = r.ResetSettings(ctx, log)
		default:
			err = ErrMethodNotAllowed
		}
		if err != nil {
			return respondError(ctx, err)
		}
		return respondSuccess(ctx, "Settings", s)

	default:
		return respondError(ctx, ErrRouteNotFound)
	}
}

// classifyError maps an error to its status code, error code and public message
func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrEmptyToken), errors.Is(err, ErrTokenTooLarge),
		errors.Is(err, ErrEmptyAlgorithm), errors.Is(err, ErrAlgorithmTooLong),
		errors.Is(err, ErrEmptyPayload), errors.Is(err, ErrPayloadTooLarge),
		errors.Is(err, ErrKeyTooLarge), errors.Is(err, ErrInvalidExpiry),
		errors.Is(err, ErrInvalidJSON):
		return http.StatusBadRequest, "invalid_request", "Invalid request parameters"
	case errors.Is(err, settings.ErrInvalidSettings):
		return http.StatusBadRequest, "invalid_settings", "Invalid settings"
	case errors.Is(err, ErrRouteNotFound):
		return http.StatusNotFound, "not_found", "Route not found"
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed"
	case errors.Is(err, ErrSettingsStore):
		return http.StatusServiceUnavailable, "settings_unavailable", "Settings store unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", "Request timed out"
	}

	code := types.ErrorKind(err)
	switch code {
	case types.CodeInvalidPayload:
		return http.StatusBadRequest, code, "Payload is not a valid JSON object"
	case types.CodeUnsupportedAlgorithm:
		return http.StatusBadRequest, code, "Algorithm is not supported"
	case types.CodeMalformedToken:
		return http.StatusBadRequest, code, "Token is malformed"
	case types.CodeKeyFormat:
		return http.StatusUnprocessableEntity, code, "Key cannot be used with the selected algorithm"
	case types.CodeSigningFailure:
		return http.StatusInternalServerError, code, "Signing failed"
	default:
		return http.StatusInternalServerError, types.CodeInternal, "An internal error occurred"
	}
}

// respondError builds the error envelope for err
func respondError(ctx context.Context, err error) (int, Response) {
	requestID, processingMS := requestInfo(ctx)
	statusCode, errCode, errMsg := classifyError(err)

	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(ctx, level, "Request error",
		slog.String("requestId", requestID),
		slog.String("errorCode", errCode),
		slog.String("error", err.Error()),
		slog.Int("status", statusCode),
		slog.Int64("processingMs", processingMS))

	return statusCode, Response{
		Success:      false,
		StatusCode:   statusCode,
		ErrorCode:    errCode,
		Message:      errMsg,
		ErrorDetails: err.Error(),
		RequestID:    requestID,
		ProcessingMS: processingMS,
	}
}

// respondSuccess builds the success envelope around data
func respondSuccess(ctx context.Context, message string, data any) (int, Response) {
	requestID, processingMS := requestInfo(ctx)

	slog.Debug("Response successful",
		slog.String("requestId", requestID),
		slog.Int64("processingMs", processingMS))

	return http.StatusOK, Response{
		Success:      true,
		StatusCode:   http.StatusOK,
		Message:      message,
		RequestID:    requestID,
		ProcessingMS: processingMS,
		Data:         data,
	}
}

// encodeResponse marshals resp, falling back to a minimal error body
func encodeResponse(status int, resp Response) (int, string) {
	body, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal response", slog.String("error", err.Error()))
		return http.StatusInternalServerError, fmt.Sprintf(`{"success":false,"errorCode":%q,"requestId":%q}`,
			types.CodeInternal, resp.RequestID)
	}
	return status, string(body)
}

func requestInfo(ctx context.Context) (string, int64) {
	requestID, _ := ctx.Value(RequestIDContextKey).(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	var processingMS int64
	if startTime, ok := ctx.Value(StartTimeContextKey).(time.Time); ok {
		processingMS = time.Since(startTime).Milliseconds()
	}
	return requestID, processingMS
}

// newRequestContext adds request tracking information and a timeout to ctx
func newRequestContext(ctx context.Context, requestID, sourceIP, userAgent string) (context.Context, context.CancelFunc) {
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx = context.WithValue(ctx, RequestIDContextKey, requestID)
	ctx = context.WithValue(ctx, StartTimeContextKey, time.Now())
	ctx = context.WithValue(ctx, SourceIPContextKey, sourceIP)
	ctx = context.WithValue(ctx, UserAgentContextKey, userAgent)

	return context.WithTimeout(ctx, DefaultTimeout)
}
