package handler

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
)

// AwsLambdaUrl handles AWS Lambda function URL requests
type AwsLambdaUrl struct {
	processor *RequestProcessor
}

// NewAwsLambdaUrl creates a new Lambda URL handler
func NewAwsLambdaUrl(processor *RequestProcessor) *AwsLambdaUrl {
	return &AwsLambdaUrl{processor: processor}
}

// Handler is the Lambda function interface for Lambda URLs
func (h *AwsLambdaUrl) Handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	httpCtx := event.RequestContext.HTTP
	ctx, cancel := newRequestContext(ctx, event.RequestContext.RequestID, httpCtx.SourceIP, httpCtx.UserAgent)
	defer cancel()

	requestID, _ := ctx.Value(RequestIDContextKey).(string)

	log := slog.With(
		slog.String("requestId", requestID),
		slog.String("rawPath", event.RawPath),
		slog.String("method", httpCtx.Method),
		slog.String("sourceIp", httpCtx.SourceIP),
		slog.String("userAgent", httpCtx.UserAgent),
		slog.String("requestTime", event.RequestContext.Time),
		slog.String("domainName", event.RequestContext.DomainName),
	)

	body, err := decodeEventBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return h.respond(respondError(ctx, err))
	}

	return h.respond(h.processor.Route(ctx, httpCtx.Method, event.RawPath, body, log))
}

func (h *AwsLambdaUrl) respond(status int, resp Response) (events.LambdaFunctionURLResponse, error) {
	status, body := encodeResponse(status, resp)
	return events.LambdaFunctionURLResponse{
		StatusCode:      status,
		Headers:         ResponseHeaders,
		Body:            body,
		IsBase64Encoded: false,
	}, nil
}
