package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// AwsApplicationLoadBalancer handles AWS Application Load Balancer requests
type AwsApplicationLoadBalancer struct {
	processor *RequestProcessor
}

// NewAwsApplicationLoadBalancer creates a new Application Load Balancer handler
func NewAwsApplicationLoadBalancer(processor *RequestProcessor) *AwsApplicationLoadBalancer {
	return &AwsApplicationLoadBalancer{processor: processor}
}

// Handler is the Lambda function interface for Application Load Balancer
func (h *AwsApplicationLoadBalancer) Handler(ctx context.Context, event events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
	sourceIP := albHeader(event, "x-forwarded-for")
	if i := strings.IndexByte(sourceIP, ','); i >= 0 {
		sourceIP = strings.TrimSpace(sourceIP[:i])
	}
	userAgent := albHeader(event, "user-agent")

	// ALB events carry no request id; the trace id is the closest match
	ctx, cancel := newRequestContext(ctx, albHeader(event, "x-amzn-trace-id"), sourceIP, userAgent)
	defer cancel()

	requestID, _ := ctx.Value(RequestIDContextKey).(string)

	log := slog.With(
		slog.String("requestId", requestID),
		slog.String("path", event.Path),
		slog.String("method", event.HTTPMethod),
		slog.String("sourceIp", sourceIP),
		slog.String("userAgent", userAgent),
		slog.String("targetGroup", event.RequestContext.ELB.TargetGroupArn),
	)

	body, err := decodeEventBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return h.respond(respondError(ctx, err))
	}

	return h.respond(h.processor.Route(ctx, event.HTTPMethod, event.Path, body, log))
}

func (h *AwsApplicationLoadBalancer) respond(status int, resp Response) (events.ALBTargetGroupResponse, error) {
	status, body := encodeResponse(status, resp)
	return events.ALBTargetGroupResponse{
		StatusCode:        status,
		StatusDescription: fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Headers:           ResponseHeaders,
		Body:              body,
		IsBase64Encoded:   false,
	}, nil
}

// albHeader reads a header from either the single or multi value header map
func albHeader(event events.ALBTargetGroupRequest, name string) string {
	if v, ok := event.Headers[name]; ok {
		return v
	}
	if v := event.MultiValueHeaders[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}
