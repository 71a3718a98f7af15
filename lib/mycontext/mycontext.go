package mycontext

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// CtxTraceContext is a context key for the trace context this (used by mylog)
type CtxTraceContext struct{}

// ContextFromHTTPRequest carries the cloud trace of the request: App Engine sets
// X-Cloud-Trace-Context, other frontends send a w3c traceparent.
func ContextFromHTTPRequest(r *http.Request) context.Context {
	return WithTrace(context.Background(), traceOf(r.Header))
}

func WithTrace(c context.Context, traceID string) context.Context {
	trace := ""
	if traceID != "" {
		trace = fmt.Sprintf("projects/%s/traces/%s", os.Getenv("GOOGLE_CLOUD_PROJECT"), traceID)
	}
	return context.WithValue(c, CtxTraceContext{}, trace)
}

func TraceFromContext(c context.Context) string {
	trace, _ := c.Value(CtxTraceContext{}).(string)
	return trace
}

func traceOf(header http.Header) string {
	traceParts := strings.Split(header.Get("X-Cloud-Trace-Context"), "/")
	if len(traceParts) > 0 && len(traceParts[0]) > 0 {
		return traceParts[0]
	}

	// version-traceid-parentid-flags
	parts := strings.Split(header.Get("traceparent"), "-")
	if len(parts) == 4 && len(parts[1]) == 32 {
		return parts[1]
	}

	return ""
}
