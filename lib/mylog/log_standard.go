package mylog

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/MarcGrol/homechef/lib/mycontext"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newStandardLogger
	}
}

type standardLogger struct {
	componentName string
	sugar         *zap.SugaredLogger
}

func newStandardLogger(componentName string) Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewNop()
	}
	return standardLogger{
		componentName: componentName,
		sugar:         logger.Sugar().Named(componentName),
	}
}

func (l standardLogger) Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	fields := []any{"checkout", traceLabel}
	if trace := mycontext.TraceFromContext(ctx); trace != "" {
		fields = append(fields, "trace", trace)
	}
	switch severity {
	case SeverityDebug:
		l.sugar.Debugw(msg, fields...)
	case SeverityWarn:
		l.sugar.Warnw(msg, fields...)
	case SeverityError:
		l.sugar.Errorw(msg, fields...)
	default:
		l.sugar.Infow(msg, fields...)
	}
}
