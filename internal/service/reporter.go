package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/observability"
)

// Names of best-effort operations whose failures are reported instead of
// failing the caller.
const (
	OpAutoAssign      = "workflow.auto_assign"
	OpActivityPublish = "activity.publish"
	OpCommentAudit    = "audit.comment"
)

// SideEffectFailure describes a best-effort operation that did not complete.
type SideEffectFailure struct {
	Operation      string
	OrganizationID string
	IncidentID     string
	Err            error
}

// Warning renders the failure for API responses without internal detail.
func (f SideEffectFailure) Warning() string {
	return fmt.Sprintf("%s failed", f.Operation)
}

// SideEffectReporter receives failures of non-fatal side channels.
type SideEffectReporter interface {
	Report(ctx context.Context, failure SideEffectFailure)
}

// LoggingReporter logs failures and counts them.
type LoggingReporter struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewLoggingReporter creates the default reporter.
func NewLoggingReporter(logger *zap.Logger, metrics *observability.Metrics) *LoggingReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingReporter{logger: logger, metrics: metrics}
}

// Report implements SideEffectReporter.
func (r *LoggingReporter) Report(_ context.Context, failure SideEffectFailure) {
	r.metrics.RecordSideEffectFailure(failure.Operation)
	r.logger.Warn("side effect failed",
		zap.String("operation", failure.Operation),
		zap.String("organization_id", failure.OrganizationID),
		zap.String("incident_id", failure.IncidentID),
		zap.Error(failure.Err),
	)
}

// report forwards a failure and returns its warning text.
func report(ctx context.Context, reporter SideEffectReporter, failure SideEffectFailure) string {
	if reporter != nil {
		reporter.Report(ctx, failure)
	}
	return failure.Warning()
}
