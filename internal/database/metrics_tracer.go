package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pscheid92/crowdcast/internal/metrics"
)

type metricsTracer struct{}

type queryTraceKey struct{}

type queryTrace struct {
	start time.Time
	name  string
}

func (t *metricsTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryTraceKey{}, queryTrace{
		start: time.Now(),
		name:  extractQueryName(data.SQL),
	})
}

func (t *metricsTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	trace, ok := ctx.Value(queryTraceKey{}).(queryTrace)
	if !ok {
		return
	}

	metrics.DBQueryDuration.WithLabelValues(trace.name).Observe(time.Since(trace.start).Seconds())
	if data.Err != nil {
		metrics.DBErrorsTotal.WithLabelValues(trace.name).Inc()
	}
}

// extractQueryName reduces a SQL statement to "VERB table" for metric labels.
func extractQueryName(sql string) string {
	fields := strings.Fields(strings.TrimSpace(sql))
	if len(fields) == 0 {
		return "unknown"
	}

	verb := strings.ToUpper(fields[0])
	var tableKeyword string
	switch verb {
	case "SELECT", "DELETE":
		tableKeyword = "FROM"
	case "INSERT":
		tableKeyword = "INTO"
	case "UPDATE":
		if len(fields) < 2 {
			return verb
		}
		return verb + " " + strings.ToLower(fields[1])
	default:
		return verb
	}

	for i, f := range fields {
		if strings.EqualFold(f, tableKeyword) && i+1 < len(fields) {
			return verb + " " + strings.ToLower(fields[i+1])
		}
	}
	return verb
}
