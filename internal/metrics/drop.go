package metrics

import "liqwatch/logger"

// DropMetric identifies the metric name emitted when queued messages are dropped.
type DropMetric string

const (
	// DropMetricSpeechQueue records announcements dropped because the speech queue was full.
	DropMetricSpeechQueue DropMetric = "speech_queue_dropped"
)

// EmitDropMetric logs and emits a metric representing one dropped message.
// Optional metadata (kind, symbol, stage) is attached when provided.
func EmitDropMetric(log *logger.Log, metric DropMetric, kind, symbol, stage string) {
	fields := logger.Fields{}
	if kind != "" {
		fields["kind"] = kind
	}
	if symbol != "" {
		fields["symbol"] = symbol
	}
	if stage != "" {
		fields["stage"] = stage
	}

	EmitMetric(log, "queue_drops", string(metric), 1, "counter", fields)
}
