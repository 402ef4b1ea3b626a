package metrics

import "liqwatch/logger"

// DetectorStats is a point-in-time view of the detection pipeline.
type DetectorStats struct {
	Candles        int64
	Announced      int64
	Duplicates     int64
	BelowThreshold int64
	SeenKeys       int
	EvictedKeys    int64
	QueueSent      int64
	QueueDropped   int64
	SpeechFailures int64
}

// ReportDetector emits the detector counters as gauges and a summary log line.
func ReportDetector(log *logger.Log, component string, stats DetectorStats) {
	if log == nil {
		log = logger.GetLogger()
	}

	EmitMetric(log, component, "candles_seen", stats.Candles, "gauge", nil)
	EmitMetric(log, component, "events_announced_total", stats.Announced, "gauge", nil)
	EmitMetric(log, component, "duplicates_suppressed", stats.Duplicates, "gauge", nil)
	EmitMetric(log, component, "below_threshold", stats.BelowThreshold, "gauge", nil)
	EmitMetric(log, component, "seen_keys", stats.SeenKeys, "gauge", nil)
	EmitMetric(log, component, "speech_queue_dropped_total", stats.QueueDropped, "gauge", nil)

	entry := log.WithComponent(component).WithFields(logger.Fields{
		"candles":         stats.Candles,
		"announced":       stats.Announced,
		"duplicates":      stats.Duplicates,
		"below_threshold": stats.BelowThreshold,
		"seen_keys":       stats.SeenKeys,
		"evicted_keys":    stats.EvictedKeys,
		"queue_sent":      stats.QueueSent,
		"queue_dropped":   stats.QueueDropped,
		"speech_failures": stats.SpeechFailures,
	})

	if stats.QueueDropped > 0 || stats.SpeechFailures > 0 {
		entry.Warn(component + " metrics")
		return
	}
	entry.Info(component + " metrics")
}
