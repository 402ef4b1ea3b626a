// Package notifier announces detected events on the console and through a
// decoupled audio queue.
package notifier

import (
	"context"

	"liqwatch/internal/channel/announce"
	"liqwatch/internal/metrics"
	"liqwatch/internal/model"
	"liqwatch/logger"
)

const component = "notifier"

// Notifier prints each event and hands it to the speech queue without
// waiting for playback.
type Notifier struct {
	console *Console
	queue   *announce.Channels
	log     *logger.Log
}

// New returns a notifier. A nil queue disables audio.
func New(console *Console, queue *announce.Channels) *Notifier {
	return &Notifier{console: console, queue: queue, log: logger.GetLogger()}
}

func (n *Notifier) Announce(ctx context.Context, ev model.Event) {
	n.console.PrintEvent(ev)

	fields := logger.Fields{"kind": string(ev.Kind), "symbol": ev.Symbol}
	if ev.Direction != model.DirectionNone {
		fields["direction"] = string(ev.Direction)
	}
	metrics.EmitMetric(n.log, component, "events_announced", 1, "counter", fields)

	if n.queue == nil {
		return
	}
	if n.queue.Send(ctx, announce.Announcement{Event: ev, Sentence: Sentence(ev)}) || ctx.Err() != nil {
		return
	}

	metrics.EmitDropMetric(n.log, metrics.DropMetricSpeechQueue, string(ev.Kind), ev.Symbol, "enqueue")
	n.log.WithComponent(component).WithFields(logger.Fields{
		"event_id": ev.ID,
		"kind":     ev.Kind,
		"symbol":   ev.Symbol,
	}).Warn("speech queue full, announcement dropped")
}
