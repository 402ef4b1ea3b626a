package notifier

import (
	"context"
	"sync/atomic"
	"time"

	"liqwatch/internal/channel/announce"
	"liqwatch/internal/metrics"
	"liqwatch/logger"
)

// Audio modes understood by the worker.
const (
	ModeSpeech = "speech"
	ModeTone   = "tone"
	ModeOff    = "off"
)

const workerComponent = "speech_worker"

// Worker plays queued announcements one at a time.
type Worker struct {
	queue    *announce.Channels
	mode     string
	speaker  *Speaker
	console  *Console
	log      *logger.Log
	played   atomic.Int64
	failures atomic.Int64
}

func NewWorker(queue *announce.Channels, mode string, speaker *Speaker, console *Console) *Worker {
	return &Worker{
		queue:   queue,
		mode:    mode,
		speaker: speaker,
		console: console,
		log:     logger.GetLogger(),
	}
}

// Run consumes the queue until ctx is done or the queue is closed.
// Announcements still queued at cancellation are discarded.
func (w *Worker) Run(ctx context.Context) {
	log := w.log.WithComponent(workerComponent).WithFields(logger.Fields{"mode": w.mode})
	log.Info("speech worker started")

	for {
		select {
		case <-ctx.Done():
			log.WithFields(logger.Fields{
				"discarded": w.drain(),
				"played":    w.played.Load(),
				"failures":  w.failures.Load(),
			}).Info("speech worker stopped")
			return
		case a, ok := <-w.queue.Queue:
			if !ok {
				log.Info("speech queue closed")
				return
			}
			w.handle(ctx, a)
		}
	}
}

func (w *Worker) drain() int {
	n := 0
	for {
		select {
		case _, ok := <-w.queue.Queue:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

func (w *Worker) handle(ctx context.Context, a announce.Announcement) {
	switch w.mode {
	case ModeOff:
		return
	case ModeTone:
		w.console.Bell()
		w.played.Add(1)
		return
	}

	start := time.Now()
	if err := w.speaker.Speak(ctx, a.Sentence); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.failures.Add(1)
		w.log.WithComponent(workerComponent).WithFields(logger.Fields{
			"event_id": a.Event.ID,
			"sentence": a.Sentence,
		}).WithError(err).Error("failed to play announcement")
		metrics.EmitMetric(w.log, workerComponent, "speech_failures", 1, "counter", logger.Fields{
			"kind": string(a.Event.Kind),
		})
		return
	}
	w.played.Add(1)
	logger.LogPerformanceEntry(w.log.WithComponent(workerComponent), workerComponent, "speak", time.Since(start), logger.Fields{
		"event_id": a.Event.ID,
	})
}

// Failures returns how many announcements could not be played.
func (w *Worker) Failures() int64 {
	return w.failures.Load()
}

// Played returns how many announcements were played or rung.
func (w *Worker) Played() int64 {
	return w.played.Load()
}
