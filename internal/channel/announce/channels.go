package announce

import (
	"context"
	"sync"

	"liqwatch/internal/model"
	"liqwatch/logger"
)

// Announcement is one queued audio notification.
type Announcement struct {
	Event    model.Event
	Sentence string
}

type ChannelStats struct {
	Sent    int64
	Dropped int64
}

// Channels buffers announcements between the detector and the speech worker.
type Channels struct {
	Queue chan Announcement

	stats      ChannelStats
	statsMutex sync.RWMutex
	closeOnce  sync.Once
	log        *logger.Log
}

func NewChannels(bufferSize int) *Channels {
	if bufferSize < 1 {
		bufferSize = 1
	}
	log := logger.GetLogger()
	c := &Channels{
		Queue: make(chan Announcement, bufferSize),
		log:   log,
	}

	log.WithComponent("announce_channels").WithFields(logger.Fields{
		"buffer_size": bufferSize,
	}).Info("announcement channels initialized")

	return c
}

func (c *Channels) Close() {
	c.closeOnce.Do(func() {
		close(c.Queue)
		c.log.WithComponent("announce_channels").Info("announcement channels closed")
	})
}

// Send enqueues a without blocking. It returns false when the queue is full
// or ctx is done.
func (c *Channels) Send(ctx context.Context, a Announcement) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case c.Queue <- a:
		c.incrementSent()
		return true
	default:
		c.incrementDropped()
		return false
	}
}

func (c *Channels) GetStats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}

func (c *Channels) incrementSent() {
	c.statsMutex.Lock()
	c.stats.Sent++
	c.statsMutex.Unlock()
}

func (c *Channels) incrementDropped() {
	c.statsMutex.Lock()
	c.stats.Dropped++
	c.statsMutex.Unlock()
}
