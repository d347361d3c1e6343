package coordinator

import (
	"context"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/logger"
)

func (c *Coordinator) startWriter() {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	go c.writeLoop()
}

// writeLoop is the only goroutine that writes the canonical record, so
// durable writes land in the order they were issued.
func (c *Coordinator) writeLoop() {
	defer close(c.stopped)
	for {
		select {
		case <-c.wake:
			c.drain()
		case ack := <-c.flushReq:
			c.drain()
			close(ack)
		case <-c.stop:
			c.drain()
			return
		}
	}
}

func (c *Coordinator) drain() {
	for {
		c.mu.Lock()
		rec := c.pending
		c.pending = nil
		if rec != nil {
			c.inflight.Store(true)
		}
		c.mu.Unlock()
		if rec == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), constants.WriteTimeout)
		err := c.durable.Put(ctx, *rec)
		cancel()
		c.inflight.Store(false)
		if err != nil {
			logger.Error("Durable write failed, fallback copy retained", "key", rec.ID, "error", err)
			continue
		}
		logger.Debug("Durable write complete", "key", rec.ID, "bytes", len(rec.Data))
	}
}
