package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/realtime"
	log "github.com/sirupsen/logrus"
)

const streamHeartbeat = 25 * time.Second

// SnapshotFunc reads the current state pushed to a stream client.
type SnapshotFunc func(ctx context.Context) (any, error)

// Stream serves Server-Sent Events: one snapshot on connect and a fresh one
// after every event on sub. It returns when the client disconnects or sub
// ends, and always closes sub.
func Stream(c *gin.Context, sub *realtime.Subscription, snapshot SnapshotFunc) {
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	push := func() bool {
		data, errSnapshot := snapshot(ctx)
		if errSnapshot != nil {
			if ctx.Err() == nil {
				log.WithError(errSnapshot).WithField("path", c.FullPath()).Warn("stream snapshot failed")
			}
			return false
		}
		c.SSEvent("snapshot", data)
		c.Writer.Flush()
		return true
	}
	if !push() {
		return
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			drain(sub.C)
			if !push() {
				return
			}
		case now := <-heartbeat.C:
			c.SSEvent("ping", now.Unix())
			c.Writer.Flush()
		}
	}
}

// drain discards queued events; one snapshot covers them all.
func drain(ch <-chan realtime.Event) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
