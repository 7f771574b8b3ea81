package controllers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiwio/print-broker-api/services"
)

// KeepaliveInterval is how often the stream sends a ping when no events
// arrive. Package-level so tests can shorten it.
var KeepaliveInterval = 15 * time.Second

// streamQueueSize bounds the per-connection event buffer. A consumer that
// cannot keep up loses events rather than blocking the feed listener.
const streamQueueSize = 64

type streamEvent struct {
	name string
	data interface{}
}

// StreamChannel handles GET /api/v1/stream/:channel - a server-sent events
// stream of the channel's live updates. The channel is created on first use
// so a client can subscribe before anyone has written to it.
func StreamChannel(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	channelName := c.Param("channel")
	if _, err := services.GetChatService().EnsureChannel(c.Request.Context(), channelName); err != nil {
		handleServiceError(c, err)
		return
	}

	queue := make(chan streamEvent, streamQueueSize)
	enqueue := func(name string, e services.FeedEvent) {
		select {
		case queue <- streamEvent{name: name, data: e}:
		default:
			log.Printf("warning: dropping %s event for slow stream consumer on %s", name, channelName)
		}
	}

	listener := services.NewFeedListener(services.GetChatService().Redis(), channelName)
	listener.On(services.FeedEventMessage, func(e services.FeedEvent) { enqueue("message", e) })
	listener.On(services.FeedEventEdit, func(e services.FeedEvent) { enqueue("edit", e) })
	listener.On(services.FeedEventDelete, func(e services.FeedEvent) { enqueue("delete", e) })
	listener.On(services.FeedEventError, func(e services.FeedEvent) { enqueue("error", e) })
	listener.Start(c.Request.Context())
	defer listener.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	writeSSE(c, "connected", gin.H{"channel": channelName})
	c.Writer.Flush()

	pingCount := 0
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case ev := <-queue:
			writeSSE(c, ev.name, ev.data)
			c.Writer.Flush()
		case <-time.After(KeepaliveInterval):
			pingCount++
			writeSSE(c, "ping", gin.H{"count": pingCount})
			c.Writer.Flush()
		}
	}
}

func writeSSE(c *gin.Context, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("warning: failed to marshal SSE payload: %v", err)
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, payload)
}
