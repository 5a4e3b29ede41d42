package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/devteam/internal/events"
)

// heartbeatInterval is how often idle streams receive a heartbeat.
var heartbeatInterval = 15 * time.Second

// streamFilter narrows a stream to one project or client. Empty fields match
// everything.
type streamFilter struct {
	projectID string
	clientID  string
}

func (f streamFilter) match(evt events.Event) bool {
	if f.projectID != "" && evt.ProjectID != f.projectID {
		return false
	}
	if f.clientID != "" && evt.ClientID != f.clientID {
		return false
	}
	return true
}

// handleSSE streams bus events as server-sent events. The project and
// client query parameters restrict the stream; ids count events sent on
// this connection.
func handleSSE(bus *events.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := streamFilter{projectID: c.Query("project"), clientID: c.Query("client")}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		ch, unsubscribe := bus.Subscribe(events.DefaultBuffer)
		defer unsubscribe()

		var seq uint64
		send := func(name string, data any) {
			seq++
			writeSSE(c.Writer, seq, name, data)
			c.Writer.Flush()
		}
		send("connected", gin.H{"type": "connected", "project": filter.projectID, "client": filter.clientID})

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()
		done := c.Request.Context().Done()
		for {
			select {
			case <-done:
				return
			case now := <-heartbeat.C:
				send("heartbeat", gin.H{"timestamp": now.UTC().Format(time.RFC3339)})
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if filter.match(evt) {
					send(string(evt.Type), evt)
				}
			}
		}
	}
}

// writeSSE encodes one event frame. Values that fail to marshal are skipped.
func writeSSE(w io.Writer, id uint64, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, payload)
}
