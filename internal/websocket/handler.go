package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/mtr002/job-system/internal/interfaces"
	"github.com/mtr002/job-system/internal/logger"
)

// JobUpdate is the message pushed to clients for every status transition.
type JobUpdate struct {
	Type string        `json:"type"`
	Data JobUpdateData `json:"data"`
}

type JobUpdateData struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
}

func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	if !hub.add(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// BroadcastJobUpdate sends a history entry to every connected client.
func BroadcastJobUpdate(hub *Hub, entry interfaces.HistoryEntry) {
	message, err := json.Marshal(JobUpdate{
		Type: "job_update",
		Data: JobUpdateData{
			JobID:      entry.JobID,
			Status:     entry.Status.String(),
			StatusCode: int(entry.Status),
		},
	})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to marshal job update")
		return
	}

	hub.Broadcast(message)
}
