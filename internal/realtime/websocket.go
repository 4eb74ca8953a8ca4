package realtime

import (
	"context"
	"log/slog"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Serve runs one authenticated chat socket until it disconnects.
func (r *Relay) Serve(c *websocket.Conn, userID uuid.UUID) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewClient(userID)
	r.hub.RegisterClient(client)
	slog.Info("websocket connected", "user", userID, "client", client.ID)

	defer func() {
		r.broker.LeaveAll(context.Background(), client)
		r.hub.UnregisterClient(client)
		slog.Info("websocket disconnected", "user", userID, "client", client.ID)
	}()

	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("websocket write failed", "client", client.ID, "err", err)
				return
			}
		}
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			slog.Debug("websocket read ended", "client", client.ID, "err", err)
			return
		}
		r.Handle(ctx, client, raw)
	}
}
