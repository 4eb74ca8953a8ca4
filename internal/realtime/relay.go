package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/chat"
)

const (
	EventJoinRoom  = "joinRoom"
	EventLeaveRoom = "leaveRoom"
	EventMessage   = "message"

	EventJoined     = "joined"
	EventLeft       = "left"
	EventNewMessage = "newMessage"
	EventError      = "error"
)

// Envelope is the frame exchanged on the chat socket in both directions.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type roomRequest struct {
	RoomID uuid.UUID `json:"roomId"`
}

type messageRequest struct {
	RoomID        uuid.UUID          `json:"roomId"`
	SenderID      *uuid.UUID         `json:"senderId"`
	Message       string             `json:"message"`
	Type          models.MessageType `json:"type"`
	AttachmentURL string             `json:"attachmentUrl"`
}

// ChatService is the part of the chat service the relay relies on.
type ChatService interface {
	GetInfo(ctx context.Context, chatID, viewerID uuid.UUID) (*models.Chat, error)
	SendMessage(ctx context.Context, chatID, senderID uuid.UUID, in chat.MessageInput) (*models.ChatMessage, error)
}

// Relay turns socket frames into chat operations. Stored messages reach the
// room through the chat service's publisher, not through the relay itself.
type Relay struct {
	hub    *Hub
	broker *Broker
	chats  ChatService
}

func NewRelay(hub *Hub, broker *Broker, chats ChatService) *Relay {
	return &Relay{hub: hub, broker: broker, chats: chats}
}

// Handle processes one inbound frame from client.
func (r *Relay) Handle(ctx context.Context, client *Client, raw []byte) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		r.fail(client, "invalid frame")
		return
	}

	switch in.Event {
	case EventJoinRoom:
		var req roomRequest
		if err := json.Unmarshal(in.Data, &req); err != nil || req.RoomID == uuid.Nil {
			r.fail(client, "roomId is required")
			return
		}
		if _, err := r.chats.GetInfo(ctx, req.RoomID, client.UserID); err != nil {
			r.fail(client, apperr.From(err).Message)
			return
		}
		if err := r.broker.Join(ctx, client, req.RoomID); err != nil {
			slog.Warn("room membership not recorded", "room", req.RoomID, "err", err)
		}
		online, err := r.broker.Members(ctx, req.RoomID)
		if err != nil {
			slog.Warn("room presence unavailable", "room", req.RoomID, "err", err)
		}
		if online == nil {
			online = []uuid.UUID{}
		}
		r.hub.SendJSON(client, Envelope{Event: EventJoined, Data: fiber.Map{"roomId": req.RoomID, "online": online}})

	case EventLeaveRoom:
		var req roomRequest
		if err := json.Unmarshal(in.Data, &req); err != nil || req.RoomID == uuid.Nil {
			r.fail(client, "roomId is required")
			return
		}
		if err := r.broker.Leave(ctx, client, req.RoomID); err != nil {
			slog.Warn("room membership not removed", "room", req.RoomID, "err", err)
		}
		r.hub.SendJSON(client, Envelope{Event: EventLeft, Data: fiber.Map{"roomId": req.RoomID}})

	case EventMessage:
		var req messageRequest
		if err := json.Unmarshal(in.Data, &req); err != nil || req.RoomID == uuid.Nil {
			r.fail(client, "roomId is required")
			return
		}
		if req.SenderID != nil && *req.SenderID != client.UserID {
			r.fail(client, "senderId does not match the authenticated user")
			return
		}
		_, err := r.chats.SendMessage(ctx, req.RoomID, client.UserID, chat.MessageInput{
			Text:          req.Message,
			Type:          req.Type,
			AttachmentURL: req.AttachmentURL,
		})
		if err != nil {
			slog.Warn("relay message rejected", "room", req.RoomID, "user", client.UserID, "err", err)
			r.fail(client, apperr.From(err).Message)
		}

	default:
		r.fail(client, "unknown event "+in.Event)
	}
}

func (r *Relay) fail(client *Client, msg string) {
	r.hub.SendJSON(client, Envelope{Event: EventError, Data: fiber.Map{"message": msg}})
}
