package handlers

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/middleware"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/realtime"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/chat"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/utils"
)

type ChatHandler struct {
	Chats     *chat.Service
	Relay     *realtime.Relay
	JWTSecret string
}

func NewChatHandler(chats *chat.Service, relay *realtime.Relay, jwtSecret string) *ChatHandler {
	return &ChatHandler{Chats: chats, Relay: relay, JWTSecret: jwtSecret}
}

func (h *ChatHandler) Routes(r fiber.Router, authMiddleware fiber.Handler) {
	g := r.Group("/chat", authMiddleware)
	g.Post("/create-room", h.CreateRoom)
	g.Get("/", h.List)
	g.Get("/:chatId/info", h.Info)
	g.Get("/:chatId/messages", h.Messages)
	g.Post("/:chatId/message", h.SendMessage)
	g.Post("/:chatId/close", h.Close)
}

// WebSocketRoutes mounts the chat socket. The token comes from the query or
// the session cookie, browsers cannot set headers on an upgrade.
func (h *ChatHandler) WebSocketRoutes(app fiber.Router) {
	app.Use("/ws", h.upgrade)
	app.Get("/ws/chat", websocket.New(func(c *websocket.Conn) {
		uid, _ := c.Locals("userId").(uuid.UUID)
		h.Relay.Serve(c, uid)
	}))
}

func (h *ChatHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	tok := c.Query("token")
	if tok == "" {
		tok = middleware.TokenFrom(c)
	}
	claims, err := utils.ParseJWT(h.JWTSecret, tok)
	if err != nil {
		slog.Debug("websocket rejected", "err", err)
		return fiber.ErrUnauthorized
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	c.Locals("userId", uid)
	return c.Next()
}

type createRoomReq struct {
	ProjectID uuid.UUID `json:"projectId"`
}

func (h *ChatHandler) CreateRoom(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req createRoomReq
	if err := c.BodyParser(&req); err != nil || req.ProjectID == uuid.Nil {
		return badRequest(c, "projectId is required")
	}
	room, created, err := h.Chats.CreateRoom(c.UserContext(), uid, req.ProjectID)
	if err != nil {
		return fail(c, err)
	}
	if created {
		return ok(c, fiber.StatusCreated, "chat room created", room)
	}
	return ok(c, fiber.StatusOK, "chat room already exists", room)
}

func (h *ChatHandler) List(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	rooms, err := h.Chats.ListForUser(c.UserContext(), uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", rooms)
}

func (h *ChatHandler) Info(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "chatId")
	if err != nil {
		return fail(c, err)
	}
	room, err := h.Chats.GetInfo(c.UserContext(), id, uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", room)
}

func (h *ChatHandler) Messages(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "chatId")
	if err != nil {
		return fail(c, err)
	}
	msgs, err := h.Chats.GetMessages(c.UserContext(), id, uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", msgs)
}

type sendChatMessageReq struct {
	chat.MessageInput
	// Message is accepted as an alias of text.
	Message string `json:"message"`
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "chatId")
	if err != nil {
		return fail(c, err)
	}
	var req sendChatMessageReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Text) == "" {
		req.Text = req.Message
	}

	msg, err := h.Chats.SendMessage(c.UserContext(), id, uid, req.MessageInput)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "message sent", msg)
}

func (h *ChatHandler) Close(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "chatId")
	if err != nil {
		return fail(c, err)
	}
	room, err := h.Chats.Close(c.UserContext(), id, uid)
	if err != nil {
		return fail(c, err)
	}
	msg := "waiting for the other party to close the chat"
	if room.Status == models.ChatClosed {
		msg = "chat closed"
	}
	return ok(c, fiber.StatusOK, msg, room)
}
