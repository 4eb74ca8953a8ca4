package handlers

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/account"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/utils"
)

type AuthHandler struct {
	Accounts *account.Service
	Expires  int
}

func NewAuthHandler(accounts *account.Service, expiresMin int) *AuthHandler {
	return &AuthHandler{Accounts: accounts, Expires: expiresMin}
}

func (h *AuthHandler) Routes(r fiber.Router, authMiddleware fiber.Handler) {
	r.Post("/sign-up", h.SignUp)
	r.Post("/verify-code", h.VerifyCode)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/check-username-unique", h.CheckUsernameUnique)
	r.Post("/send-message", h.SendMessage)

	r.Get("/accept-messages", authMiddleware, h.GetAcceptMessages)
	r.Post("/accept-messages", authMiddleware, h.SetAcceptMessages)
	r.Get("/get-messages", authMiddleware, h.GetMessages)
	r.Get("/me", authMiddleware, h.Me)
}

func setSessionCookie(c *fiber.Ctx, token string, expiresMin int) {
	c.Cookie(&fiber.Cookie{
		Name:     utils.CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   expiresMin * 60,
	})
}

func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req account.SignUpInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	u, code, err := h.Accounts.SignUp(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	// no mail transport is configured; the code is only visible in debug logs
	slog.Debug("verification code", "username", u.Username, "code", code)

	return ok(c, fiber.StatusCreated, "user registered, please verify your account", fiber.Map{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
	})
}

type verifyCodeReq struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req verifyCodeReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if _, err := h.Accounts.VerifyCode(c.UserContext(), req.Username, req.Code); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "account verified", nil)
}

type loginReq struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	identifier := req.Identifier
	if strings.TrimSpace(identifier) == "" {
		identifier = req.Email
	}

	u, token, err := h.Accounts.Login(c.UserContext(), identifier, req.Password)
	if err != nil {
		return fail(c, err)
	}
	setSessionCookie(c, token, h.Expires)

	return ok(c, fiber.StatusOK, "login successful", fiber.Map{
		"user": u,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     utils.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
	})
	return ok(c, fiber.StatusOK, "logged out", nil)
}

func (h *AuthHandler) CheckUsernameUnique(c *fiber.Ctx) error {
	unique, err := h.Accounts.IsUsernameUnique(c.UserContext(), c.Query("username"))
	if err != nil {
		return fail(c, err)
	}
	msg := "username is unique"
	if !unique {
		msg = "username is already taken"
	}
	return ok(c, fiber.StatusOK, msg, fiber.Map{"is_unique": unique})
}

type sendMessageReq struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

func (h *AuthHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	m, err := h.Accounts.SendMessage(c.UserContext(), req.Username, req.Content)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "message sent", m)
}

func (h *AuthHandler) GetAcceptMessages(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	u, err := h.Accounts.Me(c.UserContext(), uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", fiber.Map{"is_accepting_messages": u.IsAcceptingMessages})
}

type acceptMessagesReq struct {
	AcceptMessages *bool `json:"acceptMessages"`
}

func (h *AuthHandler) SetAcceptMessages(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req acceptMessagesReq
	if err := c.BodyParser(&req); err != nil || req.AcceptMessages == nil {
		return badRequest(c, "acceptMessages is required")
	}
	u, err := h.Accounts.SetAcceptMessages(c.UserContext(), uid, *req.AcceptMessages)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "message acceptance updated", fiber.Map{"is_accepting_messages": u.IsAcceptingMessages})
}

func (h *AuthHandler) GetMessages(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	msgs, err := h.Accounts.ListMessages(c.UserContext(), uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", msgs)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	u, err := h.Accounts.Me(c.UserContext(), uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", u)
}
