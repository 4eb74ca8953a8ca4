package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/account"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleOAuthHandler struct {
	Accounts        *account.Service
	Expires         int
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string

	// UserInfoURL overrides the Google userinfo endpoint.
	UserInfoURL string
}

func (h *GoogleOAuthHandler) Routes(r fiber.Router) {
	r.Get("/auth/google/start", h.GoogleStart)
	r.Get("/auth/google/callback", h.GoogleCallback)
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func shortCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	next := c.Query("next", "/")
	st := randomState(32)

	shortCookie(c, "oauth_state", st, 10*60)
	shortCookie(c, "oauth_next", next, 10*60)

	authURL := h.oauthCfg().AuthCodeURL(st, oauth2.AccessTypeOffline)
	return c.Redirect(authURL, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return badRequest(c, "missing code or state")
	}

	stCookie := c.Cookies("oauth_state")
	next := c.Cookies("oauth_next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	if stCookie == "" || stCookie != state {
		return badRequest(c, "invalid state")
	}

	cfg := h.oauthCfg()
	tok, err := cfg.Exchange(c.UserContext(), code)
	if err != nil {
		slog.Warn("google code exchange failed", "err", err)
		return badRequest(c, "failed to exchange code")
	}

	infoURL := h.UserInfoURL
	if infoURL == "" {
		infoURL = googleUserInfoURL
	}
	resp, err := cfg.Client(c.UserContext(), tok).Get(infoURL)
	if err != nil {
		return badRequest(c, "failed to fetch userinfo")
	}
	defer resp.Body.Close()

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return badRequest(c, "failed to decode userinfo")
	}

	_, jwtToken, err := h.Accounts.GoogleLogin(c.UserContext(), gu.Email, gu.Name)
	if err != nil {
		if apperr.Is(err, apperr.KindForbidden) {
			to := h.FrontendBaseURL + "/auth/login?err=" + url.QueryEscape(apperr.From(err).Message)
			return c.Redirect(to, http.StatusTemporaryRedirect)
		}
		return fail(c, err)
	}

	setSessionCookie(c, jwtToken, h.Expires)
	shortCookie(c, "oauth_state", "", -1)
	shortCookie(c, "oauth_next", "", -1)

	return c.Redirect(h.FrontendBaseURL+next, http.StatusTemporaryRedirect)
}
