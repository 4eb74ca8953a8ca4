package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/repositories"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/utils"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return val
}

// Notifier pushes an event to a user's live sockets.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}

type Options struct {
	JWTSecret     string
	JWTExpiresMin int
	VerifyCodeTTL time.Duration
}

type Service struct {
	users    *repositories.UserRepository
	notifier Notifier
	opts     Options
}

func NewService(users *repositories.UserRepository, notifier Notifier, opts Options) *Service {
	if opts.VerifyCodeTTL <= 0 {
		opts.VerifyCodeTTL = time.Hour
	}
	return &Service{users: users, notifier: notifier, opts: opts}
}

type SignUpInput struct {
	Username string      `json:"username" validate:"required,min=2,max=20,username"`
	Name     string      `json:"name" validate:"max=100"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6,max=72"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=client freelancer"`
}

// SignUp registers an account and issues a verification code. An unverified
// account with the same email is overwritten, so users can sign up again
// after losing their code.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := v.Struct(in); err != nil {
		return nil, "", apperr.Validation(err.Error())
	}
	if in.Role == "" {
		in.Role = models.RoleClient
	}

	taken, err := s.users.GetByUsername(ctx, in.Username)
	switch {
	case err == nil && (taken.IsVerified || taken.Email != in.Email):
		return nil, "", apperr.Validation("username is already taken")
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return nil, "", apperr.Persistence(err, "failed to check username")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, "", apperr.Persistence(err, "failed to hash password")
	}
	code, err := utils.VerifyCode()
	if err != nil {
		return nil, "", apperr.Persistence(err, "failed to generate verification code")
	}
	expiry := time.Now().Add(s.opts.VerifyCodeTTL)

	u, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if u.IsVerified {
			return nil, "", apperr.Validation("email is already registered")
		}
		u.Username = in.Username
		u.Name = in.Name
		u.Password = hash
		u.Role = in.Role
		u.VerifyCode = code
		u.VerifyCodeExpiry = &expiry
		if err := s.users.Save(ctx, u); err != nil {
			return nil, "", saveErr(err)
		}
	case errors.Is(err, repositories.ErrNotFound):
		u = &models.User{
			Username:            in.Username,
			Name:                in.Name,
			Email:               in.Email,
			Password:            hash,
			Role:                in.Role,
			IsActive:            true,
			VerifyCode:          code,
			VerifyCodeExpiry:    &expiry,
			IsAcceptingMessages: true,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, "", saveErr(err)
		}
	default:
		return nil, "", apperr.Persistence(err, "failed to check email")
	}

	slog.Debug("verification code issued", "user", u.ID, "expires", expiry)
	return u, code, nil
}

func (s *Service) VerifyCode(ctx context.Context, username, code string) (*models.User, error) {
	u, err := s.byUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u.IsVerified {
		return u, nil
	}
	if u.VerifyCodeExpiry == nil || time.Now().After(*u.VerifyCodeExpiry) {
		return nil, apperr.Validation("verification code has expired, please sign up again")
	}
	if strings.TrimSpace(code) != u.VerifyCode {
		return nil, apperr.Validation("incorrect verification code")
	}

	u.IsVerified = true
	u.VerifyCode = ""
	u.VerifyCodeExpiry = nil
	if err := s.users.Save(ctx, u); err != nil {
		return nil, saveErr(err)
	}
	return u, nil
}

// Login accepts either the email or the username as identifier.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.User, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, "", apperr.Validation("identifier and password are required")
	}

	var (
		u   *models.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.users.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		u, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", apperr.Unauthorized("invalid credentials")
		}
		return nil, "", apperr.Persistence(err, "failed to load user")
	}
	if !utils.CheckPassword(u.Password, password) {
		return nil, "", apperr.Unauthorized("invalid credentials")
	}
	if !u.IsVerified {
		return nil, "", apperr.Unauthorized("please verify your account before logging in")
	}
	if !u.IsActive {
		return nil, "", apperr.Forbidden("account is not active")
	}

	token, err := s.issue(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// GoogleLogin signs in the owner of a Google-verified email, creating the
// account on first use.
func (s *Service) GoogleLogin(ctx context.Context, email, name string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, "", apperr.Validation("google account has no email")
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !u.IsVerified || (name != "" && u.Name == "") {
			u.IsVerified = true
			if u.Name == "" {
				u.Name = strings.TrimSpace(name)
			}
			if err := s.users.Save(ctx, u); err != nil {
				return nil, "", saveErr(err)
			}
		}
	case errors.Is(err, repositories.ErrNotFound):
		// the account never logs in with a password
		hash, err := utils.HashPassword(randomToken(24))
		if err != nil {
			return nil, "", apperr.Persistence(err, "failed to hash password")
		}
		u = &models.User{
			Username:            usernameFromEmail(email),
			Name:                strings.TrimSpace(name),
			Email:               email,
			Password:            hash,
			Role:                models.RoleClient,
			IsActive:            true,
			IsVerified:          true,
			IsAcceptingMessages: true,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, "", saveErr(err)
		}
	default:
		return nil, "", apperr.Persistence(err, "failed to load user")
	}

	if !u.IsActive {
		return nil, "", apperr.Forbidden("account is not active")
	}
	token, err := s.issue(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// IsUsernameUnique reports whether no verified account uses username.
func (s *Service) IsUsernameUnique(ctx context.Context, username string) (bool, error) {
	if err := v.Var(username, "required,min=2,max=20,username"); err != nil {
		return false, apperr.Validation("username must be 2-20 letters, digits or underscores")
	}
	_, err := s.users.GetVerifiedByUsername(ctx, username)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, repositories.ErrNotFound):
		return true, nil
	default:
		return false, apperr.Persistence(err, "failed to check username")
	}
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Persistence(err, "failed to load user")
	}
	return u, nil
}

// SendMessage leaves an anonymous note for username.
func (s *Service) SendMessage(ctx context.Context, username, content string) (*models.UserMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > 1000 {
		return nil, apperr.Validation("content must be between 1 and 1000 characters")
	}
	u, err := s.byUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !u.IsAcceptingMessages {
		return nil, apperr.Forbidden("user is not accepting messages")
	}

	m := &models.UserMessage{UserID: u.ID, Content: content}
	if err := s.users.AddMessage(ctx, m); err != nil {
		return nil, apperr.Persistence(err, "failed to store message")
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, u.ID, "userMessage", m); err != nil {
			slog.Warn("could not notify user", "user", u.ID, "err", err)
		}
	}
	return m, nil
}

func (s *Service) ListMessages(ctx context.Context, userID uuid.UUID) ([]models.UserMessage, error) {
	out, err := s.users.ListMessages(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list messages")
	}
	return out, nil
}

func (s *Service) SetAcceptMessages(ctx context.Context, userID uuid.UUID, accept bool) (*models.User, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.IsAcceptingMessages = accept
	if err := s.users.Save(ctx, u); err != nil {
		return nil, saveErr(err)
	}
	return u, nil
}

func (s *Service) issue(u *models.User) (string, error) {
	token, err := utils.SignJWT(s.opts.JWTSecret, u.ID.String(), string(u.Role), s.opts.JWTExpiresMin)
	if err != nil {
		return "", apperr.Persistence(err, "failed to sign token")
	}
	return token, nil
}

func (s *Service) byUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Persistence(err, "failed to load user")
	}
	return u, nil
}

func saveErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Validation("username or email is already taken")
	}
	return apperr.Persistence(err, "failed to save user")
}

func usernameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	var b strings.Builder
	for _, r := range local {
		if r < 128 && usernamePattern.MatchString(string(r)) {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if len(base) > 13 {
		base = base[:13]
	}
	return base + "_" + randomToken(3)
}

func randomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
