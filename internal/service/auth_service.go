package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"harfzaar/internal/cache"
	"harfzaar/internal/mailer"
	"harfzaar/internal/middleware"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"
	"harfzaar/internal/repository"
	"harfzaar/internal/validation"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

// OTPValidity is how long a password reset code stays usable.
const OTPValidity = 2 * time.Minute

const (
	msgAllFieldsRequired  = "All fields are required."
	msgEmailNotRegistered = "Email not registered."
	msgUserNotFoundDot    = "User not found."
)

// AuthService owns accounts, tokens and password recovery.
type AuthService struct {
	users  repository.UserRepository
	tokens *middleware.TokenManager
	mail   mailer.Mailer
	cost   int
	now    func() time.Time
}

// NewAuthService returns an AuthService using bcrypt.DefaultCost.
func NewAuthService(users repository.UserRepository, tokens *middleware.TokenManager, mail mailer.Mailer) *AuthService {
	if mail == nil {
		mail = mailer.Disabled{}
	}
	return &AuthService{users: users, tokens: tokens, mail: mail, cost: bcrypt.DefaultCost, now: time.Now}
}

// SignupInput is the registration form.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

func (s *AuthService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(h), nil
}

func (s *AuthService) issue(userID bson.ObjectID) (string, error) {
	token, _, err := s.tokens.Issue(userID.Hex())
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}

// Signup creates an account and returns a token for it.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (token string, user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Signup")
	defer func() { observability.EndSpan(span, err) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if validation.Required(
		validation.Field{Name: "username", Value: in.Username},
		validation.Field{Name: "email", Value: in.Email},
		validation.Field{Name: "password", Value: in.Password},
	) != "" {
		return "", nil, models.NewValidationError(msgAllFieldsRequired)
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return "", nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return "", nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return "", nil, models.NewValidationError(err.Error())
	}

	if existing, err := s.users.GetByUsername(ctx, in.Username); err != nil {
		return "", nil, err
	} else if existing != nil {
		return "", nil, models.NewConflictError("Username already exists")
	}
	if existing, err := s.users.GetByEmail(ctx, in.Email); err != nil {
		return "", nil, err
	} else if existing != nil {
		return "", nil, models.NewConflictError("Email already exists")
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return "", nil, err
	}
	user = &models.User{Username: in.Username, Email: in.Email, Password: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return "", nil, err
	}

	token, err = s.issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Login checks credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, username, password string) (token string, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Login")
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", models.NewNotFoundMessage("User not found")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", models.NewValidationError("Invalid credentials")
	}
	return s.issue(user.ID)
}

// generateOTP returns a uniformly random code in [100000, 999999].
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// ForgotPassword emails a reset code. The code is stored only once the email is sent.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "ForgotPassword")
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.userByEmail(ctx, email, models.NewValidationError(msgEmailNotRegistered))
	if err != nil {
		return err
	}

	code, err := generateOTP()
	if err != nil {
		return models.NewInternalError(err)
	}
	body := fmt.Sprintf("Your OTP for password reset is: %s. It is valid for 2 minutes.", code)
	if err := s.mail.Send(ctx, user.Email, "OTP Verification", body); err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			return models.NewUnavailableError("Email delivery is not configured")
		}
		return models.NewInternalMessage("Failed to send OTP email.", err)
	}

	return s.users.SetOTP(ctx, user.ID, &models.OTP{Code: code, Expiry: s.now().Add(OTPValidity)})
}

// VerifyOTP checks a reset code and marks it verified.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "VerifyOTP")
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.userByEmail(ctx, email, models.NewValidationError(msgUserNotFoundDot))
	if err != nil {
		return err
	}
	otp := user.OTP
	if otp == nil || subtle.ConstantTimeCompare([]byte(otp.Code), []byte(strings.TrimSpace(code))) != 1 {
		return models.NewValidationError("Invalid OTP.")
	}
	if otp.Expiry.Before(s.now()) {
		return models.NewValidationError("OTP has expired.")
	}

	verified := *otp
	verified.Verified = true
	return s.users.SetOTP(ctx, user.ID, &verified)
}

// ChangePassword sets a new password after a verified, unexpired OTP.
func (s *AuthService) ChangePassword(ctx context.Context, email, newPassword string) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "ChangePassword")
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.userByEmail(ctx, email, models.NewValidationError(msgUserNotFoundDot))
	if err != nil {
		return err
	}
	if user.OTP == nil || !user.OTP.Verified {
		return models.NewValidationError("Verify the OTP before changing the password.")
	}
	if user.OTP.Expiry.Before(s.now()) {
		return models.NewValidationError("OTP has expired.")
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

// ChangePasswordViaPassword replaces the password after checking the old one.
func (s *AuthService) ChangePasswordViaPassword(ctx context.Context, email, oldPassword, newPassword string) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "ChangePasswordViaPassword")
	defer func() { observability.EndSpan(span, err) }()

	if validation.Required(
		validation.Field{Name: "email", Value: email},
		validation.Field{Name: "oldPassword", Value: oldPassword},
		validation.Field{Name: "newPassword", Value: newPassword},
	) != "" {
		return models.NewValidationError(msgAllFieldsRequired)
	}
	user, err := s.userByEmail(ctx, email, models.NewNotFoundMessage(msgEmailNotRegistered))
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return models.NewUnauthorizedError("Incorrect old password.")
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

func (s *AuthService) setPassword(ctx context.Context, id bson.ObjectID, password string) error {
	if err := validation.ValidatePassword(password); err != nil {
		return models.NewValidationError(err.Error())
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, hash)
}

// VerifyEmail reports whether email belongs to an account.
func (s *AuthService) VerifyEmail(ctx context.Context, email string) error {
	_, err := s.userByEmail(ctx, email, models.NewValidationError(msgEmailNotRegistered))
	return err
}

func (s *AuthService) userByEmail(ctx context.Context, email string, missing error) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, missing
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, missing
	}
	return user, nil
}

// UserInfo returns the account behind an authenticated request.
func (s *AuthService) UserInfo(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// Authenticate validates a bearer token, rejects revoked tokens and records activity.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, *middleware.TokenClaims, error) {
	if token == "" {
		return nil, nil, models.NewUnauthorizedError("No token provided")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, middleware.ErrTokenExpired) {
			return nil, nil, models.NewUnauthorizedError("Token expired")
		}
		return nil, nil, models.NewUnauthorizedError("Invalid token")
	}
	if s.isRevoked(ctx, claims.JTI) {
		return nil, nil, models.NewUnauthorizedError("Token has been revoked")
	}

	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, nil, models.NewUnauthorizedError("Invalid token")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil, models.NewUnauthorizedError("User not found")
		}
		return nil, nil, err
	}

	now := s.now().UTC()
	if err := s.users.Touch(ctx, id, now); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to record activity", "user_id", claims.UserID, "error", err)
	} else {
		user.LastActivity, user.IsActive, user.IsOnline = now, true, true
	}
	return user, claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.TokenClaims) error {
	rdb := cache.GetClient()
	if rdb == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := rdb.Set(ctx, cache.RevokedTokenKey(claims.JTI), "1", ttl).Err(); err != nil {
		observability.RedisErrorRate.WithLabelValues("set").Inc()
		return models.NewInternalError(err)
	}
	return nil
}

// isRevoked fails open when Redis is unreachable.
func (s *AuthService) isRevoked(ctx context.Context, jti string) bool {
	rdb := cache.GetClient()
	if rdb == nil || jti == "" {
		return false
	}
	n, err := rdb.Exists(ctx, cache.RevokedTokenKey(jti)).Result()
	if err != nil {
		observability.RedisErrorRate.WithLabelValues("exists").Inc()
		return false
	}
	return n > 0
}
