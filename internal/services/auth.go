package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/kv"
	"github.com/RIFAI1010/noedot-backend/internal/mail"
	"github.com/RIFAI1010/noedot-backend/internal/models"
	"github.com/RIFAI1010/noedot-backend/internal/store"
	"github.com/RIFAI1010/noedot-backend/internal/token"
)

const (
	verificationTTL  = 24 * time.Hour
	verifyKeyPrefix  = "verify:"
	refreshKeyPrefix = "refresh:"
)

type AuthService struct {
	store  store.Store
	kv     kv.KV
	tokens *token.Manager
	mailer mail.Mailer
}

func NewAuthService(st store.Store, kvStore kv.KV, tokens *token.Manager, mailer mail.Mailer) *AuthService {
	return &AuthService{store: st, kv: kvStore, tokens: tokens, mailer: mailer}
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register creates an unverified account and emails a 6-digit code.
// Re-registering an unverified email just issues a fresh code.
func (s *AuthService) Register(ctx context.Context, email, name, password string) error {
	existing, err := s.store.UserByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if existing != nil {
		if existing.IsVerified {
			return apperr.Conflict("email already registered")
		}
		return s.issueVerificationCode(ctx, existing)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now()
	user := &models.User{
		Email:     email,
		Name:      name,
		Password:  string(hash),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict("email already registered")
		}
		return err
	}
	return s.issueVerificationCode(ctx, user)
}

func (s *AuthService) issueVerificationCode(ctx context.Context, user *models.User) error {
	code, err := sixDigitCode()
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, verifyKeyPrefix+user.ID.Hex(), code, verificationTTL); err != nil {
		return err
	}
	if err := s.mailer.SendVerificationCode(user.Email, user.Name, code); err != nil {
		log.Error().Err(err).Str("email", user.Email).Msg("failed to send verification code")
		return err
	}
	return nil
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Verify checks the emailed code and activates the account.
func (s *AuthService) Verify(ctx context.Context, email, code string) error {
	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}
	if user.IsVerified {
		return apperr.Conflict("account already verified")
	}

	key := verifyKeyPrefix + user.ID.Hex()
	stored, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return apperr.BadRequest("verification code expired")
		}
		return err
	}
	if stored != code {
		return apperr.BadRequest("invalid verification code")
	}

	if err := s.store.MarkUserVerified(ctx, user.ID); err != nil {
		return err
	}
	return s.kv.Del(ctx, key)
}

// ResendCode issues a new code for an unverified account.
func (s *AuthService) ResendCode(ctx context.Context, email string) error {
	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}
	if user.IsVerified {
		return apperr.Conflict("account already verified")
	}
	return s.issueVerificationCode(ctx, user)
}

// Login checks credentials and returns a fresh token pair. The refresh
// token is recorded in the allowlist so it can be revoked on logout.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthenticated("invalid email or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if !user.IsVerified {
		return nil, apperr.Unauthenticated("account not verified")
	}
	return s.issueTokens(ctx, user)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := s.tokens.NewAccessToken(user.ID.Hex(), user.Email, user.Name)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.NewRefreshToken(user.ID.Hex(), user.Email, user.Name)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, refreshKeyPrefix+refresh, user.ID.Hex(), s.tokens.RefreshTTL()); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh rotates a valid refresh token for a new pair. The old token
// is revoked even if it has not expired.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	if _, err := s.kv.Get(ctx, refreshKeyPrefix+refreshToken); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, apperr.Unauthenticated("refresh token revoked")
		}
		return nil, err
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID())
	if err != nil {
		return nil, apperr.Unauthenticated("invalid token")
	}
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthenticated("user no longer exists")
		}
		return nil, err
	}

	if err := s.kv.Del(ctx, refreshKeyPrefix+refreshToken); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

// Logout revokes a refresh token. Unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.kv.Del(ctx, refreshKeyPrefix+refreshToken)
}

// Me returns the authenticated user's profile.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.Unauthenticated("invalid user id")
	}
	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return user, nil
}
