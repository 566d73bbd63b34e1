package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionAlreadyActive = errors.New("another session is already active, please sign out there first")
)

// Claims extends the registered JWT claims with the author identity
// and the permission codes stamped in at login.
type Claims struct {
	jwt.RegisteredClaims
	AuthorID    int      `json:"author_id"`
	RoleID      int      `json:"role_id"`
	Permissions []string `json:"permissions,omitempty"`
}

// AuthService issues and validates author tokens and owns the
// one-session-per-author rule backing them.
type AuthService struct {
	cfg *config.Config
	rdb *redis.Client
}

func NewAuthService(cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb}
}

// HashPassword bcrypt-hashes a password at the configured cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword reports a wrong password as ErrInvalidCredentials, so
// callers never branch on bcrypt's own errors.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateAuthorToken signs a JWT for an author and claims the single
// author session. An author already signed in elsewhere gets
// ErrSessionAlreadyActive; page locks assume one device per author,
// so the session store has to enforce the same thing.
func (s *AuthService) GenerateAuthorToken(ctx context.Context, authorID, roleID int, permissions []string) (string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(authorID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		AuthorID:    authorID,
		RoleID:      roleID,
		Permissions: permissions,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	// SetNX so two racing logins cannot both win. The session key
	// expires together with the token.
	sessionKey := config.CacheKey.AuthorSessionKey(authorID)
	claimed, err := s.rdb.SetNX(ctx, sessionKey, jti, s.cfg.JWTExpiry).Result()
	if err != nil {
		return "", fmt.Errorf("claim session: %w", err)
	}
	if !claimed {
		return "", ErrSessionAlreadyActive
	}

	return signed, nil
}

// ValidateToken parses a JWT and returns its claims. Signature, expiry
// and the HS256 method requirement are all checked by the parse.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (interface{}, error) { return []byte(s.cfg.JWTSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("unexpected claims shape")
	}
	return claims, nil
}

// ValidateAuthorSession checks that a token's JTI is still the live
// session. A token outlived by a newer login or a sign-out fails here
// even though its signature is fine.
func (s *AuthService) ValidateAuthorSession(ctx context.Context, authorID int, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.AuthorSessionKey(authorID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return errors.New("no live session")
	case err != nil:
		return fmt.Errorf("read session: %w", err)
	case stored != jti:
		return errors.New("session superseded")
	}
	return nil
}

// ResetAuthorSession signs an author out, freeing the session slot for
// the next login.
func (s *AuthService) ResetAuthorSession(ctx context.Context, authorID int) error {
	return s.rdb.Del(ctx, config.CacheKey.AuthorSessionKey(authorID)).Err()
}
