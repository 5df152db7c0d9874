package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
)

const defaultStation = "kiosk"

type sessionStore interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// AuthConfig defines configuration for the kiosk gate. SecretHash, a bcrypt
// hash, takes precedence over the plain Secret.
type AuthConfig struct {
	Secret      string
	SecretHash  string
	TokenSecret string
	TokenTTL    time.Duration
	Issuer      string
}

// AuthService unlocks kiosks with the shared secret and validates sessions.
type AuthService struct {
	sessions  sessionStore
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(sessions sessionStore, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = 12 * time.Hour
	}
	return &AuthService{sessions: sessions, validator: validate, logger: logger, config: config, now: time.Now}
}

// HashSecret returns a bcrypt hash suitable for ACCESS_SECRET_HASH.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Unlock checks the shared secret and issues a session token.
func (s *AuthService) Unlock(ctx context.Context, req models.UnlockRequest) (*models.UnlockResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unlock payload")
	}
	if !s.secretMatches(req.Secret) {
		s.logger.Warn("kiosk unlock rejected", zap.String("ip", req.IP), zap.String("station", req.Station))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	station := strings.TrimSpace(req.Station)
	if station == "" {
		station = defaultStation
	}

	token, claims, err := s.issue(station)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session token")
	}

	s.logger.Info("kiosk unlocked", zap.String("station", station), zap.String("session_id", claims.ID), zap.String("ip", req.IP))
	return &models.UnlockResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.config.TokenTTL.Seconds()),
		ExpiresAt:   claims.ExpiresAt.Time,
		Station:     station,
	}, nil
}

// ValidateToken parses a session token and rejects revoked sessions.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session")
	}
	if revoked {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session locked")
	}
	return claims, nil
}

// Lock revokes the session until its token would have expired.
func (s *AuthService) Lock(ctx context.Context, claims *models.SessionClaims) error {
	if claims == nil || claims.ID == "" {
		return appErrors.ErrUnauthorized
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if err := s.sessions.Revoke(ctx, claims.ID, ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock session")
	}
	s.logger.Info("kiosk locked", zap.String("station", claims.Station), zap.String("session_id", claims.ID))
	return nil
}

// Session describes the claims of an active session.
func (s *AuthService) Session(claims *models.SessionClaims) models.SessionInfo {
	info := models.SessionInfo{SessionID: claims.ID, Station: claims.Station}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info
}

func (s *AuthService) secretMatches(candidate string) bool {
	if s.config.SecretHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.config.SecretHash), []byte(candidate)) == nil
	}
	if s.config.Secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.config.Secret), []byte(candidate)) == 1
}

func (s *AuthService) issue(station string) (string, *models.SessionClaims, error) {
	issuedAt := s.now().UTC()
	claims := &models.SessionClaims{
		Station: station,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   station,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}
