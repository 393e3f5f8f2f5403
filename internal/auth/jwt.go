package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/yasinhessnawi1/authkeeper/internal/config"
	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTService issues and verifies HS256 session tokens. Tokens are never
// stored: a token is valid while its signature checks out and it has not
// expired.
type JWTService struct {
	secret []byte
	expiry time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// JWTOption customises a JWTService.
type JWTOption func(*JWTService)

// WithJWTClock replaces the time source used for issuing and verifying.
func WithJWTClock(now func() time.Time) JWTOption {
	return func(s *JWTService) {
		s.now = now
	}
}

// NewJWTService creates a JWTService from the JWT settings.
func NewJWTService(cfg *config.JWTSettings, opts ...JWTOption) *JWTService {
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = constants.DefaultJWTExpiry
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = constants.DefaultJWTIssuer
	}

	s := &JWTService{
		secret: []byte(cfg.Secret),
		expiry: expiry,
		issuer: issuer,
		now:    time.Now,
		// Time based claims are checked in Verify against s.now, so the
		// parser only checks the signature and algorithm.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Expiry returns the configured token lifetime.
func (s *JWTService) Expiry() time.Duration {
	return s.expiry
}

// Issue implements SessionTokens.
func (s *JWTService) Issue(userID int64, email string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := SessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, claims.ExpiresAt.Time, nil
}

// Verify implements TokenVerifier. Every failure is reported as an invalid
// token; the message distinguishes expiry so clients know to log in again.
func (s *JWTService) Verify(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, utils.NewInvalidTokenError("")
	}

	claims := &SessionClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, utils.NewInvalidTokenError("")
	}

	now := s.now()
	if claims.ExpiresAt == nil || !claims.VerifyExpiresAt(now, true) {
		return nil, utils.NewInvalidTokenError(constants.MsgTokenExpired)
	}
	if !claims.VerifyNotBefore(now, false) || !claims.VerifyIssuer(s.issuer, true) {
		return nil, utils.NewInvalidTokenError("")
	}
	if claims.UserID == 0 || claims.Email == "" {
		return nil, utils.NewInvalidTokenError("")
	}

	return claims, nil
}

// IsExpired reports whether err is an invalid token error caused by expiry.
func IsExpired(err error) bool {
	var appErr *utils.AppError
	return errors.As(err, &appErr) && errors.Is(err, utils.ErrInvalidToken) && appErr.Message == constants.MsgTokenExpired
}
