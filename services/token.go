package services

import (
	"errors"
	"fmt"
	"time"

	"urbansetu/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
	SessionToken TokenType = "session"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the user and the session the token belongs to.
type Claims struct {
	UserID    string     `json:"user_id"`
	Role      model.Role `json:"role"`
	SessionID string     `json:"sid"`
	Type      TokenType  `json:"typ"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (ts *TokenService) AccessTTL() time.Duration  { return ts.accessTTL }
func (ts *TokenService) RefreshTTL() time.Duration { return ts.refreshTTL }

// Issue signs a token of the given type. A zero ttl picks the default for the type.
func (ts *TokenService) Issue(typ TokenType, userID string, role model.Role, sessionID string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = ts.accessTTL
		if typ == RefreshToken {
			ttl = ts.refreshTTL
		}
	}
	now := ts.now()
	exp := now.Add(ttl)

	claims := Claims{
		UserID:    userID,
		Role:      role,
		SessionID: sessionID,
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// IssuePair returns an access and a refresh token for the same session.
func (ts *TokenService) IssuePair(userID string, role model.Role, sessionID string) (access, refresh string, err error) {
	access, _, err = ts.Issue(AccessToken, userID, role, sessionID, 0)
	if err != nil {
		return "", "", err
	}
	refresh, _, err = ts.Issue(RefreshToken, userID, role, sessionID, 0)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Parse validates signature, expiry and, when want is set, the token type.
func (ts *TokenService) Parse(tokenString string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secret, nil
	}, jwt.WithTimeFunc(ts.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if want != "" && claims.Type != want {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, want)
	}
	return claims, nil
}

// ExpiryOf reads exp without verifying the signature or rejecting expired
// tokens. Used to size blacklist entries.
func (ts *TokenService) ExpiryOf(tokenString string) (time.Time, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
