package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the user identity; TokenType tells access and refresh
// tokens apart since they are signed with different secrets.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenGenerator interface {
	GenerateAccessToken(userID string, email string) (string, error)
	GenerateRefreshToken(userID string, email string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// JWTTokenGenerator issues HS256 tokens.
type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	parser *jwt.Parser
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		parser:             jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID, email string) (string, error) {
	return j.sign(userID, email, tokenTypeAccess, j.AccessTokenTTL, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(userID, email string) (string, error) {
	return j.sign(userID, email, tokenTypeRefresh, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(userID, email, tokenType string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (j *JWTTokenGenerator) keyFor(token *jwt.Token) (interface{}, error) {
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	switch claims.TokenType {
	case tokenTypeAccess:
		return j.AccessTokenSecret, nil
	case tokenTypeRefresh:
		return j.RefreshTokenSecret, nil
	}
	return nil, ErrInvalidToken
}

// ValidateToken verifies the signature with the secret matching the token's
// typ claim. Expiry is reported separately from every other failure.
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := j.parser.ParseWithClaims(tokenString, claims, j.keyFor)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil || !token.Valid:
		return nil, ErrInvalidToken
	}
	return claims, nil
}
