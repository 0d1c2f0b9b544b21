package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Identity is the result of validating a bearer credential.
type Identity struct {
	UserID   int64
	Username string
}

// TokenValidator resolves a bearer credential to a user identity. The
// credential itself is opaque to the chat subsystem; token issuance and
// revocation belong to the auth collaborator.
type TokenValidator interface {
	ValidateCredential(ctx context.Context, token string) (*Identity, error)
}

// Claims are the JWT claims this subsystem reads.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// JWTValidator validates HS256 tokens whose subject is the numeric
// user id.
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a validator for HS256 tokens signed with
// secret. issuer is checked when non-empty.
func NewJWTValidator(secret, issuer string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret), issuer: issuer}
}

func (v *JWTValidator) ValidateCredential(ctx context.Context, tokenString string) (*Identity, error) {
	_ = ctx

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrInvalidToken
	}

	return &Identity{UserID: userID, Username: claims.Username}, nil
}

// IssueToken signs a token for the given user. The chat service never
// issues tokens in production; this exists for local runs and tests.
func (v *JWTValidator) IssueToken(userID int64, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
