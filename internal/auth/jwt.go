package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid client credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const issuer = "support-triage"

// Service issues and verifies bearer tokens for API clients. A client proves
// itself with a configured id and a secret checked against its bcrypt hash.
type Service struct {
	secret     []byte
	ttl        time.Duration
	clientID   string
	secretHash []byte
	now        func() time.Time
}

type Claims struct {
	ClientID string `json:"cid"`
	jwt.RegisteredClaims
}

type Client struct {
	ID string
}

func NewService(secret string, ttl time.Duration, clientID, clientSecretHash string) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		secret:     []byte(secret),
		ttl:        ttl,
		clientID:   clientID,
		secretHash: []byte(clientSecretHash),
		now:        time.Now,
	}, nil
}

// IssueToken exchanges client credentials for a signed token.
func (s *Service) IssueToken(clientID, clientSecret string) (string, time.Time, error) {
	if s.clientID == "" || len(s.secretHash) == 0 {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(clientID), []byte(s.clientID)) != 1 {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.secretHash, []byte(clientSecret)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.GenerateToken(Client{ID: clientID})
}

func (s *Service) GenerateToken(client Client) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		ClientID: client.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   client.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

func (s *Service) ParseToken(token string) (Client, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return Client{}, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ClientID == "" {
		return Client{}, ErrInvalidToken
	}
	return Client{ID: claims.ClientID}, nil
}

// HashSecret produces the value stored in auth.client_secret_hash.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type ctxKey struct{}

func WithClient(ctx context.Context, client Client) context.Context {
	return context.WithValue(ctx, ctxKey{}, client)
}

func ClientFromContext(ctx context.Context) (Client, bool) {
	client, ok := ctx.Value(ctxKey{}).(Client)
	return client, ok
}
