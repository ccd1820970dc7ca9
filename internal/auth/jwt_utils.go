package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims defines what is inside the token (the acting user's "ID card").
type Claims struct {
	UserID     string `json:"user_id,omitempty"`
	StoreID    string `json:"store_id,omitempty"`
	IsAdmin    bool   `json:"is_admin"`
	SuperAdmin string `json:"super_admin,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and validates HS256 tokens with a configured secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is not configured")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue creates a signed token for a store user.
func (t *Tokens) Issue(actor Actor) (string, error) {
	return t.sign(&Claims{
		UserID:  actor.UserID.String(),
		StoreID: actor.StoreID.String(),
		IsAdmin: actor.IsAdmin,
	})
}

// IssueSuperAdmin creates a signed token for a superadmin username.
func (t *Tokens) IssueSuperAdmin(username string) (string, error) {
	return t.sign(&Claims{SuperAdmin: username})
}

func (t *Tokens) sign(claims *Claims) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(t.now()),
		ExpiresAt: jwt.NewNumericDate(t.now().Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate checks if a token is fake or expired.
func (t *Tokens) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Actor turns store-user claims into the acting-user context.
func (c *Claims) Actor() (Actor, error) {
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return Actor{}, errors.New("token has no user")
	}
	storeID, err := uuid.Parse(c.StoreID)
	if err != nil {
		return Actor{}, errors.New("token has no store")
	}
	return Actor{UserID: userID, StoreID: storeID, IsAdmin: c.IsAdmin}, nil
}
