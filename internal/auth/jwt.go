package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"interview/internal/models"
)

// UserClaims is the identity token minted by the (external) auth service.
// Subject carries the user id.
type UserClaims struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// RoomClaims is the short-lived capability minted by the lifecycle controller
// when a participant resolves a room. The signaling endpoint trusts these
// claims for identity, never the join message fields.
type RoomClaims struct {
	RoomID   string      `json:"roomId"`
	UserID   string      `json:"userId"`
	UserName string      `json:"userName"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies the service's HS256 tokens.
type Tokens struct {
	secret  []byte
	roomTTL time.Duration
}

func NewTokens(secret string, roomTTL time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), roomTTL: roomTTL}
}

func (t *Tokens) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return t.secret, nil
}

func (t *Tokens) ParseUserToken(tokenStr string) (*models.User, error) {
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, t.keyFunc)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return &models.User{ID: claims.Subject, Name: claims.Name, Role: claims.Role}, nil
}

func (t *Tokens) IssueUserToken(user models.User, ttl time.Duration) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, &UserClaims{
		Name: user.Name,
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}).SignedString(t.secret)
}

func (t *Tokens) IssueRoomToken(roomID string, user models.User) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, &RoomClaims{
		RoomID:   roomID,
		UserID:   user.ID,
		UserName: user.Name,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.roomTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}).SignedString(t.secret)
}

func (t *Tokens) ParseRoomToken(tokenStr string) (*RoomClaims, error) {
	claims := &RoomClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, t.keyFunc)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.RoomID == "" || claims.UserID == "" {
		return nil, errors.New("invalid room token")
	}
	return claims, nil
}

// ExtractTokenFromHeader pulls the bearer token out of an Authorization header.
func ExtractTokenFromHeader(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("authorization header must be of form: Bearer <token>")
	}
	return parts[1], nil
}
