package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims binds a connection to one seat of one game.
type Claims struct {
	GameID    string
	PlayerID  int
	Role      string
	ExpiresAt time.Time
}

// seatClaims is the JWT payload.
type seatClaims struct {
	jwt.RegisteredClaims
	GameID   string `json:"game_id"`
	PlayerID int    `json:"player_id"`
	Role     string `json:"role"`
}

// DefaultTokenExpiry is the default lifetime for seat tokens.
const DefaultTokenExpiry = 24 * time.Hour

const issuer = "werewolf"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// GenerateSeatToken creates an HS256 token for playerID in gameID. The role
// claim decides which ROLE-level entries the holder may read.
func GenerateSeatToken(gameID string, playerID int, role string, secret []byte, expiry time.Duration) (token string, expiresAt time.Time, err error) {
	if len(secret) == 0 {
		return "", time.Time{}, fmt.Errorf("token secret is required")
	}
	if gameID == "" || playerID <= 0 {
		return "", time.Time{}, fmt.Errorf("game_id and player_id are required")
	}
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	now := time.Now().UTC()
	expiresAt = now.Add(expiry)
	claims := seatClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   gameID + ":" + strconv.Itoa(playerID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		GameID:   gameID,
		PlayerID: playerID,
		Role:     role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifySeatToken verifies the signature and expiry and returns the claims.
func VerifySeatToken(token string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	var parsed seatClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed.GameID == "" || parsed.PlayerID <= 0 {
		return nil, fmt.Errorf("%w: missing game_id or player_id", ErrInvalidToken)
	}
	return &Claims{
		GameID:    parsed.GameID,
		PlayerID:  parsed.PlayerID,
		Role:      parsed.Role,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}, nil
}
