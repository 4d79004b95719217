package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// Claims represents JWT payload.
type Claims struct {
	Role     string   `json:"role"`
	Username string   `json:"username"`
	Students []string `json:"students,omitempty"`
	Type     string   `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c Claims) UserID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}

// TokenConfig holds the signing parameters.
type TokenConfig struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issue issues signed access and refresh tokens for p.
func Issue(p Principal, cfg TokenConfig, now time.Time) (TokenPair, error) {
	accessExp := now.Add(cfg.AccessTTL)
	refreshExp := now.Add(cfg.RefreshTTL)

	build := func(typ string, exp time.Time) Claims {
		return Claims{
			Role:     p.Role,
			Username: p.Username,
			Students: p.StudentIDs,
			Type:     typ,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Issuer:    cfg.Issuer,
				Subject:   strconv.FormatInt(p.UserID, 10),
				ExpiresAt: jwt.NewNumericDate(exp),
				IssuedAt:  jwt.NewNumericDate(now),
			},
		}
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, build(tokenAccess, accessExp)).SignedString([]byte(cfg.SigningKey))
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, build(tokenRefresh, refreshExp)).SignedString([]byte(cfg.SigningKey))
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.Join(ErrInvalidToken, errors.New("issuer mismatch"))
	}
	return *claims, nil
}

// parseTyped validates a token and checks its type claim.
func parseTyped(tokenStr, typ string, cfg TokenConfig) (Claims, error) {
	claims, err := Parse(tokenStr, cfg.SigningKey, cfg.Issuer)
	if err != nil {
		return Claims{}, err
	}
	if claims.Type != typ {
		return Claims{}, errors.Join(ErrInvalidToken, errors.New("wrong token type"))
	}
	return claims, nil
}
