package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/itchan-dev/caster/shared/domain"
	internal_errors "github.com/itchan-dev/caster/shared/errors"
	"github.com/itchan-dev/caster/shared/logger"
)

// SessionService issues and reads the session tokens that carry the author identity.
type SessionService interface {
	NewToken(identity domain.Identity) (string, error)
	DecodeIdentity(token string) (domain.Identity, error)
}

type Jwt struct {
	secretKey string
	ttl       time.Duration
}

func New(secretKey string, ttl time.Duration) SessionService {
	return &Jwt{secretKey, ttl}
}

func (j *Jwt) NewToken(identity domain.Identity) (string, error) {
	claims := jwt.MapClaims{}
	claims["fid"] = identity.Fid
	claims["username"] = identity.Username
	claims["name"] = identity.DisplayName
	claims["avatar"] = identity.AvatarURL
	claims["admin"] = identity.Elevated
	claims["exp"] = time.Now().Add(j.ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		logger.Log.Error("failed to sign session token", "error", err)
		return "", fmt.Errorf("can't create token: %w", err)
	}
	return tokenString, nil
}

func (j *Jwt) DecodeIdentity(jwtStr string) (domain.Identity, error) {
	token, err := jwt.Parse(jwtStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, internal_errors.Unauthorized(fmt.Sprintf("Unexpected signing method: %v", token.Header["alg"]))
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		logger.Log.Debug("session token rejected", "error", err)
		return domain.Identity{}, internal_errors.Unauthorized("Invalid token signature")
	}
	if !token.Valid {
		return domain.Identity{}, internal_errors.Unauthorized("Invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, internal_errors.Unauthorized("Invalid session claims")
	}

	fid, ok := claims["fid"].(float64)
	if !ok || fid <= 0 {
		return domain.Identity{}, internal_errors.Unauthorized("Session token has no fid")
	}
	identity := domain.Identity{Fid: domain.Fid(fid)}
	identity.Username, _ = claims["username"].(string)
	identity.DisplayName, _ = claims["name"].(string)
	identity.AvatarURL, _ = claims["avatar"].(string)
	identity.Elevated, _ = claims["admin"].(bool)
	return identity, nil
}
