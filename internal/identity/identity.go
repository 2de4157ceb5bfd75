// Package identity issues and parses declared-identity tokens. A user
// picks a display name once; the signed token is how the client replays
// that choice across sessions, the way the original kept the name in
// local storage. Nothing verifies the name itself; anyone may declare
// any name. The ownership checks built on top of it are a courtesy for
// honest users, not a security boundary.
package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptyName is returned when a declaration carries no usable name.
var ErrEmptyName = errors.New("display name is required")

// ErrInvalidToken is returned for tokens that fail to parse, were
// signed with a different secret or method, expired, or carry no name.
var ErrInvalidToken = errors.New("invalid identity token")

// Declare wraps a display name in a signed HS256 token valid for
// ttlDays. The name is trimmed; a blank name fails with ErrEmptyName
// before any token is built.
func Declare(secret, name string, ttlDays int) (string, time.Time, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", time.Time{}, ErrEmptyName
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"name": name,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// FromToken parses a declared-identity token and returns the display
// name inside it.
func FromToken(secret, raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	name, _ := claims["name"].(string)
	if name == "" {
		return "", ErrInvalidToken
	}
	return name, nil
}
