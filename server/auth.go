package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tkovis/spatial-grid/grid"
	"github.com/tkovis/spatial-grid/store"
)

const (
	resumeTokenExpiry = 24 * time.Hour
	secretSettingKey  = "jwt_secret"
)

// Auth issues and checks resume tokens. A token names one avatar in one
// world; presenting it on join reattaches a lingering avatar.
type Auth struct {
	secret []byte
}

// NewAuth creates a new Auth handler. db may be nil, in which case the
// secret only lives as long as the process.
func NewAuth(db *store.DB) *Auth {
	return &Auth{secret: loadOrCreateSecret(db)}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *store.DB) []byte {
	if db != nil {
		if h := db.GetSetting(secretSettingKey); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting(secretSettingKey, hex.EncodeToString(secret)); err != nil {
			log.Printf("warning: could not persist JWT secret: %v", err)
		}
	}
	return secret
}

// IssueToken returns a signed token for avatar eid in world wid
func (a *Auth) IssueToken(wid string, eid grid.EntityID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"wid": wid,
		"eid": strconv.FormatUint(uint64(eid), 10),
		"exp": now.Add(resumeTokenExpiry).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken validates a token and returns the world and avatar it names
func (a *Auth) ValidateToken(tokenStr string) (string, grid.EntityID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", 0, fmt.Errorf("invalid token")
	}
	wid, ok := claims["wid"].(string)
	if !ok || wid == "" {
		return "", 0, fmt.Errorf("invalid token claims")
	}
	raw, ok := claims["eid"].(string)
	if !ok {
		return "", 0, fmt.Errorf("invalid token claims")
	}
	eid, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || eid == 0 {
		return "", 0, fmt.Errorf("invalid token claims")
	}
	return wid, grid.EntityID(eid), nil
}
