package api

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	sessionCookieName = "admin_session"
	sessionTTL        = 2 * time.Hour
)

// newSessionSecret generates a per-process secret when none is configured.
// Sessions then do not survive restarts, which is acceptable for a
// single-operator admin dashboard.
func newSessionSecret() []byte {
	secret := make([]byte, 32)
	rand.Read(secret)
	return secret
}

// signSession produces an expiring token: "<unix-expiry>.<hmac-sha256>".
func signSession(secret []byte, expiresAt time.Time) string {
	msg := strconv.FormatInt(expiresAt.Unix(), 10)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(msg))
	return msg + "." + hex.EncodeToString(mac.Sum(nil))
}

// verifySession checks the token's signature and expiry.
func verifySession(secret []byte, token string) bool {
	msg, sig, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}

	expiresAt, err := strconv.ParseInt(msg, 10, 64)
	if err != nil {
		return false
	}
	if time.Now().Unix() >= expiresAt {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(msg))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sig))
}
