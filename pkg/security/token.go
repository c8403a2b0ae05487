// Package security contains credential generation helpers
package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bitwise74/paste-api/pkg/snowflake"
)

const (
	tokenAlphabet     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenRandomLength = 25

	tokenIdxBits = 6                   // 6 bits to represent an alphabet index
	tokenIdxMask = 1<<tokenIdxBits - 1 // All 1-bits, as many as tokenIdxBits
)

var ErrMalformedToken = errors.New("malformed paste token")

// GenerateToken mints the ownership token handed out exactly once when a
// paste is created. Layout: base64(paste_id) + "." + base64(created_unix) +
// "." + 25 random alphanumerics. The embedded fields exist purely for
// debugging, authorization always compares the full token against the
// stored row.
func GenerateToken(pasteID snowflake.ID, createdAt time.Time) (string, error) {
	buf := make([]byte, 0, tokenRandomLength)
	raw := make([]byte, 2*tokenRandomLength)

	// 6-bit draws, rejecting the two values past the alphabet, so every
	// character stays equally likely
	for len(buf) < tokenRandomLength {
		if _, err := rand.Read(raw); err != nil {
			return "", fmt.Errorf("failed to read random bytes, %w", err)
		}

		for _, b := range raw {
			if idx := int(b & tokenIdxMask); idx < len(tokenAlphabet) {
				buf = append(buf, tokenAlphabet[idx])

				if len(buf) == tokenRandomLength {
					break
				}
			}
		}
	}

	id := base64.URLEncoding.EncodeToString([]byte(pasteID.String()))
	ts := base64.URLEncoding.EncodeToString([]byte(strconv.FormatInt(createdAt.Unix(), 10)))

	return id + "." + ts + "." + string(buf), nil
}

// DecodeTokenPasteID extracts the paste ID embedded in a token. Only ever
// used for tracing, never for authorization.
func DecodeTokenPasteID(token string) (snowflake.ID, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, ErrMalformedToken
	}

	raw, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w, %s", ErrMalformedToken, err)
	}

	id, err := snowflake.Parse(string(raw))
	if err != nil {
		return 0, fmt.Errorf("%w, %s", ErrMalformedToken, err)
	}

	return id, nil
}
