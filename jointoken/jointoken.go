// Package jointoken mints and verifies the self-contained capability tokens
// embedded in passport join links. A token is
// "<unix timestamp>.<hex(HMAC-SHA256(secret, "userID:serverID:timestamp"))>"
// and is valid for ten minutes from minting. Possession of the secret is
// required to forge one; rotating the secret invalidates every outstanding
// token.
package jointoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TTL is how long a minted token stays verifiable.
const TTL = 600 * time.Second

// Mint produces a join token binding userID and serverID to the given
// instant.
func Mint(userID, serverID, secret string, now time.Time) string {
	ts := now.Unix()
	return fmt.Sprintf("%d.%s", ts, sign(userID, serverID, ts, secret))
}

// Verify reports whether token is a well-formed, unexpired join token for
// (userID, serverID). Any parse failure is a verification failure; the
// signature comparison is constant-time.
func Verify(userID, serverID, token, secret string, now time.Time) bool {
	if secret == "" {
		return false
	}

	tsPart, sigPart, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return false
	}
	if now.Unix()-ts > int64(TTL/time.Second) {
		return false
	}

	provided, err := hex.DecodeString(sigPart)
	if err != nil {
		return false
	}

	expected, err := hex.DecodeString(sign(userID, serverID, ts, secret))
	if err != nil {
		return false
	}

	return hmac.Equal(provided, expected)
}

func sign(userID, serverID string, ts int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s:%d", userID, serverID, ts)
	return hex.EncodeToString(mac.Sum(nil))
}
