package session

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// ComputeToken derives the session capability from its identity. The parts
// are separated so that shifting characters between them changes the hash.
func ComputeToken(sessionID int, accountName, peer string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		strconv.Itoa(sessionID), accountName, peer,
	}, "\x00")))
	return hex.EncodeToString(sum[:])
}
