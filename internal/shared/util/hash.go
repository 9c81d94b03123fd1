package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// AnonymousOwner is the storage namespace for documents created without an identity.
const AnonymousOwner = "anonymous"

// OwnerKey returns a filesystem-safe namespace for an owner ID. Guest and
// signed-in owners hash to distinct keys; an empty owner maps to AnonymousOwner.
func OwnerKey(ownerID string) string {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return AnonymousOwner
	}
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:])
}
