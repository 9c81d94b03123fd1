package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docanalyzer/internal/shared/auth"
	"docanalyzer/internal/shared/server/respond"
)

const (
	identityKey = "identity"
	// userIDKey mirrors the owner id for packages that cannot import this one.
	userIDKey = "userId"

	guestHeader     = "X-Guest-Id"
	guestPrefix     = "guest:"
	maxGuestIDBytes = 64
)

// Identity kinds.
const (
	KindAnonymous = "anonymous"
	KindGuest     = "guest"
	KindUser      = "user"
)

// Identity is the caller a request acts for. Documents are owned by UserID;
// anonymous callers have an empty UserID.
type Identity struct {
	UserID  string
	Kind    string
	Email   string
	Name    string
	Picture string
}

// Auth resolves the caller identity. A bearer token must verify; otherwise the
// X-Guest-Id header yields a guest identity. Requests with neither proceed
// anonymously.
func Auth(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/v1/auth/google/") {
			c.Next()
			return
		}

		if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
			id, ok := bearerIdentity(signer, header)
			if !ok {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			setIdentity(c, id)
			c.Next()
			return
		}

		if guestID := strings.TrimSpace(c.GetHeader(guestHeader)); guestID != "" {
			if !validGuestID(guestID) {
				respond.Error(c, http.StatusBadRequest, "invalid_guest_id", "X-Guest-Id must be 1-64 letters, digits, '-' or '_'", nil)
				return
			}
			setIdentity(c, Identity{UserID: guestPrefix + guestID, Kind: KindGuest})
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
	c.Set(userIDKey, id.UserID)
}

func bearerIdentity(signer *auth.Signer, header string) (Identity, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || signer == nil {
		return Identity{}, false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, false
	}
	claims, err := signer.Verify(token)
	if err != nil || claims.Sub == "" {
		return Identity{}, false
	}
	return Identity{
		UserID:  claims.Sub,
		Kind:    KindUser,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, true
}

func validGuestID(id string) bool {
	if len(id) > maxGuestIDBytes {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// IdentityFromContext returns the identity set by Auth, or an anonymous one.
func IdentityFromContext(c *gin.Context) Identity {
	if c != nil {
		if val, ok := c.Get(identityKey); ok {
			if id, ok := val.(Identity); ok {
				return id
			}
		}
	}
	return Identity{Kind: KindAnonymous}
}

// UserIDFromContext returns the owner id of the caller, empty when anonymous.
func UserIDFromContext(c *gin.Context) string {
	return IdentityFromContext(c).UserID
}
