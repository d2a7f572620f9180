package auth

import (
	"context"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	"github.com/atelierline/agency-backend/internal/contacts"
	"github.com/atelierline/agency-backend/internal/contacts/domain"
)

const (
	CtxActorID   = "actor_id"
	CtxActorRole = "actor_role"
)

// WithActor resolves the caller to a contact record and stores the actor
// in the request context. With a Firebase client the bearer token is
// verified; without one (local development) the X-User-Id header stands
// in for the verified uid.
func WithActor(authClient *fbauth.Client, repo *contacts.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		fuid, email, name := identify(c, authClient)
		if fuid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing or invalid credentials"})
			c.Abort()
			return
		}

		id, err := repo.Ensure(c.Request.Context(), contacts.UpsertContact{
			FirebaseUID: fuid,
			Email:       email,
			DisplayName: name,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "ensure contact: " + err.Error()})
			c.Abort()
			return
		}

		contact, err := repo.GetByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "load contact: " + err.Error()})
			c.Abort()
			return
		}

		c.Set(CtxActorID, contact.ID)
		c.Set(CtxActorRole, string(contact.Role))
		c.Next()
	}
}

func identify(c *gin.Context, authClient *fbauth.Client) (fuid, email, name string) {
	if authClient == nil {
		return strings.TrimSpace(c.GetHeader("X-User-Id")),
			c.GetHeader("X-User-Email"),
			c.GetHeader("X-User-Name")
	}

	token := extractToken(c)
	if token == "" {
		return "", "", ""
	}

	decoded, err := authClient.VerifyIDToken(context.Background(), token)
	if err != nil {
		return "", "", ""
	}

	if e, ok := decoded.Claims["email"].(string); ok {
		email = e
	}
	if n, ok := decoded.Claims["name"].(string); ok {
		name = n
	}
	return decoded.UID, email, name
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}

// ActorFrom rebuilds the Actor from the gin context set by WithActor.
func ActorFrom(c *gin.Context) Actor {
	return Actor{
		ID:   c.GetString(CtxActorID),
		Role: domain.Role(c.GetString(CtxActorRole)),
	}
}
