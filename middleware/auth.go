package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/perchsocial/perch/utils"
)

const (
	// ContextProviderIDKey stores the identity provider's user id in Gin context.
	ContextProviderIDKey = "provider_id"
	// ContextClaimsKey stores the full identity claims for /users/sync.
	ContextClaimsKey = "identity_claims"
)

// AuthRequired ensures the request carries a valid identity-provider session
// token. The service only verifies; issuing and revocation belong to the
// provider.
func AuthRequired(verifier *utils.IdentityVerifier) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		claims, err := verifier.Verify(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextProviderIDKey, claims.Subject)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}
