package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"plansly/backend/internal/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Context key for the authenticated user's id.
const ContextUserIDKey = "userID"

// AuthMiddleware creates a Gin middleware for JWT authentication. The
// token's Subject claim carries the user's id in hex.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		userID, err := parseToken(parts[1], jwtSecret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "Token has expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
			}
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// parseToken validates the JWT and returns the user id from its
// Subject claim.
func parseToken(tokenString, jwtSecret string) (primitive.ObjectID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !token.Valid || claims.Subject == "" {
		return primitive.NilObjectID, errors.New("invalid token or missing subject claim")
	}
	return primitive.ObjectIDFromHex(claims.Subject)
}

// WebsocketAuthenticator resolves the connecting user for the realtime
// endpoint. Browsers cannot set headers on websocket handshakes, so a
// "token" query parameter is accepted alongside the Bearer header.
func WebsocketAuthenticator(jwtSecret string) func(r *http.Request) (primitive.ObjectID, error) {
	return func(r *http.Request) (primitive.ObjectID, error) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			parts := strings.Split(r.Header.Get("Authorization"), " ")
			if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			return primitive.NilObjectID, errors.New("missing token")
		}
		return parseToken(tokenString, jwtSecret)
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// respondError translates service errors into JSON responses using the
// status code they carry.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body := gin.H{"error": appErr.Message, "code": appErr.Code}
		if appErr.Details != nil {
			body["details"] = appErr.Details
		}
		c.AbortWithStatusJSON(appErr.StatusCode, body)
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "an unexpected error occurred"})
}

// Helper function to get the authenticated user's id from context.
func getUserIDFromContext(c *gin.Context) (primitive.ObjectID, error) {
	idRaw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return primitive.NilObjectID, errors.New("user ID not found in context")
	}
	id, ok := idRaw.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("invalid user ID type in context")
	}
	return id, nil
}

// pathObjectID parses an ObjectID path parameter, aborting with 400 on
// malformed input.
func pathObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("invalid %s", param))
		return primitive.NilObjectID, false
	}
	return id, true
}
