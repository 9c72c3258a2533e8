package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/vector-skill/academy/internal/auth"
	"github.com/vector-skill/academy/internal/models"
)

const bearerPrefix = "Bearer "

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidToken      = errors.New("invalid token")
	ErrUserNotFound      = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

// GetSessionData returns the authenticated session for the request, if any.
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func abortWithDetail(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	detail(c, statusCode, message)
	c.Abort()
}

// JWTAuthMiddleware validates bearer tokens and loads the account they
// belong to. An inactive account is rejected even with a valid token.
func JWTAuthMiddleware(db *gorm.DB, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			var message string
			switch err {
			case ErrMissingAuthHeader:
				message = "Not authenticated"
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			abortWithDetail(c, log, http.StatusUnauthorized, err, message)
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			abortWithDetail(c, log, http.StatusUnauthorized, ErrInvalidToken, "Could not validate credentials")
			return
		}

		var user models.User
		if err := db.Where("id = ?", claims.Subject).First(&user).Error; err != nil {
			abortWithDetail(c, log, http.StatusUnauthorized, ErrUserNotFound, "Could not validate credentials")
			return
		}

		if !user.IsActive {
			abortWithDetail(c, log, http.StatusBadRequest, errors.New("inactive user"), "Inactive user")
			return
		}

		setSession(c, &auth.SessionData{
			UserID:   user.ID,
			Email:    user.Email,
			Role:     user.Role,
			IsActive: user.IsActive,
		})

		c.Next()
	}
}

// AdminOnlyMiddleware ensures the authenticated user is an admin
func AdminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			abortWithDetail(c, log, http.StatusUnauthorized, errors.New("no session"), "Not authenticated")
			return
		}

		if !sessionData.IsAdmin() {
			abortWithDetail(c, log, http.StatusForbidden, errors.New("not admin"), "Admin access required")
			return
		}

		c.Next()
	}
}
