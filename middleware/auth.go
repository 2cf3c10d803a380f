package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/agrilink/agrilink-api/config"
	"github.com/agrilink/agrilink-api/models"
)

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Phone string `json:"phone"`
}

// Validate does nothing for this example, but we need
// it to satisfy validator.CustomClaims interface.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
// Tokens are issued by the auth provider and signed with a shared HS256 secret.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	issuer := cfg.AuthProviderURL
	if !strings.HasPrefix(issuer, "http://") && !strings.HasPrefix(issuer, "https://") {
		issuer = "https://" + issuer
	}
	if !strings.HasSuffix(issuer, "/") {
		issuer += "/"
	}

	keyFunc := func(ctx context.Context) (interface{}, error) {
		return []byte(cfg.AuthJWTSecret), nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		issuer,
		[]string{cfg.AuthAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator")
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("Encountered error while validating JWT: %v", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"message":"Failed to validate token.","code":"INVALID_TOKEN"}`)); writeErr != nil {
			log.Printf("Failed to write error response: %v", writeErr)
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			// Store the validated claims in Gin context
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			// Extract the provider subject from the sub claim
			c.Set("auth_subject", token.RegisteredClaims.Subject)
			c.Set("validated_claims", token)

			// Keep the raw bearer token available for provider calls
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				c.Set("access_token", strings.TrimPrefix(authHeader, "Bearer "))
			}

			c.Next()
		}

		// Use the JWT middleware to check the token
		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
	}
}

// GetAuthSubject extracts the auth provider subject from the Gin context
func GetAuthSubject(c *gin.Context) (string, error) {
	subject, exists := c.Get("auth_subject")
	if !exists {
		return "", &AuthError{Code: "MISSING_SUBJECT", Message: "Auth subject not found in context"}
	}

	subjectStr, ok := subject.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_SUBJECT", Message: "Auth subject is not a string"}
	}

	return subjectStr, nil
}

// GetAccessToken extracts the raw bearer token from the Gin context
func GetAccessToken(c *gin.Context) (string, error) {
	token, exists := c.Get("access_token")
	if !exists {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found in context"}
	}

	tokenStr, ok := token.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_TOKEN", Message: "Access token is not a string"}
	}

	return tokenStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get("validated_claims")
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// RequireRole is a middleware that loads the caller's profile and aborts
// unless its role is one of the allowed roles. The loaded user is cached
// in the context under "current_user".
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		authID, err := GetAuthSubject(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Could not extract user information",
				"code":    "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		db := config.GetDB()
		var user models.User
		if err := db.Where("auth_id = ?", authID).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "User profile not found. Please verify your phone number first.",
				"code":    "USER_NOT_FOUND",
			})
			c.Abort()
			return
		}

		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Your account has been deactivated",
				"code":    "ACCOUNT_DISABLED",
			})
			c.Abort()
			return
		}

		for _, role := range roles {
			if user.Role == role {
				c.Set("current_user", &user)
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "You do not have permission to access this resource",
			"code":    "PERMISSION_DENIED",
		})
		c.Abort()
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
