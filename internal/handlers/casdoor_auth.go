package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/nduva/learning-service/internal/config"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/services"
	"github.com/nduva/learning-service/internal/utils"
)

// DevUserHeader selects the development identity when AUTH_MODE=dev
const DevUserHeader = "X-User-ID"

// TokenParser verifies a bearer token and returns its claims
type TokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorAuthMiddleware resolves the caller from a Casdoor JWT, or from the
// development identity when running in dev mode
type CasdoorAuthMiddleware struct {
	parser TokenParser
	users  services.UserService
	mode   string
	logger utils.Logger
}

// NewCasdoorAuthMiddleware creates the middleware for the configured auth mode
func NewCasdoorAuthMiddleware(mode string, cfg config.CasdoorConfig, users services.UserService, logger utils.Logger) *CasdoorAuthMiddleware {
	var parser TokenParser
	if mode == config.AuthModeCasdoor {
		parser = casdoorsdk.NewClient(
			cfg.Endpoint,
			cfg.ClientID,
			cfg.ClientSecret,
			cfg.Cert,
			cfg.Organization,
			cfg.Application,
		)
	}
	return NewAuthMiddlewareWithParser(mode, parser, users, logger)
}

// NewAuthMiddlewareWithParser is used when the token parser is supplied directly
func NewAuthMiddlewareWithParser(mode string, parser TokenParser, users services.UserService, logger utils.Logger) *CasdoorAuthMiddleware {
	return &CasdoorAuthMiddleware{
		parser: parser,
		users:  users,
		mode:   mode,
		logger: logger,
	}
}

// AuthMiddleware rejects requests without a resolvable caller
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := cam.resolve(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "unauthorized",
				Details: err.Error(),
			})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Message: "account is deactivated"})
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the caller when one can be resolved and
// otherwise lets the request through anonymously
func (cam *CasdoorAuthMiddleware) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cam.mode == config.AuthModeCasdoor && c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		if cam.mode != config.AuthModeCasdoor && c.GetHeader(DevUserHeader) == "" {
			c.Next()
			return
		}

		user, err := cam.resolve(c)
		if err == nil && user.IsActive {
			setUser(c, user)
		}
		c.Next()
	}
}

// RequireRoleMiddleware checks the caller has one of the roles; admins always pass
func (cam *CasdoorAuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "forbidden",
				Details: "user role not found in context",
			})
			return
		}

		for _, requiredRole := range requiredRoles {
			if role == requiredRole || role == models.RoleAdmin {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: "forbidden",
			Details: fmt.Sprintf("insufficient permissions, required role: %v", requiredRoles),
		})
	}
}

func (cam *CasdoorAuthMiddleware) resolve(c *gin.Context) (*models.User, error) {
	ctx := c.Request.Context()

	if cam.mode != config.AuthModeCasdoor {
		return cam.users.EnsureDevUser(ctx, strings.TrimSpace(c.GetHeader(DevUserHeader)))
	}

	token, err := bearerToken(c.GetHeader("Authorization"))
	if err != nil {
		return nil, err
	}
	if cam.parser == nil {
		return nil, fmt.Errorf("token verification is not configured")
	}

	claims, err := cam.parser.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	user, err := cam.users.ResolveIdentity(ctx, claimsToIdentity(claims))
	if err != nil {
		cam.logger.Warn("Failed to resolve identity", "error", err)
		return nil, fmt.Errorf("failed to extract user info: %w", err)
	}
	return user, nil
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("authorization header missing")
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", fmt.Errorf("invalid authorization header format")
	}
	return parts[1], nil
}

// claimsToIdentity maps Casdoor claims onto the fields we store
func claimsToIdentity(claims *casdoorsdk.Claims) services.IdentityClaims {
	id := claims.User.Id
	if id == "" {
		id = claims.RegisteredClaims.Subject
	}
	return services.IdentityClaims{
		ID:              id,
		Email:           claims.User.Email,
		DisplayName:     claims.User.DisplayName,
		ProfileImageURL: claims.User.Avatar,
	}
}

func setUser(c *gin.Context, user *models.User) {
	c.Set("user_id", user.ID)
	c.Set("user", user)
	c.Set("user_role", user.Role)
}

// GetUserIDFromContext extracts user ID from Gin context
func GetUserIDFromContext(c *gin.Context) (string, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", fmt.Errorf("user ID not found in context")
	}

	id, ok := userID.(string)
	if !ok {
		return "", fmt.Errorf("invalid user ID type in context")
	}

	return id, nil
}

// GetUserRoleFromContext extracts user role from Gin context
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get("user_role")
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role := roleOf(userRole)
	if role == "" {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}
