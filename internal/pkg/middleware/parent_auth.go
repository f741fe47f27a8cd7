package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/edupay/app/repository"
	"github.com/ManuelReschke/edupay/internal/pkg/security"
	"github.com/ManuelReschke/edupay/internal/pkg/usercontext"
)

// RequireParentAuth authenticates requests carrying an "Authorization: Bearer"
// parent access token and stores the parent in the request locals. Child
// tokens are refused with 403.
func RequireParentAuth(secret string, parents repository.ParentRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := authenticate(c, secret)
		if err != nil {
			return err
		}
		if claims == nil {
			return nil
		}
		if claims.Role != security.RoleParent {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Parent account required"})
		}
		return loadParent(c, parents, claims.AccountID)
	}
}

// RequireAccountAuth accepts both parent and child access tokens.
func RequireAccountAuth(secret string, parents repository.ParentRepository, children repository.ChildRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := authenticate(c, secret)
		if err != nil {
			return err
		}
		if claims == nil {
			return nil
		}
		if claims.Role == security.RoleParent {
			return loadParent(c, parents, claims.AccountID)
		}

		child, err := children.GetByID(claims.AccountID)
		if err != nil {
			return lookupFailed(c, "child", err)
		}
		usercontext.SetParentContext(c, usercontext.ParentContext{
			ChildID:         child.ID,
			Role:            security.RoleChild,
			Name:            child.Name,
			IsAuthenticated: true,
		})
		return c.Next()
	}
}

// authenticate parses the bearer token. When it returns nil claims the 401
// response has already been written.
func authenticate(c *fiber.Ctx, secret string) (*security.AccessTokenClaims, error) {
	token := extractBearerToken(c)
	if token == "" {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing access token"})
	}
	claims, err := security.ParseAccessToken(token, secret)
	if err != nil {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid or expired access token"})
	}
	return claims, nil
}

func loadParent(c *fiber.Ctx, parents repository.ParentRepository, id uint) error {
	parent, err := parents.GetByID(id)
	if err != nil {
		return lookupFailed(c, "parent", err)
	}
	usercontext.SetParentContext(c, usercontext.ParentContext{
		ParentID:        parent.ID,
		Role:            security.RoleParent,
		Name:            parent.Name,
		MobilePhone:     parent.MobilePhone,
		IsAuthenticated: true,
	})
	return c.Next()
}

func lookupFailed(c *fiber.Ctx, kind string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Unknown account"})
	}
	log.Errorf("[Auth] %s lookup failed: %v", kind, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Token verification failed"})
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
