package usercontext

import "github.com/gofiber/fiber/v2"

// ParentContext is the authenticated acting party of a request. For a child
// session ParentID is zero and ChildID names the child.
type ParentContext struct {
	ParentID        uint   `json:"parent_id"`
	ChildID         uint   `json:"child_id,omitempty"`
	Role            string `json:"role"`
	Name            string `json:"name"`
	MobilePhone     string `json:"mobile_phone"`
	IsAuthenticated bool   `json:"is_authenticated"`
}

// GetParentContext retrieves the parent context from fiber context.
// Returns an anonymous context if none is set.
func GetParentContext(c *fiber.Ctx) ParentContext {
	if ctx, ok := c.Locals(KeyParentContext).(ParentContext); ok {
		return ctx
	}
	return ParentContext{}
}

func SetParentContext(c *fiber.Ctx, pc ParentContext) {
	c.Locals(KeyParentContext, pc)
	c.Locals(KeyParentID, pc.ParentID)
	if pc.ChildID != 0 {
		c.Locals(KeyChildID, pc.ChildID)
	}
}

// GetParentID returns the current parent's ID, or 0 if not authenticated
func GetParentID(c *fiber.Ctx) uint {
	return GetParentContext(c).ParentID
}

// GetChildID returns the signed in child's ID, or 0 for parents and
// anonymous requests.
func GetChildID(c *fiber.Ctx) uint {
	return GetParentContext(c).ChildID
}

func IsAuthenticated(c *fiber.Ctx) bool {
	return GetParentContext(c).IsAuthenticated
}
