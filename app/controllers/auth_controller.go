package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/edupay/app/models"
	"github.com/ManuelReschke/edupay/app/repository"
	"github.com/ManuelReschke/edupay/internal/pkg/security"
	"github.com/ManuelReschke/edupay/internal/pkg/usercontext"
)

const otpAttempts = 5

type loginRequest struct {
	MobilePhone string `json:"mobile_phone" form:"mobile_phone" validate:"required,max=20"`
	Password    string `json:"password" form:"password" validate:"required"`
}

type registerRequest struct {
	Name        string `json:"name" form:"name" validate:"required,min=2,max=100"`
	MobilePhone string `json:"mobile_phone" form:"mobile_phone" validate:"required,min=5,max=20"`
	Password1   string `json:"password1" form:"password1" validate:"required,min=6,max=72"`
	Password2   string `json:"password2" form:"password2" validate:"required"`
}

type childRegisterRequest struct {
	Name  string `json:"name" form:"name" validate:"required,max=100"`
	Grade int    `json:"grade" form:"grade" validate:"gte=1"`
}

type childLoginRequest struct {
	OTPCode string `json:"otp_code" form:"otp_code" validate:"required,len=6,numeric"`
}

// AuthController registers accounts and issues access tokens to parents and
// children.
type AuthController struct {
	parents   repository.ParentRepository
	children  repository.ChildRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthController(parents repository.ParentRepository, children repository.ChildRepository, jwtSecret string, tokenTTL time.Duration) *AuthController {
	if tokenTTL <= 0 {
		tokenTTL = 30 * time.Minute
	}
	return &AuthController{parents: parents, children: children, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// HandleRegister creates a parent account.
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "Request body must be JSON or a form"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.MobilePhone = strings.TrimSpace(req.MobilePhone)
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": validationMessage(err)})
	}
	if req.Password1 != req.Password2 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "Passwords do not match"})
	}

	if _, err := ac.parents.GetByMobilePhone(req.MobilePhone); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Mobile phone is already registered"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("[Auth] parent lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	parent, err := models.NewParent(req.Name, req.MobilePhone, req.Password1)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": validationMessage(err)})
	}
	if err := ac.parents.Create(parent); err != nil {
		log.Errorf("[Auth] creating parent failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	log.Infof("[Auth] Registered parent id=%d from %s", parent.ID, GetClientIP(c))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      parent.ID,
		"message": "Account created. You can now log in.",
	})
}

// HandleLogin exchanges mobile phone and password for a bearer token.
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "Request body must be JSON or a form"})
	}
	req.MobilePhone = strings.TrimSpace(req.MobilePhone)
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": validationMessage(err)})
	}

	parent, err := ac.parents.GetByMobilePhone(req.MobilePhone)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("[Auth] parent lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if parent == nil || !parent.CheckPassword(req.Password) {
		log.Infof("[Auth] Failed login for %s from %s", req.MobilePhone, GetClientIP(c))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_credentials", "message": "Mobile phone or password is incorrect"})
	}

	return ac.issueToken(c, parent.ID, security.RoleParent, nil)
}

// HandleChildRegister adds a child to the authenticated parent and returns the
// one time code the child signs in with.
func (ac *AuthController) HandleChildRegister(c *fiber.Ctx) error {
	parentID := usercontext.GetParentID(c)
	if parentID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var req childRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "Request body must be JSON or a form"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": validationMessage(err)})
	}

	code, err := ac.freeOTP()
	if err != nil {
		log.Errorf("[Auth] issuing child code failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	child := &models.Child{ParentID: parentID, Name: req.Name, Grade: req.Grade, OTPCode: &code}
	if err := child.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": validationMessage(err)})
	}
	if err := ac.children.Create(child); err != nil {
		log.Errorf("[Auth] creating child for parent=%d failed: %v", parentID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	log.Infof("[Auth] Registered child id=%d for parent=%d", child.ID, parentID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"child_id": child.ID,
		"message":  fmt.Sprintf("Child %s registered. Use the code to log in.", child.Name),
		"otp_code": code,
	})
}

// HandleChildLogin exchanges a child's one time code for a bearer token. The
// code is consumed by a successful login.
func (ac *AuthController) HandleChildLogin(c *fiber.Ctx) error {
	var req childLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "Request body must be JSON or a form"})
	}
	req.OTPCode = strings.TrimSpace(req.OTPCode)
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_otp", "message": "Invalid OTP code"})
	}

	child, err := ac.children.GetByOTP(req.OTPCode)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("[Auth] child lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if child == nil || !child.VerifyOTP(req.OTPCode) {
		log.Infof("[Auth] Failed child login from %s", GetClientIP(c))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_otp", "message": "Invalid OTP code"})
	}

	consumed, err := ac.children.ConsumeOTP(child.ID, req.OTPCode)
	if err != nil {
		log.Errorf("[Auth] consuming child code failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if !consumed {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_otp", "message": "Invalid OTP code"})
	}

	return ac.issueToken(c, child.ID, security.RoleChild, fiber.Map{
		"message": fmt.Sprintf("Child %s logged in successfully.", child.Name),
	})
}

func (ac *AuthController) issueToken(c *fiber.Ctx, accountID uint, role string, extra fiber.Map) error {
	token, err := security.GenerateAccessToken(accountID, role, ac.tokenTTL, ac.jwtSecret)
	if err != nil {
		log.Errorf("[Auth] token generation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	out := fiber.Map{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(ac.tokenTTL.Seconds()),
	}
	for k, v := range extra {
		out[k] = v
	}
	return c.JSON(out)
}

// freeOTP draws codes until one is not held by another child.
func (ac *AuthController) freeOTP() (string, error) {
	for i := 0; i < otpAttempts; i++ {
		code, err := security.GenerateOTP()
		if err != nil {
			return "", err
		}
		_, err = ac.children.GetByOTP(code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("no free login code after retries")
}
