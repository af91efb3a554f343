package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"koshish/internal/models"
	"koshish/internal/services"
)

type AuthHandler struct {
	service services.AccountService
}

func NewAuthHandler(service services.AccountService) *AuthHandler {
	return &AuthHandler{service: service}
}

// @Summary      Log in
// @Description  Authenticates a verified account and returns a session token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Login fields"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]interface{}
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": bindMessage(err)})
		return
	}

	token, err := h.service.Login(&req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": true, "message": "Login successful!", "token": token})
	case errors.Is(err, services.ErrInvalidUserType):
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "Invalid user type. Must be Admin, Teacher, or Convenor."})
	case errors.Is(err, services.ErrInvalidCredentials):
		// same response whether the account is missing or the password
		// is wrong
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "Invalid email or password."})
	default:
		log.Printf("[auth][login] error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Internal Server Error"})
	}
}

// @Summary      Google login
// @Description  Binds or confirms the Google id on an existing account and returns a session token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.GoogleLoginRequest  true  "Google login fields"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]interface{}
// @Failure      401    {object}  map[string]interface{}
// @Router       /auth/google [post]
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req models.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": err.Error()})
		return
	}

	token, err := h.service.GoogleLogin(&req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": true, "message": "Login successful!", "token": token})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"status": false, "message": "Account Not Found"})
	case errors.Is(err, services.ErrGoogleIDMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "Invalid Google ID"})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "User already exists with this email."})
	default:
		log.Printf("[auth][google] error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Internal Server Error"})
	}
}

// @Summary      Request a password reset OTP
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        forgot  body      models.ForgotPasswordRequest  true  "Account email"
// @Success      200     {object}  map[string]interface{}
// @Failure      404     {object}  map[string]interface{}
// @Failure      500     {object}  map[string]interface{}
// @Router       /password/forgot [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": err.Error()})
		return
	}

	err := h.service.ForgotPassword(req.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": true, "message": "OTP Sent to your Email!"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": false, "message": "No Account Exists"})
	case errors.Is(err, services.ErrMailFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Failed to send OTP."})
	default:
		log.Printf("[auth][forgot] error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Internal Server Error"})
	}
}

// @Summary      Reset password with an OTP
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        reset  body      models.ChangePasswordRequest  true  "Email, OTP and new password"
// @Success      200    {object}  map[string]interface{}
// @Failure      404    {object}  map[string]interface{}
// @Router       /password/reset [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": err.Error()})
		return
	}

	err := h.service.ChangePassword(req.Email, req.OTP, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": true, "message": "Password updated successfully"})
	case errors.Is(err, services.ErrInvalidOTP):
		c.JSON(http.StatusNotFound, gin.H{"status": false, "message": "OTP Not Correct"})
	default:
		log.Printf("[auth][reset] error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Internal Server Error"})
	}
}
