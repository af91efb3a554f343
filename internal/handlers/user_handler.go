package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"koshish/internal/models"
	"koshish/internal/pdf"
	"koshish/internal/services"
)

type UserHandler struct {
	service  services.AccountService
	exporter *pdf.AccountExporter
}

func NewUserHandler(service services.AccountService, exporter *pdf.AccountExporter) *UserHandler {
	return &UserHandler{service: service, exporter: exporter}
}

// @Summary      Sign up
// @Description  Creates (or overwrites) an unverified account and emails a 6-digit OTP
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        signup  body      models.SignupRequest  true  "Signup fields"
// @Success      201     {object}  map[string]interface{}
// @Failure      400     {object}  map[string]interface{}
// @Failure      500     {object}  map[string]interface{}
// @Router       /signup [post]
func (h *UserHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": bindMessage(err)})
		return
	}

	acc, err := h.service.Signup(&req)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"status": true, "message": "Verification is Needed!", "user": acc})
	case errors.Is(err, services.ErrInvalidUserType):
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "Invalid user type. Must be Admin, Teacher, or Convenor."})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "User already exists with this email."})
	case errors.Is(err, services.ErrPhoneTaken):
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "User already exists with this phone number."})
	case errors.Is(err, services.ErrMailFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Failed to send OTP."})
	default:
		log.Printf("[user][signup] error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Internal Server Error"})
	}
}

// @Summary      Current account
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	id, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": false, "message": "Missing or invalid Authorization header"})
		return
	}

	acc, err := h.service.GetAccount(id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": true, "message": "User Fetched", "user": acc})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": false, "message": "User Not Found"})
	default:
		log.Printf("[user][me] error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Internal Server Error"})
	}
}

// @Summary      Update current account
// @Description  Partial update of name, email, phone_number
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        update  body      models.UpdateAccountRequest  true  "Fields to update"
// @Success      200     {object}  map[string]interface{}
// @Failure      404     {object}  map[string]interface{}
// @Router       /users/me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	id, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": false, "message": "Missing or invalid Authorization header"})
		return
	}

	var req models.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": err.Error()})
		return
	}

	acc, err := h.service.UpdateAccount(id, &req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": true, "message": "User details updated successfully!", "user": acc})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": false, "message": "User not found."})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "User already exists with this email."})
	default:
		log.Printf("[user][update] error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Internal Server Error"})
	}
}

// @Summary      Export current account as PDF
// @Tags         Users
// @Produce      application/pdf
// @Security     BearerAuth
// @Success      200
// @Failure      404  {object}  map[string]interface{}
// @Router       /users/me/export [get]
func (h *UserHandler) ExportMe(c *gin.Context) {
	id, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": false, "message": "Missing or invalid Authorization header"})
		return
	}

	acc, err := h.service.GetAccount(id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": false, "message": "User Not Found"})
			return
		}
		log.Printf("[user][export] error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Internal Server Error"})
		return
	}

	out, err := h.exporter.Render(acc)
	if err != nil {
		log.Printf("[user][export] pdf render failed for id=%d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Internal Server Error"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="account.pdf"`)
	c.Data(http.StatusOK, "application/pdf", out)
}
