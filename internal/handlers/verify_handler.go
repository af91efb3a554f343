package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"koshish/internal/models"
	"koshish/internal/services"
)

type VerifyHandler struct {
	service services.AccountService
}

func NewVerifyHandler(service services.AccountService) *VerifyHandler {
	return &VerifyHandler{service: service}
}

// @Summary      Confirm a signup OTP
// @Description  Marks the account verified and returns a session token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        userid  path      int                      true  "Account id"
// @Param        otp     body      models.VerifyOTPRequest  true  "The 6-digit code"
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  map[string]interface{}
// @Router       /signup/verify/{userid} [post]
func (h *VerifyHandler) VerifyOTP(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "Invalid user id"})
		return
	}

	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": err.Error()})
		return
	}

	token, err := h.service.VerifyOTP(userID, req.OTP)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": true, "message": "Verification successful!", "token": token})
	case errors.Is(err, services.ErrInvalidOTP):
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "Invalid OTP or user already verified."})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "User already exists with this email."})
	default:
		log.Printf("[verify][confirm] error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Internal Server Error"})
	}
}

// @Summary      Resend a signup OTP
// @Tags         Auth
// @Produce      json
// @Param        userid  path      int  true  "Account id"
// @Success      200     {object}  map[string]interface{}
// @Failure      404     {object}  map[string]interface{}
// @Failure      500     {object}  map[string]interface{}
// @Router       /signup/resend/{userid} [post]
func (h *VerifyHandler) ResendOTP(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "Invalid user id"})
		return
	}

	err = h.service.ResendOTP(userID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": true, "message": "New OTP sent successfully!"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": false, "message": "User not found or already verified."})
	case errors.Is(err, services.ErrMailFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Failed to send OTP."})
	default:
		log.Printf("[verify][resend] error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": "Internal Server Error"})
	}
}
