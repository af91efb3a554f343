package models

import "time"

type UserType string

const (
	UserTypeAdmin    UserType = "Admin"
	UserTypeTeacher  UserType = "Teacher"
	UserTypeConvenor UserType = "Convenor"
)

// Valid reports whether t is one of the recognized account types.
// The set is fixed at signup and never widened per-request.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeAdmin, UserTypeTeacher, UserTypeConvenor:
		return true
	}
	return false
}

type Account struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phone_number"`
	UserType    UserType `json:"user_type"`
	Verified    bool     `json:"verified"`

	PasswordHash string  `json:"-"`
	GoogleID     *string `json:"-"`

	// OTP state: non-nil only while a verification or password-reset
	// flow is pending, cleared on consumption.
	OTP          *string    `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	OTPAttempts  int        `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SignupRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
	UserType    string `json:"user_type" binding:"required,usertype"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	UserType string `json:"user_type" binding:"required,usertype"`
}

type VerifyOTPRequest struct {
	OTP string `json:"otp" binding:"required"`
}

type UpdateAccountRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ChangePasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	OTP      string `json:"otp" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type GoogleLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	GoogleID string `json:"google_id" binding:"required"`
	Name     string `json:"name"`
}
