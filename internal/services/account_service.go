package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"koshish/internal/models"
	"koshish/internal/repositories"
	"koshish/internal/utils"
)

var (
	ErrInvalidUserType    = errors.New("invalid user type")
	ErrEmailTaken         = errors.New("email already in use")
	ErrPhoneTaken         = errors.New("phone number already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrGoogleIDMismatch   = errors.New("google id mismatch")
	ErrNotFound           = errors.New("account not found")
	ErrMailFailed         = errors.New("failed to send email")
)

// OTP policy. Codes that carry past either bound behave exactly like a
// wrong code.
const (
	otpTTL         = 10 * time.Minute
	maxOTPAttempts = 5
)

type AccountService interface {
	Signup(req *models.SignupRequest) (*models.Account, error)
	Login(req *models.LoginRequest) (string, error)
	VerifyOTP(userID int, code string) (string, error)
	ResendOTP(userID int) error
	GetAccount(id int) (*models.Account, error)
	UpdateAccount(id int, req *models.UpdateAccountRequest) (*models.Account, error)
	ForgotPassword(email string) error
	ChangePassword(email, code, newPassword string) error
	GoogleLogin(req *models.GoogleLoginRequest) (string, error)
}

type accountService struct {
	repo   repositories.AccountRepository
	emails EmailService
	auth   AuthService
	alerts *TelegramService
}

func NewAccountService(repo repositories.AccountRepository, emails EmailService, auth AuthService, alerts *TelegramService) AccountService {
	return &accountService{
		repo:   repo,
		emails: emails,
		auth:   auth,
		alerts: alerts,
	}
}

// Signup creates an unverified account with a fresh OTP, or overwrites
// an existing unverified account for the same email so an interrupted
// registration can simply be retried.
func (s *accountService) Signup(req *models.SignupRequest) (*models.Account, error) {
	userType := models.UserType(req.UserType)
	if !userType.Valid() {
		return nil, ErrInvalidUserType
	}

	if existing, err := s.repo.GetVerifiedByEmail(req.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailTaken
	}
	if existing, err := s.repo.GetVerifiedByPhone(req.PhoneNumber); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrPhoneTaken
	}

	code, err := utils.NewOTP()
	if err != nil {
		return nil, err
	}
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(otpTTL)

	acc, err := s.repo.GetUnverifiedByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &models.Account{
			Name:         req.Name,
			Email:        req.Email,
			PhoneNumber:  req.PhoneNumber,
			PasswordHash: hash,
			UserType:     userType,
			OTP:          &code,
			OTPExpiresAt: &expiresAt,
		}
		if err := s.repo.Create(acc); err != nil {
			return nil, err
		}
	} else {
		acc.Name = req.Name
		acc.UserType = userType
		acc.PhoneNumber = req.PhoneNumber
		acc.PasswordHash = hash
		acc.OTP = &code
		acc.OTPExpiresAt = &expiresAt
		acc.OTPAttempts = 0
		if err := s.repo.OverwriteUnverified(acc); err != nil {
			return nil, err
		}
	}

	// The OTP mail is part of the operation; the account row stays
	// either way.
	if err := s.emails.SendOTPEmail(acc.Email, code); err != nil {
		log.Printf("[account][signup] otp mail failed for %s: %v", acc.Email, err)
		return acc, fmt.Errorf("%w: %v", ErrMailFailed, err)
	}
	return acc, nil
}

// Login authenticates a verified account. A missing account and a wrong
// password are indistinguishable to the caller.
func (s *accountService) Login(req *models.LoginRequest) (string, error) {
	userType := models.UserType(req.UserType)
	if !userType.Valid() {
		return "", ErrInvalidUserType
	}

	acc, err := s.repo.GetVerifiedByEmailAndType(req.Email, userType)
	if err != nil {
		return "", err
	}
	if acc == nil || !s.auth.CheckPassword(req.Password, acc.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := s.auth.IssueToken(acc)
	if err != nil {
		return "", err
	}

	// informational mail, best effort
	if err := s.emails.SendLoginAlertEmail(acc.Email, ""); err != nil {
		log.Printf("[account][login] login alert mail failed for %s: %v", acc.Email, err)
	}
	return token, nil
}

// VerifyOTP flips an unverified account to verified when the code
// matches, clears the code, and issues a session token.
func (s *accountService) VerifyOTP(userID int, code string) (string, error) {
	acc, err := s.repo.GetUnverifiedByID(userID)
	if err != nil {
		return "", err
	}
	if acc == nil {
		return "", ErrInvalidOTP
	}
	if err := s.checkOTP(acc, code); err != nil {
		return "", err
	}

	if err := s.repo.MarkVerified(acc.ID); err != nil {
		// the partial unique index fires here when a concurrent signup
		// verified the same email/phone first
		if repositories.IsConflict(err) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	acc.Verified = true
	acc.OTP = nil

	if err := s.emails.SendVerifiedEmail(acc.Email, acc.Name); err != nil {
		log.Printf("[account][verify] confirmation mail failed for %s: %v", acc.Email, err)
	}
	if err := s.alerts.Alert(fmt.Sprintf("Account verified: %s (%s)", acc.Email, acc.UserType)); err != nil {
		log.Printf("[account][verify] telegram alert failed: %v", err)
	}

	return s.auth.IssueToken(acc)
}

func (s *accountService) ResendOTP(userID int) error {
	acc, err := s.repo.GetUnverifiedByID(userID)
	if err != nil {
		return err
	}
	if acc == nil {
		return ErrNotFound
	}

	code, err := utils.NewOTP()
	if err != nil {
		return err
	}
	if err := s.repo.SetOTP(acc.ID, code, time.Now().Add(otpTTL)); err != nil {
		return err
	}
	if err := s.emails.SendResendOTPEmail(acc.Email, code); err != nil {
		log.Printf("[account][resend] otp mail failed for %s: %v", acc.Email, err)
		return fmt.Errorf("%w: %v", ErrMailFailed, err)
	}
	return nil
}

func (s *accountService) GetAccount(id int) (*models.Account, error) {
	acc, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrNotFound
	}
	return acc, nil
}

func (s *accountService) UpdateAccount(id int, req *models.UpdateAccountRequest) (*models.Account, error) {
	acc, err := s.repo.UpdateProfile(id, req.Name, req.Email, req.PhoneNumber)
	if err != nil {
		if repositories.IsConflict(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if acc == nil {
		return nil, ErrNotFound
	}
	return acc, nil
}

func (s *accountService) ForgotPassword(email string) error {
	acc, err := s.repo.GetVerifiedByEmail(email)
	if err != nil {
		return err
	}
	if acc == nil {
		return ErrNotFound
	}

	code, err := utils.NewOTP()
	if err != nil {
		return err
	}
	if err := s.repo.SetOTP(acc.ID, code, time.Now().Add(otpTTL)); err != nil {
		return err
	}
	if err := s.emails.SendResetOTPEmail(acc.Email, code); err != nil {
		log.Printf("[account][forgot] reset otp mail failed for %s: %v", acc.Email, err)
		return fmt.Errorf("%w: %v", ErrMailFailed, err)
	}
	return nil
}

func (s *accountService) ChangePassword(email, code, newPassword string) error {
	acc, err := s.repo.GetVerifiedByEmail(email)
	if err != nil {
		return err
	}
	if acc == nil {
		return ErrInvalidOTP
	}
	if err := s.checkOTP(acc, code); err != nil {
		return err
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(acc.ID, hash); err != nil {
		return err
	}

	if err := s.emails.SendPasswordChangedEmail(acc.Email); err != nil {
		log.Printf("[account][change-password] confirmation mail failed for %s: %v", acc.Email, err)
	}
	if err := s.alerts.Alert(fmt.Sprintf("Password changed: %s", acc.Email)); err != nil {
		log.Printf("[account][change-password] telegram alert failed: %v", err)
	}
	return nil
}

// GoogleLogin binds or confirms the Google id on an existing account.
// It never creates accounts, and it short-circuits OTP verification.
func (s *accountService) GoogleLogin(req *models.GoogleLoginRequest) (string, error) {
	acc, err := s.repo.GetByEmail(req.Email)
	if err != nil {
		return "", err
	}
	if acc == nil {
		return "", ErrNotFound
	}
	if acc.GoogleID != nil && *acc.GoogleID != req.GoogleID {
		return "", ErrGoogleIDMismatch
	}

	if err := s.repo.BindGoogleID(acc.ID, req.GoogleID); err != nil {
		if repositories.IsConflict(err) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	acc.GoogleID = &req.GoogleID
	acc.Verified = true
	acc.OTP = nil

	token, err := s.auth.IssueToken(acc)
	if err != nil {
		return "", err
	}

	if err := s.emails.SendLoginAlertEmail(acc.Email, req.Name); err != nil {
		log.Printf("[account][google] login alert mail failed for %s: %v", acc.Email, err)
	}
	return token, nil
}

// checkOTP validates the stored code against the supplied one and
// counts a failed attempt. Missing, expired, exhausted and mismatched
// codes all surface as ErrInvalidOTP.
func (s *accountService) checkOTP(acc *models.Account, code string) error {
	if acc.OTP == nil || code == "" {
		return ErrInvalidOTP
	}
	if acc.OTPExpiresAt != nil && time.Now().After(*acc.OTPExpiresAt) {
		return ErrInvalidOTP
	}
	if acc.OTPAttempts >= maxOTPAttempts {
		return ErrInvalidOTP
	}
	if *acc.OTP != code {
		if _, err := s.repo.IncrementOTPAttempts(acc.ID); err != nil {
			log.Printf("[account][otp] increment attempts failed for id=%d: %v", acc.ID, err)
		}
		return ErrInvalidOTP
	}
	return nil
}
