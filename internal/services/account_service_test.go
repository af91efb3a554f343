package services

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koshish/internal/models"
)

// ---- fakes ----

type fakeRepo struct {
	nextID   int
	accounts map[int]*models.Account
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, accounts: map[int]*models.Account{}}
}

func clone(a *models.Account) *models.Account {
	if a == nil {
		return nil
	}
	cp := *a
	if a.OTP != nil {
		s := *a.OTP
		cp.OTP = &s
	}
	if a.OTPExpiresAt != nil {
		t := *a.OTPExpiresAt
		cp.OTPExpiresAt = &t
	}
	if a.GoogleID != nil {
		s := *a.GoogleID
		cp.GoogleID = &s
	}
	return &cp
}

func (r *fakeRepo) Create(acc *models.Account) error {
	acc.ID = r.nextID
	r.nextID++
	acc.CreatedAt = time.Now()
	r.accounts[acc.ID] = clone(acc)
	return nil
}

func (r *fakeRepo) GetByID(id int) (*models.Account, error) {
	return clone(r.accounts[id]), nil
}

func (r *fakeRepo) GetByEmail(email string) (*models.Account, error) {
	var unverified *models.Account
	for _, a := range r.accounts {
		if a.Email != email {
			continue
		}
		if a.Verified {
			return clone(a), nil
		}
		unverified = a
	}
	return clone(unverified), nil
}

func (r *fakeRepo) GetVerifiedByEmail(email string) (*models.Account, error) {
	for _, a := range r.accounts {
		if a.Email == email && a.Verified {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetVerifiedByPhone(phone string) (*models.Account, error) {
	for _, a := range r.accounts {
		if a.PhoneNumber == phone && a.Verified {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetVerifiedByEmailAndType(email string, userType models.UserType) (*models.Account, error) {
	for _, a := range r.accounts {
		if a.Email == email && a.UserType == userType && a.Verified {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetUnverifiedByEmail(email string) (*models.Account, error) {
	for _, a := range r.accounts {
		if a.Email == email && !a.Verified {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetUnverifiedByID(id int) (*models.Account, error) {
	a := r.accounts[id]
	if a == nil || a.Verified {
		return nil, nil
	}
	return clone(a), nil
}

func (r *fakeRepo) OverwriteUnverified(acc *models.Account) error {
	a := r.accounts[acc.ID]
	if a == nil || a.Verified {
		return sql.ErrNoRows
	}
	a.Name = acc.Name
	a.UserType = acc.UserType
	a.PhoneNumber = acc.PhoneNumber
	a.PasswordHash = acc.PasswordHash
	a.OTP = acc.OTP
	a.OTPExpiresAt = acc.OTPExpiresAt
	a.OTPAttempts = 0
	return nil
}

func (r *fakeRepo) UpdateProfile(id int, name, email, phone string) (*models.Account, error) {
	a := r.accounts[id]
	if a == nil {
		return nil, nil
	}
	if name != "" {
		a.Name = name
	}
	if email != "" {
		a.Email = email
	}
	if phone != "" {
		a.PhoneNumber = phone
	}
	return clone(a), nil
}

func (r *fakeRepo) SetOTP(id int, code string, expiresAt time.Time) error {
	a := r.accounts[id]
	if a == nil {
		return sql.ErrNoRows
	}
	a.OTP = &code
	a.OTPExpiresAt = &expiresAt
	a.OTPAttempts = 0
	return nil
}

func (r *fakeRepo) IncrementOTPAttempts(id int) (int, error) {
	a := r.accounts[id]
	if a == nil {
		return 0, sql.ErrNoRows
	}
	a.OTPAttempts++
	return a.OTPAttempts, nil
}

func (r *fakeRepo) MarkVerified(id int) error {
	a := r.accounts[id]
	if a == nil {
		return sql.ErrNoRows
	}
	a.Verified = true
	a.OTP = nil
	a.OTPExpiresAt = nil
	a.OTPAttempts = 0
	return nil
}

func (r *fakeRepo) UpdatePassword(id int, passwordHash string) error {
	a := r.accounts[id]
	if a == nil {
		return sql.ErrNoRows
	}
	a.PasswordHash = passwordHash
	a.OTP = nil
	a.OTPExpiresAt = nil
	a.OTPAttempts = 0
	return nil
}

func (r *fakeRepo) BindGoogleID(id int, googleID string) error {
	a := r.accounts[id]
	if a == nil {
		return sql.ErrNoRows
	}
	a.GoogleID = &googleID
	a.Verified = true
	a.OTP = nil
	a.OTPExpiresAt = nil
	a.OTPAttempts = 0
	return nil
}

func (r *fakeRepo) countByEmail(email string) int {
	n := 0
	for _, a := range r.accounts {
		if a.Email == email {
			n++
		}
	}
	return n
}

type fakeEmail struct {
	fail bool
	sent []string
}

func (f *fakeEmail) record(kind, email, detail string) error {
	if f.fail {
		return errors.New("smtp unreachable")
	}
	f.sent = append(f.sent, fmt.Sprintf("%s:%s:%s", kind, email, detail))
	return nil
}

func (f *fakeEmail) SendOTPEmail(email, code string) error       { return f.record("otp", email, code) }
func (f *fakeEmail) SendResendOTPEmail(email, code string) error { return f.record("resend", email, code) }
func (f *fakeEmail) SendResetOTPEmail(email, code string) error  { return f.record("reset", email, code) }
func (f *fakeEmail) SendVerifiedEmail(email, name string) error {
	return f.record("verified", email, name)
}
func (f *fakeEmail) SendPasswordChangedEmail(email string) error {
	return f.record("password-changed", email, "")
}
func (f *fakeEmail) SendLoginAlertEmail(email, name string) error {
	return f.record("login-alert", email, name)
}

// ---- helpers ----

func newService(t *testing.T) (AccountService, *fakeRepo, *fakeEmail) {
	t.Helper()
	repo := newFakeRepo()
	emails := &fakeEmail{}
	auth := NewAuthService([]byte("test-secret"))
	return NewAccountService(repo, emails, auth, nil), repo, emails
}

func signupReq() *models.SignupRequest {
	return &models.SignupRequest{
		Name:        "Ann",
		Email:       "a@x.com",
		PhoneNumber: "1",
		Password:    "p",
		UserType:    "Teacher",
	}
}

// ---- signup ----

func TestSignup_CreatesUnverifiedAccountWithOTP(t *testing.T) {
	svc, repo, emails := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)

	assert.False(t, acc.Verified)
	require.NotNil(t, acc.OTP)
	assert.Len(t, *acc.OTP, 6)
	assert.Equal(t, 1, repo.countByEmail("a@x.com"))

	require.Len(t, emails.sent, 1)
	assert.Equal(t, fmt.Sprintf("otp:a@x.com:%s", *acc.OTP), emails.sent[0])
}

func TestSignup_InvalidUserType(t *testing.T) {
	svc, repo, emails := newService(t)

	req := signupReq()
	req.UserType = "Student"
	_, err := svc.Signup(req)

	require.ErrorIs(t, err, ErrInvalidUserType)
	assert.Empty(t, repo.accounts, "no account should be created")
	assert.Empty(t, emails.sent)
}

func TestSignup_ConflictWithVerifiedEmail(t *testing.T) {
	svc, repo, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	require.NoError(t, repo.MarkVerified(acc.ID))

	req := signupReq()
	req.PhoneNumber = "other"
	_, err = svc.Signup(req)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignup_ConflictWithVerifiedPhone(t *testing.T) {
	svc, repo, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	require.NoError(t, repo.MarkVerified(acc.ID))

	req := signupReq()
	req.Email = "other@x.com"
	_, err = svc.Signup(req)
	require.ErrorIs(t, err, ErrPhoneTaken)
}

func TestSignup_OverwritesPendingAccount(t *testing.T) {
	svc, repo, _ := newService(t)

	first, err := svc.Signup(signupReq())
	require.NoError(t, err)

	req := signupReq()
	req.Name = "Anna"
	second, err := svc.Signup(req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "re-signup must reuse the pending row")
	assert.Equal(t, 1, repo.countByEmail("a@x.com"))

	stored, err := repo.GetByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anna", stored.Name)
	require.NotNil(t, stored.OTP)
	assert.Equal(t, *second.OTP, *stored.OTP)
}

func TestSignup_MailFailureKeepsAccount(t *testing.T) {
	svc, repo, emails := newService(t)
	emails.fail = true

	acc, err := svc.Signup(signupReq())
	require.ErrorIs(t, err, ErrMailFailed)
	require.NotNil(t, acc)
	assert.Equal(t, 1, repo.countByEmail("a@x.com"), "account mutation is not rolled back")
}

// ---- verify ----

func TestVerifyOTP_Success(t *testing.T) {
	svc, repo, emails := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)

	token, err := svc.VerifyOTP(acc.ID, *acc.OTP)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	stored, err := repo.GetByID(acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Verified)
	assert.Nil(t, stored.OTP)

	assert.Contains(t, emails.sent, "verified:a@x.com:Ann")
}

func TestVerifyOTP_RepeatedCallFails(t *testing.T) {
	svc, _, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	code := *acc.OTP

	_, err = svc.VerifyOTP(acc.ID, code)
	require.NoError(t, err)

	_, err = svc.VerifyOTP(acc.ID, code)
	require.ErrorIs(t, err, ErrInvalidOTP, "an already-consumed code must be rejected")
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	svc, repo, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)

	wrong := "000000"
	if *acc.OTP == wrong {
		wrong = "000001"
	}
	_, err = svc.VerifyOTP(acc.ID, wrong)
	require.ErrorIs(t, err, ErrInvalidOTP)

	stored, err := repo.GetByID(acc.ID)
	require.NoError(t, err)
	assert.False(t, stored.Verified)
	assert.Equal(t, 1, stored.OTPAttempts)
}

func TestVerifyOTP_ExpiredCode(t *testing.T) {
	svc, repo, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	repo.accounts[acc.ID].OTPExpiresAt = &past

	_, err = svc.VerifyOTP(acc.ID, *acc.OTP)
	require.ErrorIs(t, err, ErrInvalidOTP)
}

func TestVerifyOTP_AttemptLimit(t *testing.T) {
	svc, repo, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	repo.accounts[acc.ID].OTPAttempts = maxOTPAttempts

	// even the correct code is rejected once attempts are exhausted
	_, err = svc.VerifyOTP(acc.ID, *acc.OTP)
	require.ErrorIs(t, err, ErrInvalidOTP)
}

// ---- resend ----

func TestResendOTP_ReplacesCode(t *testing.T) {
	svc, repo, emails := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)

	require.NoError(t, svc.ResendOTP(acc.ID))

	stored, err := repo.GetByID(acc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.OTP)
	assert.Len(t, *stored.OTP, 6)
	assert.Contains(t, emails.sent[len(emails.sent)-1], "resend:a@x.com:")
}

func TestResendOTP_MailFailure(t *testing.T) {
	svc, repo, emails := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)

	emails.fail = true
	err = svc.ResendOTP(acc.ID)
	require.ErrorIs(t, err, ErrMailFailed)
	require.NotNil(t, repo.accounts[acc.ID].OTP, "the regenerated code persists")
}

func TestResendOTP_UnknownOrVerified(t *testing.T) {
	svc, repo, _ := newService(t)

	require.ErrorIs(t, svc.ResendOTP(42), ErrNotFound)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	require.NoError(t, repo.MarkVerified(acc.ID))
	require.ErrorIs(t, svc.ResendOTP(acc.ID), ErrNotFound)
}

// ---- login ----

func TestLogin_MissingAccountAndWrongPasswordIndistinguishable(t *testing.T) {
	svc, repo, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	require.NoError(t, repo.MarkVerified(acc.ID))

	_, errMissing := svc.Login(&models.LoginRequest{Email: "nobody@x.com", Password: "p", UserType: "Teacher"})
	_, errWrongPw := svc.Login(&models.LoginRequest{Email: "a@x.com", Password: "nope", UserType: "Teacher"})

	require.ErrorIs(t, errMissing, ErrInvalidCredentials)
	require.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
	assert.Equal(t, errMissing, errWrongPw)
}

func TestLogin_InvalidUserType(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Login(&models.LoginRequest{Email: "a@x.com", Password: "p", UserType: "Root"})
	require.ErrorIs(t, err, ErrInvalidUserType)
}

func TestLogin_UnverifiedAccountRejected(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Signup(signupReq())
	require.NoError(t, err)

	_, err = svc.Login(&models.LoginRequest{Email: "a@x.com", Password: "p", UserType: "Teacher"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_Success(t *testing.T) {
	svc, repo, emails := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	require.NoError(t, repo.MarkVerified(acc.ID))

	token, err := svc.Login(&models.LoginRequest{Email: "a@x.com", Password: "p", UserType: "Teacher"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Contains(t, emails.sent, "login-alert:a@x.com:")
}

func TestLogin_AlertMailFailureDoesNotFailLogin(t *testing.T) {
	svc, repo, emails := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	require.NoError(t, repo.MarkVerified(acc.ID))

	emails.fail = true
	token, err := svc.Login(&models.LoginRequest{Email: "a@x.com", Password: "p", UserType: "Teacher"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLogin_WrongUserTypeForAccount(t *testing.T) {
	svc, repo, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	require.NoError(t, repo.MarkVerified(acc.ID))

	_, err = svc.Login(&models.LoginRequest{Email: "a@x.com", Password: "p", UserType: "Admin"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

// ---- profile ----

func TestGetAccount_NotFound(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.GetAccount(7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAccount_PartialUpdate(t *testing.T) {
	svc, _, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)

	updated, err := svc.UpdateAccount(acc.ID, &models.UpdateAccountRequest{Name: "Annie"})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)
	assert.Equal(t, "a@x.com", updated.Email, "unset fields keep their value")
	assert.Equal(t, "1", updated.PhoneNumber)
}

func TestUpdateAccount_NotFound(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.UpdateAccount(7, &models.UpdateAccountRequest{Name: "X"})
	require.ErrorIs(t, err, ErrNotFound)
}

// ---- password reset ----

func TestForgotPassword_RequiresVerifiedAccount(t *testing.T) {
	svc, _, _ := newService(t)

	require.ErrorIs(t, svc.ForgotPassword("nobody@x.com"), ErrNotFound)

	_, err := svc.Signup(signupReq())
	require.NoError(t, err)
	require.ErrorIs(t, svc.ForgotPassword("a@x.com"), ErrNotFound, "unverified accounts cannot reset")
}

func TestChangePassword_RotatesCredential(t *testing.T) {
	svc, repo, emails := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	require.NoError(t, repo.MarkVerified(acc.ID))

	require.NoError(t, svc.ForgotPassword("a@x.com"))
	code := *repo.accounts[acc.ID].OTP

	require.NoError(t, svc.ChangePassword("a@x.com", code, "newpass"))

	// old password no longer authenticates, new one does
	_, err = svc.Login(&models.LoginRequest{Email: "a@x.com", Password: "p", UserType: "Teacher"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(&models.LoginRequest{Email: "a@x.com", Password: "newpass", UserType: "Teacher"})
	require.NoError(t, err)

	assert.Nil(t, repo.accounts[acc.ID].OTP, "otp is consumed")
	assert.Contains(t, emails.sent, "password-changed:a@x.com:")
}

func TestChangePassword_WrongOTP(t *testing.T) {
	svc, repo, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	require.NoError(t, repo.MarkVerified(acc.ID))
	require.NoError(t, svc.ForgotPassword("a@x.com"))

	code := *repo.accounts[acc.ID].OTP
	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}
	require.ErrorIs(t, svc.ChangePassword("a@x.com", wrong, "newpass"), ErrInvalidOTP)

	// credential unchanged
	_, err = svc.Login(&models.LoginRequest{Email: "a@x.com", Password: "p", UserType: "Teacher"})
	require.NoError(t, err)
}

// ---- google login ----

func TestGoogleLogin_UnknownAccount(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.GoogleLogin(&models.GoogleLoginRequest{Email: "nobody@x.com", GoogleID: "g1"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGoogleLogin_BindsAndVerifies(t *testing.T) {
	svc, repo, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)

	token, err := svc.GoogleLogin(&models.GoogleLoginRequest{Email: "a@x.com", GoogleID: "g1", Name: "Ann"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	stored := repo.accounts[acc.ID]
	assert.True(t, stored.Verified, "federated login short-circuits OTP verification")
	assert.Nil(t, stored.OTP)
	require.NotNil(t, stored.GoogleID)
	assert.Equal(t, "g1", *stored.GoogleID)
}

func TestGoogleLogin_MismatchedIDDoesNotMutate(t *testing.T) {
	svc, repo, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	_, err = svc.GoogleLogin(&models.GoogleLoginRequest{Email: "a@x.com", GoogleID: "g1"})
	require.NoError(t, err)

	_, err = svc.GoogleLogin(&models.GoogleLoginRequest{Email: "a@x.com", GoogleID: "g2"})
	require.ErrorIs(t, err, ErrGoogleIDMismatch)

	stored := repo.accounts[acc.ID]
	assert.Equal(t, "g1", *stored.GoogleID)
	assert.True(t, stored.Verified)
}

// ---- end to end ----

func TestSignupThenVerifyScenario(t *testing.T) {
	svc, repo, _ := newService(t)

	acc, err := svc.Signup(signupReq())
	require.NoError(t, err)
	require.NotNil(t, acc.OTP)
	require.Regexp(t, `^[1-9]\d{5}$`, *acc.OTP)

	token, err := svc.VerifyOTP(acc.ID, *acc.OTP)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	stored, err := repo.GetByID(acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Verified)
}
