package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"koshish/internal/models"
)

type AccountRepository interface {
	Create(acc *models.Account) error
	GetByID(id int) (*models.Account, error)
	GetByEmail(email string) (*models.Account, error)
	GetVerifiedByEmail(email string) (*models.Account, error)
	GetVerifiedByPhone(phone string) (*models.Account, error)
	GetVerifiedByEmailAndType(email string, userType models.UserType) (*models.Account, error)
	GetUnverifiedByEmail(email string) (*models.Account, error)
	GetUnverifiedByID(id int) (*models.Account, error)

	// OverwriteUnverified replaces the mutable signup fields of an
	// unverified row in place (re-signup before verification).
	OverwriteUnverified(acc *models.Account) error

	UpdateProfile(id int, name, email, phone string) (*models.Account, error)
	SetOTP(id int, code string, expiresAt time.Time) error
	IncrementOTPAttempts(id int) (int, error)
	MarkVerified(id int) error
	UpdatePassword(id int, passwordHash string) error
	BindGoogleID(id int, googleID string) error
}

type accountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{DB: db}
}

// IsConflict reports whether err is a Postgres unique-constraint
// violation. Uniqueness of verified email/phone is enforced by partial
// unique indexes, not by the service-level pre-checks.
func IsConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

const accountColumns = `
	id, name, email, phone_number, password_hash, user_type,
	otp, otp_expires_at, otp_attempts, verified, google_id,
	created_at, updated_at
`

func scanAccount(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	var (
		otp       sql.NullString
		otpExp    sql.NullTime
		googleID  sql.NullString
		userType  string
		updatedAt sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PhoneNumber, &a.PasswordHash, &userType,
		&otp, &otpExp, &a.OTPAttempts, &a.Verified, &googleID,
		&a.CreatedAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("account scan: %w", err)
	}
	a.UserType = models.UserType(userType)
	if otp.Valid {
		s := otp.String
		a.OTP = &s
	}
	if otpExp.Valid {
		t := otpExp.Time
		a.OTPExpiresAt = &t
	}
	if googleID.Valid {
		s := googleID.String
		a.GoogleID = &s
	}
	if updatedAt.Valid {
		a.UpdatedAt = updatedAt.Time
	}
	return a, nil
}

func (r *accountRepository) Create(acc *models.Account) error {
	const q = `
		INSERT INTO accounts (
			name, email, phone_number, password_hash, user_type,
			otp, otp_expires_at, otp_attempts, verified
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,FALSE)
		RETURNING id, created_at
	`
	err := r.DB.QueryRow(q,
		acc.Name,
		acc.Email,
		acc.PhoneNumber,
		acc.PasswordHash,
		string(acc.UserType),
		acc.OTP,
		acc.OTPExpiresAt,
	).Scan(&acc.ID, &acc.CreatedAt)
	if err != nil {
		return fmt.Errorf("account create: %w", err)
	}
	return nil
}

func (r *accountRepository) GetByID(id int) (*models.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.DB.QueryRow(q, id))
}

func (r *accountRepository) GetByEmail(email string) (*models.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 ORDER BY verified DESC LIMIT 1`
	return scanAccount(r.DB.QueryRow(q, email))
}

func (r *accountRepository) GetVerifiedByEmail(email string) (*models.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 AND verified`
	return scanAccount(r.DB.QueryRow(q, email))
}

func (r *accountRepository) GetVerifiedByPhone(phone string) (*models.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE phone_number = $1 AND verified`
	return scanAccount(r.DB.QueryRow(q, phone))
}

func (r *accountRepository) GetVerifiedByEmailAndType(email string, userType models.UserType) (*models.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 AND user_type = $2 AND verified`
	return scanAccount(r.DB.QueryRow(q, email, string(userType)))
}

func (r *accountRepository) GetUnverifiedByEmail(email string) (*models.Account, error) {
	const q = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1 AND NOT verified
		ORDER BY id
		LIMIT 1
	`
	return scanAccount(r.DB.QueryRow(q, email))
}

func (r *accountRepository) GetUnverifiedByID(id int) (*models.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND NOT verified`
	return scanAccount(r.DB.QueryRow(q, id))
}

func (r *accountRepository) OverwriteUnverified(acc *models.Account) error {
	const q = `
		UPDATE accounts
		SET name=$1, user_type=$2, phone_number=$3, password_hash=$4,
		    otp=$5, otp_expires_at=$6, otp_attempts=0, updated_at=NOW()
		WHERE id=$7 AND NOT verified
	`
	res, err := r.DB.Exec(q,
		acc.Name,
		string(acc.UserType),
		acc.PhoneNumber,
		acc.PasswordHash,
		acc.OTP,
		acc.OTPExpiresAt,
		acc.ID,
	)
	if err != nil {
		return fmt.Errorf("account overwrite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *accountRepository) UpdateProfile(id int, name, email, phone string) (*models.Account, error) {
	const q = `
		UPDATE accounts
		SET name    = COALESCE(NULLIF($1,''), name),
		    email   = COALESCE(NULLIF($2,''), email),
		    phone_number = COALESCE(NULLIF($3,''), phone_number),
		    updated_at = NOW()
		WHERE id=$4
		RETURNING ` + accountColumns + `
	`
	return scanAccount(r.DB.QueryRow(q, name, email, phone, id))
}

func (r *accountRepository) SetOTP(id int, code string, expiresAt time.Time) error {
	const q = `
		UPDATE accounts
		SET otp=$1, otp_expires_at=$2, otp_attempts=0, updated_at=NOW()
		WHERE id=$3
	`
	_, err := r.DB.Exec(q, code, expiresAt, id)
	if err != nil {
		return fmt.Errorf("account set otp: %w", err)
	}
	return nil
}

func (r *accountRepository) IncrementOTPAttempts(id int) (int, error) {
	const q = `
		UPDATE accounts
		SET otp_attempts = otp_attempts + 1
		WHERE id = $1
		RETURNING otp_attempts
	`
	var attempts int
	if err := r.DB.QueryRow(q, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("account increment otp attempts: %w", err)
	}
	return attempts, nil
}

func (r *accountRepository) MarkVerified(id int) error {
	_, err := r.DB.Exec(`
		UPDATE accounts
		SET verified=TRUE, otp=NULL, otp_expires_at=NULL, otp_attempts=0, updated_at=NOW()
		WHERE id=$1
	`, id)
	return err
}

func (r *accountRepository) UpdatePassword(id int, passwordHash string) error {
	_, err := r.DB.Exec(`
		UPDATE accounts
		SET password_hash=$1, otp=NULL, otp_expires_at=NULL, otp_attempts=0, updated_at=NOW()
		WHERE id=$2
	`, passwordHash, id)
	return err
}

func (r *accountRepository) BindGoogleID(id int, googleID string) error {
	_, err := r.DB.Exec(`
		UPDATE accounts
		SET google_id=$1, verified=TRUE, otp=NULL, otp_expires_at=NULL, otp_attempts=0, updated_at=NOW()
		WHERE id=$2
	`, googleID, id)
	return err
}
