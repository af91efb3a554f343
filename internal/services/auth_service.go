package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"koshish/internal/middleware"
	"koshish/internal/models"
)

const sessionTokenTTL = 24 * time.Hour

type AuthService interface {
	HashPassword(plain string) (string, error)
	CheckPassword(plain, hash string) bool
	IssueToken(acc *models.Account) (string, error)
}

type authService struct {
	jwtKey []byte
}

func NewAuthService(jwtKey []byte) AuthService {
	return &authService{jwtKey: jwtKey}
}

func (s *authService) HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *authService) CheckPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func (s *authService) IssueToken(acc *models.Account) (string, error) {
	claims := &middleware.Claims{
		UserID:   acc.ID,
		UserType: string(acc.UserType),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtKey)
}
