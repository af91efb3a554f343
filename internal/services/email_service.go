package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendOTPEmail(email, code string) error
	SendResendOTPEmail(email, code string) error
	SendResetOTPEmail(email, code string) error
	SendVerifiedEmail(email, name string) error
	SendPasswordChangedEmail(email string) error
	SendLoginAlertEmail(email, name string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) send(subject, to, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send %q to %s: %w", subject, to, err)
	}
	return nil
}

func (s *emailService) SendOTPEmail(email, code string) error {
	return s.send(
		"PCTE Koshish Planning: Your OTP Code",
		email,
		fmt.Sprintf("Your OTP code is %s", code),
	)
}

func (s *emailService) SendResendOTPEmail(email, code string) error {
	return s.send(
		"PCTE Koshish Planning: Your new OTP Code",
		email,
		fmt.Sprintf("Your new OTP code is %s", code),
	)
}

func (s *emailService) SendResetOTPEmail(email, code string) error {
	return s.send(
		"PCTE Koshish Planning: Your OTP Code to Reset Password",
		email,
		fmt.Sprintf("Your OTP code to Reset Password is %s", code),
	)
}

func (s *emailService) SendVerifiedEmail(email, name string) error {
	return s.send(
		"PCTE Koshish Planning: Account Verified Successfully",
		email,
		fmt.Sprintf("Hello %s, Congratulations, your account is now verified.", name),
	)
}

func (s *emailService) SendPasswordChangedEmail(email string) error {
	return s.send(
		"PCTE Koshish Planning: Password Changed Successfully",
		email,
		"Your account password has been changed. If this wasn't you, please contact our support team immediately.",
	)
}

func (s *emailService) SendLoginAlertEmail(email, name string) error {
	body := "Your account has been logged in on a new device."
	if name != "" {
		body = fmt.Sprintf("Dear %s,\n\nYour account has been logged in on a new device.\n\nIf this wasn't you, please contact our support team immediately.", name)
	}
	return s.send("PCTE Koshish Planning: You Logged In as User on new Device", email, body)
}
