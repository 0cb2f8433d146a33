// Package mail sends account emails. The SMTP sender is used in
// production; LogSender stands in when no SMTP host is configured so
// development signups still surface their verification codes.
package mail

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog/log"
)

type Mailer interface {
	SendVerificationCode(to, name, code string) error
}

type SMTPSender struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewSMTPSender(host, port, user, pass, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, pass: pass, from: from}
}

func (s *SMTPSender) SendVerificationCode(to, name, code string) error {
	subject := "Your verification code"
	body := fmt.Sprintf("Hi %s,\r\n\r\nYour verification code is: %s\r\n\r\nThe code expires in 24 hours.\r\n", name, code)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.from, to, subject, body))

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	return smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, msg)
}

// LogSender writes codes to the log instead of sending mail.
type LogSender struct{}

func (LogSender) SendVerificationCode(to, _, code string) error {
	log.Info().Str("to", to).Str("code", code).Msg("verification code (mail disabled)")
	return nil
}
