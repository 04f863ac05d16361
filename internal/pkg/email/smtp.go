// internal/pkg/email/smtp.go
package email

import (
	"bytes"
	"fmt"
	"net/smtp"
	"strings"
)

// sendSMTPEmail sends email using SMTP
func (s *EmailService) sendSMTPEmail(email *Email) error {
	smtpCfg := s.config.External.Email
	if smtpCfg.SMTPHost == "" {
		return fmt.Errorf("SMTP configuration incomplete: missing host")
	}

	var auth smtp.Auth
	if smtpCfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", smtpCfg.SMTPUser, smtpCfg.SMTPPass, smtpCfg.SMTPHost)
	}

	fromEmail := smtpCfg.FromEmail
	from := fromEmail
	if smtpCfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", smtpCfg.FromName, fromEmail)
	}

	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(email.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(email.HTMLContent)

	serverAddr := fmt.Sprintf("%s:%d", smtpCfg.SMTPHost, smtpCfg.SMTPPort)
	return smtp.SendMail(serverAddr, auth, fromEmail, email.To, msg.Bytes())
}
