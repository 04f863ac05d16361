// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
)

// EmailService handles all email operations
type EmailService struct {
	config    *config.Config
	templates map[string]*template.Template
	client    *http.Client
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		config:    cfg,
		templates: loadTemplates(),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	switch s.config.External.Email.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.External.Email.Provider)
	}
}

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, userEmail, userName string) error {
	data := WelcomeData{
		TemplateData: baseTemplateData(
			s.config.External.Email.FromName,
			s.config.External.Email.BaseURL,
			userName,
			userEmail,
		),
	}

	htmlContent, err := s.renderTemplate("welcome", data)
	if err != nil {
		return fmt.Errorf("failed to render welcome email template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{userEmail},
		Subject:     fmt.Sprintf("Welcome to %s!", s.config.External.Email.FromName),
		HTMLContent: htmlContent,
		Type:        EmailTypeWelcome,
	})
}

// SendOrderUpdateEmail sends an order lifecycle notification
func (s *EmailService) SendOrderUpdateEmail(ctx context.Context, userEmail string, data OrderUpdateData) error {
	data.TemplateData = baseTemplateData(
		s.config.External.Email.FromName,
		s.config.External.Email.BaseURL,
		"",
		userEmail,
	)
	data.OrderURL = fmt.Sprintf("%s/orders/%s", s.config.External.Email.BaseURL, data.OrderNumber)

	htmlContent, err := s.renderTemplate("order_update", data)
	if err != nil {
		return fmt.Errorf("failed to render order update template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{userEmail},
		Subject:     fmt.Sprintf("%s - %s", data.Headline, data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderUpdate,
	})
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

func loadTemplates() map[string]*template.Template {
	return map[string]*template.Template{
		"welcome":      template.Must(template.New("welcome").Parse(welcomeTemplate)),
		"order_update": template.Must(template.New("order_update").Parse(orderUpdateTemplate)),
	}
}

const welcomeTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.SiteName}}</h1>
        <p>Hello {{.UserName}},</p>
        <p>Welcome to {{.SiteName}}! Your account is ready.</p>
        <p><a href="{{.SiteURL}}">Start shopping</a></p>
        <p>Best regards,<br>{{.SiteName}} Team</p>
        <hr>
        <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}. All rights reserved.</p>
    </div>
</body>
</html>`

const orderUpdateTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.Headline}}</h1>
        <p>Order <strong>{{.OrderNumber}}</strong></p>
        <p>{{.Detail}}</p>
        {{if .Total}}<p>Order total: {{.Total}}</p>{{end}}
        <p><a href="{{.OrderURL}}">View your order</a></p>
        <p>Best regards,<br>{{.SiteName}} Team</p>
        <hr>
        <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}. All rights reserved.</p>
    </div>
</body>
</html>`
