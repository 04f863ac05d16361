// internal/pkg/email/types.go
package email

import "time"

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeWelcome     EmailType = "welcome"
	EmailTypeOrderUpdate EmailType = "order_update"
)

// Email represents an email message
type Email struct {
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"html_content"`
	Type        EmailType `json:"type"`
}

// TemplateData contains common data for all email templates
type TemplateData struct {
	SiteName  string `json:"site_name"`
	SiteURL   string `json:"site_url"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	Year      int    `json:"year"`
}

// WelcomeData contains data for the welcome email
type WelcomeData struct {
	TemplateData
}

// OrderUpdateData contains data for order lifecycle emails
type OrderUpdateData struct {
	TemplateData
	OrderNumber string `json:"order_number"`
	Headline    string `json:"headline"`
	Detail      string `json:"detail"`
	Total       string `json:"total"`
	OrderURL    string `json:"order_url"`
}

// baseTemplateData returns common template data
func baseTemplateData(siteName, siteURL, userName, userEmail string) TemplateData {
	return TemplateData{
		SiteName:  siteName,
		SiteURL:   siteURL,
		UserName:  userName,
		UserEmail: userEmail,
		Year:      time.Now().Year(),
	}
}
