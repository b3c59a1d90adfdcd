package services

import (
	"fmt"
	"log"
	"os"

	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	Client *resend.Client
	From   string
	Ops    string
}

func NewEmailService() *EmailService {
	apiKey := os.Getenv("RESEND_API_KEY")
	fromEmail := os.Getenv("FROM_EMAIL")
	opsEmail := os.Getenv("OPS_EMAIL")

	log.Printf("📧 Email Service Initialized (Resend)")
	log.Printf("   - From Email: %s", fromEmail)
	log.Printf("   - Ops Email: %s", opsEmail)

	if apiKey == "" {
		log.Printf("⚠️  WARNING: RESEND_API_KEY is empty, operator alerts will fail")
	}
	if fromEmail == "" {
		fromEmail = "onboarding@resend.dev" // Resend's default test email
	}

	return &EmailService{
		Client: resend.NewClient(apiKey),
		From:   fromEmail,
		Ops:    opsEmail,
	}
}

// SendOpsAlert emails the operations inbox. Used for events a human must
// look at: raised disputes and refunds that need a manual retry.
func (es *EmailService) SendOpsAlert(subject, body string) error {
	if es.Ops == "" {
		return fmt.Errorf("OPS_EMAIL not configured")
	}

	params := &resend.SendEmailRequest{
		From:    es.From,
		To:      []string{es.Ops},
		Subject: subject,
		Html:    fmt.Sprintf("<p>%s</p>", body),
	}

	sent, err := es.Client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}

	log.Printf("✅ Ops alert sent: %s (ID: %s)", subject, sent.Id)
	return nil
}
