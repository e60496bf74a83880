package utils

import (
	"fmt"
	"log"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	senderName  = "Lensora"
	senderEmail = "no-reply@lensora.app"
)

// SendEmail delivers a transactional email (OTP codes, password
// resets) through SendGrid.
func SendEmail(toName, toEmail, subject, textContent, htmlContent string) error {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is not set in environment variables")
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(senderName, senderEmail),
		subject,
		mail.NewEmail(toName, toEmail),
		textContent,
		htmlContent,
	)

	response, err := sendgrid.NewSendClient(apiKey).Send(message)
	if err != nil {
		log.Printf("Error sending email to %s: %v", toEmail, err)
		return err
	}
	if response.StatusCode >= 400 {
		log.Printf("SendGrid error: status %d, body %s", response.StatusCode, response.Body)
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	log.Printf("Email sent to %s (status %d)", toEmail, response.StatusCode)
	return nil
}
