package utils

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"

	"github.com/azusa-tani/kajishift-backend/internal/models"
)

var (
	emailFrom     = os.Getenv("EMAIL_FROM")
	emailPassword = os.Getenv("EMAIL_PASSWORD")
	smtpHost      = os.Getenv("SMTP_HOST")
	smtpPort      = os.Getenv("SMTP_PORT")
	companyName   = "KajiShift Inc."
	baseURL       = os.Getenv("BASE_URL")
)

// Common header template for all emails
const emailHeader = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<div style="text-align: center; margin-bottom: 30px; background-color: #f9f9f9; padding: 20px;">
			<h2 style="color: #2E86AB; margin: 0;">KajiShift</h2>
		</div>
`

// Common footer template for all emails
const emailFooter = `
		<div style="text-align: center; margin-top: 20px; font-size: 12px; color: #666; border-top: 1px solid #eee; padding-top: 20px;">
			<p>This is an automated message, please do not reply to this email.</p>
			<p>© 2026 KajiShift Inc. All rights reserved.</p>
		</div>
	</div>
</body>
</html>
`

func sendEmail(to []string, subject, body string) error {
	if emailFrom == "" || emailPassword == "" || smtpHost == "" || smtpPort == "" {
		return fmt.Errorf("email configuration not set")
	}

	// Headers
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("%s <%s>", companyName, emailFrom)
	headers["To"] = strings.Join(to, ",")
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"
	headers["X-Mailer"] = "KajiShift-Mailer"
	headers["List-Unsubscribe"] = fmt.Sprintf("<%s>", emailFrom)

	// Build message
	message := ""
	for key, value := range headers {
		message += fmt.Sprintf("%s: %s\r\n", key, value)
	}
	message += "\r\n" + body

	// Authentication
	auth := smtp.PlainAuth("", emailFrom, emailPassword, smtpHost)

	// Send email
	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, emailFrom, to, []byte(message))
	if err != nil {
		log.Printf("Failed to send email: %v", err)
		return err
	}

	log.Printf("Successfully sent email to recipients: %v", to)
	return nil
}

func SendBookingConfirmationEmail(email, name string, b *models.Booking) error {
	subject := "Booking Received - KajiShift"
	body := fmt.Sprintf(emailHeader+`
				<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
					<h1 style="color: #2c3e50; text-align: center;">Booking Received</h1>
					<p>Hello %s,</p>
					<p>We have received your booking for <strong>%s</strong> on <strong>%s</strong> at <strong>%s</strong> (%d hours).</p>
					<p>Address: %s</p>
					<p>You will be notified as soon as a worker confirms your booking.</p>
					<div style="text-align: center; margin: 30px 0;">
						<a href="%s/bookings" style="background-color: #2E86AB; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px;">View Your Bookings</a>
					</div>
					<p>Best regards,<br>The KajiShift Team</p>
				</div>`+emailFooter,
		name, b.ServiceType, b.ScheduledDate.Format("2006-01-02"), b.StartTime, b.Duration, b.Address, baseURL)

	return sendEmail([]string{email}, subject, body)
}

func SendBookingStatusEmail(email, name string, b *models.Booking) error {
	var subject, headline, detail string
	switch b.Status {
	case models.BookingStatusConfirmed:
		subject = "Booking Confirmed - KajiShift"
		headline = "Booking Confirmed"
		detail = fmt.Sprintf("Your <strong>%s</strong> booking on <strong>%s</strong> has been confirmed by your worker.",
			b.ServiceType, b.ScheduledDate.Format("2006-01-02"))
	case models.BookingStatusCompleted:
		subject = "Service Completed - KajiShift"
		headline = "Service Completed"
		detail = fmt.Sprintf("Your <strong>%s</strong> service on <strong>%s</strong> is complete. We would love to hear how it went.",
			b.ServiceType, b.ScheduledDate.Format("2006-01-02"))
	default:
		subject = "Booking Update - KajiShift"
		headline = "Booking Update"
		detail = fmt.Sprintf("The status of your <strong>%s</strong> booking is now <strong>%s</strong>.",
			b.ServiceType, b.Status)
	}

	body := fmt.Sprintf(emailHeader+`
				<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
					<h1 style="color: #2c3e50; text-align: center;">%s</h1>
					<p>Hello %s,</p>
					<p>%s</p>
					<div style="text-align: center; margin: 30px 0;">
						<a href="%s/bookings" style="background-color: #2E86AB; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px;">View Your Bookings</a>
					</div>
					<p>Best regards,<br>The KajiShift Team</p>
				</div>`+emailFooter,
		headline, name, detail, baseURL)

	return sendEmail([]string{email}, subject, body)
}

func SendBookingUpdateEmail(email, name string, b *models.Booking) error {
	subject := "Booking Rescheduled - KajiShift"
	body := fmt.Sprintf(emailHeader+`
				<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
					<h1 style="color: #2c3e50; text-align: center;">Booking Rescheduled</h1>
					<p>Hello %s,</p>
					<p>Your <strong>%s</strong> booking has been rescheduled to <strong>%s</strong> at <strong>%s</strong>.</p>
					<div style="text-align: center; margin: 30px 0;">
						<a href="%s/bookings" style="background-color: #2E86AB; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px;">View Your Bookings</a>
					</div>
					<p>Best regards,<br>The KajiShift Team</p>
				</div>`+emailFooter,
		name, b.ServiceType, b.ScheduledDate.Format("2006-01-02"), b.StartTime, baseURL)

	return sendEmail([]string{email}, subject, body)
}

func SendPaymentReceiptEmail(email, name string, amount int, transactionID string) error {
	subject := "Payment Receipt - KajiShift"
	body := fmt.Sprintf(emailHeader+`
				<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
					<h1 style="color: #2c3e50; text-align: center;">Payment Receipt</h1>
					<p>Hello %s,</p>
					<p>We have received your payment of <strong>¥%d</strong>.</p>
					<p>Transaction reference: <strong>%s</strong></p>
					<div style="text-align: center; margin: 30px 0;">
						<a href="%s/payments" style="background-color: #2E86AB; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px;">View Payment History</a>
					</div>
					<p>Best regards,<br>The KajiShift Team</p>
				</div>`+emailFooter,
		name, amount, transactionID, baseURL)

	return sendEmail([]string{email}, subject, body)
}
