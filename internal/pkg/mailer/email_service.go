package mailer

import (
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendSessionDigest(toEmail, sessionTitle string, highlights []string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

func (s *emailService) SendSessionDigest(toEmail, sessionTitle string, highlights []string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("Session digest: %s", sessionTitle))

	var items strings.Builder
	for _, h := range highlights {
		items.WriteString(fmt.Sprintf("<li>%s</li>", html.EscapeString(h)))
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>%s</h2>
			<p>Your recording session was summarized:</p>
			<ul>%s</ul>
			<p>Open the recorder to review the full activity log.</p>
		</div>
	`, html.EscapeString(sessionTitle), items.String())

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send session digest to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Session digest sent to %s\n", toEmail)
	return nil
}
