package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

type Sender interface {
	Send(to string, subject string, body string) error
}

// Reminder is the upcoming-appointment notice sent to a client. The greeting
// stays in Spanish to match the studio's own correspondence.
type Reminder struct {
	ClientName string
	Title      string
	StartTime  time.Time
}

func (r Reminder) Subject() string {
	return fmt.Sprintf("Reminder: %s", r.Title)
}

func (r Reminder) Body() string {
	return fmt.Sprintf(
		"Hola %s,\n\nThis is a reminder of your appointment:\n\n  %s\n  %s\n\nSee you at the studio.\n",
		r.ClientName,
		r.Title,
		r.StartTime.Format("Monday, 2 January 2006 at 15:04"),
	)
}

// SMTPSender sends email via unauthenticated SMTP (Mailpit-compatible).
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(host string, port string, from string) *SMTPSender {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@hilvan.local"
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%s", host, port),
		from: from,
	}
}

func (s *SMTPSender) Send(to string, subject string, body string) error {
	msg := buildMessage(s.from, to, subject, body)
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg))
}

func buildMessage(from, to, subject, body string) string {
	// Minimal RFC 5322 message; enough for Mailpit and most SMTP relays.
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		subject,
		body,
	)
}
