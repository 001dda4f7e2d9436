package email

import (
	"strings"
	"testing"
	"time"
)

func TestReminderRendering(t *testing.T) {
	r := Reminder{
		ClientName: "Maria Lopez",
		Title:      "Fitting - Maria Lopez",
		StartTime:  time.Date(2023, time.October, 7, 10, 0, 0, 0, time.UTC),
	}

	if got := r.Subject(); got != "Reminder: Fitting - Maria Lopez" {
		t.Fatalf("subject %q", got)
	}
	body := r.Body()
	if !strings.HasPrefix(body, "Hola Maria Lopez,") {
		t.Fatalf("body greeting wrong: %q", body)
	}
	if !strings.Contains(body, "Saturday, 7 October 2023 at 10:00") {
		t.Fatalf("body missing appointment time: %q", body)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("no-reply@hilvan.local", "maria@example.com", "Reminder: Fitting", "Hola Maria,\n")

	for _, header := range []string{
		"From: no-reply@hilvan.local\r\n",
		"To: maria@example.com\r\n",
		"Subject: Reminder: Fitting\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n",
	} {
		if !strings.Contains(msg, header) {
			t.Fatalf("missing header %q in %q", header, msg)
		}
	}
	if !strings.Contains(msg, "\r\n\r\nHola Maria,\n") {
		t.Fatalf("body not separated from headers: %q", msg)
	}
}
