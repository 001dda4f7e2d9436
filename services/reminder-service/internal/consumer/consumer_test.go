package consumer

import "testing"

func TestParseEvent(t *testing.T) {
	ev, err := parseEvent([]byte(`{
		"appointment_id": "a1",
		"owner_id": "o1",
		"client_name": "Maria Lopez",
		"client_email": "maria@example.com",
		"title": "Fitting - Maria Lopez",
		"start_time": "2023-10-07T10:00:00Z"
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.AppointmentID != "a1" || ev.ClientEmail != "maria@example.com" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParseEvent_Invalid(t *testing.T) {
	if _, err := parseEvent([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if _, err := parseEvent([]byte(`{"owner_id":"o1"}`)); err == nil {
		t.Fatal("expected error for missing appointment fields")
	}
}
