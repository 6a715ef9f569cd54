package services

import (
	"testing"
	"time"

	"github.com/faeln1/second-brain/internal/domain/message"
)

func strPtr(s string) *string { return &s }

func TestNormalizeMessageEmptyRow(t *testing.T) {
	got := NormalizeMessage(message.StoredMessage{})
	want := message.MessageData{
		SenderName:  "Unknown",
		SenderPhone: "unknown",
		Type:        "text",
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestNormalizeMessageFields(t *testing.T) {
	ts := time.Date(2024, 6, 15, 9, 0, 0, 0, time.FixedZone("IDT", 3*3600))
	cases := []struct {
		name string
		in   message.StoredMessage
		want message.MessageData
	}{
		{
			name: "full row",
			in: message.StoredMessage{
				RecordID: "r1", MessageID: "m1", From: "15551234567@s.whatsapp.net",
				Body: "hello", Caption: "ignored", Type: "image", Timestamp: &ts,
				Contact: &message.Contact{ID: "c", Name: "Dana", PushName: "D"},
			},
			want: message.MessageData{
				ID: "m1", Message: "hello", Timestamp: ts.UTC(), Type: "image",
				SenderName: "Dana", SenderPhone: "15551234567@s.whatsapp.net",
			},
		},
		{
			name: "caption and created at",
			in: message.StoredMessage{
				RecordID: "r2", Caption: "photo", CreatedAt: &ts,
				Contact: &message.Contact{ID: "c", PushName: "Dee"},
			},
			want: message.MessageData{
				ID: "r2", Message: "photo", Timestamp: ts.UTC(), Type: "text",
				SenderName: "Dee", SenderPhone: "unknown",
			},
		},
		{
			name: "contact number only",
			in: message.StoredMessage{
				RecordID: "r3", From: "972500000000@s.whatsapp.net",
				Contact: &message.Contact{ID: "c", Number: "+972 50"},
			},
			want: message.MessageData{
				ID: "r3", Type: "text", SenderName: "+972 50", SenderPhone: "972500000000@s.whatsapp.net",
			},
		},
		{
			name: "blank contact falls back to from",
			in: message.StoredMessage{
				RecordID: "r4", From: "15551234567@s.whatsapp.net", ContactID: strPtr("c"),
				Contact: &message.Contact{ID: "c", Name: "  "},
			},
			want: message.MessageData{
				ID: "r4", Type: "text", SenderName: "15551234567", SenderPhone: "15551234567@s.whatsapp.net",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeMessage(tc.in); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestSenderNameChain(t *testing.T) {
	withPushName := message.StoredMessage{From: "x@s.whatsapp.net", Contact: &message.Contact{ID: "c", PushName: "Avi"}}
	if got := NormalizeMessage(withPushName).SenderName; got != "Avi" {
		t.Fatalf("push name: got %q", got)
	}
	noContact := message.StoredMessage{From: "15551234567@s.whatsapp.net"}
	if got := NormalizeMessage(noContact).SenderName; got != "15551234567" {
		t.Fatalf("from: got %q", got)
	}
	atOnly := message.StoredMessage{From: "@s.whatsapp.net"}
	if got := NormalizeMessage(atOnly).SenderName; got != "Unknown" {
		t.Fatalf("empty local part: got %q", got)
	}
}

func TestNormalizeMessagesKeepsOrder(t *testing.T) {
	out := NormalizeMessages([]message.StoredMessage{{RecordID: "a"}, {RecordID: "b"}})
	if len(out) != 2 || out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("unexpected %+v", out)
	}
	if empty := NormalizeMessages(nil); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice")
	}
}
