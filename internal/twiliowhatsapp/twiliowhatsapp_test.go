package twiliowhatsapp

import (
	"context"
	"testing"
)

func TestMockClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	err := mock.SendMessage(ctx, "12345", "Hello Test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.SentMessages))
	}

	if mock.SentMessages[0].Body != "Hello Test" {
		t.Errorf("expected body %q, got %q", "Hello Test", mock.SentMessages[0].Body)
	}
}

func TestAddress(t *testing.T) {
	tests := map[string]string{
		"56911112222":           "whatsapp:+56911112222",
		"+56911112222":          "whatsapp:+56911112222",
		"whatsapp:+56911112222": "whatsapp:+56911112222",
	}
	for in, want := range tests {
		if got := Address(in); got != want {
			t.Errorf("Address(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	if _, err := NewClient(); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Fatal("expected error without sender number")
	}
	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok"), WithFromWhats("+14155238886"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.fromWhats != "whatsapp:+14155238886" {
		t.Errorf("unexpected sender address %q", c.fromWhats)
	}
}

func TestSignatureValidator(t *testing.T) {
	var disabled *SignatureValidator
	if !disabled.Valid("https://example.com/twilio/webhook", nil, "") {
		t.Error("nil validator must accept every request")
	}
	if NewSignatureValidator("") != nil {
		t.Error("expected nil validator without auth token")
	}
	v := NewSignatureValidator("secret")
	if v.Valid("https://example.com/twilio/webhook", map[string]string{"Body": "hola"}, "bogus") {
		t.Error("expected bogus signature to be rejected")
	}
}
