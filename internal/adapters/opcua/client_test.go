package opcua

import (
	"context"
	"errors"
	"testing"

	"github.com/gopcua/opcua/ua"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{URI: "opc.tcp://localhost:4840"}
	cfg.ApplyDefaults()

	if cfg.SecurityMode != "None" {
		t.Errorf("SecurityMode = %q, want None", cfg.SecurityMode)
	}
	if cfg.SecurityPolicy != "None" {
		t.Errorf("SecurityPolicy = %q, want None", cfg.SecurityPolicy)
	}
	if cfg.ApplicationName == "" {
		t.Error("ApplicationName should get a default")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing uri")
	}

	cfg.URI = "opc.tcp://localhost:4840"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClientRejectsEmptyURI(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("expected error for empty uri")
	}
}

func TestNormalizeSecurityMode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "None"},
		{"none", "None"},
		{"sign", "Sign"},
		{"Sign", "Sign"},
		{"signandencrypt", "SignAndEncrypt"},
		{"sign_and_encrypt", "SignAndEncrypt"},
		{"sign+encrypt", "SignAndEncrypt"},
		{"garbage", "None"},
	}
	for _, tt := range tests {
		if got := normalizeSecurityMode(tt.in); got != tt.want {
			t.Errorf("normalizeSecurityMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBareIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"i=85", "i=85"},
		{"ns=2;s=Demo.Static", "s=Demo.Static"},
		{"ns=14;i=1001", "i=1001"},
	}
	for _, tt := range tests {
		nid, err := ua.ParseNodeID(tt.in)
		if err != nil {
			t.Fatalf("ParseNodeID(%q): %v", tt.in, err)
		}
		if got := bareIdentifier(nid); got != tt.want {
			t.Errorf("bareIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsTransferFailure(t *testing.T) {
	if !isTransferFailure(ua.StatusBadSubscriptionIDInvalid) {
		t.Error("BadSubscriptionIDInvalid should count as transfer failure")
	}
	if !isTransferFailure(ua.StatusBadNoSubscription) {
		t.Error("BadNoSubscription should count as transfer failure")
	}
	if isTransferFailure(ua.StatusBadTimeout) {
		t.Error("BadTimeout is not a transfer failure")
	}
	if isTransferFailure(errors.New("unrelated")) {
		t.Error("generic errors are not transfer failures")
	}
}

func TestBrowseRequiresConnection(t *testing.T) {
	c, err := NewClient(Config{URI: "opc.tcp://localhost:4840"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Browse(context.Background(), "i=85"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Browse before Connect: got %v, want ErrNotConnected", err)
	}
}
