package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsPermanent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "permanent provider error", err: &ProviderError{StatusCode: 410, Permanent: true}, want: true},
		{name: "transient provider error", err: &ProviderError{StatusCode: 500, Permanent: false}, want: false},
		{name: "wrapped permanent error", err: fmt.Errorf("send: %w", &ProviderError{StatusCode: 404, Permanent: true}), want: true},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsPermanent(tt.err); got != tt.want {
				t.Fatalf("IsPermanent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProviderErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ProviderError{
		StatusCode: 410,
		Message:    "endpoint unregistered",
		Permanent:  true,
		Cause:      errors.New("gone"),
	}

	got := err.Error()
	want := "provider error: status=410: endpoint unregistered: gone"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestNewWebPushProviderRequiresKeys(t *testing.T) {
	t.Parallel()

	if _, err := NewWebPushProvider("admin@notify.local", "", "private"); err == nil {
		t.Fatal("expected error for missing public key")
	}
	if _, err := NewWebPushProvider("admin@notify.local", "public", ""); err == nil {
		t.Fatal("expected error for missing private key")
	}

	p, err := NewWebPushProvider("admin@notify.local", "public", "private")
	if err != nil {
		t.Fatalf("NewWebPushProvider() error = %v", err)
	}
	if p == nil {
		t.Fatal("provider should not be nil")
	}
}
