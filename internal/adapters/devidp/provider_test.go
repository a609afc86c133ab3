package devidp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/Kyoronginus/accountlink/internal/ports"
)

func TestProvider_UpdateUserAttributesMerges(t *testing.T) {
	p := NewProvider(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	if err := p.UpdateUserAttributes(ctx, ports.UpdateAttributesInput{
		Username:   "Google_1",
		Attributes: map[string]string{"custom:auth_provider": "Google", "custom:linked_account": "true"},
	}); err != nil {
		t.Fatalf("UpdateUserAttributes error: %v", err)
	}
	if err := p.UpdateUserAttributes(ctx, ports.UpdateAttributesInput{
		Username:   "Google_1",
		Attributes: map[string]string{"custom:linked_account": "false"},
	}); err != nil {
		t.Fatalf("UpdateUserAttributes error: %v", err)
	}

	got := p.Attributes("Google_1")
	if got["custom:auth_provider"] != "Google" || got["custom:linked_account"] != "false" {
		t.Fatalf("unexpected attributes: %+v", got)
	}

	got["custom:auth_provider"] = "mutated"
	if p.Attributes("Google_1")["custom:auth_provider"] != "Google" {
		t.Fatal("Attributes must return a copy")
	}

	if err := p.UpdateUserAttributes(ctx, ports.UpdateAttributesInput{}); err == nil {
		t.Fatal("expected error for missing username")
	}
}

func TestProvider_LinkProviderIdentity(t *testing.T) {
	p := NewProvider(nil)
	err := p.LinkProviderIdentity(context.Background(), ports.LinkIdentityInput{
		DestinationUsername: "sub-email",
		SourceProvider:      "Facebook",
		SourceSubject:       "42",
	})
	if err != nil {
		t.Fatalf("LinkProviderIdentity error: %v", err)
	}
	dest, ok := p.LinkedTo("Facebook_42")
	if !ok || dest != "sub-email" {
		t.Fatalf("LinkedTo = %q, %v", dest, ok)
	}
	if err := p.LinkProviderIdentity(context.Background(), ports.LinkIdentityInput{}); err == nil {
		t.Fatal("expected validation error")
	}
}
