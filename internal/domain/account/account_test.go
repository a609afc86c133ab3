package account

import (
	"testing"
	"time"
)

func TestNew_LinkedSetHoldsPrimary(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	a := New("sub-1", "  Bob@Example.COM ", "Bob", ProviderGoogle, now)
	if a.Email != "bob@example.com" {
		t.Fatalf("email not normalized: %q", a.Email)
	}
	if !a.LinkedAuthMethods.Contains(ProviderGoogle) || len(a.LinkedAuthMethods) != 1 {
		t.Fatalf("unexpected linked set: %v", a.LinkedAuthMethods)
	}
	if !a.CreatedAt.Equal(a.UpdatedAt) || a.CreatedAt.Location() != time.UTC {
		t.Fatalf("timestamps not normalized: %v %v", a.CreatedAt, a.UpdatedAt)
	}
}

func TestLinkedMethods_Union(t *testing.T) {
	base := NewLinkedMethods(ProviderEmail)
	got := base.Union(ProviderGoogle)
	if len(base) != 1 {
		t.Fatalf("receiver mutated: %v", base)
	}
	if len(got) != 2 || !got.Contains(ProviderEmail) || !got.Contains(ProviderGoogle) {
		t.Fatalf("unexpected union: %v", got)
	}
	again := got.Union(ProviderGoogle)
	if len(again) != 2 {
		t.Fatalf("union not idempotent: %v", again)
	}
}

func TestNewLinkedMethods_SortsAndDedupes(t *testing.T) {
	got := NewLinkedMethods(ProviderGoogle, "", ProviderEmail, ProviderGoogle)
	want := []string{"Email", "Google"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i, s := range got.Strings() {
		if s != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if rt := LinkedMethodsFromStrings(got.Strings()); len(rt) != 2 || rt[0] != ProviderEmail {
		t.Fatalf("unexpected round trip: %v", rt)
	}
}

func TestParseProvider(t *testing.T) {
	cases := map[string]Provider{
		"google":   ProviderGoogle,
		"Facebook": ProviderFacebook,
		" EMAIL ":  ProviderEmail,
		"oauth":    ProviderOAuth,
	}
	for in, want := range cases {
		got, err := ParseProvider(in)
		if err != nil || got != want {
			t.Fatalf("ParseProvider(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseProvider("github"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestMarkersFor(t *testing.T) {
	a := New("sub-1", "a@b.c", "", ProviderEmail, time.Now())

	primary := MarkersFor(a, ProviderEmail)
	if !primary.PrimaryAccount || primary.LinkedAccount {
		t.Fatalf("expected primary markers: %+v", primary)
	}

	linked := MarkersFor(a, ProviderGoogle)
	attrs := linked.Attributes("custom:")
	if attrs["custom:primary_user_id"] != "sub-1" ||
		attrs["custom:auth_provider"] != "Google" ||
		attrs["custom:linked_account"] != "true" ||
		attrs["custom:primary_account"] != "false" {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
}

func TestSessionMarkers_ZeroRendersNothing(t *testing.T) {
	if got := (SessionMarkers{}).Attributes("custom:"); len(got) != 0 {
		t.Fatalf("expected no attributes, got %v", got)
	}
}
