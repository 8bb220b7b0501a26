package auth

import (
	"testing"
	"time"

	"pharmacy-dashboard/internal/testutil"
)

func TestInspectToken_ReadsClaimsWithoutSecret(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tok := testutil.GenerateJWTHS256(t, "some-backend-secret", "green-pharmacy", "pharmacy", exp)

	c, err := InspectToken(tok)
	if err != nil {
		t.Fatalf("InspectToken: %v", err)
	}
	if c.Name != "green-pharmacy" || c.Role != "pharmacy" {
		t.Fatalf("claims mismatch: %+v", c)
	}
	if c.Expired(time.Now()) {
		t.Fatalf("future-dated token reported expired")
	}
	if !c.Expired(time.Unix(exp+1, 0)) {
		t.Fatalf("token not reported expired past its exp claim")
	}
}

func TestInspectToken_NoExpNeverExpires(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, "s", "n", "pharmacy", 0)
	c, err := InspectToken(tok)
	if err != nil {
		t.Fatalf("InspectToken: %v", err)
	}
	if c.Expired(time.Now().Add(100 * 365 * 24 * time.Hour)) {
		t.Fatalf("token without exp claim must not expire client-side")
	}
}

func TestInspectToken_Invalid(t *testing.T) {
	if _, err := InspectToken(""); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if _, err := InspectToken("not.a.jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}
