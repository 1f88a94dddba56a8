package jwt

import (
	"testing"
	"time"
)

func TestSignAndParse(t *testing.T) {
	s, err := NewSigner("test-secret")
	if err != nil {
		t.Fatal(err)
	}
	tok, err := s.Sign("recruiter-1", "42", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := s.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "recruiter-1" || claims.CompanyID != "42" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	s, _ := NewSigner("test-secret")
	other, _ := NewSigner("other-secret")

	expired, _ := s.Sign("u", "", -time.Minute)
	foreign, _ := other.Sign("u", "", time.Minute)

	for name, tok := range map[string]string{
		"expired": expired,
		"foreign": foreign,
		"garbage": "not-a-token",
	} {
		if _, err := s.Parse(tok); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
