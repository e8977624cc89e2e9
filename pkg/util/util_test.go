package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestJWTRoundTrip(t *testing.T) {
	id := uuid.New()
	token, issued, err := GenerateJWT(id, "caregiver", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != id.String() || claims.Role != "caregiver" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ID == "" || claims.ID != issued.ID {
		t.Fatalf("jti mismatch: issued %q parsed %q", issued.ID, claims.ID)
	}

	if _, err := ParseJWT(token, "other"); err == nil {
		t.Fatal("expected signature error with wrong secret")
	}
}

func TestJWTExpired(t *testing.T) {
	token, _, err := GenerateJWT(uuid.New(), "user", "secret", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT(token, "secret"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestExtractBearer(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer  xyz": "xyz",
		"Basic abc":   "",
		"":            "",
		"Bearer":      "",
	}
	for in, want := range tests {
		if got := ExtractBearer(in); got != want {
			t.Errorf("ExtractBearer(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword("hunter22", hash) || CheckPassword("hunter23", hash) {
		t.Fatal("bcrypt check mismatch")
	}
}

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error
	if err := json.Unmarshal([]byte("{"), &struct{}{}); err != nil {
		syntaxErr = err
	}

	tests := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"json", syntaxErr, false, "json_decode_error"},
		{"no rows", fmt.Errorf("load question: %w", pgx.ErrNoRows), false, "source_not_found"},
		{"unique", &pgconn.PgError{Code: "23505"}, false, "duplicate_key"},
		{"fk", &pgconn.PgError{Code: "23503"}, false, "foreign_key_violation"},
		{"conn", &pgconn.PgError{Code: "08006"}, true, "db_connection_error"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"unknown", errors.New("weird"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, kind := IsRetryableError(tt.err)
			if retryable != tt.retryable || kind != tt.kind {
				t.Fatalf("got (%v, %q), want (%v, %q)", retryable, kind, tt.retryable, tt.kind)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	if !ShouldRetry(3, 3, true) {
		t.Error("count equal to max should still retry")
	}
	if ShouldRetry(4, 3, true) {
		t.Error("count above max should not retry")
	}
	if ShouldRetry(1, 3, false) {
		t.Error("non-retryable should never retry")
	}
}

type signUp struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=user caregiver"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	if err := v.Struct(signUp{Email: "a@b.co", Password: "longenough"}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	err := v.Struct(signUp{Email: "nope", Password: "short", Role: "admin", Phone: "x"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	for _, name := range []string{"email", "password", "role", "phone"} {
		if !fields[name] {
			t.Errorf("expected error on %q, got %+v", name, verr.Fields)
		}
	}
	if !strings.Contains(verr.Error(), "email must be a valid email address") {
		t.Errorf("unexpected message %q", verr.Error())
	}
}
