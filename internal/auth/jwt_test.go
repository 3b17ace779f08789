package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestJWTGenerateValidate(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	userID := uuid.New()

	token, err := svc.Generate(userID, "dev@bilda.io", "user")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("claims.UserID = %s, want %s", claims.UserID, userID)
	}
	if claims.Email != "dev@bilda.io" || claims.Role != "user" {
		t.Fatalf("claims = %+v, want email dev@bilda.io role user", claims)
	}
}

func TestJWTValidateWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate(uuid.New(), "dev@bilda.io", "user")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := NewJWTService("secret-b", 1).Validate(token); err != ErrInvalidToken {
		t.Fatalf("Validate() with wrong secret error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTValidateExpired(t *testing.T) {
	svc := NewJWTService("test-secret", -1)
	token, err := svc.Generate(uuid.New(), "dev@bilda.io", "user")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := svc.Validate(token); err != ErrInvalidToken {
		t.Fatalf("Validate() expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTValidateGarbage(t *testing.T) {
	if _, err := NewJWTService("test-secret", 1).Validate("not-a-token"); err != ErrInvalidToken {
		t.Fatalf("Validate() garbage error = %v, want ErrInvalidToken", err)
	}
}
