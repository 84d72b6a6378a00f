package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"
)

func testKeys(t *testing.T) *Keys {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating rsa key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshaling public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	keys, err := NewKeys(privPEM, pubPEM)
	if err != nil {
		t.Fatalf("NewKeys: %v", err)
	}
	return keys
}

func TestGenerateAndVerifyToken(t *testing.T) {
	keys := testKeys(t)

	token, err := keys.GenerateToken("user-123", []string{RoleUser, RoleAdmin}, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := keys.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if !claims.HasRole(RoleUser) || !claims.HasRole(RoleAdmin) {
		t.Fatalf("expected both roles, got %v", claims.Roles)
	}
	if claims.HasRole("superuser") {
		t.Fatalf("unexpected role granted")
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	keys := testKeys(t)

	token, err := keys.GenerateToken("user-123", []string{RoleUser}, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := keys.VerifyToken(token); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestVerifyToken_Garbage(t *testing.T) {
	keys := testKeys(t)
	if _, err := keys.VerifyToken("not-a-token"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestVerifyToken_WrongKeyPair(t *testing.T) {
	keys := testKeys(t)
	other := testKeys(t)

	token, err := keys.GenerateToken("user-123", []string{RoleUser}, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := other.VerifyToken(token); err == nil {
		t.Fatalf("expected verification failure with a different key pair")
	}
}
