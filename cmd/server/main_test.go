package main

import (
	"testing"

	"kasbook/backend/internal/config"
)

func authConfig(secret, username, password string) config.Config {
	return config.Config{Auth: config.AuthConfig{Secret: secret, Username: username, Password: password}}
}

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	cases := map[string]config.Config{
		"short secret":  authConfig("short", "owner", "tokoku-2024-aman"),
		"no username":   authConfig("0123456789abcdef0123456789abcdef", "", "tokoku-2024-aman"),
		"short pass":    authConfig("0123456789abcdef0123456789abcdef", "owner", "abc123"),
		"common pass":   authConfig("0123456789abcdef0123456789abcdef", "owner", "Password123"),
		"letters only":  authConfig("0123456789abcdef0123456789abcdef", "owner", "onlyletterspassword"),
		"repeated char": authConfig("0123456789abcdef0123456789abcdef", "owner", "aaaaaaaaaaaa"),
	}
	for name, cfg := range cases {
		if err := validateSecurityConfig(cfg); err == nil {
			t.Fatalf("%s: expected weak security config to be rejected", name)
		}
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(authConfig("0123456789abcdef0123456789abcdef", "owner", "tokoku-2024-aman"))
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestValidateSecurityConfigTrustsBcryptHash(t *testing.T) {
	hash := "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZbUYVhVw9i1pLJ2Qe1b5yS"
	if err := validateSecurityConfig(authConfig("0123456789abcdef0123456789abcdef", "owner", hash)); err != nil {
		t.Fatalf("expected hashed password to pass, got %v", err)
	}
}
