// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import "testing"

func TestGenerateID(t *testing.T) {
	id1, err := GenerateID(16)
	if err != nil {
		t.Fatalf("GenerateID failed: %v", err)
	}
	if len(id1) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(id1))
	}

	id2, err := GenerateID(16)
	if err != nil {
		t.Fatalf("GenerateID failed: %v", err)
	}
	if id1 == id2 {
		t.Error("two generated IDs should not collide")
	}
}

func TestValidateModeratorKey(t *testing.T) {
	if err := ValidateModeratorKey("secret", "secret"); err != nil {
		t.Errorf("matching key rejected: %v", err)
	}
	if err := ValidateModeratorKey("wrong", "secret"); err == nil {
		t.Error("mismatched key accepted")
	}
	if err := ValidateModeratorKey("", "secret"); err == nil {
		t.Error("empty key accepted")
	}
}
