package user

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := map[string]string{
		"  Sam@Example.COM ": "Sam@example.com",
		"no-at-sign":         "no-at-sign",
		"a@b@C.org":          "a@b@c.org",
	}

	for in, want := range tests {
		if got := NormalizeEmail(in); got != want {
			t.Fatalf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestApplyUpdateResetsOmittedFlags(t *testing.T) {
	u := User{ID: 1, Email: "old@example.com", IsActive: false, IsStaff: true, IsSuperuser: true}

	got := u.ApplyUpdate(UpdateUserRequest{Email: "new@Example.com"})

	if got.Email != "new@example.com" {
		t.Fatalf("email: got %q", got.Email)
	}
	if !got.IsActive || got.IsStaff || got.IsSuperuser {
		t.Fatalf("flags not reset to defaults: %+v", got)
	}
	if got.ID != 1 {
		t.Fatalf("id must be preserved")
	}
}

func TestApplyPatchKeepsUntouchedFields(t *testing.T) {
	staff := false
	u := User{Email: "keep@example.com", IsActive: true, IsStaff: true}

	got := u.ApplyPatch(PatchUserRequest{IsStaff: &staff})

	if got.Email != "keep@example.com" || !got.IsActive || got.IsStaff {
		t.Fatalf("unexpected patch result: %+v", got)
	}
}
