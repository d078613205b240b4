package permissions

import "testing"

func TestDefinitionMapIncludesLedgerRoutes(t *testing.T) {
	t.Parallel()

	definitionMap := DefinitionMap()
	requiredKeys := []string{
		"POST /v0/admin/payments/:id/approve",
		"POST /v0/admin/payments/:id/reject",
		"POST /v0/admin/withdrawals/:id/approve",
		"POST /v0/admin/withdrawals/:id/reject",
		"POST /v0/admin/users/:id/credits",
		"GET /v0/admin/dashboard/stats",
		"PUT /v0/admin/settings",
	}

	for _, key := range requiredKeys {
		key := key
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			if _, ok := definitionMap[key]; !ok {
				t.Fatalf("DefinitionMap() missing permission key %q", key)
			}
		})
	}
}

func TestDefinitionKeysAreUnique(t *testing.T) {
	t.Parallel()

	if got, want := len(DefinitionMap()), len(Definitions()); got != want {
		t.Fatalf("DefinitionMap() has %d keys, Definitions() has %d entries", got, want)
	}
}

func TestNormalizeValidateRoundTrip(t *testing.T) {
	t.Parallel()

	normalized := NormalizePermissions([]string{" GET /v0/admin/users ", "GET /v0/admin/users", "", "GET /v0/admin/payments"})
	if len(normalized) != 2 || normalized[0] != "GET /v0/admin/payments" {
		t.Fatalf("NormalizePermissions() = %v", normalized)
	}
	if err := ValidatePermissions(normalized); err != nil {
		t.Fatalf("ValidatePermissions() error = %v", err)
	}
	if err := ValidatePermissions([]string{"GET /v0/admin/unknown"}); err == nil {
		t.Fatalf("expected error for unknown key")
	}

	raw, errMarshal := MarshalPermissions(normalized)
	if errMarshal != nil {
		t.Fatalf("MarshalPermissions() error = %v", errMarshal)
	}
	parsed := ParsePermissions(raw)
	if !HasPermission(parsed, "GET /v0/admin/users") || HasPermission(parsed, "PUT /v0/admin/settings") {
		t.Fatalf("HasPermission mismatch for %v", parsed)
	}
	if ParsePermissions([]byte("not-json")) != nil {
		t.Fatalf("expected nil for invalid json")
	}
}
