package tokens

import "testing"

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatal(err)
	}
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty tokens, got %q and %q", a, b)
	}
}

func TestVerifyS256_RFCVector(t *testing.T) {
	// Vector de RFC 7636 apéndice B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	if SHA256Base64URL(verifier) != challenge {
		t.Fatalf("S256 mismatch: got %s", SHA256Base64URL(verifier))
	}
	if !VerifyS256(verifier, challenge) {
		t.Fatal("expected verifier to match challenge")
	}
	if VerifyS256("wrong-verifier", challenge) {
		t.Fatal("expected mismatch for wrong verifier")
	}
}
