package config

import "testing"

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() failed validation: %v", err)
	}
}

func TestParseAppliesDefaultsToOmittedFields(t *testing.T) {
	cfg, err := Parse([]byte("producer: \"Acme Signer\"\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Producer != "Acme Signer" {
		t.Errorf("Producer = %q, want %q", cfg.Producer, "Acme Signer")
	}
	if cfg.SignatureHexCapacity != 11742 {
		t.Errorf("SignatureHexCapacity = %d, want default 11742", cfg.SignatureHexCapacity)
	}
}

func TestValidateRejectsOddHexCapacity(t *testing.T) {
	cfg := Default()
	cfg.SignatureHexCapacity = 3
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an odd signature_hex_capacity")
	}
}

func TestValidateRejectsMissingTempDir(t *testing.T) {
	cfg := Default()
	cfg.TempDir = "/no/such/directory/pdfmut-test"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a nonexistent temp_dir")
	}
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("not: [valid")); err == nil {
		t.Fatal("expected a YAML parse error")
	}
}
