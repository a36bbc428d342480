package pdfsign

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
)

// OpenSSLSigner implements DetachedSigner by shelling out to the openssl
// cms command. This is pdfmut's default DetachedSigner: the CMS/PKCS#7
// signing primitive itself is treated as an external collaborator, so
// pdfmut does not carry its own ASN.1 CMS builder, it drives a real one.
type OpenSSLSigner struct {
	// Path to the openssl binary. Defaults to "openssl" (found via PATH)
	// when empty.
	Path string
}

func (s OpenSSLSigner) SignPKCS7(path string, certPEM, keyPEM []byte) ([]byte, error) {
	bin := s.Path
	if bin == "" {
		bin = "openssl"
	}

	dir, err := os.MkdirTemp("", "pdfmut-openssl-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	certPath := dir + "/cert.pem"
	keyPath := dir + "/key.pem"
	if err := os.WriteFile(certPath, certPEM, 0o600); err != nil {
		return nil, err
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return nil, err
	}

	cmd := exec.Command(bin, "cms", "-sign",
		"-binary", "-noattr",
		"-in", path,
		"-signer", certPath,
		"-inkey", keyPath,
		"-outform", "DER",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("openssl cms -sign: %w: %s", err, stderr.String())
	}

	return []byte(hex.EncodeToString(stdout.Bytes())), nil
}
