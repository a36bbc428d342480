// Package cert loads the PKCS#12 signing bundle spec.md's prepare_signature
// step 1 requires and renders it into the PEM pair the external PKCS#7
// signer collaborator expects.
package cert

import (
	"crypto/x509"
	"encoding/pem"
	"os"

	"software.sslmate.com/src/go-pkcs12"
)

// Bundle holds a signing certificate and its private key as PEM blocks,
// plus any CA chain found alongside them in the PKCS#12 file.
type Bundle struct {
	CertPEM  []byte
	KeyPEM   []byte
	ChainPEM [][]byte
}

// Load decodes a PKCS#12 file at path using password, returning cert_pem and
// key_pem for the sign_pkcs7 collaborator.
func Load(path, password string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, leaf, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, err
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: leaf.Raw}),
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
	}
	for _, ca := range caCerts {
		bundle.ChainPEM = append(bundle.ChainPEM, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ca.Raw}))
	}
	return bundle, nil
}
