package cert

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

const pemTypeCertificate = "CERTIFICATE"

var (
	ErrInvalidPEM = errors.New("invalid PEM data")
	ErrNoCerts    = errors.New("no certificates found")
)

// DecodeCertBundle decodes every certificate in data. A PEM bundle may mix
// CERTIFICATE blocks with other block types, which are skipped. Input with
// no PEM block at all is parsed as concatenated DER.
func DecodeCertBundle(data []byte) ([]*x509.Certificate, error) {
	var (
		certs  []*x509.Certificate
		blocks int
	)
	for rest := data; ; {
		var block *pem.Block
		if block, rest = pem.Decode(rest); block == nil {
			break
		}
		blocks++
		if block.Type != pemTypeCertificate {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("certificate block %d: %w", blocks, err)
		}
		certs = append(certs, c)
	}

	if blocks == 0 && len(data) > 0 {
		der, err := x509.ParseCertificates(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
		}
		certs = der
	}

	if len(certs) == 0 {
		return nil, ErrNoCerts
	}
	return certs, nil
}

// WriteCertFile writes certs to path as a PEM bundle, in order.
func WriteCertFile(path string, certs ...*x509.Certificate) error {
	var buf bytes.Buffer
	for _, c := range certs {
		if err := pem.Encode(&buf, &pem.Block{Type: pemTypeCertificate, Bytes: c.Raw}); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
