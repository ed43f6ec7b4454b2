package cert

import (
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Store errors.
var (
	ErrEmptyTrustStore = errors.New("trust store is empty")
	ErrInvalidCert     = errors.New("invalid certificate")
)

// TrustStore is an immutable, ordered set of trusted certificate authorities.
// It is parsed once and may be shared by any number of sessions without
// synchronization.
type TrustStore struct {
	certs []*x509.Certificate
	pool  *x509.CertPool
}

// NewTrustStore builds a trust store from already parsed certificates.
// Order is preserved. Returns ErrEmptyTrustStore if certs is empty.
func NewTrustStore(certs ...*x509.Certificate) (*TrustStore, error) {
	if len(certs) == 0 {
		return nil, ErrEmptyTrustStore
	}

	pool := x509.NewCertPool()
	owned := make([]*x509.Certificate, 0, len(certs))
	for i, c := range certs {
		if c == nil {
			return nil, fmt.Errorf("%w: entry %d is nil", ErrInvalidCert, i)
		}
		pool.AddCert(c)
		owned = append(owned, c)
	}

	return &TrustStore{certs: owned, pool: pool}, nil
}

// LoadTrustStore reads a PEM or DER CA bundle from path.
func LoadTrustStore(path string) (*TrustStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA bundle: %w", err)
	}
	certs, err := DecodeCertBundle(data)
	if err != nil {
		return nil, fmt.Errorf("parse CA bundle %s: %w", path, err)
	}
	return NewTrustStore(certs...)
}

// Len returns the number of trusted authorities. A nil store has none.
func (s *TrustStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.certs)
}

// Certificates returns a copy of the trusted authorities in load order.
func (s *TrustStore) Certificates() []*x509.Certificate {
	if s == nil {
		return nil
	}
	out := make([]*x509.Certificate, len(s.certs))
	copy(out, s.certs)
	return out
}

// Pool returns a copy of the store as an x509.CertPool, suitable for
// tls.Config.RootCAs.
func (s *TrustStore) Pool() *x509.CertPool {
	if s == nil {
		return nil
	}
	return s.pool.Clone()
}
