package cert

import (
	"crypto/ecdsa"
	"crypto/tls"
	"crypto/x509"
	"time"
)

// Validity periods for generated certificates.
const (
	// CAValidity is the validity period for generated CA certificates.
	CAValidity = 10 * 365 * 24 * time.Hour

	// LeafValidity is the validity period for generated leaf certificates.
	LeafValidity = 90 * 24 * time.Hour
)

// KeyPair holds an ECDSA P-256 key pair.
type KeyPair struct {
	PrivateKey *ecdsa.PrivateKey
	PublicKey  *ecdsa.PublicKey
}

// Authority is a certificate authority able to issue leaf certificates.
type Authority struct {
	// Certificate is the CA certificate.
	Certificate *x509.Certificate

	// PrivateKey signs issued certificates.
	PrivateKey *ecdsa.PrivateKey
}

// Leaf is an issued end-entity certificate with its key.
type Leaf struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey

	// Issuer is the certificate that signed this leaf.
	Issuer *x509.Certificate
}

// TLSCertificate converts the leaf and its issuer chain to a tls.Certificate.
func (l *Leaf) TLSCertificate() tls.Certificate {
	if l == nil || l.Certificate == nil || l.PrivateKey == nil {
		return tls.Certificate{}
	}
	chain := [][]byte{l.Certificate.Raw}
	if l.Issuer != nil {
		chain = append(chain, l.Issuer.Raw)
	}
	return tls.Certificate{
		Certificate: chain,
		PrivateKey:  l.PrivateKey,
		Leaf:        l.Certificate,
	}
}
