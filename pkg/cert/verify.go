package cert

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/ocsp"
)

// Verification errors.
var (
	ErrNoPeerCert       = errors.New("peer presented no certificate")
	ErrInvalidChain     = errors.New("invalid certificate chain")
	ErrHostnameMismatch = errors.New("certificate does not match hostname")
	ErrCertRevoked      = errors.New("certificate has been revoked")
	ErrInvalidOCSP      = errors.New("invalid OCSP response")
)

// VerifyOptions controls peer chain verification.
type VerifyOptions struct {
	// Hostname the leaf certificate must be valid for.
	Hostname string

	// CurrentTime overrides the verification time. Zero means now.
	CurrentTime time.Time
}

// VerifyPeerChain verifies that chain[0] chains to an authority in store
// and is valid for opts.Hostname. Remaining certificates are used as
// intermediates. It returns the first verified chain, leaf first.
func VerifyPeerChain(store *TrustStore, chain []*x509.Certificate, opts VerifyOptions) ([]*x509.Certificate, error) {
	if len(chain) == 0 || chain[0] == nil {
		return nil, ErrNoPeerCert
	}
	if store.Len() == 0 {
		return nil, ErrEmptyTrustStore
	}

	leaf := chain[0]
	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		if c != nil {
			intermediates.AddCert(c)
		}
	}

	now := opts.CurrentTime
	if now.IsZero() {
		now = time.Now()
	}

	verified, err := leaf.Verify(x509.VerifyOptions{
		Roots:         store.pool,
		Intermediates: intermediates,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidChain, err)
	}

	// Hostname is checked separately so a mismatch is distinguishable
	// from an untrusted chain.
	if opts.Hostname != "" {
		if err := leaf.VerifyHostname(opts.Hostname); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHostnameMismatch, err)
		}
	}

	return verified[0], nil
}

// CheckStapledOCSP validates a stapled OCSP response for leaf, signed by
// issuer. An empty staple is accepted. A revoked status returns
// ErrCertRevoked; an unknown status is accepted.
func CheckStapledOCSP(staple []byte, leaf, issuer *x509.Certificate) error {
	if len(staple) == 0 {
		return nil
	}
	if leaf == nil || issuer == nil {
		return fmt.Errorf("%w: leaf and issuer required", ErrInvalidOCSP)
	}

	resp, err := ocsp.ParseResponseForCert(staple, leaf, issuer)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOCSP, err)
	}

	switch resp.Status {
	case ocsp.Revoked:
		return fmt.Errorf("%w: serial %s at %s", ErrCertRevoked,
			leaf.SerialNumber, resp.RevokedAt.Format(time.RFC3339))
	default:
		return nil
	}
}

// CertificateInfo summarizes a peer certificate for logs.
type CertificateInfo struct {
	Subject    string
	Issuer     string
	DNSNames   []string
	Serial     string
	NotAfter   time.Time
	SHA256     string
	SelfIssued bool
}

// Describe summarizes c. A nil certificate yields the zero value.
func Describe(c *x509.Certificate) CertificateInfo {
	if c == nil {
		return CertificateInfo{}
	}
	sum := sha256.Sum256(c.Raw)
	return CertificateInfo{
		Subject:    c.Subject.CommonName,
		Issuer:     c.Issuer.CommonName,
		DNSNames:   c.DNSNames,
		Serial:     c.SerialNumber.Text(16),
		NotAfter:   c.NotAfter,
		SHA256:     hex.EncodeToString(sum[:]),
		SelfIssued: bytes.Equal(c.RawIssuer, c.RawSubject),
	}
}

// LogValue renders the summary as an slog group.
func (i CertificateInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("subject", i.Subject),
		slog.String("issuer", i.Issuer),
		slog.Any("dns_names", i.DNSNames),
		slog.Time("not_after", i.NotAfter),
		slog.String("sha256", i.SHA256),
	)
}
