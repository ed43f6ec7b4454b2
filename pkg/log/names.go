package log

import "crypto/tls"

// VersionName returns the protocol version name, e.g. "TLS 1.3".
func VersionName(v uint16) string {
	return tls.VersionName(v)
}

// CipherSuiteName returns the cipher suite name, or "" for none.
func CipherSuiteName(id uint16) string {
	if id == 0 {
		return ""
	}
	return tls.CipherSuiteName(id)
}
