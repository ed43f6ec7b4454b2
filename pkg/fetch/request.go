package fetch

import (
	"bytes"
	"fmt"
)

// BuildRequest renders the single HTTP/1.1 GET request sent over the
// session. The connection is marked close so the server ends the response
// by closing the session.
func BuildRequest(c Config) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "GET %s HTTP/1.1\r\n", c.Path)
	fmt.Fprintf(&b, "Host: %s\r\n", hostHeader(c))
	b.WriteString("Connection: close\r\n")
	if c.UserAgent != "" {
		fmt.Fprintf(&b, "User-Agent: %s\r\n", c.UserAgent)
	}
	if c.Accept != "" {
		fmt.Fprintf(&b, "Accept: %s\r\n", c.Accept)
	}
	b.WriteString("Content-Length: 0\r\n")
	b.WriteString("\r\n")
	return b.Bytes()
}

func hostHeader(c Config) string {
	if c.Port == 0 || c.Port == 443 {
		return c.Host
	}
	return c.Address()
}
