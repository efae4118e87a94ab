package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Request-signing headers expected by the provider.
const (
	HeaderAppToken  = "X-App-Token"
	HeaderSignature = "X-App-Access-Sig"
	HeaderTimestamp = "X-App-Access-Ts"
)

// Signer computes the provider's request signature: hex-encoded HMAC-SHA256
// over ts + method + path-with-query + body, keyed by the shared secret.
// The body passed in must be the exact bytes that go on the wire; any
// re-serialization between signing and sending invalidates the signature.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex digest for the given request parts. uri is the path
// plus raw query, without scheme or host.
func (s *Signer) Sign(ts int64, method, uri string, body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte(method))
	mac.Write([]byte(uri))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
