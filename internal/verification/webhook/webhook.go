// Package webhook authenticates and decodes inbound provider notifications.
// Verification runs over the exact received body bytes before anything is
// parsed: a payload that fails the digest check is never trusted.
package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"hash"

	"vouch/internal/verification/provider"
	dErrors "vouch/pkg/domain-errors"
)

// Headers carried by provider webhooks.
const (
	HeaderDigest    = "X-Payload-Digest"
	HeaderDigestAlg = "X-Payload-Digest-Alg"
)

// Digest algorithm names as the provider advertises them.
const (
	AlgSHA1   = "HMAC_SHA1_HEX"
	AlgSHA256 = "HMAC_SHA256_HEX"
	AlgSHA512 = "HMAC_SHA512_HEX"
)

var (
	errMissingDigest = dErrors.New(dErrors.CodeSignatureInvalid, "webhook digest header missing")
	errBadDigest     = dErrors.New(dErrors.CodeSignatureInvalid, "webhook digest mismatch")
	errUnknownAlg    = dErrors.New(dErrors.CodeSignatureInvalid, "unsupported webhook digest algorithm")
)

// Verifier checks webhook authenticity with the shared webhook secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify recomputes the HMAC over body and compares it, constant-time,
// against the hex digest from the header. alg selects the hash; empty
// defaults to SHA-256.
func (v *Verifier) Verify(body []byte, digestHex, alg string) error {
	if digestHex == "" {
		return errMissingDigest
	}

	var newHash func() hash.Hash
	switch alg {
	case AlgSHA1:
		newHash = sha1.New
	case AlgSHA256, "":
		newHash = sha256.New
	case AlgSHA512:
		newHash = sha512.New
	default:
		return errUnknownAlg
	}

	mac := hmac.New(newHash, v.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(digestHex)) {
		return errBadDigest
	}
	return nil
}

// Payload is the provider's notification body. Only the fields the
// reconciler needs are decoded; the provider sends more.
type Payload struct {
	ApplicantID  string `json:"applicantId"`
	ReviewStatus string `json:"reviewStatus"`
	ReviewResult struct {
		ReviewAnswer      string `json:"reviewAnswer"`
		ModerationComment string `json:"moderationComment"`
	} `json:"reviewResult"`
}

// Parse decodes a verified body. Call Verify first.
func Parse(body []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, dErrors.Wrap(dErrors.CodeInvalidInput, "invalid webhook payload", err)
	}
	if p.ApplicantID == "" {
		return Payload{}, dErrors.New(dErrors.CodeInvalidInput, "webhook payload missing applicantId")
	}
	return p, nil
}

// Outcome maps the payload onto the local review vocabulary using the same
// rule as status polling.
func (p Payload) Outcome() provider.ReviewOutcome {
	return provider.MapOutcome(p.ReviewStatus, p.ReviewResult.ReviewAnswer, p.ReviewResult.ModerationComment)
}
