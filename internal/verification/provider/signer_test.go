package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Digests computed independently with a reference HMAC-SHA256
// implementation over ts + method + uri + body.
func TestSigner_KnownVectors(t *testing.T) {
	signer := NewSigner("test-secret-key")

	tests := []struct {
		name   string
		ts     int64
		method string
		uri    string
		body   []byte
		want   string
	}{
		{
			name:   "status read without body",
			ts:     1717243200,
			method: "GET",
			uri:    "/resources/applicants/abc123/status",
			want:   "91de664db7e93d653e5d7cb99b1aa21e79cb793f7d92b361e61333e1c0111d68",
		},
		{
			name:   "query string is part of the signed uri",
			ts:     1717243200,
			method: "POST",
			uri:    "/resources/accessTokens?userId=user-1&ttlInSecs=3600",
			want:   "1692eb41cd3f431357bee77e385e1097de9890d5f08f7f42818bea23f326c83f",
		},
		{
			name:   "body bytes are signed verbatim",
			ts:     1717243260,
			method: "POST",
			uri:    "/resources/applicants",
			body:   []byte(`{"externalUserId":"user-1"}`),
			want:   "06c73dae6cfc7875a3bd123fbf197a13f75a836eada04b4326fe9d55e150a0d8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, signer.Sign(tt.ts, tt.method, tt.uri, tt.body))
		})
	}
}

func TestSigner_DifferentSecretsDiffer(t *testing.T) {
	a := NewSigner("secret-a").Sign(1717243200, "GET", "/resources/applicants/x/status", nil)
	b := NewSigner("secret-b").Sign(1717243200, "GET", "/resources/applicants/x/status", nil)
	assert.NotEqual(t, a, b)
}
