package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouch/internal/platform/metrics"
	"vouch/internal/registrant"
)

const (
	testAppToken = "app-token"
	testSecret   = "test-secret-key"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	fixed := time.Unix(1717243200, 0)
	return NewClient(srv.URL, testAppToken, testSecret, 5*time.Second,
		slog.New(slog.DiscardHandler),
		metrics.New(prometheus.NewRegistry()),
		WithClock(func() time.Time { return fixed }),
	)
}

// expectedSig recomputes the request signature server-side, the way the
// provider validates it.
func expectedSig(ts, method, uri string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte(method))
	mac.Write([]byte(uri))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestClient_CreateApplicant_SignsAndMapsResponse(t *testing.T) {
	var seen struct {
		uri  string
		body []byte
		ok   bool
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen.uri = r.URL.RequestURI()
		seen.body, _ = io.ReadAll(r.Body)

		ts := r.Header.Get(HeaderTimestamp)
		sig := r.Header.Get(HeaderSignature)
		seen.ok = r.Header.Get(HeaderAppToken) == testAppToken &&
			sig == expectedSig(ts, r.Method, r.URL.RequestURI(), seen.body)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "applicant-1"})
	})

	id, err := client.CreateApplicant(t.Context(), NewApplicant{
		ExternalUserID: "user-1",
		FirstName:      "Ann",
		LastName:       "Lee",
		DateOfBirth:    time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Email:          "ann@example.com",
		Phone:          "+441234567890",
	})
	require.NoError(t, err)
	assert.Equal(t, "applicant-1", id)
	assert.Equal(t, "/resources/applicants", seen.uri)
	assert.True(t, seen.ok, "request must carry a valid signature")

	var req map[string]any
	require.NoError(t, json.Unmarshal(seen.body, &req))
	assert.Equal(t, "user-1", req["externalUserId"])
	assert.Equal(t, "2000-01-01", req["dob"])
	assert.Equal(t, "GBR", req["country"])
	assert.Contains(t, string(seen.body), `"IDENTITY"`)
	assert.Contains(t, string(seen.body), `"SELFIE"`)
}

func TestClient_CreateApplicant_NeverRetries(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.CreateApplicant(t.Context(), NewApplicant{ExternalUserID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "non-idempotent call must not retry")
	assert.Equal(t, ErrorOutage, CategoryOf(err))
}

func TestClient_AccessToken_QueryAndTTL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resources/accessTokens?userId=applicant-1&ttlInSecs=3600", r.URL.RequestURI())
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	})

	token, err := client.AccessToken(t.Context(), "applicant-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestClient_AccessToken_RetriesOnOutage(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	})

	token, err := client.AccessToken(t.Context(), "applicant-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ReviewStatus_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantStatus registrant.VerificationStatus
		wantReason string
	}{
		{
			name:       "green review is verified",
			response:   `{"reviewStatus":"completed","reviewResult":{"reviewAnswer":"GREEN"}}`,
			wantStatus: registrant.StatusVerified,
		},
		{
			name:       "red review is rejected with reason",
			response:   `{"reviewStatus":"completed","reviewResult":{"reviewAnswer":"RED","moderationComment":"Document unreadable"}}`,
			wantStatus: registrant.StatusRejected,
			wantReason: "Document unreadable",
		},
		{
			name:       "incomplete review stays pending",
			response:   `{"reviewStatus":"pending"}`,
			wantStatus: registrant.StatusPending,
		},
		{
			name:       "completed without answer is rejected",
			response:   `{"reviewStatus":"completed","reviewResult":{}}`,
			wantStatus: registrant.StatusRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/resources/applicants/applicant-1/status", r.URL.Path)
				io.WriteString(w, tt.response)
			})

			outcome, err := client.ReviewStatus(t.Context(), "applicant-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, outcome.Status)
			assert.Equal(t, tt.wantReason, outcome.RejectionReason)
		})
	}
}

func TestClient_ErrorCategories(t *testing.T) {
	tests := []struct {
		status    int
		category  ErrorCategory
		retryable bool
	}{
		{http.StatusUnauthorized, ErrorAuthentication, false},
		{http.StatusForbidden, ErrorAuthentication, false},
		{http.StatusNotFound, ErrorNotFound, false},
		{http.StatusTooManyRequests, ErrorRateLimited, true},
		{http.StatusBadRequest, ErrorBadData, false},
		{http.StatusInternalServerError, ErrorOutage, true},
	}

	for _, tt := range tests {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})

		_, err := client.CreateApplicant(t.Context(), NewApplicant{ExternalUserID: "u"})
		require.Error(t, err, "status %d", tt.status)
		assert.Equal(t, tt.category, CategoryOf(err), "status %d", tt.status)
		assert.Equal(t, tt.retryable, IsRetryable(err), "status %d", tt.status)
	}
}
