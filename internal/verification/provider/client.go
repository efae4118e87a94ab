// Package provider talks to the external KYC vendor's REST API. Every
// outbound request is HMAC-signed; all calls carry bounded timeouts. The
// rest of the codebase depends on the API interface, never on the wire
// details here.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"vouch/internal/platform/metrics"
	"vouch/internal/registrant"
)

// ReviewOutcome is the provider's review state mapped onto the local
// three-state vocabulary. Only a completed review with a GREEN answer is
// verified; any other completed decision is rejected; everything else is
// still pending.
type ReviewOutcome struct {
	Status          registrant.VerificationStatus
	RejectionReason string
}

// NewApplicant carries the profile data required to open a provider-side
// applicant.
type NewApplicant struct {
	ExternalUserID string
	FirstName      string
	LastName       string
	DateOfBirth    time.Time
	Email          string
	Phone          string
	Country        string
}

// API is the provider surface the verification bridge consumes.
type API interface {
	// CreateApplicant opens an applicant and returns the provider's id.
	// Not safe to retry blindly: a duplicate call creates a duplicate
	// applicant.
	CreateApplicant(ctx context.Context, app NewApplicant) (string, error)

	// AccessToken issues a short-lived token for the hosted widget,
	// scoped to the applicant. Idempotent.
	AccessToken(ctx context.Context, applicantID string, ttl time.Duration) (string, error)

	// ReviewStatus polls the current review state. Idempotent.
	ReviewStatus(ctx context.Context, applicantID string) (ReviewOutcome, error)
}

// DefaultCountry is used when the submission carries no country; the
// original deployment onboards UK residents.
const DefaultCountry = "GBR"

// Client is the HTTP implementation of API.
type Client struct {
	baseURL  string
	appToken string
	signer   *Signer
	http     *http.Client
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// now is swappable for signature tests.
	now func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests, custom
// transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock overrides the timestamp source used for signing.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient builds a provider client. timeout bounds every outbound call.
func NewClient(baseURL, appToken, secretKey string, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		appToken: appToken,
		signer:   NewSigner(secretKey),
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type applicantRequest struct {
	ExternalUserID string         `json:"externalUserId"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	FirstName      string         `json:"firstName"`
	LastName       string         `json:"lastName"`
	DOB            string         `json:"dob"`
	Country        string         `json:"country"`
	RequiredIDDocs requiredIDDocs `json:"requiredIdDocs"`
}

type requiredIDDocs struct {
	DocSets []docSet `json:"docSets"`
}

type docSet struct {
	IDDocSetType string   `json:"idDocSetType"`
	Types        []string `json:"types"`
}

// requiredDocuments is the document configuration every applicant gets:
// one identity document plus a selfie.
func requiredDocuments() requiredIDDocs {
	return requiredIDDocs{DocSets: []docSet{
		{IDDocSetType: "IDENTITY", Types: []string{"PASSPORT", "ID_CARD", "DRIVERS"}},
		{IDDocSetType: "SELFIE", Types: []string{"SELFIE"}},
	}}
}

func (c *Client) CreateApplicant(ctx context.Context, app NewApplicant) (string, error) {
	country := app.Country
	if country == "" {
		country = DefaultCountry
	}
	body, err := json.Marshal(applicantRequest{
		ExternalUserID: app.ExternalUserID,
		Email:          app.Email,
		Phone:          app.Phone,
		FirstName:      app.FirstName,
		LastName:       app.LastName,
		DOB:            app.DateOfBirth.Format("2006-01-02"),
		Country:        country,
		RequiredIDDocs: requiredDocuments(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal applicant: %w", err)
	}

	var resp struct {
		ID string `json:"id"`
	}
	// Applicant creation is not idempotent upstream; never retried here.
	// The bridge's store gate makes the overall operation safe.
	if err := c.do(ctx, "create_applicant", http.MethodPost, "/resources/applicants", body, false, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", newUpstreamError(ErrorBadData, "create_applicant", errors.New("response missing applicant id"))
	}
	return resp.ID, nil
}

func (c *Client) AccessToken(ctx context.Context, applicantID string, ttl time.Duration) (string, error) {
	uri := "/resources/accessTokens?userId=" + url.QueryEscape(applicantID) +
		"&ttlInSecs=" + strconv.Itoa(int(ttl.Seconds()))

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, "access_token", http.MethodPost, uri, nil, true, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", newUpstreamError(ErrorBadData, "access_token", errors.New("response missing token"))
	}
	return resp.Token, nil
}

type reviewResult struct {
	ReviewAnswer      string   `json:"reviewAnswer"`
	ModerationComment string   `json:"moderationComment"`
	RejectLabels      []string `json:"rejectLabels"`
}

type statusResponse struct {
	ReviewStatus string       `json:"reviewStatus"`
	ReviewResult reviewResult `json:"reviewResult"`
}

func (c *Client) ReviewStatus(ctx context.Context, applicantID string) (ReviewOutcome, error) {
	uri := "/resources/applicants/" + url.PathEscape(applicantID) + "/status"

	var resp statusResponse
	if err := c.do(ctx, "review_status", http.MethodGet, uri, nil, true, &resp); err != nil {
		return ReviewOutcome{}, err
	}
	return MapOutcome(resp.ReviewStatus, resp.ReviewResult.ReviewAnswer, resp.ReviewResult.ModerationComment), nil
}

// MapOutcome translates the provider vocabulary to the local enum. The
// mapping is deliberately binary: any completed review that is not GREEN is
// rejected. There is no "needs more info" state.
func MapOutcome(reviewStatus, reviewAnswer, moderationComment string) ReviewOutcome {
	if reviewStatus != "completed" {
		return ReviewOutcome{Status: registrant.StatusPending}
	}
	if reviewAnswer == "GREEN" {
		return ReviewOutcome{Status: registrant.StatusVerified}
	}
	return ReviewOutcome{
		Status:          registrant.StatusRejected,
		RejectionReason: moderationComment,
	}
}

// do executes one signed request. Idempotent operations get a single retry
// on retryable failures; others fail fast.
func (c *Client) do(ctx context.Context, operation, method, uri string, body []byte, idempotent bool, out any) error {
	start := time.Now()
	err := c.doOnce(ctx, method, uri, body, out)
	if err != nil && idempotent && IsRetryable(err) && ctx.Err() == nil {
		c.logger.WarnContext(ctx, "provider call retrying",
			"operation", operation,
			"category", string(CategoryOf(err)),
		)
		err = c.doOnce(ctx, method, uri, body, out)
	}
	c.metrics.ObserveProviderCall(operation, err, start)
	if err != nil {
		var ue *UpstreamError
		if errors.As(err, &ue) && ue.Operation == "" {
			ue.Operation = operation
		}
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, uri string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+uri, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	ts := c.now().Unix()
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderAppToken, c.appToken)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, c.signer.Sign(ts, method, uri, body))

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return newUpstreamError(ErrorTimeout, "", err)
		}
		return newUpstreamError(ErrorOutage, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return newUpstreamError(ErrorBadData, "", fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	// Keep a bounded slice of the error body for server-side logs.
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, detail)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newUpstreamError(ErrorAuthentication, "", cause)
	case resp.StatusCode == http.StatusNotFound:
		return newUpstreamError(ErrorNotFound, "", cause)
	case resp.StatusCode == http.StatusTooManyRequests:
		return newUpstreamError(ErrorRateLimited, "", cause)
	case resp.StatusCode >= 500:
		return newUpstreamError(ErrorOutage, "", cause)
	default:
		return newUpstreamError(ErrorBadData, "", cause)
	}
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
