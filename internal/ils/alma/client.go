// Package alma submits purchase order lines to the Ex Libris Alma
// acquisitions API.
package alma

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
	"strings"
	"sync"
	"time"

	"polgen/internal/config"
	"polgen/internal/domain"
	"polgen/internal/port"
	"polgen/internal/ratelimit"
)

const serviceName = "alma"

// Alma reports bad keys with these codes, sometimes on a 400.
var authErrorCodes = map[string]bool{
	"UNAUTHORIZED":    true,
	"INVALID_API_KEY": true,
}

// Client implements port.POLSubmitter.
type Client struct {
	baseURL         string
	apiKey          string
	manualReview    bool
	receiptDays     int
	defaultCurrency string
	throttle        *ratelimit.Throttle
	client          *http.Client
	now             func() time.Time
	knownUsers      sync.Map
}

// NewClient creates an Alma client. All workers share its throttle.
func NewClient(cfg *config.ILSConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	currency := cfg.DefaultCurrency
	if currency == "" {
		currency = "USD"
	}
	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/") + "/almaws/v1",
		apiKey:          cfg.APIKey,
		manualReview:    cfg.RequiresManualReview,
		receiptDays:     cfg.ExpectedReceiptDays,
		defaultCurrency: currency,
		throttle:        ratelimit.NewThrottle(time.Duration(cfg.MinIntervalMS) * time.Millisecond),
		client:          &http.Client{Timeout: timeout},
		now:             time.Now,
	}
}

type almaError struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	TrackingID   string `json:"trackingId"`
}

type errorResponse struct {
	ErrorsExist bool `json:"errorsExist"`
	ErrorList   struct {
		Error []almaError `json:"error"`
	} `json:"errorList"`
}

type createResponse struct {
	Number string `json:"number"`
}

type poLineSummary struct {
	Number string    `json:"number"`
	Status valueDesc `json:"status"`
	Vendor valueDesc `json:"vendor"`
}

type listResponse struct {
	POLine           []poLineSummary `json:"po_line"`
	TotalRecordCount int             `json:"total_record_count"`
}

func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("limit", "1")
	if _, err := c.do(ctx, http.MethodGet, "/acq/vendors", q, nil); err != nil {
		var rej *domain.RejectedError
		if errors.As(err, &rej) {
			return fmt.Errorf("alma.Client.Ping: %w", err)
		}
		return err
	}
	return nil
}

func (c *Client) Submit(ctx context.Context, doc *domain.POLDocument) (string, error) {
	if user := doc.Get(domain.FieldInterestedUser); user != "" {
		if err := c.checkUser(ctx, user); err != nil {
			return "", err
		}
	}

	line := renderPOLine(doc, renderOptions{
		ExpectedReceiptDays: c.receiptDays,
		DefaultCurrency:     c.defaultCurrency,
		Now:                 c.now(),
	})
	body, err := json.Marshal(line)
	if err != nil {
		return "", fmt.Errorf("alma.Client.Submit: marshaling po_line: %w", err)
	}

	q := url.Values{}
	q.Set("requires_manual_review", strconv.FormatBool(c.manualReview))
	respBody, err := c.do(ctx, http.MethodPost, "/acq/po-lines", q, body)
	if err != nil {
		return "", err
	}

	var cr createResponse
	if err := json.Unmarshal(respBody, &cr); err != nil || cr.Number == "" {
		// The line may exist; retrying could duplicate it.
		return "", &domain.RejectedError{StatusCode: http.StatusOK, Reason: "response carried no POL number"}
	}
	slog.Debug("alma.Client.Submit: POL created", "pol", cr.Number, "identifier", doc.Identifier.String())
	return cr.Number, nil
}

func (c *Client) FindExisting(ctx context.Context, vendorCode string, id domain.Identifier) (string, bool, error) {
	if id.Type != domain.IdentifierTypeISBN {
		return "", false, nil
	}
	q := url.Values{}
	q.Set("q", "isbn~"+id.Value)
	q.Set("status", "ACTIVE")
	q.Set("limit", "100")
	respBody, err := c.do(ctx, http.MethodGet, "/acq/po-lines", q, nil)
	if err != nil {
		return "", false, err
	}

	var lr listResponse
	if err := json.Unmarshal(respBody, &lr); err != nil {
		return "", false, domain.NewTransientError(serviceName, http.StatusOK, fmt.Errorf("decoding po-lines: %w", err), 0)
	}
	for _, pl := range lr.POLine {
		if strings.EqualFold(pl.Vendor.Value, vendorCode) {
			return pl.Number, true, nil
		}
	}
	return "", false, nil
}

// checkUser confirms an interested user exists before a line names them. A
// missing user is a rejection; confirmed ids are cached.
func (c *Client) checkUser(ctx context.Context, primaryID string) error {
	if _, ok := c.knownUsers.Load(primaryID); ok {
		return nil
	}
	q := url.Values{}
	q.Set("view", "brief")
	if _, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(primaryID), q, nil); err != nil {
		var rej *domain.RejectedError
		if errors.As(err, &rej) {
			return &domain.RejectedError{
				StatusCode: rej.StatusCode,
				Code:       rej.Code,
				Reason:     fmt.Sprintf("interested user %q: %s", primaryID, rej.Reason),
			}
		}
		return err
	}
	c.knownUsers.Store(primaryID, struct{}{})
	return nil
}

// do sends one throttled request and classifies the response.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte) ([]byte, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "apikey "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewTransientError(serviceName, 0, fmt.Errorf("calling alma API: %w", err), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewTransientError(serviceName, resp.StatusCode, fmt.Errorf("reading response: %w", err), 0)
	}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return respBody, nil
	}
	return nil, c.classify(resp, respBody)
}

func (c *Client) classify(resp *http.Response, body []byte) error {
	code := resp.StatusCode
	first := firstError(body)

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden || authErrorCodes[first.ErrorCode]:
		return domain.NewAuthError(serviceName, fmt.Errorf("status %d: %s", code, describe(first, body)))
	case code == http.StatusTooManyRequests || code >= 500:
		retryAfter := domain.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		if retryAfter > 0 {
			c.throttle.PauseFor(time.Duration(retryAfter) * time.Second)
		}
		return domain.NewTransientError(serviceName, code, fmt.Errorf("status %d: %s", code, describe(first, body)), retryAfter)
	default:
		return &domain.RejectedError{StatusCode: code, Code: first.ErrorCode, Reason: describe(first, body)}
	}
}

func firstError(body []byte) almaError {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || len(er.ErrorList.Error) == 0 {
		return almaError{}
	}
	return er.ErrorList.Error[0]
}

func describe(e almaError, body []byte) string {
	if e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	if s == "" {
		return "no error detail"
	}
	return s
}

// compile-time check
var _ port.POLSubmitter = (*Client)(nil)
