package forms

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Result is the tri-state outcome of a form submission.
type Result string

const (
	// ResultOK means the backend confirmed the submission with a readable
	// 2xx response.
	ResultOK Result = "ok"

	// ResultSent means the request was dispatched but the response could
	// not be verified. The forms backend does not always grant cross-origin
	// access to its responses, so dispatched-without-error is treated as
	// success rather than failing the submission.
	ResultSent Result = "sent"
)

// Fields holds the named form fields for one submission.
type Fields map[string]string

// NewPayload returns fields pre-populated with the bot-protection fields
// the forms backend expects: an empty honeypot and a submission timestamp.
func NewPayload() Fields {
	return Fields{
		"hp": "",
		"t0": strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
}

// SubmissionError is returned when every transport strategy has been
// exhausted. It carries the error from each attempt.
type SubmissionError struct {
	VerifiedErr error
	DispatchErr error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed: verified attempt: %v; dispatch attempt: %v",
		e.VerifiedErr, e.DispatchErr)
}

// Doer issues a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client delivers form submissions to the external forms backend using an
// ordered two-step fallback chain. Each call is independent; concurrent
// submissions share nothing.
type Client struct {
	doer   Doer
	strict bool
}

type Option func(*Client)

// WithStrictVerification makes the second attempt require a readable 2xx
// response instead of accepting any dispatched request. Appropriate for
// server-to-server deployments where responses are always readable.
func WithStrictVerification() Option {
	return func(c *Client) {
		c.strict = true
	}
}

func NewClient(doer Doer, opts ...Option) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{doer: doer}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit posts the field set to endpointURL. At most two requests are
// issued, strictly in order:
//
//  1. a verified POST; a readable 2xx yields ResultOK
//  2. a fire-and-forget POST of the identical payload; dispatching without
//     a transport error yields ResultSent
//
// Only when both attempts fail at the transport level does Submit return a
// *SubmissionError.
func (c *Client) Submit(ctx context.Context, fields Fields, endpointURL string) (Result, error) {
	tagged := make(Fields, len(fields)+1)
	for k, v := range fields {
		tagged[k] = v
	}
	// Transport hint so the backend can tell programmatic submissions from
	// native form posts.
	if _, ok := tagged["via"]; !ok {
		tagged["via"] = "fetch"
	}

	verifiedErr := error(nil)

	resp, err := c.post(ctx, tagged, endpointURL)
	if err != nil {
		verifiedErr = err
	} else {
		ok := resp.StatusCode >= 200 && resp.StatusCode < 300
		drain(resp)
		if ok {
			return ResultOK, nil
		}
		verifiedErr = fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	resp, err = c.post(ctx, tagged, endpointURL)
	if err != nil {
		return "", &SubmissionError{VerifiedErr: verifiedErr, DispatchErr: err}
	}

	if c.strict && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		dispatchErr := fmt.Errorf("unexpected status: %d", resp.StatusCode)
		drain(resp)
		return "", &SubmissionError{VerifiedErr: verifiedErr, DispatchErr: dispatchErr}
	}

	drain(resp)
	return ResultSent, nil
}

func (c *Client) post(ctx context.Context, fields Fields, endpointURL string) (*http.Response, error) {
	body, contentType, err := encodeMultipart(fields)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpointURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	return c.doer.Do(req)
}

func encodeMultipart(fields Fields) (io.Reader, string, error) {
	var buf strings.Builder
	writer := multipart.NewWriter(&buf)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := writer.WriteField(name, fields[name]); err != nil {
			return nil, "", fmt.Errorf("failed to encode field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize payload: %w", err)
	}

	return strings.NewReader(buf.String()), writer.FormDataContentType(), nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// EndpointURL appends the routing parameter the forms backend dispatches
// on, e.g. EndpointURL(base, "newsletter") -> base?endpoint=newsletter.
func EndpointURL(base, endpoint string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?endpoint=" + url.QueryEscape(endpoint)
	}
	q := u.Query()
	q.Set("endpoint", endpoint)
	u.RawQuery = q.Encode()
	return u.String()
}
