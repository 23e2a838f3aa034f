package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	// CodeRateLimited is the envelope code the supplier uses for throttling.
	CodeRateLimited = 1600200

	HeaderAccessToken = "CJ-Access-Token"
)

// Envelope is the supplier's common response wrapper.
type Envelope struct {
	Code    int             `json:"code"`
	Result  bool            `json:"result"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e Envelope) OK() bool          { return e.Code == 200 && e.Result }
func (e Envelope) RateLimited() bool { return e.Code == CodeRateLimited }

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Token  string
	Body   any
}

// Transport performs one supplier round trip. It reports transport-level
// failures as errors; supplier-level failures come back in the Envelope.
type Transport interface {
	Do(ctx context.Context, req Request) (Envelope, error)
}

// HTTPTransport talks to the supplier over HTTP using the fiber client.
type HTTPTransport struct {
	BaseURL string
	Timeout time.Duration
}

func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{BaseURL: strings.TrimRight(baseURL, "/"), Timeout: timeout}
}

func (t *HTTPTransport) url(req Request) string {
	u := t.BaseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

// timeout bounds one round trip by Timeout and by whatever is left of the
// context deadline, whichever is sooner.
func (t *HTTPTransport) timeout(ctx context.Context) (time.Duration, error) {
	d := t.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, context.DeadlineExceeded
		}
		if d <= 0 || left < d {
			d = left
		}
	}
	return d, nil
}

// Do performs the round trip with the fiber Agent, which cannot be interrupted
// once started. A context deadline shortens the request timeout; a bare
// cancellation is only noticed before the request is sent, so in-flight calls
// stay bounded by Timeout.
func (t *HTTPTransport) Do(ctx context.Context, req Request) (Envelope, error) {
	if err := ctx.Err(); err != nil {
		return Envelope{}, err
	}
	timeout, err := t.timeout(ctx)
	if err != nil {
		return Envelope{}, err
	}

	var a *fiber.Agent
	switch req.Method {
	case fiber.MethodPost:
		a = fiber.Post(t.url(req))
	default:
		a = fiber.Get(t.url(req))
	}
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if req.Token != "" {
		a.Set(HeaderAccessToken, req.Token)
	}
	if req.Body != nil {
		a.JSON(req.Body)
	}
	if timeout > 0 {
		a.Timeout(timeout)
	}

	status, body, errs := a.Bytes()
	if len(errs) > 0 {
		if cerr := ctx.Err(); cerr != nil {
			errs = append(errs, cerr)
		}
		return Envelope{}, fmt.Errorf("supplier %s %s: %w", req.Method, req.Path, errors.Join(errs...))
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if status == fiber.StatusTooManyRequests {
			return Envelope{Code: CodeRateLimited, Message: "too many requests"}, nil
		}
		return Envelope{}, fmt.Errorf("supplier %s %s: status %d: decode body: %w", req.Method, req.Path, status, err)
	}
	if status == fiber.StatusTooManyRequests && env.Code == 0 {
		env.Code = CodeRateLimited
	}
	return env, nil
}
