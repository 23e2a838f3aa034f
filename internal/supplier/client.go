package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/pricing"
)

const (
	pathAuth        = "authentication/getAccessToken"
	pathProductList = "product/list"
	pathCreateOrder = "shopping/order/createOrder"
)

// Client wraps the three supplier endpoints the storefront uses. Product
// lookups and order creation retry on rate limiting according to the Policy;
// authentication never retries.
type Client struct {
	tr     Transport
	policy Policy
	sleep  Sleeper
}

type ClientOption func(*Client)

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(s Sleeper) ClientOption {
	return func(c *Client) { c.sleep = s }
}

func NewClient(tr Transport, policy Policy, opts ...ClientOption) *Client {
	c := &Client{tr: tr, policy: policy, sleep: sleepContext}
	for _, o := range opts {
		o(c)
	}
	return c
}

// call runs req, retrying while the supplier reports rate limiting.
func (c *Client) call(ctx context.Context, req Request) (Envelope, error) {
	attempts := c.policy.attempts()
	for i := 0; i < attempts; i++ {
		if i > 0 {
			d := c.policy.Delay(i - 1)
			applog.L().Warn("supplier.rate_limited",
				zap.String("path", req.Path),
				zap.Int("attempt", i),
				zap.Int("max_attempts", attempts),
				zap.Duration("backoff", d),
			)
			if err := c.sleep(ctx, d); err != nil {
				return Envelope{}, err
			}
		}
		env, err := c.tr.Do(ctx, req)
		if err != nil {
			return Envelope{}, err
		}
		if !env.RateLimited() {
			return env, nil
		}
	}
	return Envelope{}, &domain.RateLimitedError{
		Attempts:          attempts,
		RetryAfterSeconds: int(c.policy.RetryAfter / time.Second),
	}
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
}

func parseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised expiry %q", s)
}

// Authenticate exchanges the account email and API key for an access token.
// Every failure other than throttling is an *domain.AuthenticationError.
func (c *Client) Authenticate(ctx context.Context, email, apiKey string) (string, time.Time, error) {
	env, err := c.tr.Do(ctx, Request{
		Method: fiber.MethodPost,
		Path:   pathAuth,
		Body:   map[string]string{"email": email, "apiKey": apiKey},
	})
	if err != nil {
		return "", time.Time{}, &domain.AuthenticationError{Msg: "request failed", Err: err}
	}
	if env.RateLimited() {
		return "", time.Time{}, &domain.RateLimitedError{Attempts: 1, RetryAfterSeconds: int(c.policy.RetryAfter / time.Second)}
	}
	if !env.OK() {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("code %d", env.Code)
		}
		return "", time.Time{}, &domain.AuthenticationError{Msg: msg}
	}

	var data struct {
		AccessToken           string `json:"accessToken"`
		AccessTokenExpiryDate string `json:"accessTokenExpiryDate"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", time.Time{}, &domain.AuthenticationError{Msg: "malformed token response", Err: err}
	}
	if data.AccessToken == "" {
		return "", time.Time{}, &domain.AuthenticationError{Msg: "no access token in response"}
	}
	expiry, err := parseExpiry(data.AccessTokenExpiryDate)
	if err != nil {
		return "", time.Time{}, &domain.AuthenticationError{Msg: "malformed token expiry", Err: err}
	}
	return data.AccessToken, expiry, nil
}

// Amount accepts a price sent either as a JSON number or a string. Range
// strings such as "1.20 -- 3.40" keep their lower bound.
type Amount struct{ decimal.Decimal }

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = str
	}
	if lo, _, ok := strings.Cut(s, "--"); ok {
		s = lo
	}
	a.Decimal = pricing.ParseAmount(s)
	return nil
}

type Variant struct {
	VID             string `json:"vid"`
	VariantQuantity *int   `json:"variantQuantity"`
}

// RemoteProduct is the subset of the supplier's product record we map.
type RemoteProduct struct {
	PID                  string    `json:"pid"`
	ProductSku           string    `json:"productSku"`
	ProductNameEn        string    `json:"productNameEn"`
	ProductName          string    `json:"productName"`
	SellPrice            Amount    `json:"sellPrice"`
	ProductImage         string    `json:"productImage"`
	CategoryName         string    `json:"categoryName"`
	ProductStockQuantity *int      `json:"productStockQuantity"`
	VariantQuantity      *int      `json:"variantQuantity"`
	VariantList          []Variant `json:"variantList"`
}

// LookupField selects the identifier a product lookup matches on.
type LookupField string

const (
	ByPID LookupField = "pid"
	BySKU LookupField = "productSku"
)

// LookupProducts lists supplier products matching field=value. A non-success
// envelope comes back as *domain.SupplierRejectedError; an empty list is not
// an error.
func (c *Client) LookupProducts(ctx context.Context, token string, field LookupField, value string) ([]RemoteProduct, error) {
	env, err := c.call(ctx, Request{
		Method: fiber.MethodGet,
		Path:   pathProductList,
		Query:  url.Values{string(field): {value}},
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		return nil, &domain.SupplierRejectedError{Code: env.Code, Message: env.Message}
	}
	var data struct {
		List []RemoteProduct `json:"list"`
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode product list: %w", err)
		}
	}
	return data.List, nil
}

type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Email     string `json:"email"`
}

type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type OrderRequest struct {
	OrderNumber     string      `json:"orderNumber"`
	ShippingAddress Address     `json:"shippingAddress"`
	Products        []OrderLine `json:"products"`
}

// CreateOrder submits req and returns the supplier's order id. A declined
// order is reported as *domain.SupplierRejectedError with the supplier's
// message; a success without an order id as *domain.UnconfirmedOrderError.
func (c *Client) CreateOrder(ctx context.Context, token string, req OrderRequest) (string, error) {
	env, err := c.call(ctx, Request{
		Method: fiber.MethodPost,
		Path:   pathCreateOrder,
		Token:  token,
		Body:   req,
	})
	if err != nil {
		return "", err
	}
	if !env.OK() {
		return "", &domain.SupplierRejectedError{Code: env.Code, Message: env.Message}
	}
	var data struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.OrderID == "" {
		return "", &domain.UnconfirmedOrderError{Code: env.Code, Message: env.Message}
	}
	return data.OrderID, nil
}
