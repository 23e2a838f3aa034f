package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

// scripted replays canned envelopes and records every request.
type scripted struct {
	t       *testing.T
	replies []Envelope
	reqs    []Request
}

func (s *scripted) Do(_ context.Context, req Request) (Envelope, error) {
	s.reqs = append(s.reqs, req)
	if len(s.replies) == 0 {
		s.t.Fatalf("unexpected supplier call %s %s", req.Method, req.Path)
	}
	env := s.replies[0]
	s.replies = s.replies[1:]
	return env, nil
}

func okEnv(t *testing.T, data any) Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return Envelope{Code: 200, Result: true, Message: "Success", Data: raw}
}

func rateLimited() Envelope {
	return Envelope{Code: CodeRateLimited, Message: "Too Many Requests"}
}

type sleepRecorder struct{ slept []time.Duration }

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return nil
}

func intp(n int) *int { return &n }

func TestPolicyDelay(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 60*time.Second, p.Delay(0))
	assert.Equal(t, 120*time.Second, p.Delay(1))
	assert.Equal(t, 240*time.Second, p.Delay(2))
	assert.Equal(t, 5*time.Minute, p.Delay(3))
	assert.Equal(t, 5*time.Minute, p.Delay(10))
}

func TestRateLimitExhaustsAttempts(t *testing.T) {
	tr := &scripted{t: t, replies: []Envelope{rateLimited(), rateLimited(), rateLimited()}}
	rec := &sleepRecorder{}
	c := NewClient(tr, DefaultPolicy(), WithSleeper(rec.sleep))

	_, err := c.CreateOrder(context.Background(), "tok", OrderRequest{OrderNumber: "ORDER-1"})

	var rl *domain.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 3, rl.Attempts)
	assert.Equal(t, 300, rl.RetryAfterSeconds)
	assert.Len(t, tr.reqs, 3)
	assert.Equal(t, []time.Duration{60 * time.Second, 120 * time.Second}, rec.slept)
}

func TestRateLimitThenSuccessStopsRetrying(t *testing.T) {
	tr := &scripted{t: t, replies: []Envelope{
		rateLimited(),
		okEnv(t, map[string]string{"orderId": "CJ-77"}),
	}}
	rec := &sleepRecorder{}
	c := NewClient(tr, DefaultPolicy(), WithSleeper(rec.sleep))

	id, err := c.CreateOrder(context.Background(), "tok", OrderRequest{OrderNumber: "ORDER-1"})
	require.NoError(t, err)
	assert.Equal(t, "CJ-77", id)
	assert.Len(t, tr.reqs, 2)
	assert.Equal(t, []time.Duration{60 * time.Second}, rec.slept)
}

func TestBackoffHonoursCancellation(t *testing.T) {
	tr := &scripted{t: t, replies: []Envelope{rateLimited()}}
	c := NewClient(tr, Policy{Base: time.Hour, Multiplier: 2, Cap: time.Hour, MaxAttempts: 3})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CreateOrder(ctx, "tok", OrderRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, tr.reqs, 1)
}

func TestAuthenticate(t *testing.T) {
	tr := &scripted{t: t, replies: []Envelope{
		okEnv(t, map[string]string{"accessToken": "tok-1", "accessTokenExpiryDate": "2030-08-18T09:16:33+08:00"}),
		{Code: 1601000, Message: "Invalid API key"},
	}}
	c := NewClient(tr, DefaultPolicy())

	tok, exp, err := c.Authenticate(context.Background(), "ops@shop.test", "key")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.True(t, exp.Equal(time.Date(2030, 8, 18, 1, 16, 33, 0, time.UTC)))
	assert.Equal(t, map[string]string{"email": "ops@shop.test", "apiKey": "key"}, tr.reqs[0].Body)

	_, _, err = c.Authenticate(context.Background(), "ops@shop.test", "bad")
	var ae *domain.AuthenticationError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Error(), "Invalid API key")
	assert.Len(t, tr.reqs, 2)
}

func TestStateAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cred := func(token string, exp time.Time) domain.SupplierCredential {
		return domain.SupplierCredential{Email: "e", APIKey: "k", AccessToken: token, TokenExpiry: exp}
	}
	cases := []struct {
		name string
		cred domain.SupplierCredential
		want TokenState
	}{
		{"no token", cred("", now.Add(48*time.Hour)), StateNoToken},
		{"no expiry", cred("t", time.Time{}), StateNoToken},
		{"plenty left", cred("t", now.Add(2*time.Hour)), StateValid},
		{"inside buffer", cred("t", now.Add(30*time.Minute)), StateExpiringSoon},
		{"exactly one hour", cred("t", now.Add(time.Hour)), StateExpiringSoon},
		{"expired", cred("t", now.Add(-time.Minute)), StateExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StateAt(tc.cred, now, time.Hour))
		})
	}
	assert.Equal(t, "ExpiringSoon", StateExpiringSoon.String())
}

type memCreds struct {
	cred  domain.SupplierCredential
	saves int
}

func (m *memCreds) Get(context.Context) (domain.SupplierCredential, error) {
	if m.cred.Email == "" {
		return domain.SupplierCredential{}, domain.ErrNotConfigured
	}
	return m.cred, nil
}

func (m *memCreds) SaveToken(_ context.Context, token string, expiry time.Time) error {
	m.saves++
	m.cred.AccessToken, m.cred.TokenExpiry = token, expiry
	return nil
}

type countingAuth struct {
	calls  int
	expiry time.Time
}

func (a *countingAuth) Authenticate(context.Context, string, string) (string, time.Time, error) {
	a.calls++
	return "fresh", a.expiry, nil
}

func TestEnsureRefreshesInsideBuffer(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &memCreds{cred: domain.SupplierCredential{Email: "e", APIKey: "k", AccessToken: "old", TokenExpiry: now.Add(30 * time.Minute)}}
	auth := &countingAuth{expiry: now.Add(15 * 24 * time.Hour)}
	m := NewTokenManager(store, auth, time.Hour)
	m.now = func() time.Time { return now }

	res, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Refreshed, res.Outcome)
	assert.Equal(t, "fresh", res.Token)
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, 1, store.saves)

	// the refreshed token is now reused
	res, err = m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Reused, res.Outcome)
	assert.Equal(t, 1, auth.calls)
}

func TestEnsureReusesValidToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &memCreds{cred: domain.SupplierCredential{Email: "e", APIKey: "k", AccessToken: "old", TokenExpiry: now.Add(2 * time.Hour)}}
	auth := &countingAuth{}
	m := NewTokenManager(store, auth, time.Hour)
	m.now = func() time.Time { return now }

	res, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Reused, res.Outcome)
	assert.Equal(t, "old", res.Token)
	assert.Zero(t, auth.calls)
	assert.Zero(t, store.saves)
}

func TestEnsureWithoutCredentials(t *testing.T) {
	m := NewTokenManager(&memCreds{}, &countingAuth{}, time.Hour)
	_, err := m.Ensure(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestMapProduct(t *testing.T) {
	var r RemoteProduct
	require.NoError(t, json.Unmarshal([]byte(`{
		"pid": "PID-9", "productSku": "SKU-9",
		"productNameEn": "Sunset Lamp", "sellPrice": "12.40 -- 15.00",
		"productImage": "https://img/lamp.jpg",
		"variantList": [{"vid": "V1", "variantQuantity": 0}],
		"productStockQuantity": 55
	}`), &r))

	p := MapProduct(r, "SKU-9")
	require.NotNil(t, p.SupplierProductID)
	assert.Equal(t, "PID-9", *p.SupplierProductID)
	assert.Equal(t, "Sunset Lamp", p.Name)
	assert.Equal(t, "Sunset Lamp", p.Description)
	assert.Equal(t, "Imported", p.Category)
	assert.True(t, p.BasePrice.Equal(decimal.RequireFromString("12.40")))
	assert.True(t, p.ProfitMargin.IsZero())
	assert.True(t, p.ShippingCost.IsZero())
	assert.Equal(t, 0, p.Stock, "a reported zero is kept")
}

func TestRemoteStockFallbacks(t *testing.T) {
	assert.Equal(t, PlaceholderStock, remoteStock(RemoteProduct{}))
	assert.Equal(t, 7, remoteStock(RemoteProduct{VariantQuantity: intp(7)}))
	assert.Equal(t, 5, remoteStock(RemoteProduct{ProductStockQuantity: intp(5), VariantQuantity: intp(7)}))
	assert.Equal(t, 3, remoteStock(RemoteProduct{
		VariantList:          []Variant{{VariantQuantity: intp(3)}},
		ProductStockQuantity: intp(5),
	}))
	assert.Equal(t, 5, remoteStock(RemoteProduct{
		VariantList:          []Variant{{VID: "v"}},
		ProductStockQuantity: intp(5),
	}))
}

func TestAmountAcceptsNumbersAndStrings(t *testing.T) {
	var v struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
		C Amount `json:"c"`
		D Amount `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 9.5, "b": "10.25", "c": "n/a", "d": null}`), &v))
	assert.True(t, v.A.Equal(decimal.RequireFromString("9.5")))
	assert.True(t, v.B.Equal(decimal.RequireFromString("10.25")))
	assert.True(t, v.C.IsZero())
	assert.True(t, v.D.IsZero())
}

func TestSplitName(t *testing.T) {
	cases := []struct{ in, first, last string }{
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"Mary  Ann  Evans", "Mary", "Ann Evans"},
		{"Cher", "Cher", ""},
		{"  ", "", ""},
		{" Jean-Luc  Picard  ", "Jean-Luc", "Picard"},
	}
	for _, tc := range cases {
		first, last := SplitName(tc.in)
		assert.Equal(t, tc.first, first, tc.in)
		assert.Equal(t, tc.last, last, tc.in)
	}
}

// fixture wires a Syncer against an in-memory store with a valid cached token.
type fixture struct {
	db     *sqlx.DB
	tr     *scripted
	orders *repos.OrderRepo
	prods  *repos.ProductRepo
	syncer *Syncer
}

func newFixture(t *testing.T, configured bool) *fixture {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	creds := repos.NewCredentialRepo(db)
	if configured {
		require.NoError(t, creds.Save(ctx, "ops@shop.test", "key"))
		require.NoError(t, creds.SaveToken(ctx, "cached", time.Now().Add(48*time.Hour)))
	}

	tr := &scripted{t: t}
	rec := &sleepRecorder{}
	client := NewClient(tr, DefaultPolicy(), WithSleeper(rec.sleep))
	f := &fixture{
		db:     db,
		tr:     tr,
		orders: repos.NewOrderRepo(db),
		prods:  repos.NewProductRepo(db),
	}
	f.syncer = NewSyncer(client, NewTokenManager(creds, client, time.Hour), f.prods, f.orders)
	return f
}

func (f *fixture) placeOrder(t *testing.T, items ...domain.OrderItem) domain.Order {
	t.Helper()
	o := &domain.Order{
		Email: "ada@shop.test", FullName: "Ada King Lovelace", Address: "1 Loop St",
		City: "London", PostalCode: "N1 9GU", Country: "GB",
		TotalAmount: decimal.NewFromInt(20), Items: items,
	}
	require.NoError(t, f.orders.Create(context.Background(), o))
	return *o
}

func TestImportFallsBackToSKU(t *testing.T) {
	f := newFixture(t, true)
	f.tr.replies = []Envelope{
		okEnv(t, map[string]any{"list": []any{}}),
		okEnv(t, map[string]any{"list": []map[string]any{{
			"pid": "PID-1", "productSku": "SKU-1", "productNameEn": "Desk Fan",
			"sellPrice": 14.2, "categoryName": "Home",
			"variantList": []map[string]any{{"variantQuantity": 12}},
		}}}),
	}

	res, err := f.syncer.ImportProduct(context.Background(), "SKU-1")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, BySKU, res.MatchBy)
	assert.Equal(t, "Desk Fan", res.Product.Name)
	assert.Equal(t, 12, res.Product.Stock)

	require.Len(t, f.tr.reqs, 2)
	assert.Equal(t, "SKU-1", f.tr.reqs[0].Query.Get("pid"))
	assert.Equal(t, "SKU-1", f.tr.reqs[1].Query.Get("productSku"))
	assert.Equal(t, "cached", f.tr.reqs[1].Token)

	stored, err := f.prods.GetBySupplierID(context.Background(), "PID-1")
	require.NoError(t, err)
	assert.True(t, stored.BasePrice.Equal(decimal.RequireFromString("14.2")))
}

func TestImportMissOnBothReportsIdentifiers(t *testing.T) {
	f := newFixture(t, true)
	f.tr.replies = []Envelope{
		{Code: 1605001, Message: "product not found"},
		okEnv(t, map[string]any{"list": nil}),
	}

	_, err := f.syncer.ImportProduct(context.Background(), "X-404")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"pid=X-404", "productSku=X-404"}, nf.Tried)
}

func TestImportRateLimitedSurfacesHint(t *testing.T) {
	f := newFixture(t, true)
	f.tr.replies = []Envelope{rateLimited(), rateLimited(), rateLimited()}

	_, err := f.syncer.ImportProduct(context.Background(), "P")
	var rl *domain.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 300, rl.RetryAfterSeconds)
}

func TestForwardOrderMovesToProcessing(t *testing.T) {
	f := newFixture(t, true)
	o := f.placeOrder(t, domain.OrderItem{ProductID: "demo-tee", SupplierProductID: "CJ-TEE", Quantity: 2, UnitPrice: decimal.NewFromInt(18)})
	f.tr.replies = []Envelope{okEnv(t, map[string]string{"orderId": "CJ-ORDER-1"})}

	ref, err := f.syncer.ForwardOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "CJ-ORDER-1", ref.SupplierOrderID)
	assert.Equal(t, domain.OrderStatusProcessing, ref.Status)

	req := f.tr.reqs[0].Body.(OrderRequest)
	assert.Equal(t, "ORDER-"+o.ID, req.OrderNumber)
	assert.Equal(t, "Ada", req.ShippingAddress.FirstName)
	assert.Equal(t, "King Lovelace", req.ShippingAddress.LastName)
	assert.Equal(t, "N1 9GU", req.ShippingAddress.Zip)
	assert.Equal(t, []OrderLine{{ProductID: "CJ-TEE", Quantity: 2}}, req.Products)

	got, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, got.Status)
	assert.Equal(t, "CJ-ORDER-1", got.SupplierOrderID)

	// a second forward is refused locally
	_, err = f.syncer.ForwardOrder(context.Background(), o.ID)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Len(t, f.tr.reqs, 1)
}

func TestForwardOrderRejectionLeavesPending(t *testing.T) {
	f := newFixture(t, true)
	o := f.placeOrder(t, domain.OrderItem{ProductID: "demo-tee", SupplierProductID: "CJ-TEE", Quantity: 1, UnitPrice: decimal.NewFromInt(18)})
	f.tr.replies = []Envelope{{Code: 1603001, Message: "shipping address country not supported"}}

	_, err := f.syncer.ForwardOrder(context.Background(), o.ID)
	var rej *domain.SupplierRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "shipping address country not supported", rej.Message)

	got, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
}

func TestForwardOrderSuccessWithoutIDIsUnconfirmed(t *testing.T) {
	f := newFixture(t, true)
	o := f.placeOrder(t, domain.OrderItem{ProductID: "demo-tee", SupplierProductID: "CJ-TEE", Quantity: 1, UnitPrice: decimal.NewFromInt(18)})
	f.tr.replies = []Envelope{okEnv(t, map[string]string{"orderId": ""})}

	_, err := f.syncer.ForwardOrder(context.Background(), o.ID)
	var uo *domain.UnconfirmedOrderError
	require.ErrorAs(t, err, &uo)
	assert.Equal(t, 200, uo.Code)
	var rej *domain.SupplierRejectedError
	assert.False(t, errors.As(err, &rej))
	var pf *domain.PartialFailureError
	assert.False(t, errors.As(err, &pf))
	assert.Len(t, f.tr.reqs, 1)

	got, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	assert.Empty(t, got.SupplierOrderID)
}

type failingMark struct{ *repos.OrderRepo }

func (failingMark) MarkForwarded(context.Context, string, string) error {
	return errors.New("database is locked")
}

func TestForwardOrderPartialFailure(t *testing.T) {
	f := newFixture(t, true)
	o := f.placeOrder(t, domain.OrderItem{ProductID: "demo-tee", SupplierProductID: "CJ-TEE", Quantity: 1, UnitPrice: decimal.NewFromInt(18)})
	f.tr.replies = []Envelope{okEnv(t, map[string]string{"orderId": "CJ-ORDER-9"})}
	f.syncer.orders = failingMark{f.orders}

	_, err := f.syncer.ForwardOrder(context.Background(), o.ID)
	var pf *domain.PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, o.ID, pf.OrderID)
	assert.Equal(t, "CJ-ORDER-9", pf.SupplierOrderID)
	assert.Contains(t, pf.Error(), "database is locked")
}

func TestForwardOrderGuards(t *testing.T) {
	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t, true)
		_, err := f.syncer.ForwardOrder(context.Background(), "nope")
		var nf *domain.NotFoundError
		assert.ErrorAs(t, err, &nf)
	})
	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t, false)
		o := f.placeOrder(t, domain.OrderItem{ProductID: "demo-tee", SupplierProductID: "CJ-TEE", Quantity: 1, UnitPrice: decimal.NewFromInt(18)})
		_, err := f.syncer.ForwardOrder(context.Background(), o.ID)
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
	})
	t.Run("unlinked item", func(t *testing.T) {
		f := newFixture(t, true)
		o := f.placeOrder(t, domain.OrderItem{ProductID: "demo-mug", Quantity: 1, UnitPrice: decimal.NewFromInt(11)})
		_, err := f.syncer.ForwardOrder(context.Background(), o.ID)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Msg, "demo-mug")
		assert.Empty(t, f.tr.reqs)
	})
}

func TestHTTPTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/product/list":
			if r.Header.Get(HeaderAccessToken) != "tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"code":1600001,"result":false,"message":"bad token"}`)
				return
			}
			_, _ = io.WriteString(w, `{"code":200,"result":true,"message":"Success","data":{"list":[{"pid":"`+r.URL.Query().Get("pid")+`"}]}}`)
		case "/api/shopping/order/createOrder":
			var body OrderRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			_, _ = io.WriteString(w, `{"code":200,"result":true,"data":{"orderId":"R-`+body.OrderNumber+`"}}`)
		default:
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, "slow down")
		}
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL+"/api/", 5*time.Second)
	c := NewClient(tr, DefaultPolicy())
	ctx := context.Background()

	list, err := c.LookupProducts(ctx, "tok", ByPID, "P 1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P 1", list[0].PID)

	_, err = c.LookupProducts(ctx, "wrong", ByPID, "P1")
	var rej *domain.SupplierRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "bad token", rej.Message)

	id, err := c.CreateOrder(ctx, "tok", OrderRequest{OrderNumber: "ORDER-5"})
	require.NoError(t, err)
	assert.Equal(t, "R-ORDER-5", id)

	env, err := tr.Do(ctx, Request{Method: http.MethodGet, Path: "elsewhere"})
	require.NoError(t, err)
	assert.True(t, env.RateLimited())
}

func TestHTTPTransportHonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(5 * time.Second):
		}
		_, _ = io.WriteString(w, `{"code":200,"result":true}`)
	}))
	defer srv.Close()
	defer close(release)

	tr := NewHTTPTransport(srv.URL, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := tr.Do(ctx, Request{Method: http.MethodGet, Path: "product/list"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	<-ctx.Done()
	_, err = tr.Do(ctx, Request{Method: http.MethodGet, Path: "product/list"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
