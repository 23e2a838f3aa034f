package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"storefront/internal/config"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/services"
	"storefront/internal/supplier"
)

const adminPassword = "correct-horse-battery"

// scripted stands in for the supplier API, replaying canned envelopes.
type scripted struct {
	t       *testing.T
	replies []supplier.Envelope
	reqs    []supplier.Request
}

func (s *scripted) Do(_ context.Context, req supplier.Request) (supplier.Envelope, error) {
	s.reqs = append(s.reqs, req)
	if len(s.replies) == 0 {
		s.t.Fatalf("unexpected supplier call %s %s", req.Method, req.Path)
	}
	env := s.replies[0]
	s.replies = s.replies[1:]
	return env, nil
}

func okEnv(t *testing.T, data any) supplier.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return supplier.Envelope{Code: 200, Result: true, Message: "Success", Data: raw}
}

type testEnv struct {
	t     *testing.T
	app   *fiber.App
	db    *sqlx.DB
	tr    *scripted
	slept []time.Duration
	logs  *observer.ObservedLogs
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:           "test",
		DBDSN:            ":memory:",
		SessionTTL:       time.Hour,
		CORSAllowOrigins: "*",
		Supplier: config.SupplierConfig{
			BaseURL:     "http://supplier.invalid/api2.0/v1",
			Timeout:     time.Second,
			TokenBuffer: time.Hour,
			Backoff: config.BackoffConfig{
				Base:        time.Minute,
				Multiplier:  2,
				Cap:         5 * time.Minute,
				MaxAttempts: 3,
				RetryAfter:  300 * time.Second,
			},
		},
	}
}

func newTestEnv(t *testing.T) *testEnv { return newTestEnvWith(t, adminPassword) }

// newTestEnvWith builds the full app over an in-memory db. An empty password
// leaves admin login disabled.
func newTestEnvWith(t *testing.T, password string) *testEnv {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	applog.SetLogger(zap.New(core))
	t.Cleanup(func() { applog.SetLogger(nil) })

	cfg := testConfig()
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	auth, err := services.NewAdminAuth(password, "", "test-secret", cfg.SessionTTL)
	if err != nil {
		t.Fatalf("admin auth: %v", err)
	}

	e := &testEnv{t: t, db: db, tr: &scripted{t: t}, logs: logs}
	sleeper := supplier.WithSleeper(func(_ context.Context, d time.Duration) error {
		e.slept = append(e.slept, d)
		return nil
	})
	e.app = handlers.NewApp(cfg, handlers.NewDeps(db, cfg, auth, e.tr, sleeper))
	return e
}

type reqOpt func(*http.Request)

func bearer(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func cookie(name, value string) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: name, Value: value}) }
}

// call sends a JSON request and returns the response with its body read.
func (e *testEnv) call(method, target string, body any, opts ...reqOpt) (*http.Response, []byte) {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, ok := body.([]byte)
		if !ok {
			var err error
			if raw, err = json.Marshal(body); err != nil {
				e.t.Fatal(err)
			}
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatal(err)
	}
	return resp, out
}

func (e *testEnv) expect(status int, method, target string, body any, opts ...reqOpt) []byte {
	e.t.Helper()
	resp, out := e.call(method, target, body, opts...)
	if resp.StatusCode != status {
		e.t.Fatalf("%s %s: expected %d, got %d body=%s", method, target, status, resp.StatusCode, out)
	}
	return out
}

func (e *testEnv) login() string {
	e.t.Helper()
	out := e.expect(http.StatusOK, "POST", "/admin/login", map[string]string{"password": adminPassword})
	var res struct {
		Token string `json:"token"`
	}
	decode(e.t, out, &res)
	if res.Token == "" {
		e.t.Fatalf("no token in %s", out)
	}
	return res.Token
}

func decode(t *testing.T, raw []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// fields returns the "fields" map of the first log entry named action.
func (e *testEnv) fields(action string) map[string]any {
	e.t.Helper()
	entries := e.logs.FilterMessage(action).All()
	if len(entries) == 0 {
		e.t.Fatalf("no %q log entry", action)
	}
	f, _ := entries[0].ContextMap()["fields"].(map[string]any)
	return f
}
