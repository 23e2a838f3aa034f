package validate

import "testing"

func TestEmail(t *testing.T) {
	for _, ok := range []string{"a@b.co", " shopper+tag@mail.example.org "} {
		if _, got := Email(ok); !got {
			t.Fatalf("want %q valid", ok)
		}
	}
	for _, bad := range []string{"", "no-at-sign", "a@b", "a b@c.com"} {
		if _, got := Email(bad); got {
			t.Fatalf("want %q invalid", bad)
		}
	}
}

func TestQty(t *testing.T) {
	if n, ok := Qty(" 3 "); !ok || n != 3 {
		t.Fatalf("want 3, got %d %v", n, ok)
	}
	for _, bad := range []string{"0", "-2", "abc", "", "1000"} {
		if _, ok := Qty(bad); ok {
			t.Fatalf("want %q rejected", bad)
		}
	}
}

func TestID(t *testing.T) {
	if _, ok := ID("demo-tee"); !ok {
		t.Fatal("slug id rejected")
	}
	if _, ok := ID("1A2B3C.4-5_6"); !ok {
		t.Fatal("supplier id rejected")
	}
	if _, ok := ID("x' OR 1=1"); ok {
		t.Fatal("quote accepted")
	}
}

func TestAmount(t *testing.T) {
	if d, ok := Amount("12.50"); !ok || d.String() != "12.5" {
		t.Fatalf("got %s %v", d, ok)
	}
	if _, ok := Amount("-1"); ok {
		t.Fatal("negative accepted")
	}
	if _, ok := Amount("ten"); ok {
		t.Fatal("junk accepted")
	}
}

func TestSessionID(t *testing.T) {
	if _, ok := SessionID("5f0c1e9a-2b7d-4c1e-9f3a-1d2e3f4a5b6c"); !ok {
		t.Fatal("uuid rejected")
	}
	if _, ok := SessionID("short"); ok {
		t.Fatal("short id accepted")
	}
}
