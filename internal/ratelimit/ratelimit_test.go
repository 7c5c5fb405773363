package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestAllow_WindowAndReset(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
	l := New(60*time.Second, 2).WithNow(clock.now)
	key := Key("10.0.0.1", "post", "/api/tasks")

	for i := range 2 {
		if ok, _ := l.Allow(key); !ok {
			t.Fatalf("request %d rejected, want allowed", i+1)
		}
	}
	ok, retry := l.Allow(key)
	if ok {
		t.Fatal("third request allowed, want rejected")
	}
	if retry != 60*time.Second {
		t.Errorf("retry = %v, want 60s", retry)
	}
	if ok, _ := l.Allow(Key("10.0.0.1", "post", "/api/habits")); !ok {
		t.Error("other path should have its own window")
	}

	clock.t = clock.t.Add(60 * time.Second)
	if ok, _ := l.Allow(key); !ok {
		t.Error("request after window should be allowed")
	}
}

func TestAllow_Disabled(t *testing.T) {
	l := New(time.Minute, 0)
	for range 100 {
		if ok, _ := l.Allow("k"); !ok {
			t.Fatal("zero limit should disable limiting")
		}
	}
}

func TestSweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
	l := New(time.Minute, 5).WithNow(clock.now)
	l.Allow("a")
	clock.t = clock.t.Add(30 * time.Second)
	l.Allow("b")
	clock.t = clock.t.Add(40 * time.Second)

	if n := l.Sweep(); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}

func TestExempt(t *testing.T) {
	tests := []struct {
		method, path string
		want         bool
	}{
		{"GET", "/api/tasks", true},
		{"HEAD", "/api/tasks", true},
		{"OPTIONS", "/api/tasks", true},
		{"POST", "/api/tasks", false},
		{"PATCH", "/api/tasks/bulk", false},
		{"POST", "/login", true},
		{"POST", "/apiary", true},
	}
	for _, tt := range tests {
		if got := Exempt(tt.method, tt.path); got != tt.want {
			t.Errorf("Exempt(%s, %s) = %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := &fakeClock{t: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
	l := New(60*time.Second, 2).WithNow(clock.now)

	r := gin.New()
	r.Use(Middleware(l, nil))
	r.POST("/api/tasks", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/api/tasks", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(method string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, "/api/tasks", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		r.ServeHTTP(w, req)
		return w
	}

	want := []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}
	for i, code := range want {
		if w := do(http.MethodPost); w.Code != code {
			t.Errorf("POST #%d = %d, want %d", i+1, w.Code, code)
		}
	}
	if w := do(http.MethodGet); w.Code != http.StatusOK {
		t.Errorf("GET while limited = %d, want 200", w.Code)
	}
	w := do(http.MethodPost)
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", w.Header().Get("Retry-After"))
	}

	clock.t = clock.t.Add(61 * time.Second)
	if w := do(http.MethodPost); w.Code != http.StatusCreated {
		t.Errorf("POST after window = %d, want 201", w.Code)
	}
}

func TestStartSweeper_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(time.Minute, 1)
	if err := l.StartSweeper(ctx, nil); err != nil {
		t.Fatalf("StartSweeper: %v", err)
	}
	cancel()
}
