package trace_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/selimozcann/qrlens/internal/httpclient"
	"github.com/selimozcann/qrlens/internal/logger"
	"github.com/selimozcann/qrlens/internal/trace"
)

func setupServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/302", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/dir/relative", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "final")
		w.WriteHeader(http.StatusMovedPermanently)
	})
	mux.HandleFunc("/nolocation", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/step/", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/step/"))
		http.Redirect(w, r, fmt.Sprintf("/step/%d", n+1), http.StatusTemporaryRedirect)
	})
	return httptest.NewServer(mux)
}

func newTracer(timeout time.Duration) *trace.Tracer {
	client := httpclient.New(httpclient.Config{Timeout: 5 * time.Second})
	return trace.New(client, timeout, logger.NewNop())
}

func TestResolveBasic(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	res := newTracer(0).Resolve(context.Background(), srv.URL+"/302", 5)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Chain) != 2 {
		t.Fatalf("expected 2 hops, got %d", len(res.Chain))
	}
	if res.Chain[0].Status != http.StatusFound || res.Chain[1].Status != http.StatusOK {
		t.Fatalf("unexpected statuses %d, %d", res.Chain[0].Status, res.Chain[1].Status)
	}
	if res.FinalURL != srv.URL+"/final" {
		t.Fatalf("unexpected final url %s", res.FinalURL)
	}
}

func TestResolveRelativeLocation(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	res := newTracer(0).Resolve(context.Background(), srv.URL+"/dir/relative", 5)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.FinalURL != srv.URL+"/final" {
		t.Fatalf("relative location should resolve against scheme and host, got %s", res.FinalURL)
	}
}

func TestResolveRedirectWithoutLocation(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	res := newTracer(0).Resolve(context.Background(), srv.URL+"/nolocation", 5)
	if res.Err != nil || len(res.Chain) != 1 {
		t.Fatalf("expected single hop without error, got %d hops err=%v", len(res.Chain), res.Err)
	}
}

func TestResolveCycle(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	res := newTracer(0).Resolve(context.Background(), srv.URL+"/loop", 5)
	if !errors.Is(res.Err, trace.ErrCycle) {
		t.Fatalf("expected cycle error, got %v", res.Err)
	}
	if len(res.Chain) != 2 {
		t.Fatalf("expected chain to contain the repeat, got %d hops", len(res.Chain))
	}
	if res.FinalURL != srv.URL+"/loop" {
		t.Fatalf("unexpected final url %s", res.FinalURL)
	}
	if trace.ErrorTag(res.Err) != "cyclic redirect" {
		t.Fatalf("unexpected tag %q", trace.ErrorTag(res.Err))
	}
}

func TestResolveMaxHopsIsNotAnError(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	res := newTracer(0).Resolve(context.Background(), srv.URL+"/step/0", 3)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Chain) != 4 {
		t.Fatalf("expected 4 chain entries, got %d", len(res.Chain))
	}
	if res.FinalURL != srv.URL+"/step/3" {
		t.Fatalf("unexpected final url %s", res.FinalURL)
	}
}

func TestResolveNonWebScheme(t *testing.T) {
	tr := newTracer(0)
	for _, in := range []string{"tg://resolve?domain=promo", "mailto:a@b.c", "http://[::1"} {
		res := tr.Resolve(context.Background(), in, 5)
		if res.Err != nil || len(res.Chain) != 1 || res.FinalURL != in {
			t.Fatalf("%s: expected pass-through, got %+v", in, res)
		}
	}
}

func TestResolveTimeout(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	res := newTracer(50*time.Millisecond).Resolve(context.Background(), srv.URL+"/slow", 5)
	if !errors.Is(res.Err, trace.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", res.Err)
	}
	if res.FinalURL != srv.URL+"/slow" {
		t.Fatalf("unexpected final url %s", res.FinalURL)
	}
}

func TestResolveUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	res := newTracer(time.Second).Resolve(context.Background(), addr+"/gone", 5)
	if !errors.Is(res.Err, trace.ErrUnreachable) {
		t.Fatalf("expected unreachable, got %v", res.Err)
	}
	if trace.ErrorTag(res.Err) != "network unreachable" {
		t.Fatalf("unexpected tag %q", trace.ErrorTag(res.Err))
	}
}
