package osmapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"travelnotes/internal/config"
)

const payload = `{"version":0.6,"elements":[{"type":"node","id":1,"lat":50.1,"lon":5.2},{"type":"way","id":2,"nodes":[1],"tags":{"highway":"primary"}}]}`

func TestOverpassFetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasPrefix(r.URL.Query().Get("data"), "[out:json]") {
			t.Errorf("Unexpected query %q", r.URL.Query().Get("data"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewOverpass(srv.URL, WithCache(NewPayloadCache(8, time.Minute, nil)))
	for i := 0; i < 2; i++ {
		p, err := c.Fetch(context.Background(), "[out:json];node(1);out;")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if len(p.Elements) != 2 || p.Elements[1].Nodes[0] != 1 {
			t.Errorf("Unexpected elements %+v", p.Elements)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("Expected second fetch to be served from cache, got %d hits", hits.Load())
	}
}

func TestOverpassStatusAndParseErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   int
	}{
		{"server error", http.StatusGatewayTimeout, "busy", http.StatusGatewayTimeout},
		{"too many requests", http.StatusTooManyRequests, "", http.StatusTooManyRequests},
		{"malformed", http.StatusOK, "<html>", http.StatusOK},
		{"no elements", http.StatusOK, `{"version":0.6}`, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewOverpass(srv.URL).Fetch(context.Background(), "q")
			if !errors.Is(err, ErrFetchFailed) {
				t.Fatalf("Expected ErrFetchFailed, got %v", err)
			}
			if errors.Is(err, ErrFetchTimeout) {
				t.Errorf("Status failure must not look like a timeout")
			}
			var fe *FetchError
			if !errors.As(err, &fe) || fe.Status != tc.want {
				t.Errorf("Expected status %d, got %+v", tc.want, fe)
			}
		})
	}
}

func TestOverpassTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewOverpass(srv.URL).Fetch(ctx, "q")
	if !errors.Is(err, ErrFetchTimeout) {
		t.Fatalf("Expected ErrFetchTimeout, got %v", err)
	}
	if errors.Is(err, ErrFetchFailed) {
		t.Errorf("Timeout must be distinct from fetch failure")
	}
}

func TestRateWaitBeyondDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewOverpass(srv.URL, WithRate(0.01))
	if _, err := c.Fetch(context.Background(), "a"); err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Fetch(ctx, "b"); !errors.Is(err, ErrFetchTimeout) {
		t.Errorf("Expected limiter wait to time out, got %v", err)
	}
}

func TestNominatimReverse(t *testing.T) {
	var gotLang, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		gotLang = r.URL.Query().Get("accept-language")
		gotHeader = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"address":{"house_number":"12","road":"Rue Haute","country":"Belgique"},"namedetails":{"name":"Chez Paul"}}`))
	}))
	defer srv.Close()

	r, err := NewNominatim(srv.URL, "fr", WithUserAgent("tn-test")).Reverse(context.Background(), 50.5, 5.5)
	if err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}
	if r.Address.Road != "Rue Haute" || r.Address.HouseNumber != "12" || r.NameDetails["name"] != "Chez Paul" {
		t.Errorf("Unexpected response %+v", r)
	}
	if gotLang != "fr" || gotHeader != "tn-test" {
		t.Errorf("Expected language fr and user agent, got %q %q", gotLang, gotHeader)
	}
}

func TestQueries(t *testing.T) {
	cfg := config.Icon{
		Size: 200, HamletDistance: 200, VillageDistance: 400, CityDistance: 1200, TownDistance: 1500,
		FetchTimeout: 15 * time.Second,
	}
	q := IconQuery(50.644242, 5.572354, cfg)
	for _, want := range []string{
		"[out:json][timeout:15];",
		"way[highway](around:300,50.644242,5.572354)",
		`node(around:200,50.644242,5.572354)[place="hamlet"]`,
		`node(around:1500,50.644242,5.572354)[place="town"]`,
		`area.e[admin_level][boundary="administrative"]`,
	} {
		if !strings.Contains(q, want) {
			t.Errorf("IconQuery missing %q in %s", want, q)
		}
	}
	if a := AddressQuery(50.644242, 5.572354, cfg); !strings.Contains(a, "node(around:1500,50.644242,5.572354)[place]") {
		t.Errorf("AddressQuery must use the largest place radius: %s", a)
	}
	if CacheKey("a") == CacheKey("b") || !strings.HasPrefix(CacheKey("a"), cacheKeyPrefix) {
		t.Errorf("Unexpected cache keys")
	}
}
