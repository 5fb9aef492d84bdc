package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"travelnotes/internal/geocoder"
	"travelnotes/internal/icon"
	"travelnotes/internal/osmapi"
	"travelnotes/internal/travel"

	"github.com/paulmach/orb"
)

type fakeIcons struct {
	err error
}

func (f fakeIcons) Build(ctx context.Context, anchor orb.Point, r *travel.Route) (*icon.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &icon.Result{City: "Liège", Streets: []string{"", ""}, LatLng: [2]float64{anchor.Lat(), anchor.Lon()}}, nil
}

type fakeGeocoder struct{}

func (fakeGeocoder) Reverse(ctx context.Context, lat, lon float64) (geocoder.Address, error) {
	return geocoder.Address{Street: "Rue Haute", City: "Liège"}, nil
}

const travelJSON = `{
  "objId": "t1",
  "name": "Ardennes",
  "routes": [{
    "objId": "r1", "name": "east",
    "itineraryPoints": [
      {"objId": "p0", "lat": 50, "lng": 5.000, "distance": 70},
      {"objId": "p1", "lat": 50, "lng": 5.001, "distance": 80},
      {"objId": "p2", "lat": 50, "lng": 5.002, "distance": 0}
    ],
    "wayPoints": [], "notes": []
  }],
  "notes": [{"objId": "n1", "lat": 50.0001, "lng": 5.0011, "distance": -1}]
}`

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func newTestMux(t *testing.T, icons IconBuilder) http.Handler {
	t.Helper()
	mux := BuildRoutes(NewService(icons, fakeGeocoder{}, nil, nil))
	if rec := do(t, mux, http.MethodPut, "/travel", travelJSON); rec.Code != http.StatusOK {
		t.Fatalf("PUT /travel failed: %d %s", rec.Code, rec.Body.String())
	}
	return mux
}

func TestNoteLifecycle(t *testing.T) {
	mux := newTestMux(t, fakeIcons{})

	rec := do(t, mux, http.MethodPost, "/notes/attach?id=n1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("attach failed: %d %s", rec.Code, rec.Body.String())
	}
	var n travel.Note
	if err := json.Unmarshal(rec.Body.Bytes(), &n); err != nil {
		t.Fatalf("decode note: %v", err)
	}
	if n.Distance != 70 || n.Lng != 5.001 {
		t.Errorf("Expected note on p1 at distance 70, got %+v", n)
	}

	rec = do(t, mux, http.MethodPost, "/notes/detach?id=n1", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &n); err != nil || n.Distance != travel.Unattached {
		t.Errorf("Expected detached note, got %+v %v", n, err)
	}

	if rec := do(t, mux, http.MethodPost, "/notes/attach?id=nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown note, got %d", rec.Code)
	}
	if rec := do(t, mux, http.MethodPost, "/notes/move?id=n1&lat=bad&lon=1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad coordinate, got %d", rec.Code)
	}

	rec = do(t, mux, http.MethodPost, "/notes?lat=50.5&lon=5.5", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", rec.Code)
	}
	var created travel.Note
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	if rec := do(t, mux, http.MethodPost, "/notes/reorder?id="+created.ID+"&target=n1&before=true", ""); rec.Code != http.StatusOK {
		t.Errorf("reorder failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, mux, http.MethodGet, "/travel", "")
	var tr travel.Travel
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode travel: %v", err)
	}
	items := tr.Notes.Items()
	if len(items) != 2 || items[0].ID != created.ID || items[1].ID != "n1" {
		t.Errorf("Expected created note before n1, got %v", items)
	}

	if rec := do(t, mux, http.MethodDelete, "/notes?id=n1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete failed: %d", rec.Code)
	}
}

func TestIconErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"busy", icon.ErrAlreadyInFlight, http.StatusConflict},
		{"timeout", osmapi.ErrFetchTimeout, http.StatusGatewayTimeout},
		{"status", &osmapi.FetchError{Service: "overpass", Status: 500}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := newTestMux(t, fakeIcons{err: tc.err})
			rec := do(t, mux, http.MethodGet, "/icon?route=r1&lat=50&lon=5.001", "")
			if rec.Code != tc.want {
				t.Errorf("Expected %d, got %d %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
	mux := newTestMux(t, fakeIcons{})
	if rec := do(t, mux, http.MethodGet, "/icon?route=missing&lat=50&lon=5", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown route, got %d", rec.Code)
	}
}

func TestGeocodeAndStats(t *testing.T) {
	mux := newTestMux(t, fakeIcons{})
	rec := do(t, mux, http.MethodGet, "/geocode?lat=50.6&lon=5.5", "")
	var a geocoder.Address
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil || a.Street != "Rue Haute" {
		t.Errorf("Unexpected geocode response %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, mux, http.MethodGet, "/geocode?lat=95&lon=5", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for out of range latitude, got %d", rec.Code)
	}
	rec = do(t, mux, http.MethodGet, "/stats", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"persistence":false`) {
		t.Errorf("Expected stats without persistence, got %s", rec.Body.String())
	}
}

func TestNonFiniteCoordinatesRejected(t *testing.T) {
	mux := newTestMux(t, fakeIcons{})
	for _, target := range []string{
		"/notes?lat=NaN&lon=0",
		"/notes?lat=0&lon=Inf",
		"/notes/move?id=n1&lat=nan&lon=5",
	} {
		if rec := do(t, mux, http.MethodPost, target, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("POST %s: expected 400, got %d", target, rec.Code)
		}
	}
	if rec := do(t, mux, http.MethodGet, "/icon?route=r1&lat=NaN&lon=NaN", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for NaN icon anchor, got %d", rec.Code)
	}
	if rec := do(t, mux, http.MethodGet, "/travel", ""); rec.Code != http.StatusOK {
		t.Errorf("Travel must stay encodable, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestDetachUnknownNoteIsNotFound(t *testing.T) {
	mux := newTestMux(t, fakeIcons{})
	if rec := do(t, mux, http.MethodPost, "/notes/detach?id=ghost", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestSwapNotes(t *testing.T) {
	mux := newTestMux(t, fakeIcons{})
	rec := do(t, mux, http.MethodPost, "/notes?lat=51&lon=6", "")
	var created travel.Note
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode note: %v", err)
	}
	if rec := do(t, mux, http.MethodPost, "/notes/swap?id="+created.ID+"&up=true", ""); rec.Code != http.StatusOK {
		t.Fatalf("swap failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, mux, http.MethodGet, "/travel", "")
	var tr travel.Travel
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode travel: %v", err)
	}
	if items := tr.Notes.Items(); len(items) != 2 || items[0].ID != created.ID {
		t.Errorf("Expected created note first, got %v", items)
	}

	_ = do(t, mux, http.MethodPost, "/notes/attach?id=n1", "")
	if rec := do(t, mux, http.MethodPost, "/notes/swap?id=n1&up=false", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for an attached note, got %d", rec.Code)
	}
}
