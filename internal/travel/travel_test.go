package travel

import (
	"encoding/json"
	"errors"
	"testing"

	"travelnotes/internal/collection"
)

func routeWithDistances(ds ...float64) *Route {
	r := NewRoute("r")
	for i, d := range ds {
		r.Itinerary.Add(NewItineraryPoint(50, 5+float64(i)*0.001, d))
	}
	return r
}

func TestDistanceChainCumulative(t *testing.T) {
	r := routeWithDistances(10, 20, 5, 0)
	cum := r.DistanceChain().Cumulative()
	want := []float64{0, 10, 30, 35}
	if len(cum) != len(want) {
		t.Fatalf("Expected %d values, got %d", len(want), len(cum))
	}
	for i := range want {
		if cum[i] != want[i] {
			t.Errorf("cum[%d]: expected %v, got %v", i, want[i], cum[i])
		}
		if i > 0 && cum[i] < cum[i-1] {
			t.Errorf("cumulative distance decreased at %d", i)
		}
	}
	if got := r.DistanceChain().Total(); got != 35 {
		t.Errorf("Total: expected 35, got %v", got)
	}

	pts := r.Itinerary.Items()
	d, err := r.DistanceChain().DistanceAt(pts[2].ID)
	if err != nil || d != 30 {
		t.Errorf("DistanceAt(2): expected 30, got %v (%v)", d, err)
	}
	if d, _ := r.DistanceChain().DistanceAt(pts[0].ID); d != 0 {
		t.Errorf("First point distance must be 0, got %v", d)
	}
	if _, err := r.DistanceChain().DistanceAt("missing"); !errors.Is(err, collection.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDistanceChainEmpty(t *testing.T) {
	r := NewRoute("empty")
	if d, err := r.DistanceChain().DistanceAt("whatever"); err != nil || d != 0 {
		t.Errorf("Empty chain: expected 0 and nil, got %v %v", d, err)
	}
	if r.DistanceChain().Total() != 0 {
		t.Errorf("Empty chain total must be 0")
	}
}

func TestChainDistances(t *testing.T) {
	tr := New("trip")
	a := routeWithDistances(100, 50, 0)
	a.Chain = true
	b := routeWithDistances(10, 0)
	b.Chain = false
	c := routeWithDistances(30, 0)
	c.Chain = true
	n := NewNote(50, 5)
	n.Distance = 3
	c.Notes.Add(n)
	tr.Routes.Add(a)
	tr.Routes.Add(b)
	tr.Routes.Add(c)

	tr.ChainDistances()
	if a.ChainedDistance != 0 || b.ChainedDistance != 0 || c.ChainedDistance != 150 {
		t.Errorf("Unexpected chained distances: %v %v %v", a.ChainedDistance, b.ChainedDistance, c.ChainedDistance)
	}
	if n.ChainedDistance != 150 {
		t.Errorf("Note chained distance: expected 150, got %v", n.ChainedDistance)
	}
}

func TestTravelJSONNormalize(t *testing.T) {
	raw := `{
		"name": "trip",
		"routes": [{
			"objId": "r1",
			"name": "first",
			"itineraryPoints": [
				{"objId": "p1", "lat": 50, "lng": 5, "distance": 10},
				{"objId": "p2", "lat": 50, "lng": 5.001, "distance": 0}
			],
			"notes": [
				{"objId": "n2", "lat": 50, "lng": 5, "distance": 9},
				{"objId": "n1", "lat": 50, "lng": 5, "distance": 1}
			]
		}],
		"notes": [{"objId": "n3", "lat": 1, "lng": 2}]
	}`
	var tr Travel
	if err := json.Unmarshal([]byte(raw), &tr); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	tr.Normalize()
	if tr.ID == "" {
		t.Errorf("Normalize must assign an id")
	}
	r, err := tr.Routes.Get("r1")
	if err != nil {
		t.Fatalf("route r1 missing: %v", err)
	}
	if r.WayPoints == nil || r.WayPoints.Len() != 0 {
		t.Errorf("Expected empty waypoint collection")
	}
	first, _ := r.Notes.First()
	if first.ID != "n1" {
		t.Errorf("Route notes must be distance sorted, first is %s", first.ID)
	}
	n3, route, err := tr.FindNote("n3")
	if err != nil || route != nil {
		t.Fatalf("n3 must be a travel note: %v %v", route, err)
	}
	if n3.Distance != Unattached {
		t.Errorf("Travel note distance must be -1, got %v", n3.Distance)
	}
	if _, _, err := tr.FindNote("nope"); !errors.Is(err, collection.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDecodeAssignsMissingIDs(t *testing.T) {
	var tr Travel
	in := `{"routes":[{"name":"r","itineraryPoints":[{"lat":50,"lng":5,"distance":10},{"lat":50,"lng":5.001}]}],"notes":[{"lat":1,"lng":2}]}`
	if err := json.Unmarshal([]byte(in), &tr); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	tr.Normalize()
	r, err := tr.Routes.First()
	if err != nil || r.ID == "" {
		t.Fatalf("Route must receive an id, got %v %v", r, err)
	}
	if r.Itinerary.Len() != 2 {
		t.Errorf("Points without objId must not collapse, got %d", r.Itinerary.Len())
	}
	if n, _ := tr.Notes.First(); n == nil || n.ID == "" || n.Distance != Unattached {
		t.Errorf("Unattached note must get an id and distance -1, got %+v", n)
	}
}
