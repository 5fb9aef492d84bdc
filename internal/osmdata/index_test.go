package osmdata

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

const sample = `{
  "version": 0.6,
  "generator": "Overpass API",
  "elements": [
    {"type": "node", "id": 1, "lat": 50.0000, "lon": 5.0000},
    {"type": "node", "id": 2, "lat": 50.0000, "lon": 5.0010},
    {"type": "node", "id": 3, "lat": 50.0010, "lon": 5.0010},
    {"type": "node", "id": 4, "lat": 50.0000, "lon": 5.0000},
    {"type": "node", "id": 10, "lat": 50.0005, "lon": 5.0005, "tags": {"place": "hamlet", "name": "Petit"}},
    {"type": "node", "id": 11, "lat": 50.0100, "lon": 5.0100, "tags": {"place": "town", "name": "Bourg"}},
    {"type": "node", "id": 12, "lat": 50.0002, "lon": 5.0002, "tags": {"place": "locality", "name": "Lieu"}},
    {"type": "way", "id": 100, "nodes": [1, 2, 3], "tags": {"highway": "residential", "name": "Rue A"}},
    {"type": "way", "id": 101, "nodes": [3, 2], "tags": {"highway": "service"}},
    {"type": "area", "id": 3600000001, "tags": {"admin_level": "2", "boundary": "administrative", "name": "Belgique"}},
    {"type": "area", "id": 3600000002, "tags": {"admin_level": "8", "boundary": "administrative", "name": "Liège", "name:fr": "Liège", "name:nl": "Luik"}},
    {"type": "area", "id": 3600000003, "tags": {"admin_level": "10", "boundary": "administrative", "name": "Angleur"}}
  ]
}`

func decodeSample(t *testing.T) *Index {
	t.Helper()
	p, err := Decode(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return NewIndex(p.Elements)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"elements": [`)); err == nil {
		t.Errorf("Expected error for truncated payload")
	}
	if _, err := Decode(strings.NewReader(`{"version": 0.6}`)); err == nil {
		t.Errorf("Expected error for payload without elements")
	}
	p, err := Decode(strings.NewReader(`{"elements": []}`))
	if err != nil || len(p.Elements) != 0 {
		t.Errorf("Empty elements must decode, got %v", err)
	}
}

func TestNewIndex(t *testing.T) {
	idx := decodeSample(t)
	if len(idx.Nodes) != 7 {
		t.Errorf("Expected 7 nodes, got %d", len(idx.Nodes))
	}
	if len(idx.Ways) != 2 {
		t.Errorf("Expected 2 ways, got %d", len(idx.Ways))
	}
	if len(idx.Places) != 2 {
		t.Errorf("Expected 2 place candidates (locality excluded), got %d", len(idx.Places))
	}
	if idx.CityHint != "Belgique" {
		t.Errorf("Expected first boundary area as hint, got %q", idx.CityHint)
	}
	if len(idx.Areas) != 3 {
		t.Errorf("Expected 3 areas, got %d", len(idx.Areas))
	}
}

func TestNearestNodeTieBreak(t *testing.T) {
	idx := decodeSample(t)
	id, ok := idx.NearestNode(orb.Point{5.0, 50.0})
	if !ok || id != 1 {
		t.Errorf("Expected node 1 (first of two identical), got %d", id)
	}
	id, _ = idx.NearestNode(orb.Point{5.0011, 50.0011})
	if id != 3 {
		t.Errorf("Expected node 3, got %d", id)
	}
	if _, ok := NewIndex(nil).NearestNode(orb.Point{0, 0}); ok {
		t.Errorf("Empty index must not find a node")
	}
}

func TestWaysContainingNode(t *testing.T) {
	idx := decodeSample(t)
	ways := idx.WaysContainingNode(2)
	if len(ways) != 2 || ways[0].ID != 100 || ways[1].ID != 101 {
		t.Errorf("Expected ways 100,101 in order, got %v", ways)
	}
	if got := idx.WaysContainingNode(1); len(got) != 1 {
		t.Errorf("Expected one way for node 1, got %d", len(got))
	}
	if got := idx.WaysContainingNode(999); len(got) != 0 {
		t.Errorf("Expected no way for unknown node")
	}
	pts := idx.WayPoints(idx.Ways[100])
	if len(pts) != 3 || pts[1] != (orb.Point{5.001, 50}) {
		t.Errorf("Unexpected way points %v", pts)
	}
}

func TestNearestPlaceRadii(t *testing.T) {
	idx := decodeSample(t)
	at := orb.Point{5.0, 50.0}
	radii := map[string]float64{"hamlet": 200, "village": 400, "city": 1200, "town": 1500}
	if got := idx.NearestPlace(at, radii); got != "Petit" {
		t.Errorf("Expected hamlet Petit, got %q", got)
	}
	// 小村半径太小时回退到镇
	radii["hamlet"] = 10
	if got := idx.NearestPlace(at, radii); got != "Bourg" {
		t.Errorf("Expected town Bourg, got %q", got)
	}
	radii["town"] = 100
	if got := idx.NearestPlace(at, radii); got != "" {
		t.Errorf("Expected no place, got %q", got)
	}
}

func TestResolveAdminAndLabels(t *testing.T) {
	idx := decodeSample(t)
	adm := idx.ResolveAdmin("")
	if adm.City != "Liège" || adm.Place != "Angleur" || adm.Country != "Belgique" {
		t.Errorf("Unexpected admin %+v", adm)
	}
	if got := idx.ResolveAdmin("nl").City; got != "Luik" {
		t.Errorf("Expected localized city Luik, got %q", got)
	}
	if got := idx.ResolveAdmin("*").City; got != "Liège" {
		t.Errorf("Wildcard language must use plain name, got %q", got)
	}

	city, place := idx.Labels("Petit", "")
	if city != "Liège" || place != "Angleur" {
		t.Errorf("Admin place must win over node place, got %q %q", city, place)
	}

	noFine := NewIndex([]Element{
		{Type: TypeArea, Tags: map[string]string{"admin_level": "8", "boundary": "administrative", "name": "Spa"}},
	})
	if city, place := noFine.Labels("Spa", ""); city != "Spa" || place != "" {
		t.Errorf("Place equal to city must collapse, got %q %q", city, place)
	}
	if city, place := noFine.Labels("Creppe", ""); city != "Spa" || place != "Creppe" {
		t.Errorf("Expected Spa (Creppe), got %q %q", city, place)
	}

	hintOnly := NewIndex([]Element{{Type: TypeArea, Tags: map[string]string{"boundary": "postal_code", "name": "4000"}}})
	if city, _ := hintOnly.Labels("", ""); city != "4000" {
		t.Errorf("Expected city hint fallback, got %q", city)
	}
}
