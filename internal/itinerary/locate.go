// 包 itinerary：行程点序列上的最近点定位与角度采样邻点查找
package itinerary

import (
	"errors"
	"math"

	"travelnotes/internal/travel"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// ErrEmptySequence：序列没有任何行程点
var ErrEmptySequence = errors.New("itinerary: empty point sequence")

// WayPointEpsilon：行程点与航点坐标视为重合的阈值（度）
const WayPointEpsilon = 0.00001

// Location：最近点定位结果
// Distance 为从路线起点到该点的累计距离，Meters 为目标到该点的地面距离
type Location struct {
	Point    *travel.ItineraryPoint
	Index    int
	Distance float64
	Meters   float64
}

// LatLng：行程点坐标，orb 约定为 [lon, lat]
func LatLng(p *travel.ItineraryPoint) orb.Point { return orb.Point{p.Lng, p.Lat} }

// Locate：线性扫描求最近行程点
// 约束：严格小于才替换，距离相同时保留下标较小者；以首点为初值，非有限坐标也总能得到一个点
func Locate(target orb.Point, points []*travel.ItineraryPoint) (Location, error) {
	if len(points) == 0 {
		return Location{}, ErrEmptySequence
	}
	best := Location{Point: points[0], Index: 0, Meters: geo.DistanceHaversine(target, LatLng(points[0]))}
	sum := points[0].Distance
	for i, p := range points[1:] {
		d := geo.DistanceHaversine(target, LatLng(p))
		if d < best.Meters {
			best = Location{Point: p, Index: i + 1, Distance: sum, Meters: d}
		}
		sum += p.Distance
	}
	return best, nil
}

// LocateOnRoute：在路线行程点上定位
func LocateOnRoute(target orb.Point, r *travel.Route) (Location, error) {
	return Locate(target, r.Itinerary.Items())
}

// Neighbors：锚点前后用于计算旋转与方向的参考点
type Neighbors struct {
	Incoming *travel.ItineraryPoint
	Outgoing *travel.ItineraryPoint
	// HasIncoming/HasOutgoing 为 false 时对应参考点退化为路线首/尾点
	HasIncoming bool
	HasOutgoing bool
}

// NeighborsAtMinAngleDistance：锚点前后累计距离差大于 minDistance 的最近点
// 背景：距离太近的点会让角度抖动；与航点重合的点常带有急转，跳过以免方向被航点带偏
// 约束：找不到时以首点/尾点兜底
func NeighborsAtMinAngleDistance(r *travel.Route, anchorIndex int, minDistance float64) (Neighbors, error) {
	points := r.Itinerary.Items()
	if len(points) == 0 {
		return Neighbors{}, ErrEmptySequence
	}
	if anchorIndex < 0 || anchorIndex >= len(points) {
		anchorIndex = 0
	}
	cum := r.DistanceChain().Cumulative()
	byID := make(map[string]float64, len(points))
	for i, p := range points {
		byID[p.ID] = cum[i]
	}
	wayPoints := r.WayPoints.Items()
	anchor := points[anchorIndex]
	anchorDistance := cum[anchorIndex]
	accept := func(p *travel.ItineraryPoint) bool {
		if math.Abs(byID[p.ID]-anchorDistance) <= minDistance {
			return false
		}
		return !IsWayPoint(p, wayPoints)
	}

	n := Neighbors{Incoming: points[0], Outgoing: points[len(points)-1]}
	if p, ok := r.Itinerary.Previous(anchor.ID, accept); ok {
		n.Incoming = p
		n.HasIncoming = true
	}
	if p, ok := r.Itinerary.Next(anchor.ID, accept); ok {
		n.Outgoing = p
		n.HasOutgoing = true
	}
	return n, nil
}

// IsWayPoint：行程点是否与任一航点重合
func IsWayPoint(p *travel.ItineraryPoint, wayPoints []*travel.WayPoint) bool {
	for _, w := range wayPoints {
		if math.Abs(p.Lat-w.Lat) < WayPointEpsilon && math.Abs(p.Lng-w.Lng) < WayPointEpsilon {
			return true
		}
	}
	return false
}
