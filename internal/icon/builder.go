// 包 icon：根据路线与一份 OSM 快照合成图标几何（裁剪后的路线与道路折线、旋转、方向、地名与街道）
// 背景：输出为结构化数据，交给渲染层绘制；本包不生成 SVG/HTML
package icon

import (
	"math"

	"travelnotes/internal/config"
	"travelnotes/internal/itinerary"
	"travelnotes/internal/osmdata"
	"travelnotes/internal/travel"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// AnonymousStreet：无 name/ref 的道路作为进出街道时的占位名
const AnonymousStreet = "???"

// StartStop：图标在路线上的位置
type StartStop int

const (
	AtStart    StartStop = -1
	AtInterior StartStop = 0
	AtEnd      StartStop = 1
)

// Pixel：视口像素坐标，原点在左上角
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polyline：裁剪后的折线；Class 为道路的 highway 标签，路线本身为空
type Polyline struct {
	Class  string  `json:"class,omitempty"`
	Points []Pixel `json:"points"`
}

type Result struct {
	Route          *Polyline  `json:"route,omitempty"`
	Ways           []Polyline `json:"ways"`
	Rotation       float64    `json:"rotation"`
	Direction      *float64   `json:"direction"`
	StartStop      StartStop  `json:"startStop"`
	City           string     `json:"city"`
	Place          string     `json:"place"`
	Streets        []string   `json:"streets"`
	IncomingStreet string     `json:"incomingStreet"`
	OutgoingStreet string     `json:"outgoingStreet"`
	LatLng         [2]float64 `json:"latLng"`
	Translation    Pixel      `json:"translation"`
	Distance       float64    `json:"distance"`
	Size           int        `json:"size"`
}

// Builder：纯计算，不持有跨请求状态
type Builder struct {
	cfg  config.Icon
	lang string
}

func NewBuilder(cfg config.Icon, lang string) *Builder {
	return &Builder{cfg: cfg, lang: lang}
}

// viewport：一次构建的投影状态
type viewport struct {
	scale       float64
	size        float64
	translation Pixel
}

func newViewport(cfg config.Icon, center orb.Point) viewport {
	v := viewport{scale: 256 * math.Pow(2, float64(cfg.Zoom)), size: float64(cfg.Size)}
	c := v.world(center)
	v.translation = Pixel{X: v.size/2 - c.X, Y: v.size/2 - c.Y}
	return v
}

// world：EPSG:3857 米坐标换算为 256·2^zoom 的像素平面
func (v viewport) world(p orb.Point) Pixel {
	m := project.WGS84.ToMercator(p)
	circ := 2 * math.Pi * orb.EarthRadius
	return Pixel{
		X: v.scale * (0.5 + m[0]/circ),
		Y: v.scale * (0.5 - m[1]/circ),
	}
}

func (v viewport) project(p orb.Point) Pixel {
	w := v.world(p)
	return Pixel{X: w.X + v.translation.X, Y: w.Y + v.translation.Y}
}

func (v viewport) inside(p Pixel) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= v.size && p.Y <= v.size
}

// clip：保留首个与最后一个视口内点之间的连续区间，两端各外扩一个点
// 约束：没有任何点落在视口内时返回 false
func (v viewport) clip(points []orb.Point) ([]Pixel, bool) {
	px := make([]Pixel, len(points))
	first, last := -1, -1
	for i, p := range points {
		px[i] = v.project(p)
		if v.inside(px[i]) {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		return nil, false
	}
	if first > 0 {
		first--
	}
	if last < len(points)-1 {
		last++
	}
	out := make([]Pixel, 0, last-first+1)
	for _, p := range px[first : last+1] {
		out = append(out, Pixel{X: math.Round(p.X), Y: math.Round(p.Y)})
	}
	return out, true
}

// heading：屏幕坐标系下从 from 指向 to 的角度（度），y 轴向下所以取反
func heading(from, to Pixel) float64 {
	return math.Atan2(from.Y-to.Y, to.X-from.X) * 180 / math.Pi
}

// normalizeDegrees：归一到 [0,360)；-0 归为 0
func normalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	switch {
	case a == 0:
		return 0
	case a < 0:
		a += 360
	}
	if a >= 360 {
		return 0
	}
	return a
}

// Build：在已拉取的快照上生成图标几何
func (b *Builder) Build(anchor orb.Point, r *travel.Route, idx *osmdata.Index) (*Result, error) {
	loc, err := itinerary.LocateOnRoute(anchor, r)
	if err != nil {
		return nil, err
	}
	angle, err := itinerary.NeighborsAtMinAngleDistance(r, loc.Index, b.cfg.AngleDistance)
	if err != nil {
		return nil, err
	}
	points := r.Itinerary.Items()
	iconLatLng := itinerary.LatLng(loc.Point)
	vp := newViewport(b.cfg, iconLatLng)

	res := &Result{
		LatLng:      [2]float64{loc.Point.Lat, loc.Point.Lng},
		Translation: vp.translation,
		Distance:    loc.Distance,
		Size:        b.cfg.Size,
		Ways:        []Polyline{},
	}
	b.orient(res, vp, loc, angle, points)

	routePoints := make([]orb.Point, len(points))
	for i, p := range points {
		routePoints[i] = itinerary.LatLng(p)
	}
	if px, ok := vp.clip(routePoints); ok {
		res.Route = &Polyline{Points: px}
	}
	for _, w := range idx.OrderedWays() {
		if px, ok := vp.clip(idx.WayPoints(w)); ok {
			res.Ways = append(res.Ways, Polyline{Class: w.Tag("highway"), Points: px})
		}
	}

	streets, err := itinerary.NeighborsAtMinAngleDistance(r, loc.Index, 0)
	if err != nil {
		return nil, err
	}
	res.Streets, res.IncomingStreet, res.OutgoingStreet = passingStreets(idx, iconLatLng, streets)

	nodePlace := idx.NearestPlace(iconLatLng, b.cfg.PlaceRadii())
	res.City, res.Place = idx.Labels(nodePlace, b.lang)
	return res, nil
}

// orient：旋转使进入方向朝上，方向为离开点相对旋转后坐标系的角度
// 约束：锚点为首点时旋转由离开方向推得并置起点标志；锚点坐标与末点相同时方向缺省并置终点标志
func (b *Builder) orient(res *Result, vp viewport, loc itinerary.Location, n itinerary.Neighbors, points []*travel.ItineraryPoint) {
	center := vp.project(itinerary.LatLng(loc.Point))
	isFirst := loc.Index == 0
	isLastIndex := loc.Index == len(points)-1
	last := points[len(points)-1]

	rotation := 0.0
	if !isFirst {
		rotation = heading(center, vp.project(itinerary.LatLng(n.Incoming))) - 270
	}
	var direction *float64
	if !isLastIndex {
		d := normalizeDegrees(heading(center, vp.project(itinerary.LatLng(n.Outgoing))) - rotation)
		direction = &d
	}
	if isFirst {
		d := 0.0
		if direction != nil {
			d = *direction
		}
		rotation = -d - 90
		direction = nil
		res.StartStop = AtStart
	}
	if loc.Point.Lat == last.Lat && loc.Point.Lng == last.Lng {
		direction = nil
		res.StartStop = AtEnd
	}
	res.Rotation = normalizeDegrees(rotation)
	res.Direction = direction
}

// streetName：name 与 [ref] 组合
func streetName(w *osmdata.Element) string {
	name, ref := w.Tag("name"), w.Tag("ref")
	switch {
	case name != "" && ref != "":
		return name + " [" + ref + "]"
	case ref != "":
		return "[" + ref + "]"
	default:
		return name
	}
}

func nodeIndex(nodes []int64, id int64) (first, last int, found bool) {
	first, last = -1, -1
	for i, n := range nodes {
		if n == id {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	return first, last, first != -1
}

// passingStreets：按道路与锚点/进出点最近节点的从属关系归纳街道名
// 约束：列表首项为进入街道、末项为离开街道（可为空串）；
// 锚点在道路中段或道路闭合且无进出点时记两次，只含一个进出点时记一次；
// 锚点在非闭合道路端点且无进出点时记一次
func passingStreets(idx *osmdata.Index, icon orb.Point, n itinerary.Neighbors) (streets []string, incoming, outgoing string) {
	iconNode, ok := idx.NearestNode(icon)
	inNode, outNode := int64(0), int64(0)
	hasIn, hasOut := false, false
	if n.HasIncoming {
		inNode, hasIn = idx.NearestNode(itinerary.LatLng(n.Incoming))
	}
	if n.HasOutgoing {
		outNode, hasOut = idx.NearestNode(itinerary.LatLng(n.Outgoing))
	}

	var passing []string
	if ok {
		for _, w := range idx.WaysContainingNode(iconNode) {
			name := streetName(w)
			named := name != ""
			first, last, _ := nodeIndex(w.Nodes, iconNode)
			closed := len(w.Nodes) > 1 && w.Nodes[0] == w.Nodes[len(w.Nodes)-1]
			inOut := first != 0 && last != len(w.Nodes)-1
			_, _, isIn := nodeIndex(w.Nodes, inNode)
			_, _, isOut := nodeIndex(w.Nodes, outNode)
			isIn = isIn && hasIn
			isOut = isOut && hasOut

			if named {
				switch {
				case (inOut || closed) && !isIn && !isOut:
					passing = append(passing, name, name)
				case (inOut || closed) && isIn != isOut:
					passing = append(passing, name)
				case !inOut && !closed && !isIn && !isOut:
					passing = append(passing, name)
				}
			}
			label := name
			if !named {
				label = AnonymousStreet
			}
			if isIn {
				incoming = label
			}
			if isOut {
				outgoing = label
			}
		}
	}
	streets = make([]string, 0, len(passing)+2)
	streets = append(streets, incoming)
	streets = append(streets, passing...)
	streets = append(streets, outgoing)
	return streets, incoming, outgoing
}
