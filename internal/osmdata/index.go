package osmdata

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// PlaceClasses：参与地名标注的 place 取值
var PlaceClasses = []string{"hamlet", "village", "city", "town"}

func isPlaceClass(v string) bool {
	for _, c := range PlaceClasses {
		if c == v {
			return true
		}
	}
	return false
}

// placeEntry：R-Tree 中的地名节点
type placeEntry struct {
	node *Element
	seq  int
}

// Bounds：rtreego.Spatial 接口，节点以极小矩形入树
func (p placeEntry) Bounds() rtreego.Rect {
	return rtreego.Point{p.node.Lon, p.node.Lat}.ToRect(1e-9)
}

// Index：单次快照上的查找结构
// 约束：只读；构建后不再修改原始元素
type Index struct {
	Nodes    map[int64]*Element
	Ways     map[int64]*Element
	Places   []*Element
	Areas    []*Element
	CityHint string

	nodeOrder []int64
	wayOrder  []int64
	places    *rtreego.Rtree
}

// NewIndex：一次遍历建立节点/道路表、地名候选与行政区列表
func NewIndex(elements []Element) *Index {
	idx := &Index{
		Nodes:  make(map[int64]*Element),
		Ways:   make(map[int64]*Element),
		places: rtreego.NewTree(2, 4, 16),
	}
	for i := range elements {
		e := &elements[i]
		switch e.Type {
		case TypeArea:
			idx.Areas = append(idx.Areas, e)
			if idx.CityHint == "" && e.Tag("boundary") != "" && e.Tag("name") != "" {
				idx.CityHint = e.Tag("name")
			}
		case TypeWay:
			if _, ok := idx.Ways[e.ID]; !ok {
				idx.wayOrder = append(idx.wayOrder, e.ID)
			}
			idx.Ways[e.ID] = e
		case TypeNode:
			if _, ok := idx.Nodes[e.ID]; !ok {
				idx.nodeOrder = append(idx.nodeOrder, e.ID)
			}
			idx.Nodes[e.ID] = e
			if isPlaceClass(e.Tag("place")) {
				idx.places.Insert(placeEntry{node: e, seq: len(idx.Places)})
				idx.Places = append(idx.Places, e)
			}
		}
	}
	return idx
}

// NearestNode：线性扫描最近节点，距离相同保留先出现者；没有节点返回 false
func (idx *Index) NearestNode(p orb.Point) (int64, bool) {
	bestID := int64(0)
	bestD := math.MaxFloat64
	found := false
	for _, id := range idx.nodeOrder {
		d := geo.DistanceHaversine(p, idx.Nodes[id].Point())
		if d < bestD {
			bestD = d
			bestID = id
			found = true
		}
	}
	return bestID, found
}

// WaysContainingNode：按输入顺序返回节点列表中包含该节点的道路
func (idx *Index) WaysContainingNode(nodeID int64) []*Element {
	var out []*Element
	for _, id := range idx.wayOrder {
		w := idx.Ways[id]
		for _, n := range w.Nodes {
			if n == nodeID {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

// OrderedWays：按输入顺序返回全部道路
func (idx *Index) OrderedWays() []*Element {
	out := make([]*Element, 0, len(idx.wayOrder))
	for _, id := range idx.wayOrder {
		out = append(out, idx.Ways[id])
	}
	return out
}

// WayPoints：道路节点坐标，缺失的节点跳过
func (idx *Index) WayPoints(w *Element) []orb.Point {
	out := make([]orb.Point, 0, len(w.Nodes))
	for _, id := range w.Nodes {
		if n, ok := idx.Nodes[id]; ok {
			out = append(out, n.Point())
		}
	}
	return out
}

// PlacesWithin：R-Tree 包围盒粗筛后按地面距离精确过滤，结果按输入顺序
func (idx *Index) PlacesWithin(p orb.Point, meters float64) []*Element {
	if len(idx.Places) == 0 || meters <= 0 {
		return nil
	}
	b := geo.NewBoundAroundPoint(p, meters)
	rect, err := rtreego.NewRect(rtreego.Point{b.Min.Lon(), b.Min.Lat()}, []float64{
		math.Max(b.Max.Lon()-b.Min.Lon(), 1e-9),
		math.Max(b.Max.Lat()-b.Min.Lat(), 1e-9),
	})
	if err != nil {
		return nil
	}
	hits := idx.places.SearchIntersect(rect)
	picked := make([]bool, len(idx.Places))
	for _, h := range hits {
		pe := h.(placeEntry)
		if geo.DistanceHaversine(p, pe.node.Point()) < meters {
			picked[pe.seq] = true
		}
	}
	var out []*Element
	for i, ok := range picked {
		if ok {
			out = append(out, idx.Places[i])
		}
	}
	return out
}

// NearestPlace：每个 place 类别在各自半径内取最近的具名节点，再在类别之间取最近者
// 约束：radii 中缺失或非正的类别不参与；找不到返回空串
func (idx *Index) NearestPlace(p orb.Point, radii map[string]float64) string {
	best := ""
	bestD := math.MaxFloat64
	for _, class := range PlaceClasses {
		r := radii[class]
		if r <= 0 {
			continue
		}
		for _, n := range idx.PlacesWithin(p, r) {
			if n.Tag("place") != class || n.Tag("name") == "" {
				continue
			}
			if d := geo.DistanceHaversine(p, n.Point()); d < bestD {
				bestD = d
				best = n.Tag("name")
			}
		}
	}
	return best
}
