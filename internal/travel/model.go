// 包 travel：行程聚合的内存模型（行程 → 路线 → 行程点/航点/笔记）
// 背景：路线与行程点由外部路线源计算后传入，本包只维护归属关系与顺序，不做路径规划
package travel

import (
	"travelnotes/internal/collection"

	"github.com/google/uuid"
)

// Unattached：笔记未挂接到任何路线时的 Distance 取值
const Unattached = -1.0

func newID() string { return uuid.NewString() }

// ItineraryPoint：路线上的行程点，Distance 为到下一个点的距离（米）
type ItineraryPoint struct {
	ID       string  `json:"objId"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Distance float64 `json:"distance"`
}

func (p *ItineraryPoint) ObjID() string { return p.ID }

func (p *ItineraryPoint) EnsureID() {
	if p.ID == "" {
		p.ID = newID()
	}
}

func NewItineraryPoint(lat, lng, distance float64) *ItineraryPoint {
	return &ItineraryPoint{ID: newID(), Lat: lat, Lng: lng, Distance: distance}
}

// WayPoint：路线的起点/终点/途经点，用户拖动时位置会变
type WayPoint struct {
	ID   string  `json:"objId"`
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

func (w *WayPoint) ObjID() string { return w.ID }

func (w *WayPoint) EnsureID() {
	if w.ID == "" {
		w.ID = newID()
	}
}

func NewWayPoint(lat, lng float64) *WayPoint {
	return &WayPoint{ID: newID(), Lat: lat, Lng: lng}
}

// Note：旅行笔记
// 约束：Distance == Unattached 当且仅当笔记位于行程级集合；否则为沿路线的距离且所在路线集合按距离升序
type Note struct {
	ID              string  `json:"objId"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	IconLat         float64 `json:"iconLat"`
	IconLng         float64 `json:"iconLng"`
	IconWidth       int     `json:"iconWidth,omitempty"`
	IconHeight      int     `json:"iconHeight,omitempty"`
	Distance        float64 `json:"distance"`
	ChainedDistance float64 `json:"chainedDistance"`
	IconContent     string  `json:"iconContent,omitempty"`
	TooltipContent  string  `json:"tooltipContent,omitempty"`
	PopupContent    string  `json:"popupContent,omitempty"`
	Address         string  `json:"address,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	URL             string  `json:"url,omitempty"`
}

func (n *Note) ObjID() string { return n.ID }

func (n *Note) EnsureID() {
	if n.ID == "" {
		n.ID = newID()
	}
}

func (n *Note) IsAttached() bool { return n.Distance != Unattached }

// NewNote：新笔记默认未挂接，图标位置与锚点重合
func NewNote(lat, lng float64) *Note {
	return &Note{ID: newID(), Lat: lat, Lng: lng, IconLat: lat, IconLng: lng, Distance: Unattached}
}

// Route：路线，拥有行程点、航点与已挂接笔记
type Route struct {
	ID              string                                   `json:"objId"`
	Name            string                                   `json:"name"`
	Color           string                                   `json:"color"`
	Width           int                                      `json:"width"`
	Chain           bool                                     `json:"chain"`
	ChainedDistance float64                                  `json:"chainedDistance"`
	Itinerary       *collection.Collection[*ItineraryPoint] `json:"itineraryPoints"`
	WayPoints       *collection.Collection[*WayPoint]       `json:"wayPoints"`
	Notes           *collection.Collection[*Note]           `json:"notes"`
}

func (r *Route) ObjID() string { return r.ID }

func (r *Route) EnsureID() {
	if r.ID == "" {
		r.ID = newID()
	}
}

func NewRoute(name string) *Route {
	return &Route{
		ID:        newID(),
		Name:      name,
		Color:     "#ff0000",
		Width:     5,
		Itinerary: collection.New[*ItineraryPoint](),
		WayPoints: collection.New[*WayPoint](),
		Notes:     collection.New[*Note](),
	}
}

// DistanceChain：路线行程点的累计距离视图
func (r *Route) DistanceChain() DistanceChain { return NewDistanceChain(r.Itinerary) }

// SortNotes：按沿路线距离升序重排已挂接笔记
func (r *Route) SortNotes() {
	r.Notes.Sort(func(a, b *Note) bool { return a.Distance < b.Distance })
}

// Travel：根聚合，同一时刻只有一个活动行程
type Travel struct {
	ID       string                         `json:"objId"`
	Name     string                         `json:"name"`
	Routes   *collection.Collection[*Route] `json:"routes"`
	Notes    *collection.Collection[*Note]  `json:"notes"`
	UserData map[string]any                 `json:"userData,omitempty"`
}

func (t *Travel) ObjID() string { return t.ID }

func New(name string) *Travel {
	return &Travel{
		ID:       newID(),
		Name:     name,
		Routes:   collection.New[*Route](),
		Notes:    collection.New[*Note](),
		UserData: map[string]any{},
	}
}

// Normalize：补齐反序列化后缺失的集合与 ID
// 背景：外部路线源可能省略空数组或 objId
func (t *Travel) Normalize() {
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Routes == nil {
		t.Routes = collection.New[*Route]()
	}
	if t.Notes == nil {
		t.Notes = collection.New[*Note]()
	}
	if t.UserData == nil {
		t.UserData = map[string]any{}
	}
	for _, n := range t.Notes.Items() {
		n.Distance = Unattached
		n.ChainedDistance = 0
	}
	for _, r := range t.Routes.Items() {
		if r.Itinerary == nil {
			r.Itinerary = collection.New[*ItineraryPoint]()
		}
		if r.WayPoints == nil {
			r.WayPoints = collection.New[*WayPoint]()
		}
		if r.Notes == nil {
			r.Notes = collection.New[*Note]()
		}
		r.SortNotes()
	}
}

// FindNote：在行程级集合与各路线集合中查找笔记，route 为 nil 表示位于行程级集合
func (t *Travel) FindNote(id string) (note *Note, route *Route, err error) {
	if n, e := t.Notes.Get(id); e == nil {
		return n, nil, nil
	}
	for _, r := range t.Routes.Items() {
		if n, e := r.Notes.Get(id); e == nil {
			return n, r, nil
		}
	}
	return nil, nil, collection.ErrNotFound
}

// ChainDistances：重算串联路线的累计偏移并同步到其笔记
// 约束：仅 Chain=true 的路线参与累加，其余路线偏移为 0
func (t *Travel) ChainDistances() {
	offset := 0.0
	for _, r := range t.Routes.Items() {
		if !r.Chain {
			r.ChainedDistance = 0
		} else {
			r.ChainedDistance = offset
			offset += r.DistanceChain().Total()
		}
		for _, n := range r.Notes.Items() {
			n.ChainedDistance = r.ChainedDistance
		}
	}
}
