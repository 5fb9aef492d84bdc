// 包 notes：笔记在行程级集合与路线集合之间的挂接/解挂
// 背景：挂接时把笔记投影到最近路线的最近行程点上，并保持路线笔记按距离升序
// 约束：所有操作同步执行，调用方保证同一行程不会并发修改
package notes

import (
	"errors"
	"fmt"

	"travelnotes/internal/collection"
	"travelnotes/internal/itinerary"
	"travelnotes/internal/logger"
	"travelnotes/internal/travel"

	"github.com/paulmach/orb"
)

var (
	// ErrInvariantViolation：笔记既不在行程级集合也不在任何路线集合
	ErrInvariantViolation = errors.New("notes: invariant violation")
	// ErrOrderedByDistance：路线笔记按距离排序，不能手动调整顺序
	ErrOrderedByDistance = errors.New("notes: route notes are ordered by distance")
)

// Listener：渲染/界面协作方接收归属与距离变化的通知
type Listener interface {
	NoteAttached(note *travel.Note, route *travel.Route)
	NoteDetached(note *travel.Note)
	NoteDistanceChanged(note *travel.Note, route *travel.Route)
}

type nopListener struct{}

func (nopListener) NoteAttached(*travel.Note, *travel.Route)        {}
func (nopListener) NoteDetached(*travel.Note)                       {}
func (nopListener) NoteDistanceChanged(*travel.Note, *travel.Route) {}

type Manager struct {
	travel   *travel.Travel
	listener Listener
}

// NewManager：listener 为空时不发送通知
func NewManager(t *travel.Travel, l Listener) *Manager {
	if l == nil {
		l = nopListener{}
	}
	return &Manager{travel: t, listener: l}
}

// candidate：某条路线上的最近点
type candidate struct {
	route *travel.Route
	loc   itinerary.Location
}

// nearestRoute：地面距离最近的路线，距离相同取靠前的路线；没有可用路线返回 false
func (m *Manager) nearestRoute(p orb.Point) (candidate, bool) {
	var best candidate
	found := false
	for _, r := range m.travel.Routes.Items() {
		loc, err := itinerary.LocateOnRoute(p, r)
		if err != nil {
			continue
		}
		if !found || loc.Meters < best.loc.Meters {
			best = candidate{route: r, loc: loc}
			found = true
		}
	}
	return best, found
}

// Attach：把笔记挂到最近的路线
// 约束：行程没有路线或所有路线都没有行程点时不做任何修改；已挂接的笔记会被移动而不是复制
func (m *Manager) Attach(noteID string) error {
	note, owner, err := m.travel.FindNote(noteID)
	if err != nil {
		return fmt.Errorf("attach %s: %w", noteID, err)
	}
	c, ok := m.nearestRoute(orb.Point{note.Lng, note.Lat})
	if !ok {
		logger.L().Debug("note_attach_skip", "note", noteID, "reason", "no_route")
		return nil
	}
	if owner == nil {
		m.travel.Notes.Remove(noteID)
	} else {
		owner.Notes.Remove(noteID)
	}
	note.Lat = c.loc.Point.Lat
	note.Lng = c.loc.Point.Lng
	note.Distance = c.loc.Distance
	note.ChainedDistance = c.route.ChainedDistance
	c.route.Notes.Add(note)
	c.route.SortNotes()
	logger.L().Debug("note_attached", "note", noteID, "route", c.route.ID, "distance", note.Distance)
	m.listener.NoteAttached(note, c.route)
	return nil
}

// Detach：从所属路线解挂回行程级集合
func (m *Manager) Detach(noteID string) error {
	if m.travel.Notes.Contains(noteID) {
		return nil
	}
	for _, r := range m.travel.Routes.Items() {
		note, err := r.Notes.Get(noteID)
		if err != nil {
			continue
		}
		r.Notes.Remove(noteID)
		note.Distance = travel.Unattached
		note.ChainedDistance = 0
		m.travel.Notes.Add(note)
		logger.L().Debug("note_detached", "note", noteID, "route", r.ID)
		m.listener.NoteDetached(note)
		return nil
	}
	logger.L().Error("note_invariant_violation", "note", noteID, "op", "detach")
	return fmt.Errorf("%w: note %s: %w", ErrInvariantViolation, noteID, collection.ErrNotFound)
}

// Move：更新笔记锚点；已挂接时重新投影到所属路线并重排
func (m *Manager) Move(noteID string, lat, lng float64) error {
	note, owner, err := m.travel.FindNote(noteID)
	if err != nil {
		return fmt.Errorf("move %s: %w", noteID, err)
	}
	if owner == nil {
		note.Lat, note.Lng = lat, lng
		return nil
	}
	loc, err := itinerary.LocateOnRoute(orb.Point{lng, lat}, owner)
	if err != nil {
		return fmt.Errorf("move %s: %w", noteID, err)
	}
	note.Lat = loc.Point.Lat
	note.Lng = loc.Point.Lng
	note.Distance = loc.Distance
	owner.SortNotes()
	m.listener.NoteDistanceChanged(note, owner)
	return nil
}

// Reorder：调整行程级笔记的顺序；路线笔记始终按距离排序，不允许手动重排
func (m *Manager) Reorder(noteID, targetID string, before bool) error {
	return m.travel.Notes.MoveTo(noteID, targetID, before)
}

// Swap：行程级笔记与前一个（up=true）或后一个交换
func (m *Manager) Swap(noteID string, up bool) error {
	note, _, err := m.travel.FindNote(noteID)
	if err != nil {
		return fmt.Errorf("swap %s: %w", noteID, err)
	}
	if note.IsAttached() {
		return fmt.Errorf("swap %s: %w", noteID, ErrOrderedByDistance)
	}
	return m.travel.Notes.Swap(noteID, up)
}
