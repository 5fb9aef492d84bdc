// 包 collection：按插入顺序保存对象的通用容器，以对象 ID 为键
// 背景：行程、路线、航点、行程点与笔记都需要"有序 + 按 ID 查找 + 前后查找 + 重排"，统一在此实现
package collection

import (
	"encoding/json"
	"errors"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrNotFound：ID 不在集合中
	ErrNotFound = errors.New("collection: object not found")
	// ErrEmptyCollection：对空集合取首/尾元素
	ErrEmptyCollection = errors.New("collection: empty collection")
)

// Identified：集合元素需提供稳定的对象 ID
type Identified interface {
	ObjID() string
}

// Collection：有序集合
// 约束：非并发安全，由持有者（行程聚合）串行访问
type Collection[T Identified] struct {
	om *orderedmap.OrderedMap[string, T]
}

func New[T Identified]() *Collection[T] {
	return &Collection[T]{om: orderedmap.New[string, T]()}
}

// Add：追加到末尾；同 ID 已存在时替换内容但保持原位置
func (c *Collection[T]) Add(item T) {
	c.om.Set(item.ObjID(), item)
}

// Remove：删除元素，ID 不存在时静默返回
func (c *Collection[T]) Remove(id string) {
	c.om.Delete(id)
}

func (c *Collection[T]) Get(id string) (T, error) {
	v, ok := c.om.Get(id)
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return v, nil
}

func (c *Collection[T]) Contains(id string) bool {
	_, ok := c.om.Get(id)
	return ok
}

func (c *Collection[T]) Len() int { return c.om.Len() }

func (c *Collection[T]) First() (T, error) {
	p := c.om.Oldest()
	if p == nil {
		var zero T
		return zero, ErrEmptyCollection
	}
	return p.Value, nil
}

func (c *Collection[T]) Last() (T, error) {
	p := c.om.Newest()
	if p == nil {
		var zero T
		return zero, ErrEmptyCollection
	}
	return p.Value, nil
}

// Items：按集合顺序返回快照切片，修改切片不影响集合
func (c *Collection[T]) Items() []T {
	out := make([]T, 0, c.om.Len())
	for p := c.om.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// IndexOf：返回位置，未找到返回 -1
func (c *Collection[T]) IndexOf(id string) int {
	i := 0
	for p := c.om.Oldest(); p != nil; p = p.Next() {
		if p.Key == id {
			return i
		}
		i++
	}
	return -1
}

// Previous：从 id 所在元素向前扫描，返回第一个被 accept 接受的元素
// 约束：accept 为 nil 时接受任意元素；id 不存在或没有满足条件的元素时返回 false
func (c *Collection[T]) Previous(id string, accept func(T) bool) (T, bool) {
	return c.scan(id, accept, func(p *orderedmap.Pair[string, T]) *orderedmap.Pair[string, T] { return p.Prev() })
}

// Next：从 id 所在元素向后扫描，规则同 Previous
func (c *Collection[T]) Next(id string, accept func(T) bool) (T, bool) {
	return c.scan(id, accept, func(p *orderedmap.Pair[string, T]) *orderedmap.Pair[string, T] { return p.Next() })
}

func (c *Collection[T]) scan(id string, accept func(T) bool, step func(*orderedmap.Pair[string, T]) *orderedmap.Pair[string, T]) (T, bool) {
	var zero T
	p := c.om.GetPair(id)
	if p == nil {
		return zero, false
	}
	for p = step(p); p != nil; p = step(p) {
		if accept == nil || accept(p.Value) {
			return p.Value, true
		}
	}
	return zero, false
}

// MoveTo：把 movedID 移动到 targetID 之前（before=true）或之后
// 约束：集合大小不变，其余元素相对顺序不变；任一 ID 缺失返回 ErrNotFound
func (c *Collection[T]) MoveTo(movedID, targetID string, before bool) error {
	if !c.Contains(movedID) || !c.Contains(targetID) {
		return ErrNotFound
	}
	if movedID == targetID {
		return nil
	}
	var err error
	if before {
		err = c.om.MoveBefore(movedID, targetID)
	} else {
		err = c.om.MoveAfter(movedID, targetID)
	}
	if err != nil {
		return ErrNotFound
	}
	return nil
}

// Swap：与前一个（up=true）或后一个元素交换位置；已在边界时不动
func (c *Collection[T]) Swap(id string, up bool) error {
	p := c.om.GetPair(id)
	if p == nil {
		return ErrNotFound
	}
	if up {
		if prev := p.Prev(); prev != nil {
			return c.MoveTo(id, prev.Key, true)
		}
		return nil
	}
	if next := p.Next(); next != nil {
		return c.MoveTo(id, next.Key, false)
	}
	return nil
}

// Sort：稳定排序后按新顺序重建
func (c *Collection[T]) Sort(less func(a, b T) bool) {
	items := c.Items()
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	c.rebuild(items)
}

func (c *Collection[T]) rebuild(items []T) {
	om := orderedmap.New[string, T](len(items))
	for _, it := range items {
		om.Set(it.ObjID(), it)
	}
	c.om = om
}

// MarshalJSON：按集合顺序序列化为数组
func (c *Collection[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Items())
}

// IDAssigner：反序列化时为缺少 ID 的元素补齐 ID
type IDAssigner interface {
	EnsureID()
}

// UnmarshalJSON：按数组顺序追加，覆盖原内容
func (c *Collection[T]) UnmarshalJSON(b []byte) error {
	var items []T
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	for _, it := range items {
		if a, ok := any(it).(IDAssigner); ok {
			a.EnsureID()
		}
	}
	c.rebuild(items)
	return nil
}
