package travel

import "travelnotes/internal/collection"

// DistanceChain：按需计算"从路线起点到某行程点"的累计距离
// 背景：行程点读多写少，查询时前缀求和，不缓存，避免中途增删点后失效
// 约束：距离单位为米且非负；空序列对任何点返回 0
type DistanceChain struct {
	points *collection.Collection[*ItineraryPoint]
}

func NewDistanceChain(points *collection.Collection[*ItineraryPoint]) DistanceChain {
	return DistanceChain{points: points}
}

// DistanceAt：id 之前所有点的 Distance 之和
func (c DistanceChain) DistanceAt(id string) (float64, error) {
	if c.points == nil || c.points.Len() == 0 {
		return 0, nil
	}
	sum := 0.0
	for _, p := range c.points.Items() {
		if p.ID == id {
			return sum, nil
		}
		sum += p.Distance
	}
	return 0, collection.ErrNotFound
}

// Cumulative：与行程点一一对应的累计距离
func (c DistanceChain) Cumulative() []float64 {
	if c.points == nil {
		return nil
	}
	items := c.points.Items()
	out := make([]float64, len(items))
	sum := 0.0
	for i, p := range items {
		out[i] = sum
		sum += p.Distance
	}
	return out
}

// Total：路线全长，最后一个点的 Distance 不计入
func (c DistanceChain) Total() float64 {
	cum := c.Cumulative()
	if len(cum) == 0 {
		return 0
	}
	return cum[len(cum)-1]
}
