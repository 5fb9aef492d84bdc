// 包 osmdata：Overpass 返回的原始地图元素与其索引
// 背景：每次图标生成都会拿到一份只读快照（节点/道路/行政区），在此建立按 ID 的查找表与地名候选
package osmdata

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"
)

const (
	TypeNode = "node"
	TypeWay  = "way"
	TypeArea = "area"
)

// Element：Overpass JSON 中 elements 数组的一项
// 约束：node 使用 Lat/Lon，way 使用 Nodes（节点 ID 列表），area 只有 Tags
type Element struct {
	Type  string            `json:"type" msgpack:"type"`
	ID    int64             `json:"id" msgpack:"id"`
	Lat   float64           `json:"lat,omitempty" msgpack:"lat,omitempty"`
	Lon   float64           `json:"lon,omitempty" msgpack:"lon,omitempty"`
	Nodes []int64           `json:"nodes,omitempty" msgpack:"nodes,omitempty"`
	Tags  map[string]string `json:"tags,omitempty" msgpack:"tags,omitempty"`
}

func (e *Element) Point() orb.Point { return orb.Point{e.Lon, e.Lat} }

func (e *Element) Tag(k string) string {
	if e.Tags == nil {
		return ""
	}
	return e.Tags[k]
}

// Payload：一次请求的完整响应
type Payload struct {
	Version   float64   `json:"version,omitempty" msgpack:"version,omitempty"`
	Generator string    `json:"generator,omitempty" msgpack:"generator,omitempty"`
	Remark    string    `json:"remark,omitempty" msgpack:"remark,omitempty"`
	Elements  []Element `json:"elements" msgpack:"elements"`
}

// Decode：解析 Overpass JSON
// 约束：缺少 elements 字段视为格式错误
func Decode(r io.Reader) (*Payload, error) {
	var raw struct {
		Payload
		Elements *[]Element `json:"elements"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode overpass payload: %w", err)
	}
	if raw.Elements == nil {
		return nil, fmt.Errorf("decode overpass payload: missing elements")
	}
	p := raw.Payload
	p.Elements = *raw.Elements
	return &p, nil
}
