package osmdata

import "strconv"

const (
	// CountryAdminLevel：OSM 国家级 admin_level
	CountryAdminLevel = 2
	// CityAdminLevel：不大于该级别的行政区视为城市，更细的级别视为地名
	CityAdminLevel = 8
)

// Admin：行政区解析结果
type Admin struct {
	City    string
	Place   string
	Country string
}

// areaName：lang 非空且不为 "*" 时优先使用 name:<lang>
func areaName(e *Element, lang string) string {
	if lang != "" && lang != "*" {
		if v := e.Tag("name:" + lang); v != "" {
			return v
		}
	}
	return e.Tag("name")
}

// ResolveAdmin：按 admin_level 归并行政区名称
// 约束：同一级别后出现的覆盖先出现的；从国家级开始向细级扫描，城市取最细的 ≤8 级，地名取最细的 >8 级
func (idx *Index) ResolveAdmin(lang string) Admin {
	byLevel := map[int]string{}
	maxLevel := 0
	for _, a := range idx.Areas {
		lvl, err := strconv.Atoi(a.Tag("admin_level"))
		if err != nil || lvl < 0 {
			continue
		}
		byLevel[lvl] = areaName(a, lang)
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}
	var out Admin
	out.Country = byLevel[CountryAdminLevel]
	for lvl := CountryAdminLevel; lvl <= maxLevel; lvl++ {
		name, ok := byLevel[lvl]
		if !ok {
			continue
		}
		if lvl <= CityAdminLevel {
			out.City = name
		} else {
			out.Place = name
		}
	}
	return out
}

// Labels：城市名与地名
// 背景：城市优先取行政区解析结果，缺失时回退到第一个带 boundary 与 name 的区域；
// 行政区给出的细级地名优先于最近的地名节点；地名与城市同名时不重复显示
func (idx *Index) Labels(nodePlace, lang string) (city, place string) {
	adm := idx.ResolveAdmin(lang)
	city = adm.City
	if city == "" {
		city = idx.CityHint
	}
	place = adm.Place
	if place == "" {
		place = nodePlace
	}
	if place == city {
		place = ""
	}
	return city, place
}
