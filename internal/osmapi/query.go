package osmapi

import (
	"fmt"
	"math"
	"strings"
	"time"

	"travelnotes/internal/config"
)

func latLng(lat, lon float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lon)
}

func timeoutSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// IconQuery：图标所需数据
// 背景：图标边长 1.5 倍半径内的道路及其节点、所在行政区、按类别半径筛选的地名节点
func IconQuery(lat, lon float64, cfg config.Icon) string {
	at := latLng(lat, lon)
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];", timeoutSeconds(cfg.FetchTimeout))
	fmt.Fprintf(&b, "way[highway](around:%.0f,%s)->.a;(.a >;.a;)->.a;.a out;", float64(cfg.Size)*1.5, at)
	fmt.Fprintf(&b, "is_in(%s)->.e;area.e[admin_level][boundary=\"administrative\"]->.f;.f out;", at)
	b.WriteString("(")
	for _, c := range []struct {
		class  string
		radius float64
	}{
		{"hamlet", cfg.HamletDistance},
		{"village", cfg.VillageDistance},
		{"city", cfg.CityDistance},
		{"town", cfg.TownDistance},
	} {
		fmt.Fprintf(&b, "node(around:%.0f,%s)[place=\"%s\"];", c.radius, at, c.class)
	}
	b.WriteString(")->.l;.l out;")
	return b.String()
}

// AddressQuery：地理编码所需的行政区与最大半径内的地名节点
func AddressQuery(lat, lon float64, cfg config.Icon) string {
	at := latLng(lat, lon)
	return fmt.Sprintf(
		"[out:json][timeout:%d];is_in(%s)->.e;area.e[admin_level][boundary=\"administrative\"]->.f;"+
			"node(around:%.0f,%s)[place]->.g;(.f;.g;)->.h;.h out;",
		timeoutSeconds(cfg.FetchTimeout), at, cfg.MaxPlaceDistance(), at)
}
