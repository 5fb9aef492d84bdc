// 包 config：集中读取环境变量配置（.env 由 godotenv 预先加载）
// 约束：数值解析失败或非正时回退到默认值，不中断启动
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Icon：图标生成参数
type Icon struct {
	Size          int     // 图标边长（像素）
	Zoom          int     // 投影缩放级别
	AngleDistance float64 // 计算旋转/方向时参考点与锚点的最小距离（米）
	// 各类地名的搜索半径（米）
	HamletDistance  float64
	VillageDistance float64
	CityDistance    float64
	TownDistance    float64
	FetchTimeout    time.Duration
}

// PlaceRadii：按 place 类别组织的半径表
func (i Icon) PlaceRadii() map[string]float64 {
	return map[string]float64{
		"hamlet":  i.HamletDistance,
		"village": i.VillageDistance,
		"city":    i.CityDistance,
		"town":    i.TownDistance,
	}
}

// MaxPlaceDistance：最大的地名半径，用于地理编码查询
func (i Icon) MaxPlaceDistance() float64 {
	m := 0.0
	for _, v := range i.PlaceRadii() {
		if v > m {
			m = v
		}
	}
	return m
}

type Config struct {
	Addr    string
	APIBase string

	Icon Icon

	OverpassURL  string
	NominatimURL string
	Language     string
	OSMRPS       float64
	CacheTTL     time.Duration
	CacheSize    int
	UserAgent    string
}

// Load：加载 .env 文件后读取环境变量
func Load() Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		Addr:    envStr("ADDR", ":8080"),
		APIBase: envStr("API_BASE", "/api"),
		Icon: Icon{
			Size:            envInt("ICON_SIZE", 200),
			Zoom:            envInt("ICON_ZOOM", 17),
			AngleDistance:   envFloat("ICON_ANGLE_DISTANCE_M", 10),
			HamletDistance:  envFloat("HAMLET_DISTANCE_M", 200),
			VillageDistance: envFloat("VILLAGE_DISTANCE_M", 400),
			CityDistance:    envFloat("CITY_DISTANCE_M", 1200),
			TownDistance:    envFloat("TOWN_DISTANCE_M", 1500),
			FetchTimeout:    time.Duration(envInt("FETCH_TIMEOUT_MS", 15000)) * time.Millisecond,
		},
		OverpassURL:  envStr("OVERPASS_URL", "https://lz4.overpass-api.de/api/interpreter"),
		NominatimURL: envStr("NOMINATIM_URL", "https://nominatim.openstreetmap.org/"),
		Language:     envStr("NOMINATIM_LANGUAGE", "*"),
		OSMRPS:       envFloat("OSM_RPS", 1),
		CacheTTL:     time.Duration(envInt("CACHE_TTL_S", 3600)) * time.Second,
		CacheSize:    envInt("CACHE_SIZE", 256),
		UserAgent:    envStr("USER_AGENT", "travelnotes/1.0"),
	}
}

func envStr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			return n
		}
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if s := os.Getenv(k); s != "" {
		if f, e := strconv.ParseFloat(s, 64); e == nil && f > 0 {
			return f
		}
	}
	return def
}
