// 包 geocoder：坐标 → 名称/街道/城市
// 背景：Nominatim 提供门牌与街道，Overpass 提供行政区与地名；两者并行，任一成功即可给出结果
package geocoder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"travelnotes/internal/config"
	"travelnotes/internal/logger"
	"travelnotes/internal/osmapi"
	"travelnotes/internal/osmdata"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
)

// Address：地理编码结果
type Address struct {
	Name   string `json:"name"`
	Street string `json:"street"`
	City   string `json:"city"`
}

// Reverser：Nominatim 反向地理编码
type Reverser interface {
	Reverse(ctx context.Context, lat, lon float64) (*osmapi.NominatimResponse, error)
}

// Fetcher：Overpass 查询
type Fetcher interface {
	Fetch(ctx context.Context, query string) (*osmdata.Payload, error)
}

type Geocoder struct {
	nominatim Reverser
	overpass  Fetcher
	cfg       config.Icon
	lang      string
}

func New(n Reverser, o Fetcher, cfg config.Icon, lang string) *Geocoder {
	return &Geocoder{nominatim: n, overpass: o, cfg: cfg, lang: lang}
}

// Reverse：并行查询两个来源后合并
// 约束：两个请求都会等到结束（不因一方失败取消另一方）；两方都失败才返回错误
func (g *Geocoder) Reverse(ctx context.Context, lat, lon float64) (Address, error) {
	if g.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.FetchTimeout)
		defer cancel()
	}
	var (
		nom     *osmapi.NominatimResponse
		payload *osmdata.Payload
		nomErr  error
		overErr error
		eg      errgroup.Group
	)
	eg.Go(func() error {
		nom, nomErr = g.nominatim.Reverse(ctx, lat, lon)
		return nil
	})
	eg.Go(func() error {
		payload, overErr = g.overpass.Fetch(ctx, osmapi.AddressQuery(lat, lon, g.cfg))
		return nil
	})
	_ = eg.Wait()

	if nomErr != nil && overErr != nil {
		logger.L().Warn("geocode_failed", "lat", lat, "lon", lon, "nominatim_err", nomErr, "overpass_err", overErr)
		return Address{}, fmt.Errorf("geocode: %w", errors.Join(nomErr, overErr))
	}
	if nomErr != nil {
		logger.L().Debug("geocode_nominatim_failed", "err", nomErr)
	}
	if overErr != nil {
		logger.L().Debug("geocode_overpass_failed", "err", overErr)
	}

	var city, place, country string
	if payload != nil {
		idx := osmdata.NewIndex(payload.Elements)
		adm := idx.ResolveAdmin(g.lang)
		nodePlace := idx.NearestPlace(orb.Point{lon, lat}, g.cfg.PlaceRadii())
		city = adm.City
		place = adm.Place
		if place == "" {
			place = nodePlace
		}
		if place == city {
			place = ""
		}
		country = adm.Country
	}
	return merge(nom, city, place, country), nil
}

// merge：组合街道、城市与名称
// 约束：无街道且无城市时回退到国家；名称被街道或城市包含时丢弃
func merge(nom *osmapi.NominatimResponse, city, place, overpassCountry string) Address {
	if place != "" {
		city += " (" + place + ")"
	}
	street, name, country := "", "", ""
	if nom != nil && nom.Error == "" {
		a := nom.Address
		if a.HouseNumber != "" {
			street += a.HouseNumber + " "
		}
		switch {
		case a.Road != "":
			street += a.Road + " "
		case a.Pedestrian != "":
			street += a.Pedestrian + " "
		}
		street = strings.TrimSpace(street)
		name = nom.NameDetails["name"]
		country = a.Country
	}
	if street == "" && city == "" {
		city = country
		if city == "" {
			city = overpassCountry
		}
	}
	if name != "" && (strings.Contains(street, name) || strings.Contains(city, name)) {
		name = ""
	}
	return Address{Name: name, Street: street, City: city}
}
