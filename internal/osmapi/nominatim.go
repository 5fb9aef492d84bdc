package osmapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"travelnotes/internal/logger"
	"travelnotes/internal/metrics"

	"golang.org/x/time/rate"
)

// NominatimAddress：反向地理编码响应中用到的字段
type NominatimAddress struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	Pedestrian  string `json:"pedestrian"`
	Country     string `json:"country"`
}

type NominatimResponse struct {
	Error       string            `json:"error"`
	DisplayName string            `json:"display_name"`
	Address     NominatimAddress  `json:"address"`
	NameDetails map[string]string `json:"namedetails"`
}

// Nominatim：反向地理编码客户端
type Nominatim struct {
	base      string
	language  string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewNominatim：base 为服务根路径；language 为 "*" 时发送空的 accept-language
func NewNominatim(base, language string, opts ...Option) *Nominatim {
	o := buildOptions(opts)
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Nominatim{base: base, language: language, client: o.client, limiter: o.limiter, userAgent: o.userAgent}
}

// Reverse：查询坐标对应的地址
// 约束：响应体中的 error 字段不视为抓取失败，由调用方判断
func (c *Nominatim) Reverse(ctx context.Context, lat, lon float64) (*NominatimResponse, error) {
	if err := wait(ctx, c.limiter, "nominatim"); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")
	q.Set("namedetails", "1")
	if c.language != "" && c.language != "*" {
		q.Set("accept-language", c.language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Service: "nominatim", Reason: "bad request", Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.language == "*" {
		req.Header.Set("Accept-Language", "")
	}

	t0 := time.Now()
	logger.L().Debug("nominatim_req", "lat", lat, "lon", lon)
	resp, err := c.client.Do(req)
	if err != nil {
		logger.L().Error("nominatim_http_error", "err", err)
		metrics.OSMRequestsTotal.WithLabelValues("nominatim", "error").Inc()
		return nil, classify("nominatim", err)
	}
	defer resp.Body.Close()
	metrics.OSMRequestsTotal.WithLabelValues("nominatim", strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		logger.L().Error("nominatim_status_error", "status", resp.StatusCode)
		return nil, &FetchError{Service: "nominatim", Status: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}
	var r NominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		if ctx.Err() != nil {
			return nil, classify("nominatim", ctx.Err())
		}
		logger.L().Error("nominatim_decode_error", "err", err)
		return nil, &FetchError{Service: "nominatim", Status: resp.StatusCode, Reason: "parse error", Err: err}
	}
	dur := time.Since(t0).Milliseconds()
	metrics.OSMDurationMs.WithLabelValues("nominatim").Observe(float64(dur))
	logger.L().Debug("nominatim_resp", "road", r.Address.Road, "country", r.Address.Country, "duration_ms", dur)
	return &r, nil
}
