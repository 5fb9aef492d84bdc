// 包 osmapi：Overpass 与 Nominatim 的 HTTP 客户端
// 背景：图标与地理编码共享同一套限速、缓存与错误分类
package osmapi

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrFetchTimeout：请求超过期限
	ErrFetchTimeout = errors.New("osmapi: fetch timeout")
	// ErrFetchFailed：传输错误、非 200 状态或响应无法解析
	ErrFetchFailed = errors.New("osmapi: fetch failed")
)

// FetchError：带状态码的抓取失败
// 约束：Status 为 0 表示未拿到 HTTP 响应
type FetchError struct {
	Service string
	Status  int
	Reason  string
	Err     error
}

func (e *FetchError) Error() string {
	s := fmt.Sprintf("%s: fetch failed", e.Service)
	if e.Status != 0 {
		s += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Reason != "" {
		s += ": " + e.Reason
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// classify：超时统一映射为 ErrFetchTimeout，其余包装为 FetchError
func classify(service string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return fmt.Errorf("%s: %w", service, ErrFetchTimeout)
	}
	return &FetchError{Service: service, Err: err}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
