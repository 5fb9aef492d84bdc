package icon

import (
	"errors"
	"sync/atomic"
)

// ErrAlreadyInFlight：已有图标生成在进行中，调用方可稍后重试
var ErrAlreadyInFlight = errors.New("icon: build already in flight")

// Guard：进程内单飞标志
// 约束：不排队也不取消前一个请求；由 Factory 持有
type Guard struct {
	busy atomic.Bool
}

// TryAcquire：成功占用返回 true，已被占用立即返回 false
func (g *Guard) TryAcquire() bool { return g.busy.CompareAndSwap(false, true) }

func (g *Guard) Release() { g.busy.Store(false) }

func (g *Guard) Busy() bool { return g.busy.Load() }
