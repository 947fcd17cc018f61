package bms

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Conn 网桥连接
type Conn interface {
	RemoteAddr() string
	Close() error
}

// Bridge 一个 CAN-over-TCP 网桥会话
type Bridge struct {
	Addr        string
	Conn        Conn
	ConnectedAt time.Time
	lastActive  atomic.Int64 // unix nano
	frames      atomic.Uint64
}

func (b *Bridge) LastActive() time.Time {
	return time.Unix(0, b.lastActive.Load())
}

func (b *Bridge) Frames() uint64 {
	return b.frames.Load()
}

// BridgeRegistry 管理网桥会话。
// 新网桥接入时回调 onConnect，网关据此复位快照 (对端可能已重启)。
type BridgeRegistry struct {
	bridges   sync.Map // map[string]*Bridge (addr -> Bridge)
	onConnect func(addr string)
	logger    *zap.Logger
}

func NewBridgeRegistry(onConnect func(addr string), logger *zap.Logger) *BridgeRegistry {
	return &BridgeRegistry{
		onConnect: onConnect,
		logger:    logger,
	}
}

// Add 登记网桥
func (r *BridgeRegistry) Add(conn Conn) *Bridge {
	now := time.Now()
	b := &Bridge{
		Addr:        conn.RemoteAddr(),
		Conn:        conn,
		ConnectedAt: now,
	}
	b.lastActive.Store(now.UnixNano())
	r.bridges.Store(b.Addr, b)
	r.logger.Info("[BridgeRegistry] Bridge added", zap.String("remote_addr", b.Addr))
	if r.onConnect != nil {
		r.onConnect(b.Addr)
	}
	return b
}

// Remove 注销网桥, 不关闭连接 (连接已由对端或服务端关闭)
func (r *BridgeRegistry) Remove(addr string) {
	if val, ok := r.bridges.LoadAndDelete(addr); ok {
		b := val.(*Bridge)
		r.logger.Info("[BridgeRegistry] Bridge removed",
			zap.String("remote_addr", addr),
			zap.Uint64("frames", b.Frames()),
			zap.Duration("uptime", time.Since(b.ConnectedAt)))
	}
}

func (r *BridgeRegistry) Get(addr string) (*Bridge, bool) {
	val, ok := r.bridges.Load(addr)
	if !ok {
		return nil, false
	}
	return val.(*Bridge), true
}

// Touch 更新活跃时间并累计帧数
func (r *BridgeRegistry) Touch(addr string, frames int) {
	if b, ok := r.Get(addr); ok {
		b.lastActive.Store(time.Now().UnixNano())
		b.frames.Add(uint64(frames))
	}
}

func (r *BridgeRegistry) Count() int {
	n := 0
	r.bridges.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// CheckIdle 关闭超过 timeout 未发送数据的网桥
func (r *BridgeRegistry) CheckIdle(timeout time.Duration) int {
	now := time.Now()
	evicted := 0
	r.bridges.Range(func(key, value interface{}) bool {
		b := value.(*Bridge)
		if idle := now.Sub(b.LastActive()); idle > timeout {
			r.logger.Info("[BridgeRegistry] Bridge idle timeout",
				zap.String("remote_addr", b.Addr),
				zap.Duration("inactive_duration", idle))
			r.bridges.Delete(key)
			_ = b.Conn.Close()
			evicted++
		}
		return true
	})
	return evicted
}

// RunIdleCheck 周期性检查空闲网桥直到 done 关闭
func (r *BridgeRegistry) RunIdleCheck(done <-chan struct{}, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	t := time.NewTicker(timeout / 2)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			r.CheckIdle(timeout)
		}
	}
}
