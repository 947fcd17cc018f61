package bms

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"go.einride.tech/can"
	"go.uber.org/zap"

	"ess-gateway/internal/infra/canbus"
	"ess-gateway/internal/protocol/lfp48s"
	"ess-gateway/internal/usecase"
)

// Publisher 报告发布端, 由 usecase.DataDispatcher 实现
type Publisher interface {
	Dispatch(env usecase.Envelope) bool
}

type Options struct {
	PackID    string
	Topic     string
	DebugDump int // 详细打印前 N 帧
}

// Monitor 驱动解码器: 过滤帧、统计、定期发布报告。
// 解码器本身非并发安全，这里用互斥锁串行化访问。
type Monitor struct {
	mu       sync.Mutex
	snap     *lfp48s.Snapshot
	stats    Stats
	dumpLeft int

	opts   Options
	pub    Publisher
	logger *zap.Logger
}

func NewMonitor(opts Options, pub Publisher, logger *zap.Logger) *Monitor {
	if opts.Topic == "" {
		opts.Topic = "bms_reports"
	}
	return &Monitor{
		snap:     lfp48s.New(),
		dumpLeft: opts.DebugDump,
		opts:     opts,
		pub:      pub,
		logger:   logger.With(zap.String("pack", opts.PackID)),
	}
}

// HandleFrame 处理一帧。远程帧与标准帧只计数不解码。
// 返回帧是否命中 BMS 映射。
func (m *Monitor) HandleFrame(f can.Frame) (matched bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Panic in HandleFrame",
				zap.Any("recover", r),
				zap.String("id", fmt.Sprintf("0x%08X", f.ID)),
				zap.String("stack", string(debug.Stack())))
			matched = false
		}
	}()

	m.stats.Received++
	m.stats.LastRx = time.Now()

	if m.dumpLeft > 0 {
		m.dumpLeft--
		m.logger.Debug("RX",
			zap.String("id", fmt.Sprintf("0x%08X", f.ID)),
			zap.Uint8("dlc", f.Length),
			zap.Bool("ext", f.IsExtended),
			zap.Bool("rtr", f.IsRemote),
			zap.String("data", hex.EncodeToString(f.Data[:min(int(f.Length), len(f.Data))])))
	}

	if f.IsRemote {
		m.stats.Remote++
		return false
	}
	if !f.IsExtended {
		// 本 BMS 只使用扩展帧
		m.stats.Standard++
		return false
	}
	m.stats.Extended++
	m.stats.pushID(f.ID)

	kinds := m.snap.Apply(f.ID, f.Length, f.Data[:])
	if len(kinds) == 0 {
		m.stats.Unmatched++
		return false
	}
	for _, k := range kinds {
		m.stats.count(k)
	}
	return true
}

// Reset 清空快照与统计, 用于重连或模式切换
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Reset()
	m.stats = Stats{}
	m.dumpLeft = m.opts.DebugDump
	m.logger.Info("Monitor reset")
}

// Report 返回当前快照报告
func (m *Monitor) Report() lfp48s.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Report()
}

// MarshalJSON 渲染当前快照
func (m *Monitor) MarshalJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.MarshalJSON()
}

func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.clone()
}

// Publish 投递一份报告
func (m *Monitor) Publish() bool {
	if m.pub == nil {
		return false
	}
	payload := usecase.NewMQPayload(usecase.TypeBMSReport, m.opts.PackID, m.Report())
	return m.pub.Dispatch(usecase.Envelope{Topic: m.opts.Topic, Key: m.opts.PackID, Data: payload})
}

// PublishStats 投递一份接收统计
func (m *Monitor) PublishStats() bool {
	if m.pub == nil {
		return false
	}
	payload := usecase.NewMQPayload(usecase.TypeBMSStats, m.opts.PackID, m.Stats())
	return m.pub.Dispatch(usecase.Envelope{Topic: m.opts.Topic, Key: m.opts.PackID, Data: payload})
}

func (m *Monitor) logStats() {
	r := m.Report()
	cells, temps := OutOfRange(r)
	m.logger.Info("BMS status",
		zap.Object("stats", m.Stats()),
		zap.String("summary", Summary(r)),
		zap.Ints("cells_out_of_range", cells),
		zap.Ints("temps_out_of_range", temps))
}

// Run 从 src 读取帧直到 ctx 取消或数据源结束。
// 每 publishEvery 发布一次报告，每 statsEvery 打印并发布一次统计 (0 表示关闭)。
// 数据源正常结束 (io.EOF, 已关闭) 时发布最终报告并返回 nil。
func (m *Monitor) Run(ctx context.Context, src canbus.FrameSource, publishEvery, statsEvery time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errC := make(chan error, 1)
	go func() {
		for {
			f, err := src.ReadFrame(ctx)
			if err != nil {
				errC <- err
				return
			}
			m.HandleFrame(f)
		}
	}()

	var publishC, statsC <-chan time.Time
	if publishEvery > 0 {
		t := time.NewTicker(publishEvery)
		defer t.Stop()
		publishC = t.C
	}
	if statsEvery > 0 {
		t := time.NewTicker(statsEvery)
		defer t.Stop()
		statsC = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errC:
			if errors.Is(err, io.EOF) || errors.Is(err, canbus.ErrClosed) {
				m.Publish()
				m.logStats()
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read frame: %w", err)
		case <-publishC:
			m.Publish()
		case <-statsC:
			m.logStats()
			m.PublishStats()
		}
	}
}
