package canbus

import (
	"context"
	"errors"
	"sync"

	"go.einride.tech/can"
)

// ErrClosed 数据源已关闭
var ErrClosed = errors.New("canbus: source closed")

// FrameSource 抽象 CAN 帧来源 (SocketCAN, candump 回放, TCP 网桥)
type FrameSource interface {
	// ReadFrame 阻塞直到收到一帧或 ctx 取消
	ReadFrame(ctx context.Context) (can.Frame, error)
	Close() error
}

// ChanSource 基于 channel 的数据源，由 TCP 接入服务推送帧
type ChanSource struct {
	ch        chan can.Frame
	done      chan struct{}
	closeOnce sync.Once
}

var _ FrameSource = (*ChanSource)(nil)

func NewChanSource(buffer int) *ChanSource {
	return &ChanSource{
		ch:   make(chan can.Frame, buffer),
		done: make(chan struct{}),
	}
}

// Push 投递一帧 (非阻塞, 满则返回 false)
func (s *ChanSource) Push(f can.Frame) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.ch <- f:
		return true
	default:
		return false
	}
}

func (s *ChanSource) ReadFrame(ctx context.Context) (can.Frame, error) {
	select {
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	case <-s.done:
		return can.Frame{}, ErrClosed
	case f := <-s.ch:
		return f, nil
	}
}

func (s *ChanSource) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
