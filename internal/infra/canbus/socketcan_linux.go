//go:build linux

package canbus

import (
	"context"
	"fmt"
	"net"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// SocketCANSource 通过 SocketCAN 接口读取帧
type SocketCANSource struct {
	conn net.Conn
	recv *socketcan.Receiver
}

var _ FrameSource = (*SocketCANSource)(nil)

// NewSocketCANSource 打开接口，例如 "can0" / "vcan0"
func NewSocketCANSource(ctx context.Context, iface string) (*SocketCANSource, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}
	return &SocketCANSource{
		conn: conn,
		recv: socketcan.NewReceiver(conn),
	}, nil
}

// ReadFrame 读取下一个数据帧，跳过控制器错误帧
func (s *SocketCANSource) ReadFrame(ctx context.Context) (can.Frame, error) {
	type result struct {
		frame can.Frame
		err   error
	}
	resC := make(chan result, 1)

	go func() {
		for s.recv.Receive() {
			if s.recv.HasErrorFrame() {
				continue
			}
			resC <- result{frame: s.recv.Frame()}
			return
		}
		err := s.recv.Err()
		if err == nil {
			err = ErrClosed
		}
		resC <- result{err: err}
	}()

	select {
	case <-ctx.Done():
		// 关闭连接以解除阻塞中的 Receive
		_ = s.conn.Close()
		return can.Frame{}, ctx.Err()
	case r := <-resC:
		return r.frame, r.err
	}
}

func (s *SocketCANSource) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
