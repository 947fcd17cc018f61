package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/panjf2000/gnet/v2"
	"go.einride.tech/can"
	"go.uber.org/zap"

	"ess-gateway/internal/config"
	"ess-gateway/internal/protocol/canwire"
	"ess-gateway/internal/usecase/bms"
)

// maxPending 单连接未解析缓冲上限, 超过说明对端协议错误
const maxPending = 64 * 1024

// FrameSink 接收解析出的帧
type FrameSink interface {
	Push(f can.Frame) bool
}

// connContext 保存每个连接的状态
type connContext struct {
	buffer  []byte
	scanner *canwire.FrameScanner
	addr    string
	dropped uint64
}

type GnetConnWrapper struct {
	conn gnet.Conn
}

func (w *GnetConnWrapper) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}

func (w *GnetConnWrapper) Close() error {
	return w.conn.Close()
}

// TCPServer 接收 CAN-over-TCP 网桥推送的 16 字节 can_frame 记录
type TCPServer struct {
	gnet.BuiltinEventEngine

	addr      string
	multicore bool
	logger    *zap.Logger
	sink      FrameSink
	bridges   *bms.BridgeRegistry
}

func NewTCPServer(cfg *config.Config, logger *zap.Logger, sink FrameSink, bridges *bms.BridgeRegistry) *TCPServer {
	return &TCPServer{
		addr:      fmt.Sprintf("tcp://%s:%d", cfg.Server.Host, cfg.Server.Port),
		multicore: true,
		logger:    logger,
		sink:      sink,
		bridges:   bridges,
	}
}

func (s *TCPServer) OnBoot(eng gnet.Engine) (action gnet.Action) {
	s.logger.Info("TCP ingest is booting", zap.String("address", s.addr))
	return
}

func (s *TCPServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	ctx := &connContext{
		buffer:  make([]byte, 0, 4096),
		scanner: canwire.NewFrameScanner(),
		addr:    c.RemoteAddr().String(),
	}
	c.SetContext(ctx)
	s.bridges.Add(&GnetConnWrapper{conn: c})
	return
}

func (s *TCPServer) OnTraffic(c gnet.Conn) (action gnet.Action) {
	ctx := c.Context().(*connContext)

	buf, _ := c.Next(-1)
	if len(buf) == 0 {
		return
	}
	ctx.buffer = append(ctx.buffer, buf...)

	frames, err := s.drain(ctx)
	s.bridges.Touch(ctx.addr, frames)
	if err != nil {
		s.logger.Error("Frame split error", zap.Error(err), zap.String("addr", ctx.addr))
		return gnet.Close
	}
	if len(ctx.buffer) > maxPending {
		s.logger.Warn("Pending buffer overflow, closing bridge", zap.String("addr", ctx.addr))
		return gnet.Close
	}
	return
}

// drain 解析缓冲区内全部完整记录并投递，返回成功解析的帧数
func (s *TCPServer) drain(ctx *connContext) (int, error) {
	frames := 0
	for {
		advance, token, err := ctx.scanner.SplitFunc(ctx.buffer, false)
		if err != nil {
			return frames, err
		}
		if advance == 0 {
			// 需要更多数据
			break
		}
		if token != nil {
			f, err := canwire.Decode(token)
			switch {
			case errors.Is(err, canwire.ErrErrorFrame):
				// 控制器错误帧, 忽略
			case err != nil:
				s.logger.Warn("Failed to decode frame record", zap.Error(err), zap.String("addr", ctx.addr))
			default:
				frames++
				if !s.sink.Push(f) {
					ctx.dropped++
					if ctx.dropped%1000 == 1 {
						s.logger.Warn("Frame sink full, dropping frames",
							zap.String("addr", ctx.addr),
							zap.Uint64("dropped", ctx.dropped))
					}
				}
			}
		}
		ctx.buffer = ctx.buffer[advance:]
	}
	return frames, nil
}

func (s *TCPServer) OnClose(c gnet.Conn, err error) (action gnet.Action) {
	s.logger.Info("Bridge connection closed", zap.String("remote", c.RemoteAddr().String()), zap.Error(err))
	s.bridges.Remove(c.RemoteAddr().String())
	return
}

func (s *TCPServer) OnShutdown(eng gnet.Engine) {
	s.logger.Info("TCP ingest is shutting down")
}

func (s *TCPServer) Start(ctx context.Context) error {
	s.logger.Info("Starting TCP ingest", zap.String("addr", s.addr))
	return gnet.Run(s, s.addr,
		gnet.WithMulticore(s.multicore),
		gnet.WithLogger(s.logger.Sugar()),
		gnet.WithReusePort(true),
	)
}

func (s *TCPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping TCP ingest...")
	return gnet.Stop(ctx, s.addr)
}
