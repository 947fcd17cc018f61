package main

import (
	"context"
	"flag"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ess-gateway/internal/client"
	"ess-gateway/internal/protocol/canwire"
)

// 模拟 CAN-over-TCP 网桥: 周期性发送 ESS LFP 48S 全部帧
func main() {
	addr := flag.String("addr", "127.0.0.1:29536", "gateway ingest address")
	interval := flag.Duration("interval", time.Second, "broadcast cycle interval")
	cycles := flag.Int("cycles", 0, "number of cycles to send (0 = until interrupted)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		logger.Error("Failed to connect to gateway", zap.String("addr", *addr), zap.Error(err))
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("Connected to gateway", zap.String("addr", *addr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rng := rand.New(rand.NewSource(*seed))
	builder := client.NewFrameBuilder()
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for i := 0; *cycles == 0 || i < *cycles; i++ {
		state := client.NewPackState()
		state.Jitter(rng, 0.05, 3)

		frames := builder.Cycle(state)
		// 打乱发送顺序, 解码不依赖顺序
		rng.Shuffle(len(frames), func(a, b int) { frames[a], frames[b] = frames[b], frames[a] })

		buf := make([]byte, 0, len(frames)*canwire.RecordSize)
		for _, f := range frames {
			rec, err := canwire.Encode(f)
			if err != nil {
				logger.Error("Failed to encode frame", zap.Uint32("id", f.ID), zap.Error(err))
				continue
			}
			buf = append(buf, rec...)
		}
		if _, err := conn.Write(buf); err != nil {
			logger.Error("Failed to send frames", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("Sent cycle", zap.Int("cycle", i+1), zap.Int("frames", len(frames)))

		select {
		case <-ctx.Done():
			logger.Info("Interrupted, closing connection")
			return
		case <-ticker.C:
		}
	}
	logger.Info("Done")
}
