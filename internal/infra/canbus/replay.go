package canbus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.einride.tech/can"
)

// ReplaySource 回放 candump 日志
//
//	(1700000000.123456) can0 18110181#0C1C0BB80C1D0C1E
//
// 时间戳与接口名可省略。Realtime 为 true 时按日志时间戳节奏回放。
type ReplaySource struct {
	scanner  *bufio.Scanner
	closer   io.Closer
	Realtime bool

	line   int
	lastTS float64
}

var _ FrameSource = (*ReplaySource)(nil)

func NewReplaySource(r io.Reader) *ReplaySource {
	src := &ReplaySource{scanner: bufio.NewScanner(r)}
	if c, ok := r.(io.Closer); ok {
		src.closer = c
	}
	return src
}

// ReadFrame 返回下一帧，日志结束时返回 io.EOF。
// 空行和 '#' 注释行被跳过。
func (s *ReplaySource) ReadFrame(ctx context.Context) (can.Frame, error) {
	for s.scanner.Scan() {
		s.line++
		if err := ctx.Err(); err != nil {
			return can.Frame{}, err
		}
		text := strings.TrimSpace(s.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		ts, f, err := ParseCandumpLine(text)
		if err != nil {
			return can.Frame{}, fmt.Errorf("line %d: %w", s.line, err)
		}
		if s.Realtime && ts > 0 {
			if s.lastTS > 0 && ts > s.lastTS {
				if err := sleepCtx(ctx, time.Duration((ts-s.lastTS)*float64(time.Second))); err != nil {
					return can.Frame{}, err
				}
			}
			s.lastTS = ts
		}
		return f, nil
	}
	if err := s.scanner.Err(); err != nil {
		return can.Frame{}, err
	}
	return can.Frame{}, io.EOF
}

func (s *ReplaySource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// ParseCandumpLine 解析一行 candump 输出，返回时间戳 (秒, 无则为 0) 与帧
func ParseCandumpLine(line string) (float64, can.Frame, error) {
	var ts float64
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, can.Frame{}, fmt.Errorf("empty candump line")
	}
	if strings.HasPrefix(fields[0], "(") && strings.HasSuffix(fields[0], ")") {
		v, err := strconv.ParseFloat(strings.Trim(fields[0], "()"), 64)
		if err != nil {
			return 0, can.Frame{}, fmt.Errorf("invalid timestamp %q: %w", fields[0], err)
		}
		ts = v
		fields = fields[1:]
	}
	// 帧为最后一个字段，前面可能有接口名
	if len(fields) == 0 || !strings.Contains(fields[len(fields)-1], "#") {
		return 0, can.Frame{}, fmt.Errorf("no frame in candump line %q", line)
	}
	var f can.Frame
	if err := f.UnmarshalString(strings.ToUpper(fields[len(fields)-1])); err != nil {
		return 0, can.Frame{}, fmt.Errorf("parse frame: %w", err)
	}
	return ts, f, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
