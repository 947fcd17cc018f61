package canwire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"go.einride.tech/can"
)

// SocketCAN struct can_frame 布局 (小端序, 16 字节)
//
//	0..3  can_id (EFF/RTR/ERR 标志位)
//	4     can_dlc
//	5..7  填充
//	8..15 数据
const (
	RecordSize = 16

	flagEFF = 0x80000000
	flagRTR = 0x40000000
	flagERR = 0x20000000
	maskEFF = 0x1FFFFFFF
	maskSFF = 0x7FF
)

var (
	// ErrShortRecord 记录不足 16 字节
	ErrShortRecord = errors.New("canwire: short record")
	// ErrErrorFrame 控制器错误帧, 不是数据帧
	ErrErrorFrame = errors.New("canwire: error frame")
)

// Encode 将帧编码为 16 字节记录
func Encode(f can.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("canwire: %w", err)
	}
	id := f.ID
	if f.IsExtended {
		id |= flagEFF
	}
	if f.IsRemote {
		id |= flagRTR
	}
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Length
	copy(buf[8:16], f.Data[:])
	return buf, nil
}

// Decode 从 16 字节记录解析帧
func Decode(rec []byte) (can.Frame, error) {
	if len(rec) < RecordSize {
		return can.Frame{}, ErrShortRecord
	}
	raw := binary.LittleEndian.Uint32(rec[0:4])
	if raw&flagERR != 0 {
		return can.Frame{}, ErrErrorFrame
	}
	var f can.Frame
	f.IsExtended = raw&flagEFF != 0
	f.IsRemote = raw&flagRTR != 0
	if f.IsExtended {
		f.ID = raw & maskEFF
	} else {
		f.ID = raw & maskSFF
	}
	f.Length = rec[4]
	copy(f.Data[:], rec[8:16])
	if err := f.Validate(); err != nil {
		return can.Frame{}, fmt.Errorf("canwire: %w", err)
	}
	return f, nil
}
