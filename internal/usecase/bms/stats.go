package bms

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"ess-gateway/internal/protocol/lfp48s"
)

const lastIDsSize = 20

// Stats 接收统计
type Stats struct {
	Received  uint64 `json:"recv"`
	Extended  uint64 `json:"ext"`
	Standard  uint64 `json:"std"`
	Remote    uint64 `json:"rtr"`
	Cells     uint64 `json:"cells"`
	Temps     uint64 `json:"temps"`
	Pack      uint64 `json:"pack"`
	Counts    uint64 `json:"counts"`
	Delta     uint64 `json:"delta"`
	Reserved  uint64 `json:"reserved"`
	Unmatched uint64 `json:"unmatched"`

	LastIDs []string  `json:"lastIds"`
	LastRx  time.Time `json:"lastRx"`
}

func (s *Stats) count(kind lfp48s.FrameKind) {
	switch kind {
	case lfp48s.KindCellVoltage:
		s.Cells++
	case lfp48s.KindTemperature:
		s.Temps++
	case lfp48s.KindPackSummary:
		s.Pack++
	case lfp48s.KindCounts:
		s.Counts++
	case lfp48s.KindTempDelta:
		s.Delta++
	case lfp48s.KindReserved:
		s.Reserved++
	}
}

func (s *Stats) pushID(id uint32) {
	s.LastIDs = append(s.LastIDs, fmt.Sprintf("0x%08X", id))
	if len(s.LastIDs) > lastIDsSize {
		s.LastIDs = s.LastIDs[len(s.LastIDs)-lastIDsSize:]
	}
}

func (s Stats) clone() Stats {
	out := s
	out.LastIDs = append([]string(nil), s.LastIDs...)
	return out
}

// MarshalLogObject 实现 zapcore.ObjectMarshaler
func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("recv", s.Received)
	enc.AddUint64("ext", s.Extended)
	enc.AddUint64("std", s.Standard)
	enc.AddUint64("rtr", s.Remote)
	enc.AddUint64("cells", s.Cells)
	enc.AddUint64("temps", s.Temps)
	enc.AddUint64("pack", s.Pack)
	enc.AddUint64("counts", s.Counts)
	enc.AddUint64("delta", s.Delta)
	enc.AddUint64("reserved", s.Reserved)
	enc.AddUint64("unmatched", s.Unmatched)
	if !s.LastRx.IsZero() {
		enc.AddTime("last_rx", s.LastRx)
	}
	return nil
}
