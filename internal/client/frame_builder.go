package client

import (
	"encoding/binary"
	"math"
	"math/rand"

	"go.einride.tech/can"

	"ess-gateway/internal/protocol/lfp48s"
)

// PackState 模拟电池包状态, 用于生成 BMS 帧
type PackState struct {
	CellVoltages   [lfp48s.CellCount]float64 // V
	Temperatures   [lfp48s.TempCount]float64 // ℃
	SubmoduleCount uint8
	ModuleIndex    uint8
	CapacityTag    [2]byte
}

// NewPackState 生成一个标称状态: 单体 3.300 V, 温度 25.00 ℃
func NewPackState() *PackState {
	s := &PackState{
		SubmoduleCount: 4,
		ModuleIndex:    1,
		CapacityTag:    [2]byte{'4', '3'},
	}
	for i := range s.CellVoltages {
		s.CellVoltages[i] = 3.3
	}
	for i := range s.Temperatures {
		s.Temperatures[i] = 25
	}
	return s
}

// Jitter 给单体电压和温度加随机扰动
func (s *PackState) Jitter(rng *rand.Rand, volts, degrees float64) {
	for i := range s.CellVoltages {
		s.CellVoltages[i] += (rng.Float64()*2 - 1) * volts
	}
	for i := range s.Temperatures {
		s.Temperatures[i] += (rng.Float64()*2 - 1) * degrees
	}
}

// FrameBuilder 按厂商 CAN 映射编码帧
type FrameBuilder struct{}

func NewFrameBuilder() *FrameBuilder {
	return &FrameBuilder{}
}

func raw16(v, scale float64) uint16 {
	r := math.Round(v / scale)
	if r < 0 {
		return 0
	}
	if r > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(r)
}

func frame(id uint32, length uint8, data [8]byte) can.Frame {
	return can.Frame{ID: id, IsExtended: true, Length: length, Data: can.Data(data)}
}

func block(id uint32, values []float64, scale float64) can.Frame {
	var d [8]byte
	for i, v := range values {
		binary.BigEndian.PutUint16(d[i*2:], raw16(v, scale))
	}
	return frame(id, 8, d)
}

// CellFrames 12 帧单体电压
func (b *FrameBuilder) CellFrames(s *PackState) []can.Frame {
	out := make([]can.Frame, 0, lfp48s.CellCount/lfp48s.ValuesPerCell)
	for i := 0; i < lfp48s.CellCount; i += lfp48s.ValuesPerCell {
		id := uint32(lfp48s.IDCellVoltageFirst + (i/lfp48s.ValuesPerCell)*lfp48s.IDStep)
		out = append(out, block(id, s.CellVoltages[i:i+lfp48s.ValuesPerCell], lfp48s.ScaleCellVoltage))
	}
	return out
}

// TempFrames 6 帧温度
func (b *FrameBuilder) TempFrames(s *PackState) []can.Frame {
	out := make([]can.Frame, 0, lfp48s.TempCount/lfp48s.ValuesPerCell)
	for i := 0; i < lfp48s.TempCount; i += lfp48s.ValuesPerCell {
		id := uint32(lfp48s.IDTemperatureFirst + (i/lfp48s.ValuesPerCell)*lfp48s.IDStep)
		out = append(out, block(id, s.Temperatures[i:i+lfp48s.ValuesPerCell], lfp48s.ScaleTemperature))
	}
	return out
}

func extremes(v []float64) (minIdx, maxIdx int, sum float64) {
	for i, x := range v {
		if x < v[minIdx] {
			minIdx = i
		}
		if x > v[maxIdx] {
			maxIdx = i
		}
		sum += x
	}
	return minIdx, maxIdx, sum
}

// PackSummary 最高/最低单体, 容量标识, 总压
func (b *FrameBuilder) PackSummary(s *PackState) can.Frame {
	minIdx, maxIdx, sum := extremes(s.CellVoltages[:])
	var d [8]byte
	binary.BigEndian.PutUint16(d[0:], raw16(s.CellVoltages[maxIdx], lfp48s.ScaleCellVoltage))
	binary.BigEndian.PutUint16(d[2:], raw16(s.CellVoltages[minIdx], lfp48s.ScaleCellVoltage))
	d[4], d[5] = s.CapacityTag[0], s.CapacityTag[1]
	binary.BigEndian.PutUint16(d[6:], raw16(sum, lfp48s.ScalePackVoltage))
	return frame(lfp48s.IDPackSummary, 8, d)
}

// Counts 数量与索引帧 (DLC 6)
func (b *FrameBuilder) Counts(s *PackState) can.Frame {
	minIdx, maxIdx, _ := extremes(s.CellVoltages[:])
	d := [8]byte{
		lfp48s.CellCount,
		lfp48s.TempCount,
		uint8(minIdx),
		uint8(maxIdx),
		s.SubmoduleCount,
		s.ModuleIndex,
	}
	return frame(lfp48s.IDCounts, 6, d)
}

// TempDelta 平均/最低温度与压差
func (b *FrameBuilder) TempDelta(s *PackState) can.Frame {
	minT, _, sumT := extremes(s.Temperatures[:])
	minV, maxV, _ := extremes(s.CellVoltages[:])
	var d [8]byte
	binary.BigEndian.PutUint16(d[0:], raw16(sumT/float64(len(s.Temperatures)), lfp48s.ScaleTemperature))
	binary.BigEndian.PutUint16(d[2:], raw16(s.Temperatures[minT], lfp48s.ScaleTemperature))
	binary.BigEndian.PutUint16(d[4:], raw16(s.CellVoltages[maxV]-s.CellVoltages[minV], lfp48s.ScaleCellVoltage))
	return frame(lfp48s.IDTempDelta, 8, d)
}

func (b *FrameBuilder) Reserved() can.Frame {
	return frame(lfp48s.IDReserved, 8, [8]byte{})
}

// Cycle 一个完整广播周期的全部帧
func (b *FrameBuilder) Cycle(s *PackState) []can.Frame {
	out := b.CellFrames(s)
	out = append(out, b.TempFrames(s)...)
	out = append(out, b.PackSummary(s), b.Counts(s), b.TempDelta(s), b.Reserved())
	return out
}
