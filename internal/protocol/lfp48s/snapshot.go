package lfp48s

import (
	"fmt"
	"math"
)

// 标量字段的已上报标志位
const (
	hasPackVoltage uint8 = 1 << iota
	hasMaxCellV
	hasMinCellV
	hasCellDeltaV
	hasAvgTempC
	hasMinTempC
)

// Snapshot 保存电池包最新解码状态。
// 每个浮点字段带已上报标志位，未上报时访问器返回 NaN，与上报值 0 区分。
// 零值即为全部未设置的快照。非并发安全，由单一所有者调用。
type Snapshot struct {
	cellV   [CellCount]float64
	tempC   [TempCount]float64
	cellSet uint64 // bit i: 单体 i 已上报
	tempSet uint32 // bit i: 探针 i 已上报
	scalars uint8  // has* 标志位

	packVoltage float64
	maxCellV    float64
	minCellV    float64
	cellDeltaV  float64
	avgTempC    float64
	minTempC    float64

	cellCount      uint8
	tempCount      uint8
	minCellIndex   uint8
	maxCellIndex   uint8
	submoduleCount uint8
	moduleIndex    uint8

	capacity [2]byte
}

// New 创建一个全部未设置的快照
func New() *Snapshot {
	return &Snapshot{}
}

// Reset 将快照恢复为初始未设置状态
func (s *Snapshot) Reset() {
	*s = Snapshot{}
}

func (s *Snapshot) setCell(idx int, v float64) {
	s.cellV[idx] = v
	s.cellSet |= 1 << uint(idx)
}

func (s *Snapshot) setTemp(idx int, v float64) {
	s.tempC[idx] = v
	s.tempSet |= 1 << uint(idx)
}

func (s *Snapshot) setScalar(flag uint8, dst *float64, v float64) {
	*dst = v
	s.scalars |= flag
}

func (s *Snapshot) scalar(flag uint8, v float64) float64 {
	if s.scalars&flag == 0 {
		return math.NaN()
	}
	return v
}

// IsUnset reports whether v is the unset sentinel.
func IsUnset(v float64) bool {
	return math.IsNaN(v)
}

// CellVoltage returns the voltage of cell idx, or NaN when idx is out of range.
func (s *Snapshot) CellVoltage(idx int) float64 {
	if idx < 0 || idx >= CellCount || s.cellSet&(1<<uint(idx)) == 0 {
		return math.NaN()
	}
	return s.cellV[idx]
}

// Temperature returns probe idx in ℃, or NaN when idx is out of range.
func (s *Snapshot) Temperature(idx int) float64 {
	if idx < 0 || idx >= TempCount || s.tempSet&(1<<uint(idx)) == 0 {
		return math.NaN()
	}
	return s.tempC[idx]
}

// Cells 返回单体电压数组副本, 未上报为 NaN
func (s *Snapshot) Cells() [CellCount]float64 {
	var out [CellCount]float64
	for i := range out {
		out[i] = s.CellVoltage(i)
	}
	return out
}

// Temperatures 返回温度数组副本, 未上报为 NaN
func (s *Snapshot) Temperatures() [TempCount]float64 {
	var out [TempCount]float64
	for i := range out {
		out[i] = s.Temperature(i)
	}
	return out
}

func (s *Snapshot) PackVoltage() float64      { return s.scalar(hasPackVoltage, s.packVoltage) }
func (s *Snapshot) MaxCellVoltage() float64   { return s.scalar(hasMaxCellV, s.maxCellV) }
func (s *Snapshot) MinCellVoltage() float64   { return s.scalar(hasMinCellV, s.minCellV) }
func (s *Snapshot) CellDeltaVoltage() float64 { return s.scalar(hasCellDeltaV, s.cellDeltaV) }
func (s *Snapshot) AvgTemperature() float64   { return s.scalar(hasAvgTempC, s.avgTempC) }
func (s *Snapshot) MinTemperature() float64   { return s.scalar(hasMinTempC, s.minTempC) }

func (s *Snapshot) CellCount() uint8      { return s.cellCount }
func (s *Snapshot) TempCount() uint8      { return s.tempCount }
func (s *Snapshot) MinCellIndex() uint8   { return s.minCellIndex }
func (s *Snapshot) MaxCellIndex() uint8   { return s.maxCellIndex }
func (s *Snapshot) SubmoduleCount() uint8 { return s.submoduleCount }
func (s *Snapshot) ModuleIndex() uint8    { return s.moduleIndex }

// CapacityBytes 返回容量标识原始字节。参考硬件上观察到 '4','3'，语义未知。
func (s *Snapshot) CapacityBytes() (byte, byte) {
	return s.capacity[0], s.capacity[1]
}

// CapacityASCII decodes the capacity tag as text. Bytes outside printable
// ASCII are dropped.
func (s *Snapshot) CapacityASCII() string {
	out := make([]byte, 0, 2)
	for _, b := range s.capacity {
		if b >= 0x20 && b < 0x7F {
			out = append(out, b)
		}
	}
	return string(out)
}

// CapacityHex renders the tag as "0x34,0x33".
func (s *Snapshot) CapacityHex() string {
	return fmt.Sprintf("0x%02X,0x%02X", s.capacity[0], s.capacity[1])
}

func (s *Snapshot) CapacityDec() [2]uint8 {
	return [2]uint8{s.capacity[0], s.capacity[1]}
}
