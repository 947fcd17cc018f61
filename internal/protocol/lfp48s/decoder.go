package lfp48s

import (
	"encoding/binary"
)

// rule 单条分类规则: 谓词 + 解码动作。
// 规则之间相互独立，同一帧可命中多条。
type rule struct {
	kind   FrameKind
	match  func(id uint32, length uint8) bool
	decode func(s *Snapshot, id uint32, d *[8]byte)
}

// rules 按顺序逐条评估。新增厂商帧类型时追加到末尾。
var rules = []rule{
	{
		kind: KindCellVoltage,
		match: func(id uint32, length uint8) bool {
			return inRange(id, IDCellVoltageFirst, IDCellVoltageLast) && length == 8
		},
		decode: func(s *Snapshot, id uint32, d *[8]byte) {
			// 不可能越界: id <= Last 时 base 最大 44
			base := blockBase(id, IDCellVoltageFirst)
			for i := 0; i < ValuesPerCell; i++ {
				s.setCell(base+i, float64(u16be(d, i*2))*ScaleCellVoltage)
			}
		},
	},
	{
		kind: KindTemperature,
		match: func(id uint32, length uint8) bool {
			return inRange(id, IDTemperatureFirst, IDTemperatureLast) && length == 8
		},
		decode: func(s *Snapshot, id uint32, d *[8]byte) {
			base := blockBase(id, IDTemperatureFirst)
			for i := 0; i < ValuesPerCell; i++ {
				s.setTemp(base+i, float64(u16be(d, i*2))*ScaleTemperature)
			}
		},
	},
	{
		kind: KindPackSummary,
		match: func(id uint32, length uint8) bool {
			return id == IDPackSummary && length >= 8
		},
		decode: func(s *Snapshot, id uint32, d *[8]byte) {
			s.setScalar(hasMaxCellV, &s.maxCellV, float64(u16be(d, 0))*ScaleCellVoltage)
			s.setScalar(hasMinCellV, &s.minCellV, float64(u16be(d, 2))*ScaleCellVoltage)
			s.capacity = [2]byte{d[4], d[5]}
			s.setScalar(hasPackVoltage, &s.packVoltage, float64(u16be(d, 6))*ScalePackVoltage)
		},
	},
	{
		kind: KindCounts,
		match: func(id uint32, length uint8) bool {
			return id == IDCounts && length >= 6
		},
		decode: func(s *Snapshot, id uint32, d *[8]byte) {
			s.cellCount = d[0]
			s.tempCount = d[1]
			s.minCellIndex = d[2]
			s.maxCellIndex = d[3]
			s.submoduleCount = d[4]
			s.moduleIndex = d[5]
		},
	},
	{
		kind: KindTempDelta,
		match: func(id uint32, length uint8) bool {
			return id == IDTempDelta && length >= 8
		},
		decode: func(s *Snapshot, id uint32, d *[8]byte) {
			s.setScalar(hasAvgTempC, &s.avgTempC, float64(u16be(d, 0))*ScaleTemperature)
			s.setScalar(hasMinTempC, &s.minTempC, float64(u16be(d, 2))*ScaleTemperature)
			s.setScalar(hasCellDeltaV, &s.cellDeltaV, float64(u16be(d, 4))*ScaleCellVoltage)
			// d[6..7] 未知
		},
	},
	{
		kind: KindReserved,
		match: func(id uint32, _ uint8) bool {
			return id == IDReserved
		},
		decode: func(*Snapshot, uint32, *[8]byte) {},
	},
}

// UpdateFromFrame 解析单个 CAN 帧并写入快照。
// 命中至少一条规则时返回 true；未知 ID 或长度不足时返回 false 且不修改任何字段。
// data 不足 8 字节时按 0 补齐，是否命中只由 length 决定。
// 同一帧重复解码结果不变。
func (s *Snapshot) UpdateFromFrame(id uint32, length uint8, data []byte) bool {
	return len(s.Apply(id, length, data)) > 0
}

// Apply 与 UpdateFromFrame 相同，但返回本帧命中并已解码的帧类型 (按规则顺序)。
// 未命中时返回 nil。
func (s *Snapshot) Apply(id uint32, length uint8, data []byte) []FrameKind {
	var d [8]byte
	copy(d[:], data)

	var kinds []FrameKind
	for i := range rules {
		r := &rules[i]
		if r.match(id, length) {
			r.decode(s, id, &d)
			kinds = append(kinds, r.kind)
		}
	}
	return kinds
}

// Classify 返回 id/length 命中的全部帧类型，不修改状态
func Classify(id uint32, length uint8) []FrameKind {
	var kinds []FrameKind
	for i := range rules {
		if rules[i].match(id, length) {
			kinds = append(kinds, rules[i].kind)
		}
	}
	return kinds
}

func inRange(x, lo, hi uint32) bool { return x >= lo && x <= hi }

func blockBase(id, first uint32) int {
	return int((id-first)/IDStep) * ValuesPerCell
}

func u16be(d *[8]byte, off int) uint16 {
	return binary.BigEndian.Uint16(d[off : off+2])
}
