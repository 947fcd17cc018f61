package lfp48s

// ESS LFP 48S BMS CAN 映射 (29 位扩展帧)
const (
	CellCount = 48 // 单体电压通道数
	TempCount = 24 // 温度探针数

	// 单体电压: 0x18110181 .. 0x18110C81, 步长 0x100, 每帧 4 个单体
	IDCellVoltageFirst = 0x18110181
	IDCellVoltageLast  = 0x18110C81

	// 温度: 0x18120181 .. 0x18120681, 步长 0x100, 每帧 4 个探针
	IDTemperatureFirst = 0x18120181
	IDTemperatureLast  = 0x18120681

	IDPackSummary = 0x18130181 // 最高/最低单体电压, 容量标识, 总压
	IDCounts      = 0x18130281 // 数量与索引 (DLC 6)
	IDTempDelta   = 0x18130381 // 平均/最低温度, 压差
	IDReserved    = 0x18130481 // 保留, 内容忽略

	IDStep        = 0x100
	ValuesPerCell = 4

	ScaleCellVoltage = 0.001 // V
	ScaleTemperature = 0.01  // ℃
	ScalePackVoltage = 0.1   // V
)

// FrameKind 帧类型
type FrameKind int

const (
	KindCellVoltage FrameKind = iota
	KindTemperature
	KindPackSummary
	KindCounts
	KindTempDelta
	KindReserved
)

func (k FrameKind) String() string {
	switch k {
	case KindCellVoltage:
		return "cells"
	case KindTemperature:
		return "temps"
	case KindPackSummary:
		return "pack"
	case KindCounts:
		return "counts"
	case KindTempDelta:
		return "delta"
	case KindReserved:
		return "reserved"
	default:
		return "unknown"
	}
}
