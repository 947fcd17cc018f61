package bms

import (
	"fmt"
	"strings"

	"ess-gateway/internal/protocol/lfp48s"
)

// 单体/温度正常范围, 仅用于告警提示
const (
	CellVoltageLow  = 3.0
	CellVoltageHigh = 3.7
	TempLow         = -10.0
	TempHigh        = 55.0
)

func fmtDecimal(d lfp48s.Decimal) string {
	if !d.Valid() {
		return "--"
	}
	return d.String()
}

// Summary 单行摘要
func Summary(r lfp48s.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pack %s V | Δ %s V | Max %s | Min %s | AvgT %s °C | MinT %s °C",
		fmtDecimal(r.PackVoltage), fmtDecimal(r.CellDeltaV),
		fmtDecimal(r.MaxCellV), fmtDecimal(r.MinCellV),
		fmtDecimal(r.AvgTempC), fmtDecimal(r.MinTempC))
	fmt.Fprintf(&b, " | Cells %d | Temps %d | Module %d | Variant %s (%s)",
		r.CellCount, r.TempCount, r.ModuleIndex, r.CapacityASCII, r.CapacityBytesHex)
	return b.String()
}

// OutOfRange 返回超出正常范围的单体和探针序号 (从 0 开始)。未上报的通道不计入。
func OutOfRange(r lfp48s.Report) (cells, temps []int) {
	for i, c := range r.Cells {
		if !c.Valid() {
			continue
		}
		if v := c.Rounded(); v < CellVoltageLow || v > CellVoltageHigh {
			cells = append(cells, i)
		}
	}
	for i, t := range r.Temps {
		if !t.Valid() {
			continue
		}
		if v := t.Rounded(); v < TempLow || v > TempHigh {
			temps = append(temps, i)
		}
	}
	return cells, temps
}
