package lfp48s

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// 渲染精度 (小数位)
const (
	PrecPackVoltage = 1
	PrecCellVoltage = 3
	PrecTemperature = 2
)

// Decimal 定点渲染的可选浮点数。NaN 编码为 null。
type Decimal struct {
	Value float64
	Prec  int
}

func newDecimal(v float64, prec int) Decimal {
	return Decimal{Value: v, Prec: prec}
}

// Valid reports whether the value has been set.
func (d Decimal) Valid() bool {
	return !math.IsNaN(d.Value)
}

// Rounded returns the value rounded to Prec decimals.
func (d Decimal) Rounded() float64 {
	if !d.Valid() {
		return d.Value
	}
	r, _ := strconv.ParseFloat(d.String(), 64)
	return r
}

func (d Decimal) String() string {
	if !d.Valid() {
		return "null"
	}
	return strconv.FormatFloat(d.Value, 'f', d.Prec, 64)
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Decimal) MarshalCBOR() ([]byte, error) {
	if !d.Valid() {
		return cbor.Marshal(nil)
	}
	return cbor.Marshal(d.Rounded())
}

// Report 快照的结构化报告
type Report struct {
	PackVoltage Decimal `json:"packVoltage"`
	MaxCellV    Decimal `json:"maxCellV"`
	MinCellV    Decimal `json:"minCellV"`
	CellDeltaV  Decimal `json:"cellDeltaV"`
	AvgTempC    Decimal `json:"avgTempC"`
	MinTempC    Decimal `json:"minTempC"`

	CellCount      uint8 `json:"cellCount"`
	TempCount      uint8 `json:"tempCount"`
	MinCellIndex   uint8 `json:"minCellIndex"`
	MaxCellIndex   uint8 `json:"maxCellIndex"`
	SubmoduleCount uint8 `json:"submoduleCount"`
	ModuleIndex    uint8 `json:"moduleIndex"`

	// 容量标识三种形式: 文本, 十六进制, 十进制
	Capacity         string `json:"capacity"`
	CapacityASCII    string `json:"capacityAscii"`
	CapacityBytesHex string `json:"capacityBytesHex"`
	CapacityBytesDec [2]int `json:"capacityBytesDec"`

	Cells [CellCount]Decimal `json:"cells"`
	Temps [TempCount]Decimal `json:"temps"`
}

// Report 生成当前快照的报告
func (s *Snapshot) Report() Report {
	ascii := s.CapacityASCII()
	r := Report{
		PackVoltage: newDecimal(s.PackVoltage(), PrecPackVoltage),
		MaxCellV:    newDecimal(s.MaxCellVoltage(), PrecCellVoltage),
		MinCellV:    newDecimal(s.MinCellVoltage(), PrecCellVoltage),
		CellDeltaV:  newDecimal(s.CellDeltaVoltage(), PrecCellVoltage),
		AvgTempC:    newDecimal(s.AvgTemperature(), PrecTemperature),
		MinTempC:    newDecimal(s.MinTemperature(), PrecTemperature),

		CellCount:      s.cellCount,
		TempCount:      s.tempCount,
		MinCellIndex:   s.minCellIndex,
		MaxCellIndex:   s.maxCellIndex,
		SubmoduleCount: s.submoduleCount,
		ModuleIndex:    s.moduleIndex,

		Capacity:         ascii,
		CapacityASCII:    ascii,
		CapacityBytesHex: s.CapacityHex(),
		CapacityBytesDec: [2]int{int(s.capacity[0]), int(s.capacity[1])},
	}
	for i := range r.Cells {
		r.Cells[i] = newDecimal(s.CellVoltage(i), PrecCellVoltage)
	}
	for i := range r.Temps {
		r.Temps[i] = newDecimal(s.Temperature(i), PrecTemperature)
	}
	return r
}

// MarshalJSON renders the snapshot as its JSON report.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Report())
}
