package lfp48s

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func be4(a, b, c, d uint16) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint16(out[0:2], a)
	binary.BigEndian.PutUint16(out[2:4], b)
	binary.BigEndian.PutUint16(out[4:6], c)
	binary.BigEndian.PutUint16(out[6:8], d)
	return out
}

func assertUntouched(t *testing.T, s *Snapshot) {
	t.Helper()
	for i := 0; i < CellCount; i++ {
		assert.True(t, IsUnset(s.CellVoltage(i)), "cell %d", i)
	}
	for i := 0; i < TempCount; i++ {
		assert.True(t, IsUnset(s.Temperature(i)), "temp %d", i)
	}
	for _, v := range []float64{
		s.PackVoltage(), s.MaxCellVoltage(), s.MinCellVoltage(),
		s.CellDeltaVoltage(), s.AvgTemperature(), s.MinTemperature(),
	} {
		assert.True(t, IsUnset(v))
	}
	assert.Zero(t, s.CellCount())
	assert.Zero(t, s.TempCount())
	assert.Zero(t, s.MinCellIndex())
	assert.Zero(t, s.MaxCellIndex())
	assert.Zero(t, s.SubmoduleCount())
	assert.Zero(t, s.ModuleIndex())
	b1, b2 := s.CapacityBytes()
	assert.Zero(t, b1)
	assert.Zero(t, b2)
}

func TestCellVoltageBlocks(t *testing.T) {
	for idx := 0; idx < 12; idx++ {
		id := uint32(IDCellVoltageFirst + idx*IDStep)
		raw := [4]uint16{uint16(3000 + idx), uint16(3100 + idx), 0, 65535}

		s := New()
		require.True(t, s.UpdateFromFrame(id, 8, be4(raw[0], raw[1], raw[2], raw[3])), "id 0x%08X", id)

		base := idx * 4
		for i := 0; i < CellCount; i++ {
			if i >= base && i < base+4 {
				assert.InDelta(t, float64(raw[i-base])*0.001, s.CellVoltage(i), 1e-9, "cell %d", i)
			} else {
				assert.True(t, IsUnset(s.CellVoltage(i)), "cell %d", i)
			}
		}
		for i := 0; i < TempCount; i++ {
			assert.True(t, IsUnset(s.Temperature(i)))
		}
	}
}

func TestTemperatureBlocks(t *testing.T) {
	for idx := 0; idx < 6; idx++ {
		id := uint32(IDTemperatureFirst + idx*IDStep)

		s := New()
		require.True(t, s.UpdateFromFrame(id, 8, be4(2500, 2612, 0, 1)))

		base := idx * 4
		want := []float64{25.00, 26.12, 0, 0.01}
		for i := 0; i < TempCount; i++ {
			if i >= base && i < base+4 {
				assert.InDelta(t, want[i-base], s.Temperature(i), 1e-9, "temp %d", i)
			} else {
				assert.True(t, IsUnset(s.Temperature(i)), "temp %d", i)
			}
		}
	}
}

func TestReportedZeroIsNotUnset(t *testing.T) {
	s := New()
	require.True(t, s.UpdateFromFrame(IDCellVoltageFirst, 8, make([]byte, 8)))
	assert.False(t, IsUnset(s.CellVoltage(0)))
	assert.Equal(t, 0.0, s.CellVoltage(0))
}

func TestPackSummary(t *testing.T) {
	s := New()
	ok := s.UpdateFromFrame(IDPackSummary, 8, []byte{0x0C, 0x1C, 0x0B, 0xB8, 0x34, 0x33, 0x01, 0x28})
	require.True(t, ok)

	assert.InDelta(t, 3.100, s.MaxCellVoltage(), 1e-9)
	assert.InDelta(t, 3.000, s.MinCellVoltage(), 1e-9)
	assert.InDelta(t, 29.6, s.PackVoltage(), 1e-9)
	b1, b2 := s.CapacityBytes()
	assert.Equal(t, byte('4'), b1)
	assert.Equal(t, byte('3'), b2)
	assert.Equal(t, "43", s.CapacityASCII())
	assert.Equal(t, "0x34,0x33", s.CapacityHex())
	assert.Equal(t, [2]uint8{52, 51}, s.CapacityDec())
}

func TestPackVoltageScale(t *testing.T) {
	// 0x012C = 300 -> 30.0 V
	s := New()
	require.True(t, s.UpdateFromFrame(IDPackSummary, 8, []byte{0x0C, 0x1C, 0x0B, 0xB8, 0x34, 0x33, 0x01, 0x2C}))
	assert.InDelta(t, 3.100, s.MaxCellVoltage(), 1e-9)
	assert.InDelta(t, 3.000, s.MinCellVoltage(), 1e-9)
	assert.InDelta(t, 30.0, s.PackVoltage(), 1e-9)
	assert.Equal(t, "43", s.CapacityASCII())
}

func TestCountsFrame(t *testing.T) {
	s := New()
	require.True(t, s.UpdateFromFrame(IDCounts, 6, []byte{48, 24, 3, 17, 4, 2, 0, 0}))

	assert.Equal(t, uint8(48), s.CellCount())
	assert.Equal(t, uint8(24), s.TempCount())
	assert.Equal(t, uint8(3), s.MinCellIndex())
	assert.Equal(t, uint8(17), s.MaxCellIndex())
	assert.Equal(t, uint8(4), s.SubmoduleCount())
	assert.Equal(t, uint8(2), s.ModuleIndex())
}

func TestTempDeltaFrame(t *testing.T) {
	s := New()
	require.True(t, s.UpdateFromFrame(IDTempDelta, 8, []byte{0x09, 0xC4, 0x08, 0xFC, 0x00, 0x64, 0xAA, 0xBB}))

	assert.InDelta(t, 25.00, s.AvgTemperature(), 1e-9)
	assert.InDelta(t, 23.00, s.MinTemperature(), 1e-9)
	assert.InDelta(t, 0.100, s.CellDeltaVoltage(), 1e-9)
}

func TestReservedFrameIsRecognizedButIgnored(t *testing.T) {
	for _, length := range []uint8{0, 3, 8} {
		s := New()
		assert.True(t, s.UpdateFromFrame(IDReserved, length, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
		assertUntouched(t, s)
	}
}

func TestUnmatchedFrames(t *testing.T) {
	cases := []struct {
		name   string
		id     uint32
		length uint8
	}{
		{"unknown id", 0x12345678, 8},
		{"cell block short", IDCellVoltageFirst, 7},
		{"cell block long dlc", IDCellVoltageFirst + IDStep, 9},
		{"below cell range", IDCellVoltageFirst - 1, 8},
		{"above cell range", IDCellVoltageLast + 1, 8},
		{"above temp range", IDTemperatureLast + 1, 8},
		{"pack summary short", IDPackSummary, 7},
		{"counts short", IDCounts, 5},
		{"temp delta short", IDTempDelta, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			assert.False(t, s.UpdateFromFrame(tc.id, tc.length, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}))
			assertUntouched(t, s)
			assert.Empty(t, Classify(tc.id, tc.length))
		})
	}
}

func TestShortPayloadDoesNotPanic(t *testing.T) {
	s := New()
	assert.NotPanics(t, func() {
		assert.True(t, s.UpdateFromFrame(IDCounts, 6, []byte{48, 24}))
	})
	assert.Equal(t, uint8(48), s.CellCount())
	assert.Equal(t, uint8(0), s.ModuleIndex())
}

func TestIdempotence(t *testing.T) {
	frame := []byte{0x0C, 0x1C, 0x0B, 0xB8, 0x34, 0x33, 0x01, 0x2C}

	once := New()
	once.UpdateFromFrame(IDPackSummary, 8, frame)
	twice := New()
	twice.UpdateFromFrame(IDPackSummary, 8, frame)
	twice.UpdateFromFrame(IDPackSummary, 8, frame)

	a, err := once.MarshalJSON()
	require.NoError(t, err)
	b, err := twice.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestOrderIndependence(t *testing.T) {
	type frame struct {
		id   uint32
		dlc  uint8
		data []byte
	}
	frames := []frame{
		{IDCellVoltageFirst + 3*IDStep, 8, be4(3301, 3302, 3303, 3304)},
		{IDTemperatureFirst + 5*IDStep, 8, be4(2100, 2200, 2300, 2400)},
		{IDPackSummary, 8, []byte{0x0C, 0x1C, 0x0B, 0xB8, 0x34, 0x33, 0x01, 0x2C}},
		{IDCounts, 6, []byte{48, 24, 3, 17, 4, 2, 0, 0}},
		{IDTempDelta, 8, []byte{0x09, 0xC4, 0x08, 0xFC, 0x00, 0x64, 0, 0}},
	}

	forward := New()
	for _, f := range frames {
		forward.UpdateFromFrame(f.id, f.dlc, f.data)
	}
	backward := New()
	for i := len(frames) - 1; i >= 0; i-- {
		backward.UpdateFromFrame(frames[i].id, frames[i].dlc, frames[i].data)
	}

	a, err := forward.MarshalJSON()
	require.NoError(t, err)
	b, err := backward.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestSummaryFramesDoNotClearOtherFields(t *testing.T) {
	s := New()
	s.UpdateFromFrame(IDCellVoltageFirst, 8, be4(3200, 3201, 3202, 3203))
	s.UpdateFromFrame(IDCounts, 6, []byte{48, 24, 3, 17, 4, 2})

	assert.InDelta(t, 3.2, s.CellVoltage(0), 1e-9)
	assert.True(t, IsUnset(s.PackVoltage()))
	assert.True(t, IsUnset(s.AvgTemperature()))
	assert.Equal(t, uint8(48), s.CellCount())
}

func TestReset(t *testing.T) {
	s := New()
	s.UpdateFromFrame(IDCellVoltageLast, 8, be4(1, 2, 3, 4))
	s.UpdateFromFrame(IDTemperatureLast, 8, be4(1, 2, 3, 4))
	s.UpdateFromFrame(IDPackSummary, 8, []byte{0x0C, 0x1C, 0x0B, 0xB8, 0x34, 0x33, 0x01, 0x2C})
	s.UpdateFromFrame(IDCounts, 6, []byte{48, 24, 3, 17, 4, 2})
	s.UpdateFromFrame(IDTempDelta, 8, be4(1, 2, 3, 4))

	s.Reset()
	assertUntouched(t, s)
}

func TestOutOfRangeAccessors(t *testing.T) {
	s := New()
	s.UpdateFromFrame(IDCellVoltageLast, 8, be4(1, 2, 3, 4))
	assert.InDelta(t, 0.004, s.CellVoltage(47), 1e-9)
	assert.True(t, IsUnset(s.CellVoltage(48)))
	assert.True(t, IsUnset(s.CellVoltage(-1)))
	assert.True(t, IsUnset(s.Temperature(24)))
	assert.True(t, IsUnset(s.Temperature(-1)))
}

func TestFullStateAccessorsAreCopies(t *testing.T) {
	s := New()
	s.UpdateFromFrame(IDCellVoltageFirst, 8, be4(3000, 3000, 3000, 3000))

	cells := s.Cells()
	cells[0] = 0
	assert.InDelta(t, 3.0, s.CellVoltage(0), 1e-9)

	temps := s.Temperatures()
	assert.Len(t, temps, TempCount)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, []FrameKind{KindCellVoltage}, Classify(IDCellVoltageFirst+IDStep, 8))
	assert.Equal(t, []FrameKind{KindTemperature}, Classify(IDTemperatureLast, 8))
	assert.Equal(t, []FrameKind{KindPackSummary}, Classify(IDPackSummary, 8))
	assert.Equal(t, []FrameKind{KindCounts}, Classify(IDCounts, 6))
	assert.Equal(t, []FrameKind{KindTempDelta}, Classify(IDTempDelta, 8))
	assert.Equal(t, []FrameKind{KindReserved}, Classify(IDReserved, 0))
	assert.Equal(t, "counts", KindCounts.String())
}

func TestZeroValueSnapshotIsUnset(t *testing.T) {
	var s Snapshot
	assertUntouched(t, &s)
	for _, v := range s.Cells() {
		assert.True(t, IsUnset(v))
	}
	for _, v := range s.Temperatures() {
		assert.True(t, IsUnset(v))
	}

	raw, err := s.MarshalJSON()
	require.NoError(t, err)
	fresh, err := New().MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(fresh), string(raw))

	// 零值可直接解码, 上报的 0 与未上报区分
	require.True(t, s.UpdateFromFrame(IDCellVoltageFirst+IDStep, 8, make([]byte, 8)))
	assert.Equal(t, 0.0, s.CellVoltage(4))
	assert.True(t, IsUnset(s.CellVoltage(0)))
	assert.True(t, IsUnset(s.CellVoltage(8)))
	cells := s.Cells()
	assert.Equal(t, 0.0, cells[7])
	assert.True(t, IsUnset(cells[3]))
}

func TestApplyReturnsDecodedKinds(t *testing.T) {
	cases := []struct {
		id     uint32
		length uint8
		want   []FrameKind
	}{
		{IDCellVoltageLast, 8, []FrameKind{KindCellVoltage}},
		{IDTemperatureFirst, 8, []FrameKind{KindTemperature}},
		{IDPackSummary, 8, []FrameKind{KindPackSummary}},
		{IDCounts, 6, []FrameKind{KindCounts}},
		{IDTempDelta, 8, []FrameKind{KindTempDelta}},
		{IDReserved, 2, []FrameKind{KindReserved}},
		{IDCounts, 5, nil},
		{0x12345678, 8, nil},
	}
	for _, tc := range cases {
		s := New()
		got := s.Apply(tc.id, tc.length, be4(3300, 3300, 3300, 3300))
		assert.Equal(t, tc.want, got, "0x%08X/%d", tc.id, tc.length)
		assert.Equal(t, Classify(tc.id, tc.length), got, "0x%08X/%d", tc.id, tc.length)
		if tc.want == nil {
			assertUntouched(t, s)
		}
	}
}
