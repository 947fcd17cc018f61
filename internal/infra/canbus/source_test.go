package canbus

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.einride.tech/can"
)

func TestParseCandumpLine(t *testing.T) {
	ts, f, err := ParseCandumpLine("(1700000000.500000) can0 18130181#0C1C0BB83433012C")
	require.NoError(t, err)
	assert.InDelta(t, 1700000000.5, ts, 1e-6)
	assert.Equal(t, uint32(0x18130181), f.ID)
	assert.True(t, f.IsExtended)
	assert.Equal(t, uint8(8), f.Length)
	assert.Equal(t, can.Data{0x0C, 0x1C, 0x0B, 0xB8, 0x34, 0x33, 0x01, 0x2C}, f.Data)

	ts, f, err = ParseCandumpLine("18130281#301803110402")
	require.NoError(t, err)
	assert.Zero(t, ts)
	assert.Equal(t, uint8(6), f.Length)
	assert.Equal(t, byte(48), f.Data[0])

	_, _, err = ParseCandumpLine("(1.0) can0 garbage")
	assert.Error(t, err)
}

func TestReplaySource(t *testing.T) {
	log := strings.Join([]string{
		"# captured on reference pack",
		"(1.000000) can0 18110181#0C1C0C1C0C1C0C1C",
		"",
		"(1.010000) can0 18130481#",
		"(1.020000) can0 18130281#301803110402",
	}, "\n")

	src := NewReplaySource(strings.NewReader(log))
	src.Realtime = true
	defer src.Close()

	ctx := context.Background()
	var ids []uint32
	for {
		f, err := src.ReadFrame(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []uint32{0x18110181, 0x18130481, 0x18130281}, ids)
}

func TestReplaySourceReportsLine(t *testing.T) {
	src := NewReplaySource(strings.NewReader("18110181#00\nnot-a-frame\n"))
	_, err := src.ReadFrame(context.Background())
	require.NoError(t, err)
	_, err = src.ReadFrame(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestChanSource(t *testing.T) {
	src := NewChanSource(1)
	require.True(t, src.Push(can.Frame{ID: 1}))
	assert.False(t, src.Push(can.Frame{ID: 2}), "buffer full")

	f, err := src.ReadFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), f.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = src.ReadFrame(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	_, err = src.ReadFrame(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, src.Push(can.Frame{ID: 3}))
}
