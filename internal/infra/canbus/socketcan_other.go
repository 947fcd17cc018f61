//go:build !linux

package canbus

import (
	"context"
	"errors"

	"go.einride.tech/can"
)

var errUnsupported = errors.New("canbus: socketcan is only available on linux")

type SocketCANSource struct{}

func NewSocketCANSource(ctx context.Context, iface string) (*SocketCANSource, error) {
	return nil, errUnsupported
}

func (s *SocketCANSource) ReadFrame(ctx context.Context) (can.Frame, error) {
	return can.Frame{}, errUnsupported
}

func (s *SocketCANSource) Close() error { return nil }
