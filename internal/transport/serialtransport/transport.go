// Package serialtransport drives cubes attached to a serial bridge. Each
// command is a small framed packet; the bridge fans commands out to the cube
// addressed by the device byte.
package serialtransport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
)

// Wire format: [SOF0][SOF1][LEN][CMD][device][args...][CKS], where CKS is the
// XOR of LEN, CMD and every payload byte.
const (
	sof0 = 0xAA
	sof1 = 0x55

	cmdPlay = 0x20
	cmdStop = 0x21
)

// maxDuration is the longest sound a cube accepts per command, in
// milliseconds (firmware limit).
const maxDuration = 2550

// Transport implements contracts.Transport over one shared serial port.
type Transport struct {
	mu    sync.Mutex
	port  serial.Port
	name  string
	cubes int
	log   contracts.Logger
}

// New opens the named serial device and assumes cubes devices behind the
// bridge, addressed 0..cubes-1.
func New(name string, baud, cubes int, log contracts.Logger) (*Transport, error) {
	if cubes <= 0 {
		return nil, fmt.Errorf("serial transport needs a positive cube count, got %d", cubes)
	}
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", name, err)
	}
	log.Info("serial port opened",
		log.Field().String("port", name),
		log.Field().Int("baud", baud),
		log.Field().Int("cubes", cubes))
	return &Transport{port: port, name: name, cubes: cubes, log: log}, nil
}

// Devices reports the bridge's configured cubes.
func (t *Transport) Devices() ([]contracts.DeviceInfo, error) {
	out := make([]contracts.DeviceInfo, t.cubes)
	for i := range out {
		out[i] = contracts.DeviceInfo{ID: i, Name: fmt.Sprintf("cube-%d@%s", i, t.name)}
	}
	return out, nil
}

// Open returns a dispatcher addressing one cube behind the bridge.
func (t *Transport) Open(device contracts.DeviceInfo) (contracts.Dispatcher, error) {
	if device.ID < 0 || device.ID >= t.cubes {
		return nil, fmt.Errorf("no cube %d on bridge %s", device.ID, t.name)
	}
	return &dispatcher{transport: t, device: uint8(device.ID)}, nil
}

// Close closes the shared serial port; all dispatchers become unusable.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port.Close()
}

// write sends one framed command. The port is shared between the per-device
// dispatchers, so writes are serialized.
func (t *Transport) write(cmd, device uint8, args ...byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.port.Write(encodeFrame(cmd, device, args...)); err != nil {
		return fmt.Errorf("write to %s: %w", t.name, err)
	}
	return nil
}

// encodeFrame builds the on-wire representation:
//
//	[SOF0][SOF1][LEN][CMD][device][args...][CKS]
func encodeFrame(cmd, device uint8, args ...byte) []byte {
	payload := append([]byte{device}, args...)
	length := byte(len(payload) + 1) // +1 for the CMD byte

	cks := length ^ cmd
	for _, b := range payload {
		cks ^= b
	}

	frame := append([]byte{sof0, sof1, length, cmd}, payload...)
	return append(frame, cks)
}

// dispatcher addresses one cube behind the shared bridge.
type dispatcher struct {
	transport *Transport
	device    uint8
}

func (d *dispatcher) Play(_ context.Context, pitch uint8, duration time.Duration) error {
	ms := duration.Milliseconds()
	if ms > maxDuration {
		ms = maxDuration
	}
	if ms < 0 {
		ms = 0
	}
	return d.transport.write(cmdPlay, d.device, pitch, byte(ms>>8), byte(ms))
}

func (d *dispatcher) Stop(_ context.Context) error {
	return d.transport.write(cmdStop, d.device)
}

// Close is a no-op; the serial port belongs to the transport.
func (d *dispatcher) Close() error {
	return nil
}
