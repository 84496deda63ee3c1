// Package miditransport exposes MIDI output ports as cube devices, so the
// merged schedules can be auditioned on any synth without cube hardware.
package miditransport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
)

// ErrPortNotFound is returned when the port behind a discovered device has
// disappeared by the time it is opened.
var ErrPortNotFound = errors.New("midi out port not found")

// Virtual/system ports that are never offered as devices.
var excludedPatterns = []string{"Midi Through", "Through Port", "Dummy"}

const playVelocity = 100

// Transport implements contracts.Transport over MIDI output ports.
type Transport struct {
	channel uint8
	log     contracts.Logger
}

// New creates a MIDI transport sending on the given output channel (0-15).
func New(channel uint8, log contracts.Logger) *Transport {
	return &Transport{channel: channel, log: log}
}

// Devices lists the usable MIDI output ports. Device ids are positions in
// the filtered enumeration, so they are stable across Devices and Open for
// an unchanged port set.
func (t *Transport) Devices() ([]contracts.DeviceInfo, error) {
	var out []contracts.DeviceInfo
	for _, port := range gomidi.GetOutPorts() {
		if excluded(port.String()) {
			t.log.Debug("midi out port excluded", t.log.Field().String("port", port.String()))
			continue
		}
		out = append(out, contracts.DeviceInfo{ID: len(out), Name: port.String()})
	}
	return out, nil
}

// Open binds a dispatcher to the named output port.
func (t *Transport) Open(device contracts.DeviceInfo) (contracts.Dispatcher, error) {
	for _, port := range gomidi.GetOutPorts() {
		if port.String() != device.Name {
			continue
		}
		send, err := gomidi.SendTo(port)
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", device.Name, err)
		}
		t.log.Info("midi out port opened",
			t.log.Field().Int("device", device.ID),
			t.log.Field().String("port", device.Name))
		return &dispatcher{port: port, send: send, channel: t.channel}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrPortNotFound, device.Name)
}

// Close shuts down the underlying MIDI driver.
func (t *Transport) Close() error {
	gomidi.CloseDriver()
	return nil
}

func excluded(name string) bool {
	for _, pat := range excludedPatterns {
		if strings.Contains(strings.ToLower(name), strings.ToLower(pat)) {
			return true
		}
	}
	return false
}

// dispatcher plays notes on one MIDI output port. The note ends when the next
// Play or Stop arrives; MIDI has no per-note duration, so the duration hint
// is not used here.
type dispatcher struct {
	mu       sync.Mutex
	port     drivers.Out
	send     func(gomidi.Message) error
	channel  uint8
	pitch    uint8
	sounding bool
}

func (d *dispatcher) Play(_ context.Context, pitch uint8, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sounding {
		if err := d.send(gomidi.NoteOff(d.channel, d.pitch)); err != nil {
			return err
		}
	}
	if err := d.send(gomidi.NoteOn(d.channel, pitch, playVelocity)); err != nil {
		return err
	}
	d.pitch = pitch
	d.sounding = true
	return nil
}

func (d *dispatcher) Stop(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.sounding {
		return nil
	}
	if err := d.send(gomidi.NoteOff(d.channel, d.pitch)); err != nil {
		return err
	}
	d.sounding = false
	return nil
}

func (d *dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sounding {
		_ = d.send(gomidi.NoteOff(d.channel, d.pitch))
		d.sounding = false
	}
	return d.port.Close()
}
