package converter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// MIDIOut is the part of a MIDI output port the sink needs. drivers.Out
// satisfies it.
type MIDIOut interface {
	Open() error
	IsOpen() bool
	Send(data []byte) error
	Close() error
}

// MIDISink transmits each artifact as a SysEx message to a connected
// device. The file name is ignored.
type MIDISink struct {
	out MIDIOut
}

// NewMIDISink sends to an already selected port.
func NewMIDISink(out MIDIOut) *MIDISink {
	return &MIDISink{out: out}
}

// OpenMIDISink opens the first output port whose name contains
// nameFragment, ignoring case. The returned closer releases the port and
// the driver.
func OpenMIDISink(nameFragment string) (*MIDISink, func(), error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, nil, err
	}
	if len(outs) == 0 {
		return nil, nil, errors.New("no MIDI outputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, out := range outs {
		if !strings.Contains(strings.ToLower(out.String()), lower) {
			continue
		}
		if err := out.Open(); err != nil {
			return nil, nil, err
		}
		closer := func() {
			_ = out.Close()
			drivers.Close()
		}
		return NewMIDISink(out), closer, nil
	}
	return nil, nil, fmt.Errorf("no MIDI output contains %q", nameFragment)
}

// OutPorts lists the available MIDI output ports
func OutPorts() string {
	return midi.GetOutPorts().String()
}

func (s *MIDISink) Emit(ctx context.Context, data []byte, fileName, mimeType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := midi.Message(data)
	if !msg.Is(midi.SysExMsg) {
		return fmt.Errorf("%s is not a SysEx message", fileName)
	}

	if !s.out.IsOpen() {
		if err := s.out.Open(); err != nil {
			return err
		}
	}
	return s.out.Send(msg.Bytes())
}
