//go:build portmidi

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/rakyll/portmidi"

	"github.com/evan-idocoding/zhaptic/driver/midi"
)

// portmidiOut adapts a portmidi output stream to midi.Sender.
type portmidiOut struct {
	s *portmidi.Stream
}

func (o *portmidiOut) Send(msg []byte) error {
	var b [3]int64
	for i := 0; i < len(msg) && i < 3; i++ {
		b[i] = int64(msg[i])
	}
	return o.s.WriteShort(b[0], b[1], b[2])
}

func (o *portmidiOut) Close() error {
	return errors.Join(o.s.Close(), portmidi.Terminate())
}

func openMIDIOutput(device int) (midi.Sender, io.Closer, error) {
	if err := portmidi.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("portmidi: initialize: %w", err)
	}
	id := portmidi.DeviceID(device)
	if device < 0 {
		id = portmidi.DefaultOutputDeviceID()
	}
	if id < 0 {
		_ = portmidi.Terminate()
		return nil, nil, errors.New("portmidi: no output device")
	}
	// Zero latency: messages go out as soon as they are written.
	s, err := portmidi.NewOutputStream(id, 64, 0)
	if err != nil {
		_ = portmidi.Terminate()
		return nil, nil, fmt.Errorf("portmidi: open device %d: %w", id, err)
	}
	out := &portmidiOut{s: s}
	return out, out, nil
}
