//go:build !portmidi

package cli

import (
	"errors"
	"io"

	"github.com/evan-idocoding/zhaptic/driver/midi"
)

var errMIDIUnavailable = errors.New("midi output requires a build with -tags portmidi")

func openMIDIOutput(int) (midi.Sender, io.Closer, error) {
	return nil, nil, errMIDIUnavailable
}
