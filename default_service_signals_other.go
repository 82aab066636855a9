//go:build !unix

package zhaptic

import "os"

func defaultSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
