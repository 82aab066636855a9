package midi

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/evan-idocoding/zhaptic/feedback"
)

type captureOut struct {
	mu   sync.Mutex
	msgs [][]byte
	err  error
}

func (c *captureOut) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, append([]byte(nil), msg...))
	return nil
}

func (c *captureOut) sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.msgs...)
}

func TestVelocity(t *testing.T) {
	cases := []struct {
		in   float64
		want uint8
	}{
		{-1, 0},
		{0, 0},
		{0.001, 1},
		{0.5, 64},
		{1, 127},
		{3, 127},
	}
	for _, tc := range cases {
		if got := Velocity(tc.in); got != tc.want {
			t.Fatalf("Velocity(%v)=%d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFire_SendsNoteOnThenOff(t *testing.T) {
	out := &captureOut{}
	d := New(out, WithChannel(2))

	if !d.Fire(feedback.Medium, 1) {
		t.Fatalf("Fire returned false")
	}
	msgs := out.sent()
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(msgs))
	}
	if !bytes.Equal(msgs[0], []byte{0x92, 62, 127}) {
		t.Fatalf("note on=% x", msgs[0])
	}
	if len(msgs[1]) < 2 || msgs[1][0] != 0x82 || msgs[1][1] != 62 {
		t.Fatalf("note off=% x", msgs[1])
	}
}

func TestFire_ZeroIntensitySendsNothing(t *testing.T) {
	out := &captureOut{}
	d := New(out)
	if !d.Fire(feedback.Light, 0) {
		t.Fatalf("Fire(0) returned false")
	}
	if n := len(out.sent()); n != 0 {
		t.Fatalf("sent %d messages, want 0", n)
	}
}

func TestWarmUp_SendsArmController(t *testing.T) {
	out := &captureOut{}
	d := New(out, WithArm(20, 100))
	if !d.WarmUp() {
		t.Fatalf("WarmUp returned false")
	}
	msgs := out.sent()
	if len(msgs) != 1 || !bytes.Equal(msgs[0], []byte{0xB0, 20, 100}) {
		t.Fatalf("sent=% x", msgs)
	}

	quiet := &captureOut{}
	if !New(quiet, WithoutArm()).WarmUp() {
		t.Fatalf("WarmUp without arm returned false")
	}
	if len(quiet.sent()) != 0 {
		t.Fatalf("WithoutArm sent messages")
	}
}

func TestSupportsStyle(t *testing.T) {
	d := New(&captureOut{}, WithNotes(map[feedback.Style]uint8{feedback.Heavy: 40, feedback.Soft: 200}))
	if !d.SupportsStyle(feedback.Heavy) {
		t.Fatalf("heavy unsupported")
	}
	if d.SupportsStyle(feedback.Soft) {
		t.Fatalf("soft with invalid note reported supported")
	}
	if d.SupportsStyle(feedback.Light) {
		t.Fatalf("unmapped style reported supported")
	}
	if New(nil).SupportsStyle(feedback.Heavy) {
		t.Fatalf("nil sender reported supported")
	}
}

func TestSendErrorsReportFalse(t *testing.T) {
	out := &captureOut{err: errors.New("port closed")}
	d := New(out)
	if d.Fire(feedback.Rigid, 1) {
		t.Fatalf("Fire returned true on send error")
	}
	if d.WarmUp() {
		t.Fatalf("WarmUp returned true on send error")
	}
	if got := d.SendErrors(); got != 2 {
		t.Fatalf("SendErrors=%d, want 2", got)
	}
}

func TestDriver_InPool(t *testing.T) {
	out := &captureOut{}
	p := feedback.NewPool(New(out))
	p.Prepare(feedback.Heavy)
	if got := p.Trigger(feedback.Heavy, 0.5); got != feedback.ResultFired {
		t.Fatalf("Trigger=%v, want fired", got)
	}
	if n := len(out.sent()); n != 3 {
		t.Fatalf("sent %d messages, want 3 (arm, on, off)", n)
	}
}

func TestNew_CopiesNoteMaps(t *testing.T) {
	orig, origLight := DefaultNotes[feedback.Heavy], DefaultNotes[feedback.Light]
	d := New(&captureOut{})
	DefaultNotes[feedback.Heavy] = 1
	delete(DefaultNotes, feedback.Light)
	defer func() {
		DefaultNotes[feedback.Heavy] = orig
		DefaultNotes[feedback.Light] = origLight
	}()

	if !d.SupportsStyle(feedback.Light) {
		t.Fatalf("driver saw a later DefaultNotes delete")
	}
	if got := d.cfg.notes[feedback.Heavy]; got != orig {
		t.Fatalf("heavy note=%d, want %d", got, orig)
	}

	m := map[feedback.Style]uint8{feedback.Soft: 50}
	custom := New(&captureOut{}, WithNotes(m))
	m[feedback.Rigid] = 51
	if custom.SupportsStyle(feedback.Rigid) {
		t.Fatalf("driver saw a later WithNotes map change")
	}
}
