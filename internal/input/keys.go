// Package input turns raw player input into control state: hand-gesture
// frames and voice transcripts for the simulation, key presses for the
// terminal client.
package input

import (
	"bufio"
	"time"
)

// keyHoldDuration is how long a steering key is considered "held" after its last press.
const keyHoldDuration = 120 * time.Millisecond

// Keys is the terminal input of one client frame.
type Keys struct {
	// Held steering keys.
	Left  bool
	Right bool
	Up    bool
	Down  bool

	// One-shot presses seen since the previous read.
	Quit   bool
	Toggle bool // Start/pause
	Reset  bool
	Fire   bool
	Boost  bool
	Mode   int // 1..3, 0 when no mode key was pressed

	Closed bool // Input source is gone
}

// Steering reports whether any steering key is held.
func (k Keys) Steering() bool {
	return k.Left || k.Right || k.Up || k.Down
}

// Frame converts held steering keys into a hand frame: the left hand sits at
// the center, pushed toward the held directions.
func (k Keys) Frame() HandFrame {
	p := Point{X: 0.5, Y: 0.5}
	if k.Left {
		p.X -= 0.25
	}
	if k.Right {
		p.X += 0.25
	}
	if k.Up {
		p.Y -= 0.25
	}
	if k.Down {
		p.Y += 0.25
	}
	return HandFrame{
		Left: &p,
		Right: &RightHand{Touches: Touches{
			IndexThumb: k.Fire,
			PinkyThumb: k.Boost,
		}},
	}
}

// keyState tracks the last time each steering key was pressed.
type keyState struct {
	left  time.Time
	right time.Time
	up    time.Time
	down  time.Time
}

// Stream delivers input bytes via a channel and tracks held keys.
type Stream struct {
	ch     chan byte
	state  keyState
	closed bool
}

// StartStream spawns a goroutine that reads from r and sends bytes to the stream.
func StartStream(r *bufio.Reader) *Stream {
	s := &Stream{
		ch: make(chan byte, 128),
	}
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				close(s.ch)
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// drain collects every byte available without blocking.
func (s *Stream) drain() []byte {
	var buf []byte
	for {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.closed = true
				return buf
			}
			buf = append(buf, b)
		default:
			return buf
		}
	}
}

// ReadKeys drains all available bytes from the stream (non-blocking).
// Arrow keys arrive as CSI escape sequences.
func ReadKeys(s *Stream) Keys {
	return s.parse(s.drain(), time.Now())
}

func (s *Stream) parse(buf []byte, now time.Time) Keys {
	var k Keys

	for i := 0; i < len(buf); i++ {
		b := buf[i]

		// CSI sequence: ESC [ <code>
		if b == '\x1b' && i+2 < len(buf) && buf[i+1] == '[' {
			switch buf[i+2] {
			case 'A':
				s.state.up = now
			case 'B':
				s.state.down = now
			case 'C':
				s.state.right = now
			case 'D':
				s.state.left = now
			}
			i += 2
			continue
		}

		switch b {
		case 'q', 'Q', '\x03':
			k.Quit = true
		case ' ':
			k.Toggle = true
		case 'r', 'R':
			k.Reset = true
		case 'f', 'F':
			k.Fire = true
		case 'b', 'B':
			k.Boost = true
		case '1', '2', '3':
			k.Mode = int(b - '0')
		case 'a', 'A', 'h', 'H':
			s.state.left = now
		case 'd', 'D', 'l', 'L':
			s.state.right = now
		case 'w', 'W', 'k', 'K':
			s.state.up = now
		case 's', 'S', 'j', 'J':
			s.state.down = now
		}
	}

	k.Left = now.Sub(s.state.left) < keyHoldDuration
	k.Right = now.Sub(s.state.right) < keyHoldDuration
	k.Up = now.Sub(s.state.up) < keyHoldDuration
	k.Down = now.Sub(s.state.down) < keyHoldDuration
	k.Closed = s.closed
	return k
}
