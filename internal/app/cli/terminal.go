package cli

import (
	"bytes"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/dalemusser/souqhub/internal/app/system/livesearch"
)

// Terminal control sequences.
const (
	mouseOn      = "\x1b[?1000h\x1b[?1006h" // button presses, SGR encoding
	mouseOff     = "\x1b[?1000l\x1b[?1006l"
	clearScreen  = "\x1b[H\x1b[2J"
	altScreenOn  = "\x1b[?1049h"
	altScreenOff = "\x1b[?1049l"
)

type keyKind int

const (
	keyRune keyKind = iota
	keyBackspace
	keyEnter
	keyEsc
	keyTab
	keyUp
	keyDown
	keyQuit
	keyMouse
)

// keyEvent is one decoded input event. Mouse points are zero-based cells.
type keyEvent struct {
	kind keyKind
	r    rune
	p    livesearch.Point
}

// parseInput decodes raw-mode input. Incomplete trailing sequences are
// returned in rest so the caller can prepend them to the next read. A lone
// ESC at the end of buf is taken as the Esc key.
func parseInput(buf []byte) (events []keyEvent, rest []byte) {
	i := 0
	for i < len(buf) {
		b := buf[i]
		switch {
		case b == 0x1b:
			if i+1 == len(buf) {
				events = append(events, keyEvent{kind: keyEsc})
				i++
				continue
			}
			if buf[i+1] != '[' {
				events = append(events, keyEvent{kind: keyEsc})
				i++
				continue
			}
			ev, n, ok := parseCSI(buf[i:])
			if !ok {
				return events, buf[i:]
			}
			if ev != nil {
				events = append(events, *ev)
			}
			i += n
		case b == 0x03 || b == 0x04:
			events = append(events, keyEvent{kind: keyQuit})
			i++
		case b == '\r' || b == '\n':
			events = append(events, keyEvent{kind: keyEnter})
			i++
		case b == '\t':
			events = append(events, keyEvent{kind: keyTab})
			i++
		case b == 0x7f || b == 0x08:
			events = append(events, keyEvent{kind: keyBackspace})
			i++
		case b < 0x20:
			i++
		default:
			if !utf8.FullRune(buf[i:]) {
				return events, buf[i:]
			}
			r, n := utf8.DecodeRune(buf[i:])
			if r != utf8.RuneError {
				events = append(events, keyEvent{kind: keyRune, r: r})
			}
			i += n
		}
	}
	return events, nil
}

// parseCSI decodes a sequence starting with ESC [. It returns the event (nil
// for sequences that are ignored), the bytes consumed, and false when the
// sequence is incomplete.
func parseCSI(buf []byte) (*keyEvent, int, bool) {
	if len(buf) < 3 {
		return nil, 0, false
	}
	switch buf[2] {
	case 'A':
		return &keyEvent{kind: keyUp}, 3, true
	case 'B':
		return &keyEvent{kind: keyDown}, 3, true
	case '<':
		end := bytes.IndexAny(buf[3:], "Mm")
		if end < 0 {
			return nil, 0, false
		}
		n := 3 + end + 1
		parts := bytes.Split(buf[3:3+end], []byte(";"))
		if len(parts) != 3 {
			return nil, n, true
		}
		btn, err1 := strconv.Atoi(string(parts[0]))
		x, err2 := strconv.Atoi(string(parts[1]))
		y, err3 := strconv.Atoi(string(parts[2]))
		press := buf[n-1] == 'M'
		// Left button press only; skip releases, motion and the wheel.
		if err1 != nil || err2 != nil || err3 != nil || !press || btn&0b11100011 != 0 {
			return nil, n, true
		}
		return &keyEvent{kind: keyMouse, p: livesearch.Point{X: x - 1, Y: y - 1}}, n, true
	}
	// Other CSI sequences end with a byte in 0x40..0x7e.
	for j := 2; j < len(buf); j++ {
		if buf[j] >= 0x40 && buf[j] <= 0x7e {
			return nil, j + 1, true
		}
	}
	return nil, 0, false
}

// pointerDoc delivers terminal clicks to the controller's outside-click
// listener.
type pointerDoc struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(livesearch.Point)
}

func newPointerDoc() *pointerDoc {
	return &pointerDoc{listeners: map[int]func(livesearch.Point){}}
}

func (d *pointerDoc) OnPointerDown(fn func(livesearch.Point)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.next
	d.next++
	d.listeners[id] = fn
	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

func (d *pointerDoc) dispatch(p livesearch.Point) {
	d.mu.Lock()
	fns := make([]func(livesearch.Point), 0, len(d.listeners))
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}
