package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/jinjor/whisper/src/audio"
)

// one octave from C, laid out like a piano on the home row
var keyOffsets = map[byte]int{
	'a': 0, 'w': 1, 's': 2, 'e': 3, 'd': 4, 'f': 5, 't': 6,
	'g': 7, 'y': 8, 'h': 9, 'u': 10, 'j': 11, 'k': 12, 'o': 13, 'l': 14,
}

const (
	keyCtrlC = 3
	keyQuit  = 'q'
)

type keyboard struct {
	octave int // note of the 'a' key
}

// press returns the note of the key, and handles the octave keys 'z' and 'x'.
func (k *keyboard) press(key byte) (int, bool) {
	switch key {
	case 'z':
		if k.octave >= 12 {
			k.octave -= 12
		}
		return 0, false
	case 'x':
		if k.octave+12+14 <= 127 {
			k.octave += 12
		}
		return 0, false
	}
	offset, ok := keyOffsets[key]
	if !ok {
		return 0, false
	}
	return k.octave + offset, true
}

// playKeys turns key presses into notes of fixed length. Terminals do not
// report key releases, so every note is released after gate.
func playKeys(ctx context.Context, cancel context.CancelFunc, a *audio.Audio, gate time.Duration) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("-keys needs a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to make terminal raw: %w", err)
	}
	defer func() {
		if err := term.Restore(fd, state); err != nil {
			log.Printf("failed to restore terminal: %v\n", err)
		}
	}()
	fmt.Print("play with a-l and w-o, z/x to change octave, q to quit\r\n")

	keyCh := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := os.Stdin.Read(buf); err != nil {
				close(keyCh)
				return
			}
			select {
			case keyCh <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()

	kb := &keyboard{octave: 60}
	for {
		select {
		case <-ctx.Done():
			return nil
		case key, ok := <-keyCh:
			if !ok || key == keyQuit || key == keyCtrlC {
				cancel()
				return nil
			}
			note, ok := kb.press(key)
			if !ok {
				continue
			}
			a.NoteOn(note)
			time.AfterFunc(gate, func() {
				a.NoteOff(note)
			})
		}
	}
}
