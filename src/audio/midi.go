package audio

import (
	"context"
	"fmt"
	"log"

	"gitlab.com/gomidi/rtmididrv"
)

// ----- MIDI Event ----- //

type midiEvent struct {
	at    float64 // sec, from now()
	event interface{}
}

type noteOn struct {
	note int
}
type noteOff struct {
	note int
}
type allNotesOff struct{}

// decodeMidi understands note-on and note-off on any channel. A note-on with
// velocity 0 is a note-off.
func decodeMidi(data []byte) (interface{}, bool) {
	if len(data) < 3 {
		return nil, false
	}
	note := int(data[1] & 0x7f)
	switch data[0] >> 4 {
	case 0x8:
		return &noteOff{note: note}, true
	case 0x9:
		if data[2] == 0 {
			return &noteOff{note: note}, true
		}
		return &noteOn{note: note}, true
	}
	return nil, false
}

// ----- MIDI IN ----- //

var newMidiDriver = rtmididrv.New

// ListenToMidiIn passes the raw messages of the MIDI IN port to onData until
// ctx is done. Without a usable MIDI system or the port, it logs and returns
// nil right away so the instrument keeps playing.
func ListenToMidiIn(ctx context.Context, port int, onData func([]byte)) error {
	drv, err := newMidiDriver()
	if err != nil {
		log.Printf("WARN: failed to initialize MIDI driver: %v\n", err)
		return nil
	}
	defer func() {
		if err := drv.Close(); err != nil {
			log.Printf("failed to close MIDI driver: %v\n", err)
		}
	}()
	ins, err := drv.Ins()
	if err != nil {
		log.Printf("WARN: failed to get MIDI IN: %v\n", err)
		return nil
	}
	log.Printf("MIDI IN: %v\n", ins)
	if port < 0 || port >= len(ins) {
		log.Printf("WARN: MIDI IN %d not found\n", port)
		return nil
	}
	in := ins[port]
	if err := in.Open(); err != nil {
		return fmt.Errorf("failed to open MIDI IN: %w", err)
	}
	log.Println("opened " + in.String())
	defer func() {
		if err := in.Close(); err != nil {
			log.Printf("failed to close MIDI IN: %v\n", err)
		}
	}()
	if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
		onData(data)
	}); err != nil {
		return fmt.Errorf("failed to set listener: %w", err)
	}
	defer func() {
		log.Println("stop listening MIDI IN...")
		if err := in.StopListening(); err != nil {
			log.Printf("failed to stop listening: %v\n", err)
		}
	}()
	log.Println("start listening MIDI IN...")
	<-ctx.Done()
	return nil
}
