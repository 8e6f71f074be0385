package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/hajimehoshi/oto"

	"github.com/jinjor/whisper/src/num"
)

const (
	channelNum      = 2
	bitDepthInBytes = 2
	samplesPerCycle = 1024
	fftSize         = 2048 // multiple of samplesPerCycle
	eventQueueSize  = 1024
)
const bytesPerSample = bitDepthInBytes * channelNum
const bufferSizeInBytes = samplesPerCycle * bytesPerSample // should be >= 4096

// ----- Utility ----- //

func now() float64 {
	return float64(time.Now().UnixNano()) / 1000 / 1000 / 1000
}

func toRawMessage(v interface{}) json.RawMessage {
	bytes, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return json.RawMessage(bytes)
}

// ----- Config ----- //

// Backend selects the output device library.
type Backend string

const (
	BackendOto   Backend = "oto"
	BackendMalgo Backend = "malgo"
)

// Config ...
type Config struct {
	SampleRate int
	Backend    Backend
	Seed       int64
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		SampleRate: 48000,
		Backend:    BackendOto,
		Seed:       1,
	}
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}
	switch c.Backend {
	case BackendOto, BackendMalgo:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

// ----- Changes ----- //

// Changes ...
type Changes struct {
	sync.Mutex
	dict map[string]struct{}
}

// Add ...
func (c *Changes) Add(key string) {
	c.Lock()
	c.dict[key] = struct{}{}
	c.Unlock()
}

// Has ...
func (c *Changes) Has(key string) bool {
	c.Lock()
	_, ok := c.dict[key]
	c.Unlock()
	return ok
}

// Delete ...
func (c *Changes) Delete(key string) {
	c.Lock()
	delete(c.dict, key)
	c.Unlock()
}

// ----- Audio ----- //

// Audio connects a Synth to an output device and to the control surface.
//
// Read runs on the audio thread. Everything else (commands, MIDI, reports)
// talks to it through the event queue, the atomic Params and the spectrum
// handoff, so the audio thread never waits on a lock.
type Audio struct {
	ctx       context.Context
	config    Config
	synth     *Synth
	params    *Params
	CommandCh chan []string
	Changes   *Changes
	eventCh   chan midiEvent
	pending   []midiEvent
	lastRead  float64
	history   []float64 // length: fftSize
	pos       int64
	spectrum  *spectrum
}

var _ io.Reader = (*Audio)(nil)

// NewAudio does not touch the output device; Start does.
func NewAudio(config Config) (*Audio, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	spectrum, err := newSpectrum(fftSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create spectrum: %w", err)
	}
	params := NewParams()
	commandCh := make(chan []string, 256)
	audio := &Audio{
		ctx:       context.Background(),
		config:    config,
		synth:     NewSynth(params, float64(config.SampleRate), config.Seed),
		params:    params,
		CommandCh: commandCh,
		Changes: &Changes{
			dict: make(map[string]struct{}),
		},
		eventCh:  make(chan midiEvent, eventQueueSize),
		pending:  make([]midiEvent, 0, eventQueueSize),
		history:  make([]float64, fftSize),
		spectrum: spectrum,
	}
	go processCommands(audio, commandCh)
	return audio, nil
}

func processCommands(audio *Audio, commandCh <-chan []string) {
	for command := range commandCh {
		if err := audio.Update(command); err != nil {
			log.Printf("failed to process command %v: %v\n", command, err)
		}
	}
	log.Println("processCommands() ended.")
}

// Params ...
func (a *Audio) Params() *Params {
	return a.params
}

// Read renders len(buf)/4 frames of 16-bit stereo PCM. Both channels carry
// the same value.
func (a *Audio) Read(buf []byte) (int, error) {
	select {
	case <-a.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
	}
	timestamp := now()
	frames := len(buf) / bytesPerSample
	a.drainEvents()
	next := 0
	for i := 0; i < frames; i++ {
		for next < len(a.pending) && a.eventIndex(a.pending[next], frames) <= i {
			a.apply(a.pending[next].event)
			next++
		}
		value := a.synth.RenderSample()
		a.history[a.pos%fftSize] = value
		a.pos++
		for ch := 0; ch < channelNum; ch++ {
			writeSample(buf, i, ch, value)
		}
	}
	for ; next < len(a.pending); next++ {
		a.apply(a.pending[next].event)
	}
	a.pending = a.pending[:0]
	a.lastRead = timestamp
	a.spectrum.publish(a.history, a.pos)
	return frames * bytesPerSample, nil
}

func (a *Audio) drainEvents() {
	for len(a.pending) < cap(a.pending) {
		select {
		case e := <-a.eventCh:
			a.pending = append(a.pending, e)
		default:
			return
		}
	}
}

// eventIndex places an event in the current buffer at the same distance from
// its start as the event arrived after the previous Read.
func (a *Audio) eventIndex(e midiEvent, frames int) int {
	if a.lastRead == 0 || frames == 0 {
		return 0
	}
	index := int((e.at - a.lastRead) * a.synth.SampleRate())
	return num.Clamp(index, 0, frames-1)
}

func (a *Audio) apply(event interface{}) {
	switch data := event.(type) {
	case *noteOn:
		a.synth.NoteOn(data.note)
	case *noteOff:
		a.synth.NoteOff(data.note)
	case *allNotesOff:
		a.synth.AllNotesOff()
	}
}

func writeSample(buf []byte, frame int, ch int, value float64) {
	const max = 32767
	b := int16(num.Clamp(value, -1, 1) * max)
	buf[bytesPerSample*frame+bitDepthInBytes*ch] = byte(b)
	buf[bytesPerSample*frame+bitDepthInBytes*ch+1] = byte(b >> 8)
}

// AddMidiEvent decodes a raw MIDI message. Anything but note-on and note-off
// is ignored.
func (a *Audio) AddMidiEvent(data []byte) {
	event, ok := decodeMidi(data)
	if !ok {
		return
	}
	a.addMidiEvent(event)
}

// NoteOn ...
func (a *Audio) NoteOn(note int) {
	a.addMidiEvent(&noteOn{note: note})
}

// NoteOff ...
func (a *Audio) NoteOff(note int) {
	a.addMidiEvent(&noteOff{note: note})
}

func (a *Audio) addMidiEvent(event interface{}) {
	select {
	case a.eventCh <- midiEvent{at: now(), event: event}:
	default:
		log.Println("[WARN] event queue is full")
	}
}

// Update applies one command of the control surface:
//
//	set mix <source> <value>
//	set envelope attack|release <sec>
//	set param <id> <value>
//	note_on <note>
//	note_off <note>
//	all_notes_off
func (a *Audio) Update(command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}
	switch command[0] {
	case "set":
		if err := a.params.set(command[1:]); err != nil {
			return err
		}
		a.Changes.Add("params")
	case "note_on", "note_off":
		if len(command) != 2 {
			return fmt.Errorf("invalid command %v", command)
		}
		note, err := strconv.ParseInt(command[1], 10, 32)
		if err != nil {
			return err
		}
		if command[0] == "note_on" {
			a.NoteOn(int(note))
		} else {
			a.NoteOff(int(note))
		}
	case "all_notes_off":
		a.addMidiEvent(&allNotesOff{})
	default:
		return fmt.Errorf("unknown command %v", command[0])
	}
	return nil
}

type audioJSON struct {
	Params json.RawMessage `json:"params"`
}

// ApplyJSON ...
func (a *Audio) ApplyJSON(data []byte) error {
	var j audioJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("failed to apply JSON to Audio: %w", err)
	}
	if err := a.params.applyJSON(j.Params); err != nil {
		return err
	}
	a.Changes.Add("params")
	return nil
}

// ToJSON ...
func (a *Audio) ToJSON() []byte {
	bytes, err := json.Marshal(&audioJSON{
		Params: a.params.toJSON(),
	})
	if err != nil {
		panic(err)
	}
	return bytes
}

// GetFFT returns the magnitude spectrum of the latest output, or nil if the
// audio thread has not published anything since the last call.
func (a *Audio) GetFFT() []float64 {
	return a.spectrum.analyze()
}

// Close ...
func (a *Audio) Close() error {
	log.Println("Closing Audio...")
	close(a.CommandCh)
	return nil
}

// Start plays until ctx is done.
func (a *Audio) Start(ctx context.Context) error {
	a.ctx = ctx
	switch a.config.Backend {
	case BackendMalgo:
		return a.startMalgo(ctx)
	default:
		return a.startOto()
	}
}

func (a *Audio) startOto() error {
	otoContext, err := oto.NewContext(a.config.SampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return fmt.Errorf("failed to open oto context: %w", err)
	}
	defer func() {
		if err := otoContext.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()
	p := otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()

	// block until cancel() called
	if _, err := io.CopyBuffer(p, a, make([]byte, bufferSizeInBytes)); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}

func (a *Audio) startMalgo(ctx context.Context) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Print(message)
	})
	if err != nil {
		return fmt.Errorf("failed to init malgo context: %w", err)
	}
	defer func() {
		if err := mctx.Uninit(); err != nil {
			log.Printf("error: %v", err)
		}
		mctx.Free()
	}()
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = channelNum
	cfg.SampleRate = uint32(a.config.SampleRate)
	cfg.PeriodSizeInFrames = samplesPerCycle
	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, framecount uint32) {
			if _, err := a.Read(out); err != nil {
				clear(out)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to init malgo device: %w", err)
	}
	defer device.Uninit()
	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start malgo device: %w", err)
	}

	// block until cancel() called
	<-ctx.Done()
	if err := device.Stop(); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}
