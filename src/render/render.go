package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/youpy/go-wav"

	"github.com/jinjor/whisper/src/audio"
	"github.com/jinjor/whisper/src/noise"
	"github.com/jinjor/whisper/src/num"
)

const (
	numChannels   = 2
	bitsPerSample = 16
	maxAmplitude  = 32767
)

type options struct {
	sampleRate int
	notes      []int
	hold       float64 // sec
	tail       float64 // sec
	attack     float64 // sec
	release    float64 // sec
	seed       int64
}

func parseKinds(args []string) ([]noise.Kind, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no source is passed")
	}
	var kinds []noise.Kind
	for _, arg := range args {
		if arg == "all" {
			return noise.Kinds(), nil
		}
		kind, ok := noise.KindFromString(arg)
		if !ok {
			return nil, fmt.Errorf("unknown source %q", arg)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func parseNotes(s string) ([]int, error) {
	var notes []int
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		note, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid note %q: %w", item, err)
		}
		if note < 0 || note > 127 {
			return nil, fmt.Errorf("note %d is out of range", note)
		}
		notes = append(notes, note)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("no note is passed")
	}
	return notes, nil
}

func (o *options) validate() error {
	if o.sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", o.sampleRate)
	}
	if !(o.hold >= 0) || !(o.tail >= 0) {
		return fmt.Errorf("hold and tail must not be negative (hold: %v, tail: %v)", o.hold, o.tail)
	}
	if math.IsInf(o.hold, 0) || math.IsInf(o.tail, 0) {
		return fmt.Errorf("hold and tail must be finite (hold: %v, tail: %v)", o.hold, o.tail)
	}
	return nil
}

// renderPhrase plays every note in turn with only the given source enabled.
// Each note is held for o.hold seconds and released for o.tail seconds.
func renderPhrase(kind noise.Kind, o *options) []float64 {
	params := audio.NewParams()
	for _, k := range noise.Kinds() {
		params.SetAmount(k, 0)
	}
	params.SetAmount(kind, 1)
	params.SetAttackDuration(o.attack)
	params.SetReleaseDuration(o.release)
	synth := audio.NewSynth(params, float64(o.sampleRate), o.seed)

	holdSamples := int(o.hold * float64(o.sampleRate))
	tailSamples := int(o.tail * float64(o.sampleRate))
	out := make([]float64, 0, len(o.notes)*(holdSamples+tailSamples))
	for _, note := range o.notes {
		synth.NoteOn(note)
		for i := 0; i < holdSamples; i++ {
			out = append(out, synth.RenderSample())
		}
		synth.NoteOff(note)
		for i := 0; i < tailSamples; i++ {
			out = append(out, synth.RenderSample())
		}
	}
	return out
}

func toWavSamples(values []float64) []wav.Sample {
	samples := make([]wav.Sample, len(values))
	for i, v := range values {
		b := int(num.Clamp(v, -1, 1) * maxAmplitude)
		samples[i].Values[0] = b
		samples[i].Values[1] = b
	}
	return samples
}

func renderFile(file string, kind noise.Kind, o *options) error {
	samples := toWavSamples(renderPhrase(kind, o))
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()
	w := wav.NewWriter(f, uint32(len(samples)), numChannels, uint32(o.sampleRate), bitsPerSample)
	if err := w.WriteSamples(samples); err != nil {
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	return f.Close()
}
