package audio

import (
	"math"

	"github.com/jinjor/whisper/src/noise"
)

const (
	minNote = 0
	maxNote = 127
	maxPoly = 128
	a4Note  = 69
	a4Freq  = 440.0
)

func noteToFreq(note int) float64 {
	return a4Freq * math.Pow(2, float64(note-a4Note)/12)
}

// ----- Synth ----- //

// Synth is the signal core of the instrument: a pool of voices driven by a
// linear attack/release envelope, rendered through a mix of noise sources.
//
// NoteOn, NoteOff, SetSampleRate and RenderSample must be called from a
// single goroutine (the audio thread). Params may be changed from any
// goroutine at any time.
type Synth struct {
	params       *Params
	voices       *voicePool
	mixer        *mixer
	sampleRate   float64
	secPerSample float64
}

// NewSynth ...
func NewSynth(params *Params, sampleRate float64, seed int64) *Synth {
	s := &Synth{
		params: params,
		voices: newVoicePool(maxPoly),
		mixer:  newMixer(noise.NewSet(seed), seed),
	}
	s.sampleRate = 48000
	s.secPerSample = 1.0 / s.sampleRate
	s.SetSampleRate(sampleRate)
	return s
}

// Params ...
func (s *Synth) Params() *Params {
	return s.params
}

// SampleRate ...
func (s *Synth) SampleRate() float64 {
	return s.sampleRate
}

// SetSampleRate ignores rates that are not positive and finite.
func (s *Synth) SetSampleRate(hz float64) {
	if !(hz > 0) || math.IsInf(hz, 1) {
		return
	}
	s.sampleRate = hz
	s.secPerSample = 1.0 / hz
}

// NoteOn ignores notes outside 0-127.
func (s *Synth) NoteOn(note int) {
	if note < minNote || note > maxNote {
		return
	}
	s.voices.noteOn(note)
}

// NoteOff ...
func (s *Synth) NoteOff(note int) {
	s.voices.noteOff(note)
}

// AllNotesOff releases every voice.
func (s *Synth) AllNotesOff() {
	s.voices.releaseAll()
}

// ActiveVoices returns the number of voices still sounding or decaying.
func (s *Synth) ActiveVoices() int {
	return s.voices.len()
}

// RenderSample advances every envelope by one sample and returns the mixed
// output. Durations are read once per sample, so all voices share the same
// rates.
func (s *Synth) RenderSample() float64 {
	attackRate := s.secPerSample / s.params.AttackDuration()
	releaseRate := s.secPerSample / s.params.ReleaseDuration()
	s.voices.step(attackRate, releaseRate)
	return s.mixer.render(s.voices.active, s.params, s.secPerSample)
}

// Process fills out with consecutive samples.
func (s *Synth) Process(out []float64) {
	for i := range out {
		out[i] = s.RenderSample()
	}
}
