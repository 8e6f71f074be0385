package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/youpy/go-wav"

	"github.com/jinjor/whisper/src/noise"
)

func testOptions() *options {
	return &options{
		sampleRate: 1000,
		notes:      []int{60, 64},
		hold:       0.2,
		tail:       0.3,
		attack:     0.01,
		release:    0.1,
		seed:       1,
	}
}

func TestParseNotes(t *testing.T) {
	notes, err := parseNotes("48, 60,,72")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]int{48, 60, 72}, notes); diff != "" {
		t.Errorf("notes mismatch (-want +got):\n%s", diff)
	}
	for _, s := range []string{"", "C4", "128", "-1"} {
		if _, err := parseNotes(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestParseKinds(t *testing.T) {
	kinds, err := parseKinds([]string{"perlin", "RidgedMulti"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]noise.Kind{noise.Perlin, noise.RidgedMulti}, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
	kinds, err = parseKinds([]string{"all"})
	if err != nil || len(kinds) != noise.NumKinds {
		t.Errorf("expected every source, but got %v, %v", kinds, err)
	}
	if _, err := parseKinds(nil); err == nil {
		t.Errorf("expected error for no source")
	}
	if _, err := parseKinds([]string{"pink"}); err == nil {
		t.Errorf("expected error for unknown source")
	}
}

func TestRenderPhrase(t *testing.T) {
	o := testOptions()
	out := renderPhrase(noise.White, o)
	if len(out) != 1000 {
		t.Fatalf("expected 1000 samples, but got %d", len(out))
	}
	sounding := false
	for _, v := range out[:200] {
		if v != 0 {
			sounding = true
		}
	}
	if !sounding {
		t.Errorf("expected sound while the note is held")
	}
	// both notes have been released for longer than the release duration
	for i, v := range out[900:] {
		if v != 0 {
			t.Fatalf("sample %d: expected silence, but got %v", 900+i, v)
		}
	}
}

func TestToWavSamplesClamps(t *testing.T) {
	samples := toWavSamples([]float64{0, 0.5, 2, -2})
	want := []int{0, 16383, 32767, -32767}
	for i, s := range samples {
		if s.Values[0] != want[i] || s.Values[1] != want[i] {
			t.Errorf("sample %d: expected %d, but got %v", i, want[i], s.Values)
		}
	}
}

func TestRenderFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "white.wav")
	if err := renderFile(file, noise.White, testOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := os.Open(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()
	format, err := wav.NewReader(f).Format()
	if err != nil {
		t.Fatalf("failed to read format: %v", err)
	}
	if format.NumChannels != numChannels || format.SampleRate != 1000 || format.BitsPerSample != bitsPerSample {
		t.Errorf("unexpected format: %+v", format)
	}
}

func TestValidateOptions(t *testing.T) {
	if err := testOptions().validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, tc := range []struct {
		name   string
		modify func(o *options)
	}{
		{"zero sample rate", func(o *options) { o.sampleRate = 0 }},
		{"negative sample rate", func(o *options) { o.sampleRate = -48000 }},
		{"negative hold", func(o *options) { o.hold = -1 }},
		{"negative tail", func(o *options) { o.tail = -0.5 }},
		{"NaN hold", func(o *options) { o.hold = math.NaN() }},
		{"infinite tail", func(o *options) { o.tail = math.Inf(1) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o := testOptions()
			tc.modify(o)
			if err := o.validate(); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}
