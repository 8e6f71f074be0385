package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jinjor/whisper/src/noise"
)

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("expected no error, but got: %v", err)
	}
}

func expectEqual(t *testing.T, actual, expected interface{}) {
	t.Helper()
	if actual != expected {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func expectNearlyEqual(t *testing.T, actual, expected float64) {
	t.Helper()
	if math.Abs(actual-expected) > 0.0001 {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func newTestAudio(t *testing.T) *Audio {
	t.Helper()
	audio, err := NewAudio(DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create audio: %v", err)
	}
	t.Cleanup(func() {
		expectNoError(t, audio.Close())
	})
	return audio
}

func TestBenchmark(t *testing.T) {
	polyphony := 10
	times := 50

	audio := newTestAudio(t)
	out := make([]byte, bufferSizeInBytes)
	for _, kind := range noise.Kinds() {
		expectNoError(t, audio.Update([]string{"set", "mix", kind.String(), "1"}))
	}
	_, err := audio.Read(out)
	expectNoError(t, err)
	for n := 0; n < polyphony; n++ {
		audio.NoteOn(60 + n)
	}
	start := now()
	for n := 0; n < times; n++ {
		_, err = audio.Read(out)
		expectNoError(t, err)
	}
	end := now()
	averageProcessTime := (end - start) / float64(times) * 1000
	fmt.Printf("average process time: %.2fms\n", averageProcessTime)
}

func TestNewAudioValidatesConfig(t *testing.T) {
	config := DefaultConfig()
	config.SampleRate = 0
	if _, err := NewAudio(config); err == nil {
		t.Errorf("expected error for zero sample rate")
	}
	config = DefaultConfig()
	config.Backend = "jack"
	if _, err := NewAudio(config); err == nil {
		t.Errorf("expected error for unknown backend")
	}
}

func TestReadWritesSameValueToBothChannels(t *testing.T) {
	audio := newTestAudio(t)
	audio.NoteOn(69)
	out := make([]byte, bufferSizeInBytes)
	n, err := audio.Read(out)
	expectNoError(t, err)
	expectEqual(t, n, bufferSizeInBytes)
	nonZero := false
	for i := 0; i < samplesPerCycle; i++ {
		left := binary.LittleEndian.Uint16(out[i*bytesPerSample:])
		right := binary.LittleEndian.Uint16(out[i*bytesPerSample+bitDepthInBytes:])
		if left != right {
			t.Fatalf("frame %d: channels differ: %d != %d", i, left, right)
		}
		if left != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Errorf("expected sound after note on")
	}
	expectEqual(t, audio.synth.ActiveVoices(), 1)
}

func TestReadIsSilentWithoutNotes(t *testing.T) {
	audio := newTestAudio(t)
	out := make([]byte, bufferSizeInBytes)
	_, err := audio.Read(out)
	expectNoError(t, err)
	for i, b := range out {
		if b != 0 {
			t.Fatalf("byte %d: expected silence, but got %d", i, b)
		}
	}
}

func TestReadAfterCancel(t *testing.T) {
	audio := newTestAudio(t)
	ctx, cancel := context.WithCancel(context.Background())
	audio.ctx = ctx
	cancel()
	n, err := audio.Read(make([]byte, bufferSizeInBytes))
	expectEqual(t, n, 0)
	expectEqual(t, err, io.EOF)
}

func TestWriteSampleClamps(t *testing.T) {
	buf := make([]byte, bytesPerSample)
	for _, tc := range []struct {
		value float64
		want  int16
	}{
		{0, 0},
		{1, 32767},
		{2.5, 32767},
		{-1, -32767},
		{-3, -32767},
		{0.5, 16383},
	} {
		writeSample(buf, 0, 1, tc.value)
		got := int16(binary.LittleEndian.Uint16(buf[bitDepthInBytes:]))
		if got != tc.want {
			t.Errorf("writeSample(%v) = %d, want %d", tc.value, got, tc.want)
		}
	}
}

func TestDecodeMidi(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
		want interface{}
	}{
		{"note on", []byte{0x90, 60, 100}, &noteOn{note: 60}},
		{"note on ch 2", []byte{0x91, 61, 1}, &noteOn{note: 61}},
		{"note off", []byte{0x80, 60, 0}, &noteOff{note: 60}},
		{"zero velocity", []byte{0x90, 62, 0}, &noteOff{note: 62}},
		{"control change", []byte{0xb0, 7, 100}, nil},
		{"short", []byte{0x90, 60}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := decodeMidi(tc.data)
			expectEqual(t, ok, tc.want != nil)
			if tc.want == nil {
				return
			}
			if diff := cmp.Diff(tc.want, got, cmp.AllowUnexported(noteOn{}, noteOff{})); diff != "" {
				t.Errorf("event mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMidiEventsReachSynth(t *testing.T) {
	audio := newTestAudio(t)
	out := make([]byte, bufferSizeInBytes)
	audio.AddMidiEvent([]byte{0x90, 60, 100})
	audio.AddMidiEvent([]byte{0x90, 64, 100})
	audio.AddMidiEvent([]byte{0xb0, 1, 1})
	_, err := audio.Read(out)
	expectNoError(t, err)
	expectEqual(t, audio.synth.ActiveVoices(), 2)

	expectNoError(t, audio.Update([]string{"all_notes_off"}))
	for i := 0; i < 100 && audio.synth.ActiveVoices() > 0; i++ {
		_, err = audio.Read(out)
		expectNoError(t, err)
	}
	expectEqual(t, audio.synth.ActiveVoices(), 0)
}

func TestUpdate(t *testing.T) {
	audio := newTestAudio(t)
	expectNoError(t, audio.Update([]string{"set", "mix", "perlin", "0.5"}))
	expectEqual(t, audio.Params().Amount(noise.Perlin), 0.5)
	expectEqual(t, audio.Changes.Has("params"), true)
	audio.Changes.Delete("params")

	expectNoError(t, audio.Update([]string{"note_on", "60"}))
	expectNoError(t, audio.Update([]string{"note_off", "60"}))
	expectEqual(t, audio.Changes.Has("params"), false)

	for _, command := range [][]string{
		{},
		{"poly"},
		{"note_on"},
		{"note_on", "C4"},
		{"set", "mix", "pink", "1"},
	} {
		if err := audio.Update(command); err == nil {
			t.Errorf("expected error for %v", command)
		}
	}
}

func TestAudioJSON(t *testing.T) {
	audio := newTestAudio(t)
	expectNoError(t, audio.Update([]string{"set", "envelope", "attack", "0.25"}))
	data := audio.ToJSON()

	other := newTestAudio(t)
	expectNoError(t, other.ApplyJSON(data))
	expectEqual(t, other.Params().AttackDuration(), 0.25)
	expectEqual(t, other.Changes.Has("params"), true)

	if err := other.ApplyJSON([]byte("{")); err == nil {
		t.Errorf("expected error for broken JSON")
	}
}

func TestGetFFT(t *testing.T) {
	audio := newTestAudio(t)
	if audio.GetFFT() != nil {
		t.Errorf("expected no spectrum before the first Read")
	}
	expectNoError(t, audio.Update([]string{"set", "mix", "white", "0"}))
	expectNoError(t, audio.Update([]string{"set", "mix", "cylinders", "1"}))
	expectNoError(t, audio.Update([]string{"set", "envelope", "attack", "0"}))
	audio.NoteOn(69)
	out := make([]byte, bufferSizeInBytes)
	for i := 0; i < 3; i++ {
		_, err := audio.Read(out)
		expectNoError(t, err)
	}
	result := audio.GetFFT()
	expectEqual(t, len(result), fftSize/2)
	peak := 0
	for i, v := range result {
		if v > result[peak] {
			peak = i
		}
	}
	// cylinders along one axis is a triangle wave at the note frequency
	binHz := float64(DefaultConfig().SampleRate) / fftSize
	expectNearlyEqual(t, math.Round(float64(peak)*binHz/440), 1)
	if audio.GetFFT() != nil {
		t.Errorf("expected no new spectrum without Read")
	}
}
