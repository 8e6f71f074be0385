package audio

import (
	"math"
	"math/cmplx"

	"github.com/ktye/fft"
)

// ----- Spectrum ----- //

// spectrum hands snapshots of the latest output from the audio thread to the
// report loop. Buffers circulate through two channels; the audio thread only
// ever does non-blocking sends and receives.
type spectrum struct {
	size   int
	fft    fft.FFT
	free   chan []float64
	ready  chan []float64
	work   []complex128
	result []float64
}

const spectrumBuffers = 3

func newSpectrum(size int) (*spectrum, error) {
	f, err := fft.New(size)
	if err != nil {
		return nil, err
	}
	s := &spectrum{
		size:   size,
		fft:    f,
		free:   make(chan []float64, spectrumBuffers),
		ready:  make(chan []float64, 1),
		work:   make([]complex128, size),
		result: make([]float64, size/2),
	}
	for i := 0; i < spectrumBuffers; i++ {
		s.free <- make([]float64, size)
	}
	return s, nil
}

// publish copies the ring buffer, oldest sample first, if a free buffer is
// available. Called from the audio thread.
func (s *spectrum) publish(history []float64, pos int64) {
	var b []float64
	select {
	case b = <-s.free:
	default:
		return
	}
	// history: | 4 | 1 | 2 | 3 |
	// offset:      ^
	// b:       | 1 | 2 | 3 | 4 |
	offset := int(pos % int64(s.size))
	copy(b, history[offset:])
	copy(b[s.size-offset:], history[:offset])
	select {
	case stale := <-s.ready:
		s.free <- stale
	default:
	}
	select {
	case s.ready <- b:
	default:
		s.free <- b
	}
}

// analyze returns the magnitude spectrum of the latest snapshot, or nil if
// nothing new was published. The result is reused by the next call, and only
// one goroutine may call analyze.
func (s *spectrum) analyze() []float64 {
	var b []float64
	select {
	case b = <-s.ready:
	default:
		return nil
	}
	han(b)
	for i, v := range b {
		s.work[i] = complex(v, 0)
	}
	s.free <- b
	s.work = s.fft.Transform(s.work)
	for i := range s.result {
		s.result[i] = cmplx.Abs(s.work[i]) * 2 / float64(s.size)
	}
	return s.result
}

func han(data []float64) {
	n := len(data)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n)
		data[i] *= 0.5 - 0.5*math.Cos(2.0*math.Pi*x)
	}
}
