package audio

import (
	"math/rand"

	"github.com/jinjor/whisper/src/noise"
)

// epsilon is the level below which a mix amount or an envelope is inaudible.
const epsilon = 0.0001

// ----- Mixer ----- //

type mixer struct {
	sources *noise.Set
	rand    *rand.Rand
	time    float64 // sec, advances only while voices sound
}

func newMixer(sources *noise.Set, seed int64) *mixer {
	return &mixer{
		sources: sources,
		rand:    rand.New(rand.NewSource(seed)),
	}
}

// render sums every enabled source of every voice into one sample. Each
// voice samples the fields at (0, time * freq), so different notes read
// different regions of the same field. The sum is not normalized: the
// amplitude grows with the number of voices and sources.
func (m *mixer) render(voices []voice, p *Params, secPerSample float64) float64 {
	if len(voices) == 0 {
		return 0.0
	}
	var amounts [noise.NumKinds]float64
	p.loadAmounts(&amounts)
	out := 0.0
	for i := range voices {
		v := &voices[i]
		if v.level <= epsilon {
			continue
		}
		y := m.time * v.freq
		for k, amount := range amounts {
			if amount <= epsilon {
				continue
			}
			var value float64
			if noise.Kind(k) == noise.White {
				value = (m.rand.Float64() - 0.5) * 2
			} else if src := m.sources[k]; src != nil {
				value = src.Get(0, y)
			} else {
				continue
			}
			out += value * amount * v.level
		}
	}
	m.time += secPerSample
	return out
}
