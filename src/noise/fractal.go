package noise

import (
	"math"

	perlin "github.com/aquilax/go-perlin"

	"github.com/jinjor/whisper/src/num"
)

const (
	octaves     = 6
	lacunarity  = 2.0
	persistence = 0.5
)

// octaveSet holds one single-octave Perlin field per octave, each with its
// own seed so octaves do not line up.
type octaveSet [octaves]*perlin.Perlin

func newOctaves(seed int64) *octaveSet {
	var o octaveSet
	for i := range o {
		o[i] = perlin.NewPerlin(2, 2, 1, seed+int64(i))
	}
	return &o
}

func (o *octaveSet) get(i int, x, y float64) float64 {
	return o[i].Noise2D(x, y)
}

// ----- Billow ----- //

type billow struct {
	octaves *octaveSet
}

func (b *billow) Get(x, y float64) float64 {
	sum := 0.0
	amp := 1.0
	norm := 0.0
	for i := 0; i < octaves; i++ {
		signal := math.Abs(b.octaves.get(i, x, y))*2 - 1
		sum += signal * amp
		norm += amp
		amp *= persistence
		x *= lacunarity
		y *= lacunarity
	}
	return num.Clamp(sum/norm+0.5, -1, 1)
}

// ----- RidgedMulti ----- //

type ridgedMulti struct {
	octaves *octaveSet
}

func (r *ridgedMulti) Get(x, y float64) float64 {
	const (
		offset = 1.0
		gain   = 2.0
	)
	result := 0.0
	weight := 1.0
	spectral := 1.0
	for i := 0; i < octaves; i++ {
		signal := offset - math.Abs(r.octaves.get(i, x, y))
		signal *= signal
		signal *= weight
		weight = num.Clamp(signal*gain, 0, 1)
		result += signal * spectral
		spectral /= lacunarity
		x *= lacunarity
		y *= lacunarity
	}
	return num.Clamp(result*1.25-1, -1, 1)
}

// ----- HybridMulti ----- //

type hybridMulti struct {
	octaves *octaveSet
}

func (h *hybridMulti) Get(x, y float64) float64 {
	const offset = 0.7
	result := h.octaves.get(0, x, y) + offset
	weight := result
	spectral := persistence
	for i := 1; i < octaves; i++ {
		x *= lacunarity
		y *= lacunarity
		if weight > 1 {
			weight = 1
		}
		signal := (h.octaves.get(i, x, y) + offset) * spectral
		result += weight * signal
		weight *= signal
		spectral *= persistence
	}
	return num.Clamp(result/1.4-1, -1, 1)
}

// ----- BasicMulti ----- //

type basicMulti struct {
	octaves *octaveSet
}

func (b *basicMulti) Get(x, y float64) float64 {
	result := b.octaves.get(0, x, y)
	attenuation := persistence
	for i := 1; i < octaves; i++ {
		x *= lacunarity
		y *= lacunarity
		signal := b.octaves.get(i, x, y)
		result += signal * attenuation * result
		attenuation *= persistence
	}
	return num.Clamp(result, -1, 1)
}
