// Package noise provides the scalar noise fields sampled by the synth.
//
// Every field maps a 2D coordinate to a value in [-1, 1] and is a pure
// function of its seed, so a Source can be shared by readers without locking.
package noise

import (
	"math"

	perlin "github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"

	"github.com/jinjor/whisper/src/num"
)

// Source evaluates a noise field at (x, y).
type Source interface {
	Get(x, y float64) float64
}

// ----- Kind ----- //

// Kind identifies one noise source. The order is the parameter order of the
// instrument and must not change.
type Kind int

const (
	White Kind = iota
	Perlin
	Value
	Worley
	RidgedMulti
	OpenSimplex
	Billow
	Cylinders
	HybridMulti
	BasicMulti
)

// NumKinds is the number of noise sources.
const NumKinds = int(BasicMulti) + 1

var kindNames = [NumKinds]string{
	"white",
	"perlin",
	"value",
	"worley",
	"ridged_multi",
	"open_simplex",
	"billow",
	"cylinders",
	"hybrid_multi",
	"basic_multi",
}

var kindLabels = [NumKinds]string{
	"White",
	"Perlin",
	"Value",
	"Worley",
	"RidgedMulti",
	"OpenSimplex",
	"Billow",
	"Cylinders",
	"HybridMulti",
	"BasicMulti",
}

func (k Kind) valid() bool {
	return k >= 0 && int(k) < NumKinds
}

// String returns the name used by the command protocol, e.g. "ridged_multi".
func (k Kind) String() string {
	if !k.valid() {
		return ""
	}
	return kindNames[k]
}

// Label returns the display name, e.g. "RidgedMulti".
func (k Kind) Label() string {
	if !k.valid() {
		return ""
	}
	return kindLabels[k]
}

// KindFromString accepts both names and labels.
func KindFromString(s string) (Kind, bool) {
	for i := 0; i < NumKinds; i++ {
		if kindNames[i] == s || kindLabels[i] == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// Kinds returns every kind in parameter order.
func Kinds() []Kind {
	kinds := make([]Kind, NumKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// ----- Set ----- //

// Set is the fixed table of sources indexed by Kind. The White entry is nil:
// white noise has no spatial structure and is drawn from a random generator
// by the caller instead.
type Set [NumKinds]Source

// NewSet builds every source from the same seed.
func NewSet(seed int64) *Set {
	var s Set
	for _, k := range Kinds() {
		s[k] = New(k, seed)
	}
	return &s
}

// New builds the source of the given kind. It returns nil for White and for
// unknown kinds.
func New(kind Kind, seed int64) Source {
	switch kind {
	case Perlin:
		return &perlinSource{p: perlin.NewPerlin(2, 2, 1, seed)}
	case Value:
		return &valueSource{lattice: newLattice(seed)}
	case Worley:
		return &worleySource{lattice: newLattice(seed)}
	case RidgedMulti:
		return &ridgedMulti{octaves: newOctaves(seed)}
	case OpenSimplex:
		return &openSimplexSource{n: opensimplex.New(seed)}
	case Billow:
		return &billow{octaves: newOctaves(seed)}
	case Cylinders:
		return &cylinders{frequency: 1}
	case HybridMulti:
		return &hybridMulti{octaves: newOctaves(seed)}
	case BasicMulti:
		return &basicMulti{octaves: newOctaves(seed)}
	}
	return nil
}

// ----- Perlin ----- //

type perlinSource struct {
	p *perlin.Perlin
}

func (s *perlinSource) Get(x, y float64) float64 {
	return num.Clamp(s.p.Noise2D(x, y), -1, 1)
}

// ----- OpenSimplex ----- //

type openSimplexSource struct {
	n opensimplex.Noise
}

func (s *openSimplexSource) Get(x, y float64) float64 {
	return num.Clamp(s.n.Eval2(x, y), -1, 1)
}

// ----- Cylinders ----- //

// cylinders is a set of concentric cylinders around the origin.
type cylinders struct {
	frequency float64
}

func (c *cylinders) Get(x, y float64) float64 {
	dist := math.Sqrt(x*x+y*y) * c.frequency
	fromSmaller := dist - math.Floor(dist)
	fromLarger := 1 - fromSmaller
	nearest := math.Min(fromSmaller, fromLarger)
	return 1 - nearest*4
}
