package noise

import (
	"math"
	"math/rand"

	"github.com/jinjor/whisper/src/num"
)

// lattice hashes integer grid points through a seeded permutation table.
type lattice struct {
	perm [512]uint8
}

func newLattice(seed int64) *lattice {
	r := rand.New(rand.NewSource(seed))
	l := &lattice{}
	for i, v := range r.Perm(256) {
		l.perm[i] = uint8(v)
		l.perm[i+256] = uint8(v)
	}
	return l
}

func (l *lattice) hash(x, y int) uint8 {
	return l.perm[int(l.perm[x&255])+y&255]
}

// 6t^5 - 15t^4 + 10t^3
func quintic(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

// ----- Value ----- //

type valueSource struct {
	*lattice
}

func (v *valueSource) at(x, y int) float64 {
	return float64(v.hash(x, y))/255*2 - 1
}

func (v *valueSource) Get(x, y float64) float64 {
	x0, y0 := math.Floor(x), math.Floor(y)
	ix, iy := int(x0), int(y0)
	tx, ty := quintic(x-x0), quintic(y-y0)
	bottom := num.Lerp(v.at(ix, iy), v.at(ix+1, iy), tx)
	top := num.Lerp(v.at(ix, iy+1), v.at(ix+1, iy+1), tx)
	return num.Lerp(bottom, top, ty)
}

// ----- Worley ----- //

// worleySource returns the distance to the nearest feature point, one
// feature point per grid cell.
type worleySource struct {
	*lattice
}

func (w *worleySource) Get(x, y float64) float64 {
	x0, y0 := math.Floor(x), math.Floor(y)
	ix, iy := int(x0), int(y0)
	nearest := math.MaxFloat64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cx, cy := ix+dx, iy+dy
			px := float64(cx) + float64(w.hash(cx, cy))/255
			py := float64(cy) + float64(w.hash(cy+97, cx+31))/255
			d := (px-x)*(px-x) + (py-y)*(py-y)
			if d < nearest {
				nearest = d
			}
		}
	}
	return num.Clamp(math.Sqrt(nearest)*2-1, -1, 1)
}
