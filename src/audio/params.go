package audio

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/jinjor/whisper/src/noise"
	"github.com/jinjor/whisper/src/num"
)

// ----- Atomic Float ----- //

type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat) store(value float64) {
	f.bits.Store(math.Float64bits(value))
}

// ----- Params ----- //

const (
	paramAttack  = noise.NumKinds
	paramRelease = noise.NumKinds + 1
	numParams    = noise.NumKinds + 2
)

const (
	minDuration     = 0.001 // sec
	defaultDuration = 0.5   // sec
)

// Params holds the mix amount of every noise source and the envelope
// durations. Each value is its own atomic cell: the control side writes
// while the render path reads, and neither ever waits for the other.
//
// Parameter ids: 0..9 are the mix amounts in noise.Kind order,
// 10 is the attack duration and 11 the release duration.
type Params struct {
	amounts [noise.NumKinds]atomicFloat // 0-1
	attack  atomicFloat                 // sec
	release atomicFloat                 // sec
}

// NewParams returns white noise only, with half a second of attack and release.
func NewParams() *Params {
	p := &Params{}
	p.amounts[noise.White].store(1.0)
	p.attack.store(defaultDuration)
	p.release.store(defaultDuration)
	return p
}

// Len ...
func (p *Params) Len() int {
	return numParams
}

// Get returns the value of the parameter, or 0 for an unknown id.
func (p *Params) Get(id int) float64 {
	switch {
	case id >= 0 && id < noise.NumKinds:
		return p.amounts[id].load()
	case id == paramAttack:
		return p.attack.load()
	case id == paramRelease:
		return p.release.load()
	}
	return 0
}

// Set clamps the value into the range of the parameter. Durations only have
// a lower bound. NaN, infinities and unknown ids are ignored.
func (p *Params) Set(id int, value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	switch {
	case id >= 0 && id < noise.NumKinds:
		p.amounts[id].store(num.Clamp(value, 0, 1))
	case id == paramAttack:
		p.attack.store(max(value, minDuration))
	case id == paramRelease:
		p.release.store(max(value, minDuration))
	}
}

// Name ...
func (p *Params) Name(id int) string {
	switch {
	case id >= 0 && id < noise.NumKinds:
		return noise.Kind(id).Label()
	case id == paramAttack:
		return "Attack"
	case id == paramRelease:
		return "Release"
	}
	return ""
}

// Text formats the value for display: "12.5%" for amounts, "0.5s" for durations.
func (p *Params) Text(id int) string {
	switch {
	case id >= 0 && id < noise.NumKinds:
		return fmt.Sprintf("%.1f%%", p.Get(id)*100)
	case id == paramAttack, id == paramRelease:
		return fmt.Sprintf("%.1fs", p.Get(id))
	}
	return ""
}

// Amount ...
func (p *Params) Amount(kind noise.Kind) float64 {
	return p.Get(int(kind))
}

// SetAmount ...
func (p *Params) SetAmount(kind noise.Kind, value float64) {
	p.Set(int(kind), value)
}

// AttackDuration ...
func (p *Params) AttackDuration() float64 {
	return p.attack.load()
}

// SetAttackDuration ...
func (p *Params) SetAttackDuration(sec float64) {
	p.Set(paramAttack, sec)
}

// ReleaseDuration ...
func (p *Params) ReleaseDuration() float64 {
	return p.release.load()
}

// SetReleaseDuration ...
func (p *Params) SetReleaseDuration(sec float64) {
	p.Set(paramRelease, sec)
}

// loadAmounts reads every mix amount once. Each value is read atomically;
// the set as a whole is not a snapshot.
func (p *Params) loadAmounts(dst *[noise.NumKinds]float64) {
	for i := range p.amounts {
		dst[i] = p.amounts[i].load()
	}
}

// set applies the arguments of a "set" command:
//
//	mix <source> <value>
//	envelope attack|release <sec>
//	param <id> <value>
func (p *Params) set(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("invalid set command %v", args)
	}
	value, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return err
	}
	switch args[0] {
	case "mix":
		kind, ok := noise.KindFromString(args[1])
		if !ok {
			return fmt.Errorf("unknown noise source %q", args[1])
		}
		p.SetAmount(kind, value)
	case "envelope":
		switch args[1] {
		case "attack":
			p.SetAttackDuration(value)
		case "release":
			p.SetReleaseDuration(value)
		default:
			return fmt.Errorf("unknown envelope key %q", args[1])
		}
	case "param":
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		if id < 0 || id >= numParams {
			return fmt.Errorf("unknown param id %d", id)
		}
		p.Set(id, value)
	default:
		return fmt.Errorf("unknown param group %q", args[0])
	}
	return nil
}

type paramsJSON struct {
	Mix     map[string]float64 `json:"mix"`
	Attack  float64            `json:"attack"`
	Release float64            `json:"release"`
}

func (p *Params) toJSON() json.RawMessage {
	mix := make(map[string]float64, noise.NumKinds)
	for _, k := range noise.Kinds() {
		mix[k.String()] = p.Amount(k)
	}
	return toRawMessage(&paramsJSON{
		Mix:     mix,
		Attack:  p.AttackDuration(),
		Release: p.ReleaseDuration(),
	})
}

// applyJSON sets every value present in data. Missing sources keep their
// current amount. Nothing is changed if data names an unknown source.
func (p *Params) applyJSON(data json.RawMessage) error {
	var j paramsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("failed to apply JSON to params: %w", err)
	}
	amounts := make(map[noise.Kind]float64, len(j.Mix))
	for name, value := range j.Mix {
		kind, ok := noise.KindFromString(name)
		if !ok {
			return fmt.Errorf("unknown noise source %q", name)
		}
		amounts[kind] = value
	}
	for kind, value := range amounts {
		p.SetAmount(kind, value)
	}
	if j.Attack != 0 {
		p.SetAttackDuration(j.Attack)
	}
	if j.Release != 0 {
		p.SetReleaseDuration(j.Release)
	}
	return nil
}
