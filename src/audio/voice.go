package audio

// ----- Voice ----- //

/*
  1 +      x--------x
    |     /          \
    |    /            \
    |   /              \
  0 +--x----------------x-- removed
       |attack  |      |release|
       note on      note off

  Linear ramps; the level holds at 1 while the key is down after the attack
  completes. Note off may arrive before the attack completes.
*/
type voice struct {
	note     int
	freq     float64 // Hz
	level    float64 // 0-1, may go slightly below 0 on the last release step
	released bool
}

// levelDriftTolerance snaps an attack that lands just short of 1 after
// accumulating many small increments.
const levelDriftTolerance = 1e-9

func (v *voice) step(attackRate float64, releaseRate float64) {
	if v.released {
		v.level -= releaseRate
		return
	}
	if v.level < 1.0 {
		v.level += attackRate
		if v.level < 1.0 && v.level > 1.0-levelDriftTolerance {
			v.level = 1.0
		}
	}
}

// ----- Voice Pool ----- //

// voicePool owns every sounding voice. Voices live by value in one slice that
// is compacted in place, so steady-state rendering does not allocate as long
// as the polyphony stays within the initial capacity.
type voicePool struct {
	active []voice
}

func newVoicePool(capacity int) *voicePool {
	return &voicePool{
		active: make([]voice, 0, capacity),
	}
}

// noteOn always adds a new voice, even if the same note is already held.
func (p *voicePool) noteOn(note int) {
	p.active = append(p.active, voice{
		note: note,
		freq: noteToFreq(note),
	})
}

// noteOff releases every voice playing the note, including already released
// ones.
func (p *voicePool) noteOff(note int) {
	for i := range p.active {
		if p.active[i].note == note {
			p.active[i].released = true
		}
	}
}

func (p *voicePool) releaseAll() {
	for i := range p.active {
		p.active[i].released = true
	}
}

// step advances every envelope by one sample, then drops the voices that
// reached silence.
func (p *voicePool) step(attackRate float64, releaseRate float64) {
	for i := range p.active {
		p.active[i].step(attackRate, releaseRate)
	}
	n := 0
	for _, v := range p.active {
		if v.level > 0.0 {
			p.active[n] = v
			n++
		}
	}
	p.active = p.active[:n]
}

func (p *voicePool) len() int {
	return len(p.active)
}
