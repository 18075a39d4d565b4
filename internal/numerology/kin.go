package numerology

import "time"

const (
	KinMin    = 1
	KinMax    = 260
	waveCycle = 13
)

// KinForDate looks the date's year and month up in the KIN table. The day is
// ignored. ok is false when the table has no entry for that year or month.
func (t *Tables) KinForDate(date time.Time) (kin int, ok bool) {
	months, ok := t.kin[date.Year()]
	if !ok {
		return 0, false
	}
	kin, ok = months[int(date.Month())]
	return kin, ok
}

// WaveNumber is the position within the 13-day wavespell.
func WaveNumber(kin int) int {
	return ((kin - 1) % waveCycle) + 1
}

// MirrorKin pairs kin with its reflection across the 260 cycle.
func MirrorKin(kin int) int {
	return KinMax + 1 - kin
}

// OppositeKin is the KIN half a cycle away.
func OppositeKin(kin int) int {
	return ((kin + KinMax/2 - 1) % KinMax) + 1
}

func IsValidKin(kin int) bool {
	return kin >= KinMin && kin <= KinMax
}

// AdvanceKin moves kin forward by days, wrapping around the cycle. Negative
// offsets walk backwards.
func AdvanceKin(kin, days int) int {
	n := (kin - 1 + days) % KinMax
	if n < 0 {
		n += KinMax
	}
	return n + 1
}

func (t *Tables) Eki(kin int) (Eki, bool) {
	e, ok := t.eki[kin]
	return e, ok
}

func (t *Tables) WaveDescription(wave int) string {
	return t.waves[wave]
}

// KakeByKin returns the hexagram whose KIN list contains kin.
func (t *Tables) KakeByKin(kin int) (Kake, bool) {
	idx, ok := t.byKin[kin]
	if !ok {
		return Kake{}, false
	}
	return t.kake[idx], true
}

// KakeByNo returns a hexagram by its number.
func (t *Tables) KakeByNo(no int) (Kake, bool) {
	for _, k := range t.kake {
		if k.No == no {
			return k, true
		}
	}
	return Kake{}, false
}

// AllKake returns every hexagram ordered by number. The slice is a copy.
func (t *Tables) AllKake() []Kake {
	out := make([]Kake, len(t.kake))
	copy(out, t.kake)
	return out
}

// KinRange reports the smallest and largest KIN assigned to any hexagram.
func (t *Tables) KinRange() (lo, hi int) {
	lo, hi = KinMax+1, KinMin-1
	for kin := range t.byKin {
		if kin < lo {
			lo = kin
		}
		if kin > hi {
			hi = kin
		}
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

// HasKake reports whether some hexagram lists kin.
func (t *Tables) HasKake(kin int) bool {
	_, ok := t.byKin[kin]
	return ok
}
