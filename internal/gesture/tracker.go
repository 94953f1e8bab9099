package gesture

import "time"

const velocityWindow = 100 * time.Millisecond

type sample struct {
	t time.Time
	p point
}

// tracker estimates release velocity from the last velocityWindow of
// focus samples.
type tracker struct {
	samples []sample
}

func (t *tracker) reset() { t.samples = t.samples[:0] }

func (t *tracker) add(now time.Time, p point) {
	t.samples = append(t.samples, sample{now, p})
	cut := 0
	for cut < len(t.samples)-1 && now.Sub(t.samples[cut].t) > velocityWindow {
		cut++
	}
	t.samples = t.samples[cut:]
}

// velocity in px/s; zero when the pointer rested longer than the window.
func (t *tracker) velocity(now time.Time) (float64, float64) {
	if len(t.samples) < 2 {
		return 0, 0
	}
	first, last := t.samples[0], t.samples[len(t.samples)-1]
	if now.Sub(last.t) > velocityWindow {
		return 0, 0
	}
	dt := last.t.Sub(first.t).Seconds()
	if dt <= 0 {
		return 0, 0
	}
	return (last.p.x - first.p.x) / dt, (last.p.y - first.p.y) / dt
}
