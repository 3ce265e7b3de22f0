package track

import (
	"errors"
	"sort"
	"time"
)

// IdleThreshold is the shortest gap without any track point that is
// collapsed when idle skipping is enabled.
const IdleThreshold = 60 * time.Second

// ErrNoTracks is returned when a timeline is requested for zero usable tracks.
var ErrNoTracks = errors.New("no usable tracks")

type gap struct {
	at   time.Duration // simulated offset where the gap starts
	skip time.Duration
}

// Timeline maps simulated animation time to real, offset-shifted track time.
type Timeline struct {
	start time.Time
	end   time.Time
	span  time.Duration
	gaps  []gap
}

// NewTimeline spans all tracks from the earliest to the latest point. With
// skipIdle, every interval longer than IdleThreshold during which no track has
// a point is removed from simulated time.
func NewTimeline(tracks []*Track, skipIdle bool) (*Timeline, error) {
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}

	tl := &Timeline{start: tracks[0].Start(), end: tracks[0].End()}
	for _, t := range tracks[1:] {
		if t.Start().Before(tl.start) {
			tl.start = t.Start()
		}
		if t.End().After(tl.end) {
			tl.end = t.End()
		}
	}
	tl.span = tl.end.Sub(tl.start)

	if skipIdle {
		var stamps []time.Time
		for _, t := range tracks {
			for _, p := range t.Points {
				stamps = append(stamps, p.Time)
			}
		}
		sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

		var skipped time.Duration
		for i := 1; i < len(stamps); i++ {
			d := stamps[i].Sub(stamps[i-1])
			if d > IdleThreshold {
				tl.gaps = append(tl.gaps, gap{at: stamps[i-1].Sub(tl.start) - skipped, skip: d})
				skipped += d
			}
		}
		tl.span -= skipped
	}
	return tl, nil
}

// Start returns the real time at simulated offset zero.
func (tl *Timeline) Start() time.Time { return tl.start }

// End returns the latest real timestamp.
func (tl *Timeline) End() time.Time { return tl.end }

// Span returns the simulated duration after idle gaps are removed.
func (tl *Timeline) Span() time.Duration { return tl.span }

// RealTime converts a simulated offset into real time.
func (tl *Timeline) RealTime(sim time.Duration) time.Time {
	off := sim
	for _, g := range tl.gaps {
		if sim <= g.at {
			break
		}
		off += g.skip
	}
	return tl.start.Add(off)
}
