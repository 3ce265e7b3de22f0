package main

import (
	"log/slog"
	"time"

	"github.com/trackreel/trackreel/internal/compositor"
)

// progress logs every tenth of the run.
type progress struct {
	log   *slog.Logger
	total int
	next  int
}

func newProgress(log *slog.Logger) *progress {
	return &progress{log: log}
}

func (p *progress) FrameRendered(index int, _ time.Duration) {
	if p.total <= 0 {
		return
	}
	pct := (index + 1) * 100 / p.total
	if pct < p.next {
		return
	}
	p.log.Info("render progress", "frame", index+1, "of", p.total, "percent", pct)
	p.next = pct/10*10 + 10
}

func (p *progress) Finished(res compositor.Result) {
	if res.Cancelled {
		p.log.Warn("render cancelled", "frames", res.Frames)
	}
}

// observers fans one run out to several observers.
type observers []compositor.Observer

func (o observers) FrameRendered(index int, elapsed time.Duration) {
	for _, obs := range o {
		obs.FrameRendered(index, elapsed)
	}
}

func (o observers) Finished(res compositor.Result) {
	for _, obs := range o {
		obs.Finished(res)
	}
}
