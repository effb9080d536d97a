package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
)

// runStats is what the process cost after an evaluation.
type runStats struct {
	Elapsed time.Duration
	Words   int
	RSS     uint64
	User    float64
	System  float64
	Threads int32
}

// collectStats samples the current process.
func collectStats(elapsed time.Duration, words int) (runStats, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return runStats{}, fmt.Errorf("process stats: %w", err)
	}
	st := runStats{Elapsed: elapsed, Words: words}
	mem, err := p.MemoryInfo()
	if err != nil {
		return runStats{}, fmt.Errorf("process memory: %w", err)
	}
	st.RSS = mem.RSS
	times, err := p.Times()
	if err != nil {
		return runStats{}, fmt.Errorf("process times: %w", err)
	}
	st.User, st.System = times.User, times.System
	// Thread counts are not available everywhere.
	st.Threads, _ = p.NumThreads()
	return st, nil
}

func (s runStats) String() string {
	out := fmt.Sprintf("evaluated in %s  stack %d words  rss %s  cpu user %.2fs sys %.2fs",
		s.Elapsed.Round(time.Microsecond), s.Words, humanize.IBytes(s.RSS), s.User, s.System)
	if s.Threads > 0 {
		out += fmt.Sprintf("  threads %d", s.Threads)
	}
	return out
}
