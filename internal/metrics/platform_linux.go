// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package metrics

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// cpuReading captures cumulative CPU time from /proc/stat for delta
// computation. The first line of /proc/stat aggregates all CPUs:
//
//	cpu  user nice system idle iowait irq softirq steal guest guest_nice
//
// busy = user + nice + system + irq + softirq + steal
// idle = idle + iowait
type cpuReading struct {
	busy uint64
	idle uint64
}

func readCPUStats() *cpuReading {
	return readCPUStatsFrom("/proc/stat")
}

func readCPUStatsFrom(path string) *cpuReading {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return nil
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 9 || fields[0] != "cpu" {
		return nil
	}

	values := make([]uint64, len(fields)-1)
	for i := 1; i < len(fields); i++ {
		parsed, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return nil
		}
		values[i-1] = parsed
	}

	return &cpuReading{
		busy: values[0] + values[1] + values[2] + values[5] + values[6] + values[7],
		idle: values[3] + values[4],
	}
}

func cpuPercentFromReadings(previous, current *cpuReading) float64 {
	if previous == nil || current == nil {
		return 0
	}
	busyDelta := current.busy - previous.busy
	idleDelta := current.idle - previous.idle
	totalDelta := busyDelta + idleDelta
	if totalDelta == 0 {
		return 0
	}
	return float64(busyDelta) / float64(totalDelta) * 100
}

// linuxSampler implements Sampler by parsing /proc/stat for CPU
// deltas and calling unix.Sysinfo for memory. It keeps the previous
// CPU reading so CPUPercent can compute a delta on each call; the
// first call after process start returns 0 (no baseline yet), which
// matches the platform contract ("may be 0.0 if unavailable").
type linuxSampler struct {
	mu       sync.Mutex
	previous *cpuReading
}

// NewPlatformSampler returns the Sampler for this build target.
func NewPlatformSampler() Sampler {
	return &linuxSampler{}
}

func (s *linuxSampler) CPUPercent() float64 {
	current := readCPUStats()

	s.mu.Lock()
	defer s.mu.Unlock()
	percent := cpuPercentFromReadings(s.previous, current)
	s.previous = current
	return percent
}

func (s *linuxSampler) Memory() (usedBytes, totalBytes uint64) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0
	}
	total := uint64(info.Totalram) * uint64(info.Unit)
	free := uint64(info.Freeram) * uint64(info.Unit)
	if total < free {
		return 0, 0
	}
	return total - free, total
}
