// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package metrics

// NewPlatformSampler returns a Sampler for non-Linux build targets.
// Flywatch's process/system reading strategy (/proc/stat, Sysinfo) is
// Linux-specific, matching every PaaS deployment target; off-Linux
// builds (local development on macOS, say) report zero rather than
// fail, the same degrade-gracefully contract Sample() already expects
// from a failed read.
func NewPlatformSampler() Sampler {
	return noopSampler{}
}

type noopSampler struct{}

func (noopSampler) CPUPercent() float64                { return 0 }
func (noopSampler) Memory() (used, total uint64) { return 0, 0 }
