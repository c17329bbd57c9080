package system

import (
	"log/slog"
	"runtime"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// PageBudget is the memory one worker is expected to hold while segmenting
// a large scan: the decoded page, its grayscale copy, masks and labels.
const PageBudget = 256 << 20

// InitResourceLimits raises the open file limit so large folders of pages
// can be read and written in parallel.
func InitResourceLimits(logger *slog.Logger) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn("could not read open file limit", "error", err)
		return
	}

	want := raisedLimit(rLimit.Cur, rLimit.Max)
	if want == rLimit.Cur {
		return
	}
	rLimit.Cur = want

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn("could not raise open file limit", "error", err)
	} else {
		logger.Debug("open file limit raised", "limit", rLimit.Cur)
	}
}

// minOpenFiles is the soft open file limit InitResourceLimits aims for.
const minOpenFiles = 2048

// raisedLimit returns the soft limit to request: at least minOpenFiles when
// the hard limit allows it, and never lower than cur.
func raisedLimit(cur, hard uint64) uint64 {
	if cur >= minOpenFiles {
		return cur
	}
	if hard < minOpenFiles {
		return hard
	}
	return minOpenFiles
}

// RecommendedWorkers returns requested when it is positive. Otherwise it
// picks the logical CPU count, capped so that every worker fits PageBudget
// in the memory currently available.
func RecommendedWorkers(requested int) int {
	if requested > 0 {
		return requested
	}

	workers, err := cpu.Counts(true)
	if err != nil || workers < 1 {
		workers = runtime.NumCPU()
	}

	if vm, err := mem.VirtualMemory(); err == nil && vm.Available > 0 {
		byMemory := int(vm.Available / PageBudget)
		if byMemory < workers {
			workers = byMemory
		}
	}

	if workers < 1 {
		workers = 1
	}
	return workers
}
