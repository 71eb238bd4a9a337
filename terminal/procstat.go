package terminal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// DefaultMaxDepth bounds the descendant walk.
const DefaultMaxDepth = 10

// ProcessUsage is one process's instantaneous resource usage.
type ProcessUsage struct {
	Name string
	CPU  float64
	Mem  float64
}

// ProcessLister queries the OS process table.
type ProcessLister interface {
	Children(ctx context.Context, pid int32) ([]int32, error)
	Usage(ctx context.Context, pid int32) (ProcessUsage, error)
}

// Sampler aggregates usage over the descendants of a root process.
type Sampler struct {
	Lister   ProcessLister
	MaxDepth int
}

// NewSampler returns a sampler using lister, or GopsutilLister when nil.
func NewSampler(lister ProcessLister) *Sampler {
	if lister == nil {
		lister = GopsutilLister{}
	}
	return &Sampler{Lister: lister, MaxDepth: DefaultMaxDepth}
}

type pendingProcess struct {
	pid   int32
	depth int
}

// Sample walks the process tree below root. The root itself is excluded
// from every aggregate. Failures for a single process contribute zero.
func (s *Sampler) Sample(ctx context.Context, root int32) StatResult {
	result := StatResult{FirstLevelChildrenNames: []string{}}
	if s == nil || s.Lister == nil || root <= 0 {
		return result
	}
	maxDepth := s.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	visited := map[int32]struct{}{root: {}}
	stack := []pendingProcess{{pid: root, depth: 0}}

	for len(stack) > 0 {
		if ctx.Err() != nil {
			break
		}
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current.depth >= maxDepth {
			continue
		}

		children, err := s.Lister.Children(ctx, current.pid)
		if err != nil {
			continue
		}

		for _, child := range children {
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			result.TotalChildrenCount++

			usage, err := s.Lister.Usage(ctx, child)
			if err == nil {
				result.CPUUsage += usage.CPU
				result.MemUsage += usage.Mem
			}
			if current.depth == 0 {
				// A child whose name is unknown still counts.
				result.FirstLevelChildrenNames = append(result.FirstLevelChildrenNames, usage.Name)
			}

			stack = append(stack, pendingProcess{pid: child, depth: current.depth + 1})
		}
	}

	return result
}

// GopsutilLister reads the process table through gopsutil.
type GopsutilLister struct{}

func (GopsutilLister) Children(ctx context.Context, pid int32) ([]int32, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, err
	}
	children, err := proc.ChildrenWithContext(ctx)
	if err != nil {
		if errors.Is(err, process.ErrorNoChildren) {
			return nil, nil
		}
		return nil, err
	}
	pids := make([]int32, 0, len(children))
	for _, child := range children {
		pids = append(pids, child.Pid)
	}
	return pids, nil
}

func (GopsutilLister) Usage(ctx context.Context, pid int32) (ProcessUsage, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return ProcessUsage{}, err
	}

	var usage ProcessUsage
	if name, err := proc.NameWithContext(ctx); err == nil {
		usage.Name = name
	}
	if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
		usage.CPU = cpu
	}
	if mem, err := proc.MemoryPercentWithContext(ctx); err == nil {
		usage.Mem = float64(mem)
	}
	return usage, nil
}

// PSLister shells out to pgrep and ps. It works where gopsutil lacks
// permission to read other processes' details.
type PSLister struct{}

func (PSLister) Children(ctx context.Context, pid int32) ([]int32, error) {
	out, err := exec.CommandContext(ctx, "pgrep", "-P", strconv.Itoa(int(pid))).Output()
	if err != nil {
		var exitErr *exec.ExitError
		// pgrep exits 1 when nothing matched.
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("pgrep -P %d: %w", pid, err)
	}
	return parsePgrepOutput(string(out)), nil
}

func (PSLister) Usage(ctx context.Context, pid int32) (ProcessUsage, error) {
	out, err := exec.CommandContext(ctx, "ps", "-o", "comm=,%cpu=,%mem=", "-p", strconv.Itoa(int(pid))).Output()
	if err != nil {
		return ProcessUsage{}, fmt.Errorf("ps -p %d: %w", pid, err)
	}
	return parsePSUsage(string(out))
}

func parsePgrepOutput(output string) []int32 {
	var pids []int32
	for _, field := range strings.Fields(output) {
		pid, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			continue
		}
		pids = append(pids, int32(pid))
	}
	return pids
}

// parsePSUsage parses one "comm %cpu %mem" line. The command may contain
// spaces, so the numeric columns are taken from the right. Unparseable
// numbers are reported as zero.
func parsePSUsage(output string) (ProcessUsage, error) {
	line := strings.TrimSpace(output)
	if line == "" {
		return ProcessUsage{}, errors.New("empty ps output")
	}
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}

	fields := strings.Fields(line)
	if len(fields) < 3 {
		return ProcessUsage{Name: filepath.Base(line)}, nil
	}

	usage := ProcessUsage{
		Name: filepath.Base(strings.Join(fields[:len(fields)-2], " ")),
	}
	if cpu, err := strconv.ParseFloat(fields[len(fields)-2], 64); err == nil {
		usage.CPU = cpu
	}
	if mem, err := strconv.ParseFloat(fields[len(fields)-1], 64); err == nil {
		usage.Mem = mem
	}
	return usage, nil
}
