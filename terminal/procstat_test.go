package terminal

import (
	"context"
	"errors"
	"testing"
)

type fakeLister struct {
	children map[int32][]int32
	usage    map[int32]ProcessUsage
	failing  map[int32]bool
	queried  []int32
}

func (l *fakeLister) Children(_ context.Context, pid int32) ([]int32, error) {
	l.queried = append(l.queried, pid)
	return l.children[pid], nil
}

func (l *fakeLister) Usage(_ context.Context, pid int32) (ProcessUsage, error) {
	if l.failing[pid] {
		return ProcessUsage{}, errors.New("no such process")
	}
	return l.usage[pid], nil
}

func TestSamplerAggregatesSubtree(t *testing.T) {
	lister := &fakeLister{
		children: map[int32][]int32{
			1: {10, 11},
			10: {20},
			20: {30},
		},
		usage: map[int32]ProcessUsage{
			1:  {Name: "zsh", CPU: 50, Mem: 50},
			10: {Name: "vim", CPU: 1, Mem: 2},
			11: {Name: "node", CPU: 3, Mem: 4},
			20: {Name: "sh", CPU: 0.5, Mem: 0.25},
			30: {Name: "cat", CPU: 0.5, Mem: 0.75},
		},
	}

	got := NewSampler(lister).Sample(context.Background(), 1)

	if got.TotalChildrenCount != 4 {
		t.Fatalf("expected 4 descendants, got %d", got.TotalChildrenCount)
	}
	if got.CPUUsage != 5 || got.MemUsage != 7 {
		t.Fatalf("root must be excluded from usage, got cpu=%v mem=%v", got.CPUUsage, got.MemUsage)
	}
	if len(got.FirstLevelChildrenNames) != 2 || got.FirstLevelChildrenNames[0] != "vim" || got.FirstLevelChildrenNames[1] != "node" {
		t.Fatalf("unexpected first level names: %v", got.FirstLevelChildrenNames)
	}
}

func TestSamplerFailedProcessContributesZero(t *testing.T) {
	lister := &fakeLister{
		children: map[int32][]int32{1: {10, 11}},
		usage: map[int32]ProcessUsage{
			11: {Name: "make", CPU: 2, Mem: 1},
		},
		failing: map[int32]bool{10: true},
	}

	got := NewSampler(lister).Sample(context.Background(), 1)

	if got.TotalChildrenCount != 2 {
		t.Fatalf("failed process should still be counted, got %d", got.TotalChildrenCount)
	}
	if got.CPUUsage != 2 || got.MemUsage != 1 {
		t.Fatalf("unexpected usage: cpu=%v mem=%v", got.CPUUsage, got.MemUsage)
	}
}

func TestSamplerStopsAtMaxDepth(t *testing.T) {
	children := make(map[int32][]int32)
	for pid := int32(1); pid < 50; pid++ {
		children[pid] = []int32{pid + 1}
	}
	lister := &fakeLister{children: children}

	got := NewSampler(lister).Sample(context.Background(), 1)

	if got.TotalChildrenCount != DefaultMaxDepth {
		t.Fatalf("expected walk to stop after %d levels, got %d", DefaultMaxDepth, got.TotalChildrenCount)
	}
	if len(lister.queried) != DefaultMaxDepth {
		t.Fatalf("expected %d children queries, got %d", DefaultMaxDepth, len(lister.queried))
	}
}

func TestSamplerToleratesCycles(t *testing.T) {
	lister := &fakeLister{
		children: map[int32][]int32{
			1: {2},
			2: {3},
			3: {1, 2},
		},
	}

	got := NewSampler(lister).Sample(context.Background(), 1)

	if got.TotalChildrenCount != 2 {
		t.Fatalf("expected cycle members to be counted once, got %d", got.TotalChildrenCount)
	}
}

func TestSamplerWithoutRootIsZero(t *testing.T) {
	got := NewSampler(&fakeLister{}).Sample(context.Background(), 0)
	if got.TotalChildrenCount != 0 || len(got.FirstLevelChildrenNames) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestParsePSUsage(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   ProcessUsage
	}{
		{name: "simple", output: "vim   1.5  0.3\n", want: ProcessUsage{Name: "vim", CPU: 1.5, Mem: 0.3}},
		{name: "path with spaces", output: "/Applications/Some App/bin/helper 0.0 2.5", want: ProcessUsage{Name: "helper", CPU: 0, Mem: 2.5}},
		{name: "bad numbers", output: "node abc def", want: ProcessUsage{Name: "node"}},
		{name: "name only", output: "zsh", want: ProcessUsage{Name: "zsh"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parsePSUsage(tc.output)
			if err != nil {
				t.Fatalf("parsePSUsage failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}

	if _, err := parsePSUsage("  \n"); err == nil {
		t.Fatalf("expected error for empty output")
	}
}

func TestParsePgrepOutput(t *testing.T) {
	got := parsePgrepOutput("123\n456\nnot-a-pid\n")
	if len(got) != 2 || got[0] != 123 || got[1] != 456 {
		t.Fatalf("unexpected pids: %v", got)
	}
}
