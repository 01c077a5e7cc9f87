package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func smallOptions(t *testing.T) Options {
	return Options{
		Clients:     50,
		Finds:       20,
		Iterations:  2,
		Cells:       4,
		Extent:      15,
		Half:        100,
		Seed:        7,
		PersistPath: filepath.Join(t.TempDir(), "grid.json"),
		KeepFinal:   true,
	}
}

func phaseNames(phases []Phase) []string {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.Name
	}
	return names
}

func TestPhases(t *testing.T) {
	o := Options{Clients: 10, Finds: 3}
	if diff := cmp.Diff([]string{"add", "find", "update", "remove"}, phaseNames(o.Phases())); diff != "" {
		t.Errorf("phases without persist (-want +got):\n%s", diff)
	}
	o.PersistPath = "grid.json"
	if diff := cmp.Diff([]string{"add", "find", "update", "persist", "read", "remove"}, phaseNames(o.Phases())); diff != "" {
		t.Errorf("phases with persist (-want +got):\n%s", diff)
	}
	if got := o.Phases()[1].Ops; got != 3 {
		t.Errorf("find ops = %d, want 3", got)
	}
}

func TestOptionsValidate(t *testing.T) {
	good := Options{Clients: 1, Finds: 1, Iterations: 1, Cells: 1, Extent: 0, Half: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate(%+v) = %v", good, err)
	}
	bad := []func(o *Options){
		func(o *Options) { o.Clients = 0 },
		func(o *Options) { o.Finds = 0 },
		func(o *Options) { o.Iterations = 0 },
		func(o *Options) { o.Cells = 0 },
		func(o *Options) { o.Cells = 4096 },
		func(o *Options) { o.Extent = -1 },
		func(o *Options) { o.Extent = math.NaN() },
		func(o *Options) { o.Half = 0 },
	}
	for i, mutate := range bad {
		o := good
		mutate(&o)
		if err := o.Validate(); err == nil {
			t.Errorf("case %d: Validate(%+v) = nil, want error", i, o)
		}
	}
}

func TestRun(t *testing.T) {
	o := smallOptions(t)
	res, err := Run(o)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Times) != o.Iterations {
		t.Fatalf("got %d iterations, want %d", len(res.Times), o.Iterations)
	}
	for i, times := range res.Times {
		if len(times) != len(res.Phases) {
			t.Errorf("iteration %d has %d timings, want %d", i, len(times), len(res.Phases))
		}
	}
	if res.Final == nil || res.Final.Len() != o.Clients {
		t.Fatalf("final grid missing or incomplete: %v", res.Final)
	}
	// 50 entities over 16 cells; the fixed seed keeps this stable
	if res.Hits == 0 {
		t.Error("range queries returned nothing")
	}
	if _, err := os.Stat(o.PersistPath); err != nil {
		t.Errorf("persisted grid missing: %v", err)
	}
}

func TestRunIsDeterministicPerSeed(t *testing.T) {
	o := smallOptions(t)
	o.Iterations = 1
	a, err := Run(o)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(o)
	if err != nil {
		t.Fatal(err)
	}
	if a.Hits != b.Hits {
		t.Errorf("hits differ for the same seed: %d vs %d", a.Hits, b.Hits)
	}
	if diff := cmp.Diff(a.Final.Entities(), b.Final.Entities()); diff != "" {
		t.Errorf("final entities differ (-a +b):\n%s", diff)
	}
}

func TestRunRejectsBadOptions(t *testing.T) {
	if _, err := Run(Options{}); err == nil {
		t.Error("Run with zero options should fail")
	}
}

func syntheticResult() *Result {
	return &Result{
		Phases: []Phase{{Name: "add", Unit: "client", Ops: 1000}, {Name: "find", Unit: "iteration", Ops: 10}},
		Times: [][]time.Duration{
			{1 * time.Millisecond, 10 * time.Millisecond},
			{3 * time.Millisecond, 10 * time.Millisecond},
		},
	}
}

func TestSummarize(t *testing.T) {
	sums := Summarize(syntheticResult())
	if len(sums) != 2 {
		t.Fatalf("got %d summaries, want 2", len(sums))
	}
	add := sums[0]
	if add.Mean != 2 || add.Worst != 3 || add.Best != 1 {
		t.Errorf("add summary = %+v", add)
	}
	if math.Abs(add.StdDev-math.Sqrt2) > 1e-9 {
		t.Errorf("add stddev = %v, want %v", add.StdDev, math.Sqrt2)
	}
	if add.MeanPerOp() != 2 || add.WorstPerOp() != 3 {
		t.Errorf("add per-op = %v / %v µs, want 2 / 3", add.MeanPerOp(), add.WorstPerOp())
	}
	if sums[1].StdDev != 0 || sums[1].MeanPerOp() != 1000 {
		t.Errorf("find summary = %+v", sums[1])
	}
}

func TestSummarizeSingleIteration(t *testing.T) {
	res := syntheticResult()
	res.Times = res.Times[:1]
	sums := Summarize(res)
	if sums[0].StdDev != 0 {
		t.Errorf("stddev of one sample = %v, want 0", sums[0].StdDev)
	}
}

func TestWriteReport(t *testing.T) {
	res := syntheticResult()
	var buf bytes.Buffer
	if err := WriteReport(&buf, res, Summarize(res)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"RESULTS", "AVERAGE", "WORST", "add (ms)", "2µs / client", "1000µs / iteration"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestSaveChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.png")
	if err := SaveChart(path, Summarize(syntheticResult())); err != nil {
		t.Fatalf("SaveChart: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("chart is not a PNG")
	}
}
