package main

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Summary aggregates one phase over all iterations. Times are milliseconds.
type Summary struct {
	Phase  Phase
	Mean   float64
	Worst  float64
	Best   float64
	StdDev float64
}

// MeanPerOp returns the average cost of one operation in microseconds
func (s Summary) MeanPerOp() float64 { return s.Mean * 1000 / float64(s.Phase.Ops) }

// WorstPerOp returns the worst cost of one operation in microseconds
func (s Summary) WorstPerOp() float64 { return s.Worst * 1000 / float64(s.Phase.Ops) }

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Summarize computes per-phase statistics of res
func Summarize(res *Result) []Summary {
	out := make([]Summary, len(res.Phases))
	xs := make([]float64, len(res.Times))
	for p, ph := range res.Phases {
		for it, times := range res.Times {
			xs[it] = millis(times[p])
		}
		s := Summary{Phase: ph}
		if len(xs) > 0 {
			s.Mean = stat.Mean(xs, nil)
			s.Worst = floats.Max(xs)
			s.Best = floats.Min(xs)
		}
		if len(xs) > 1 {
			s.StdDev = stat.StdDev(xs, nil)
		}
		out[p] = s
	}
	return out
}

// round1 rounds to one decimal place
func round1(v float64) float64 { return math.Round(v*10) / 10 }

// WriteReport prints the per-iteration table followed by averages and
// worst cases
func WriteReport(w io.Writer, res *Result, sums []Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "---------RESULTS-----------")
	fmt.Fprint(tw, "iteration\t")
	for _, ph := range res.Phases {
		fmt.Fprintf(tw, "%s (ms)\t", ph.Name)
	}
	fmt.Fprintln(tw)
	for it, times := range res.Times {
		fmt.Fprintf(tw, "%d\t", it+1)
		for _, d := range times {
			fmt.Fprintf(tw, "%.1f\t", millis(d))
		}
		fmt.Fprintln(tw)
	}

	fmt.Fprintln(tw, "---------AVERAGE-----------")
	for _, s := range sums {
		fmt.Fprintf(tw, "%s\t%.0fms / %d %ss\t%gµs / %s\t±%.1fms\t\n",
			s.Phase.Name, s.Mean, s.Phase.Ops, s.Phase.Unit, round1(s.MeanPerOp()), s.Phase.Unit, s.StdDev)
	}

	fmt.Fprintln(tw, "---------WORST-------------")
	for _, s := range sums {
		fmt.Fprintf(tw, "%s\t%.0fms / %d %ss\t%gµs / %s\t\n",
			s.Phase.Name, s.Worst, s.Phase.Ops, s.Phase.Unit, round1(s.WorstPerOp()), s.Phase.Unit)
	}
	return tw.Flush()
}

// SaveChart writes a bar chart of mean per-operation cost to path
func SaveChart(path string, sums []Summary) error {
	p := plot.New()
	p.Title.Text = "Spatial grid benchmark"
	p.Y.Label.Text = "µs / op (mean)"

	values := make(plotter.Values, len(sums))
	names := make([]string, len(sums))
	for i, s := range sums {
		values[i] = s.MeanPerOp()
		names[i] = s.Phase.Name
	}

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return err
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
