package infer

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/sever-lang/sever/sverr"
)

// GelmanRubin computes R-hat for one parameter across chains, each given
// as its flat sequence of recorded values. It fails with
// sverr.InsufficientChains when fewer than two chains are given and
// sverr.InsufficientData when any chain has fewer than two samples.
// Chains of unequal length are trimmed to the shortest chain's length,
// since the between/within-chain variance formulas assume equal n.
func GelmanRubin(chains [][]float64) (float64, error) {
	if len(chains) < 2 {
		return 0, sverr.InsufficientChains
	}
	n := len(chains[0])
	for _, c := range chains {
		if len(c) < n {
			n = len(c)
		}
	}
	if n < 2 {
		return 0, sverr.InsufficientData
	}

	m := len(chains)
	means := make([]float64, m)
	vars := make([]float64, m)
	for i, c := range chains {
		trimmed := c[:n]
		means[i] = stat.Mean(trimmed, nil)
		vars[i] = stat.Variance(trimmed, nil)
	}
	grand := stat.Mean(means, nil)

	b := 0.0
	for _, mu := range means {
		d := mu - grand
		b += d * d
	}
	b = float64(n) / float64(m-1) * b

	w := stat.Mean(vars, nil)
	vhat := float64(n-1)/float64(n)*w + b/float64(n)
	if w == 0 {
		return 1, nil
	}
	ratio := vhat / w
	if ratio < 0 {
		ratio = 0
	}
	return math.Sqrt(ratio), nil
}

// MultiChainESS is the sum of each chain's own effective sample size.
func MultiChainESS(chains [][]float64) float64 {
	total := 0.0
	for _, c := range chains {
		tr := &ParameterTrace{Values: c}
		total += tr.EffectiveSampleSize()
	}
	return total
}

// ExportTraceCSV writes the fixed-column CSV trace format: iteration,
// then parameter columns in order, then log_prob, then accepted. order
// fixes the column order; traces must all share the same length (true
// by construction for a single sampler's traces).
func ExportTraceCSV(w io.Writer, order []string, traces map[string]*ParameterTrace) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(order)+2)
	header = append(header, "iteration")
	header = append(header, order...)
	header = append(header, "log_prob", "accepted")
	if err := cw.Write(header); err != nil {
		return err
	}

	if len(order) == 0 {
		cw.Flush()
		return cw.Error()
	}
	n := traces[order[0]].Len()
	for i := 0; i < n; i++ {
		row := make([]string, 0, len(order)+3)
		row = append(row, strconv.Itoa(i+1))
		for _, name := range order {
			row = append(row, strconv.FormatFloat(traces[name].Values[i], 'g', -1, 64))
		}
		row = append(row, strconv.FormatFloat(traces[order[0]].LogProbs[i], 'g', -1, 64))
		row = append(row, strconv.FormatBool(traces[order[0]].Accepted[i]))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportTrace writes the sampler's own traces to w in CSV form.
func (s *MHSampler) ExportTrace(w io.Writer) error {
	return ExportTraceCSV(w, s.ParameterOrder(), s.traces)
}

// ExportTrace writes the sampler's own traces to w in CSV form.
func (s *HMCSampler) ExportTrace(w io.Writer) error {
	return ExportTraceCSV(w, s.ParameterOrder(), s.traces)
}
