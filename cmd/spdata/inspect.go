package main

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/hupe1980/spdata"
	"github.com/hupe1980/spdata/codec"
	"github.com/hupe1980/spdata/model"
)

type inspectFlags struct {
	asJSON bool
	entry  string
	bundle bool
	split  []float64
}

func newInspectCmd(a *app) *cobra.Command {
	var flags inspectFlags

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a dataset manifest",
		Long: `inspect reads the manifest and prints entry counts and density
statistics. With --bundle it also counts the entries already processed into
bundles. With --entry it prints one entry, and with --bundle also the shape
of its processed graphs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd.Context(), a, flags, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.asJSON, "json", false, "print JSON")
	f.StringVar(&flags.entry, "entry", "", "print the entry with this timestamp")
	f.BoolVar(&flags.bundle, "bundle", false, "count processed bundles; with --entry, build or load its bundle")
	f.Float64SliceVar(&flags.split, "split", nil, "train and validation fractions, e.g. 0.8,0.1")
	return cmd
}

// stat summarizes one column.
type stat struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

type statAcc struct {
	min, max, sum float64
	n             int
}

func (s *statAcc) add(v float64) {
	if s.n == 0 {
		s.min, s.max = v, v
	}
	s.min = math.Min(s.min, v)
	s.max = math.Max(s.max, v)
	s.sum += v
	s.n++
}

func (s *statAcc) stat() stat {
	if s.n == 0 {
		return stat{}
	}
	return stat{Min: s.min, Max: s.max, Mean: s.sum / float64(s.n)}
}

type splitSummary struct {
	Train int `json:"train"`
	Val   int `json:"val"`
	Test  int `json:"test"`
}

type summary struct {
	Manifest       string        `json:"manifest"`
	Entries        int           `json:"entries"`
	Size           stat          `json:"size"`
	M1Density      stat          `json:"m1_density"`
	M2Density      stat          `json:"m2_density"`
	ProductDensity stat          `json:"product_density"`
	Processed      *int          `json:"processed,omitempty"`
	Split          *splitSummary `json:"split,omitempty"`
}

type graphSummary struct {
	Nodes      uint64 `json:"nodes"`
	Edges      int    `json:"edges"`
	FeatureDim int    `json:"feature_dim"`
}

type entrySummary struct {
	Entry model.DatasetEntry `json:"entry"`
	M1    *graphSummary      `json:"m1_graph,omitempty"`
	M2    *graphSummary      `json:"m2_graph,omitempty"`
	Label *float64           `json:"label,omitempty"`
}

func runInspect(ctx context.Context, a *app, flags inspectFlags, w io.Writer) error {
	opts := []spdata.Option{spdata.WithLogger(a.logger)}
	if flags.bundle {
		var err error
		if opts, err = a.datasetOptions(ctx); err != nil {
			return err
		}
	}

	ds, err := spdata.Open(ctx, a.manifestPath(), opts...)
	if err != nil {
		return err
	}

	var out any
	if flags.entry != "" {
		out, err = inspectEntry(ctx, ds, flags)
	} else {
		out, err = inspectDataset(ctx, ds, flags)
	}
	if err != nil {
		return err
	}

	if flags.asJSON {
		data, err := codec.GoJSON{}.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	return printText(w, out)
}

func inspectDataset(ctx context.Context, ds *spdata.Dataset, flags inspectFlags) (*summary, error) {
	s := &summary{Manifest: ds.Path(), Entries: ds.Len()}

	var size, m1, m2, prod statAcc
	for i := range ds.Len() {
		e, err := ds.Entry(i)
		if err != nil {
			return nil, err
		}
		size.add(float64(e.M1.Rows))
		m1.add(e.M1.Density)
		m2.add(e.M2.Density)
		prod.add(e.Product.Density)
	}
	s.Size, s.M1Density, s.M2Density, s.ProductDensity = size.stat(), m1.stat(), m2.stat(), prod.stat()

	if flags.bundle {
		names, err := ds.Processed(ctx)
		if err != nil {
			return nil, err
		}
		n := len(names)
		s.Processed = &n
	}

	if len(flags.split) > 0 {
		if len(flags.split) != 2 {
			return nil, &spdata.ConfigError{Field: "split", Value: flags.split, Reason: "want train,val"}
		}
		train, val, test, err := ds.Split(flags.split[0], flags.split[1])
		if err != nil {
			return nil, err
		}
		s.Split = &splitSummary{Train: len(train), Val: len(val), Test: len(test)}
	}
	return s, nil
}

func inspectEntry(ctx context.Context, ds *spdata.Dataset, flags inspectFlags) (*entrySummary, error) {
	e, ok := ds.Lookup(flags.entry)
	if !ok {
		return nil, fmt.Errorf("%w: entry %q", spdata.ErrNotFound, flags.entry)
	}
	out := &entrySummary{Entry: e}
	if !flags.bundle {
		return out, nil
	}

	b, err := ds.GetByName(ctx, e.Name)
	if err != nil {
		return nil, err
	}
	out.M1 = &graphSummary{Nodes: b.M1.NumNodes, Edges: b.M1.NumEdges(), FeatureDim: b.M1.FeatureDim}
	out.M2 = &graphSummary{Nodes: b.M2.NumNodes, Edges: b.M2.NumEdges(), FeatureDim: b.M2.FeatureDim}
	out.Label = &b.Label
	return out, nil
}

func printText(w io.Writer, out any) error {
	switch v := out.(type) {
	case *summary:
		fmt.Fprintf(w, "manifest: %s\nentries: %d\n", v.Manifest, v.Entries)
		printStat(w, "size", v.Size)
		printStat(w, "m1 density", v.M1Density)
		printStat(w, "m2 density", v.M2Density)
		printStat(w, "product density", v.ProductDensity)
		if v.Processed != nil {
			fmt.Fprintf(w, "processed: %d\n", *v.Processed)
		}
		if v.Split != nil {
			fmt.Fprintf(w, "split: train=%d val=%d test=%d\n", v.Split.Train, v.Split.Val, v.Split.Test)
		}
	case *entrySummary:
		e := v.Entry
		fmt.Fprintf(w, "timestamp: %s\n", e.Name)
		fmt.Fprintf(w, "m1: %dx%d nnz=%d density=%g (%s)\n", e.M1.Rows, e.M1.Cols, e.M1.NNZ, e.M1.Density, e.M1Path)
		fmt.Fprintf(w, "m2: %dx%d nnz=%d density=%g (%s)\n", e.M2.Rows, e.M2.Cols, e.M2.NNZ, e.M2.Density, e.M2Path)
		fmt.Fprintf(w, "product: %dx%d nnz=%d density=%g (%s)\n", e.Product.Rows, e.Product.Cols, e.Product.NNZ, e.Product.Density, e.ProductPath)
		if v.M1 != nil {
			fmt.Fprintf(w, "m1 graph: nodes=%d edges=%d dim=%d\n", v.M1.Nodes, v.M1.Edges, v.M1.FeatureDim)
			fmt.Fprintf(w, "m2 graph: nodes=%d edges=%d dim=%d\n", v.M2.Nodes, v.M2.Edges, v.M2.FeatureDim)
			fmt.Fprintf(w, "label: %g\n", *v.Label)
		}
	default:
		return fmt.Errorf("inspect: unexpected output %T", out)
	}
	return nil
}

func printStat(w io.Writer, label string, s stat) {
	fmt.Fprintf(w, "%s: min=%g mean=%g max=%g\n", label, s.Min, s.Mean, s.Max)
}
