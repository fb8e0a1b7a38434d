package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/a-ma72/rainflow-sub002/config"
	"github.com/a-ma72/rainflow-sub002/rainflow"
)

var (
	countInputPath   string
	countFinalize    string
	countPrintMatrix bool
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Stream a one-column sample file through the rainflow engine and print counts",
	RunE:  runCount,
}

func init() {
	countCmd.Flags().StringVar(&countInputPath, "input", "", "Path to a single-column CSV of load samples")
	countCmd.Flags().StringVar(&countFinalize, "finalize", "", "Residue finalize policy override (see config docs); empty uses the bundle's")
	countCmd.Flags().BoolVar(&countPrintMatrix, "matrix", false, "Print the full rainflow matrix, not just the summary")
	countCmd.MarkFlagRequired("input") //nolint:errcheck // cobra reports this itself at parse time
}

func runCount(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return fmt.Errorf("count: --config is required")
	}
	bundle, err := config.LoadRainflowBundle(configPath)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}

	samples, err := readSampleCSV(countInputPath)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	logrus.Infof("loaded %d samples from %s", len(samples), countInputPath)

	ctx, err := bundle.BuildContext()
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	if ctx.FlagsCheck(rainflow.CountDH) {
		if err := ctx.DHInit(samples); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		ctx.SetSampleSource(func(pos int64) float64 {
			if pos < 1 || int(pos) > len(samples) {
				return 0
			}
			return samples[pos-1]
		})
	}

	for _, v := range samples {
		if err := ctx.Feed(v, samples); err != nil {
			return fmt.Errorf("count: feed: %w", err)
		}
	}

	policy := bundle.FinalizePolicyValue()
	if countFinalize != "" {
		bundle.FinalizePolicy = countFinalize
		if err := bundle.Validate(); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		policy = bundle.FinalizePolicyValue()
	}
	if err := ctx.Finalize(policy); err != nil {
		return fmt.Errorf("count: finalize: %w", err)
	}

	printSummary(ctx)
	if countPrintMatrix {
		printMatrix(ctx)
	}
	return nil
}

func readSampleCSV(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // read-only file; close error is not actionable

	reader := csv.NewReader(file)
	var samples []float64
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		if len(record) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			row++
			continue // header row or blank leading field
		}
		samples = append(samples, v)
		row++
	}
	return samples, nil
}

func printSummary(ctx *rainflow.Context) {
	full, half := ctx.CycleProcessCounts()
	fmt.Printf("state:        %s\n", ctx.StateGet())
	fmt.Printf("full cycles:  %d\n", full)
	fmt.Printf("half cycles:  %d\n", half)
	fmt.Printf("total damage: %g\n", ctx.Damage())
	fmt.Printf("residue len:  %d\n", len(ctx.ResGet()))
	fmt.Printf("rfm nonzero:  %d\n", ctx.RFMNonZeros())
}

func printMatrix(ctx *rainflow.Context) {
	n := ctx.ClassCount()
	fmt.Println("rainflow matrix (from,to,count):")
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if v := ctx.RFMGet(i, j); v != 0 {
				fmt.Printf("  %d -> %d : %d\n", i, j, v)
			}
		}
	}
}
