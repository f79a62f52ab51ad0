package main

import (
	"bytes"
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rapor-tpq/rapor/core/classifier"
)

const defaultDatasetPath = "tpq_dataset.csv"

func (cli *commandLine) genDatasetCmd() *cobra.Command {
	var rows int
	var seed int64
	var out string

	cmd := &cobra.Command{
		Use:   "gendataset",
		Short: "Generate a synthetic labelled training dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			if err := classifier.GenerateDataset(&buf, rows, seed); err != nil {
				return err
			}
			if out == "-" {
				_, err := cli.out.Write(buf.Bytes())
				return err
			}
			if err := renameio.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return errors.Wrap(err, "writing dataset")
			}
			cli.printf("%d rows written to %s\n", rows, out)
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 1000, "Number of rows")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVarP(&out, "out", "o", defaultDatasetPath, `Output CSV file ("-" for stdout)`)
	return cmd
}

func (cli *commandLine) checkDatasetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkdataset [FILE]",
		Short: "Report the shape, columns, missing values and label distribution of a dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultDatasetPath
			if len(args) > 0 {
				path = args[0]
			}
			return cli.checkDataset(path)
		},
	}
}

func (cli *commandLine) checkDataset(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening dataset")
	}
	defer f.Close()

	p, err := classifier.ProfileDataset(f)
	if err != nil {
		return err
	}

	cli.printf("Shape: (%d, %d)\n", p.Rows, len(p.Columns))
	cli.printf("Columns: %s\n", strings.Join(p.Columns, ", "))

	if len(p.Distribution) > 0 {
		cli.printf("\n%s distribution:\n", classifier.LabelColumn)
		for _, l := range p.SortedLabels() {
			cli.printf("  %-4s %d\n", l, p.Distribution[l])
		}
	}

	if len(p.MissingValues) > 0 {
		cli.printf("\nMissing values:\n")
		for _, col := range p.Columns {
			if n := p.MissingValues[col]; n > 0 {
				cli.printf("  %s: %d\n", col, n)
			}
		}
	} else {
		cli.printf("\nNo missing values found!\n")
	}

	if len(p.MissingColumns) > 0 {
		return &classifier.SchemaMismatchError{Missing: p.MissingColumns, Available: p.Columns}
	}

	ds, err := readDataset(path)
	if err != nil {
		return err
	}
	cli.printf("\nScorer agreement: %.2f%%\n", 100*ds.Agreement())
	return nil
}

func readDataset(path string) (*classifier.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening dataset")
	}
	defer f.Close()
	return classifier.ReadDataset(f)
}
