package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rapor-tpq/rapor/core/assessment"
	"github.com/rapor-tpq/rapor/core/classifier"
)

type modelCase struct {
	scores [assessment.NumFeatures]int
	want   assessment.Category
}

// canonicalCases are hand-picked score vectors, one per band plus a mixed record.
var canonicalCases = []modelCase{
	{scores: [assessment.NumFeatures]int{45, 50, 48, 52, 47, 49, 46, 51, 48, 50, 47, 49}, want: assessment.BB},
	{scores: [assessment.NumFeatures]int{65, 62, 68, 64, 66, 63, 67, 65, 64, 66, 65, 63}, want: assessment.MB},
	{scores: [assessment.NumFeatures]int{78, 75, 80, 77, 79, 76, 78, 82, 75, 80, 77, 79}, want: assessment.BSH},
	{scores: [assessment.NumFeatures]int{92, 88, 95, 90, 93, 87, 91, 94, 89, 96, 90, 92}, want: assessment.BSB},
	{scores: [assessment.NumFeatures]int{83, 77, 69, 75, 82, 74, 72, 85, 76, 82, 84, 82}, want: assessment.BSH},
}

// modelPath returns the explicit path, else the configured one.
func (cli *commandLine) modelPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cli.conf.Model.Path != "" {
		return cli.conf.Model.Path
	}
	return cli.conf.Model.FileName
}

func (cli *commandLine) loadModel(explicit string) (*classifier.Service, error) {
	candidates := []string{explicit}
	if explicit == "" {
		candidates = classifier.CandidatePaths(cli.conf.Model.Path, cli.conf.Model.FileName)
	}
	svc, path, err := classifier.LoadService(candidates...)
	if err != nil {
		return nil, err
	}
	cli.printf("Model loaded from %s\n", path)
	return svc, nil
}

func (cli *commandLine) trainCmd() *cobra.Command {
	var data, out string
	var relabel bool
	p := classifier.DefaultTrainParams()

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the category classifier and save its artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(data)
			if err != nil {
				return err
			}
			cli.printf("Dataset: %d rows, Scorer agreement %.2f%%\n", ds.Len(), 100*ds.Agreement())
			if relabel {
				ds.Relabel()
				cli.printf("Labels replaced by the Scorer's\n")
			}

			res, err := classifier.Train(ds, p)
			if err != nil {
				return errors.Wrap(err, "training")
			}

			cli.printf("\nTrain accuracy: %.4f\n", res.Train.Accuracy)
			cli.printf("Test accuracy: %.4f\n", res.Test.Accuracy)
			cli.printEvaluation(res.Test)
			cli.printImportances(res.Artifact.Header.Metrics.Importances, 5)

			path := cli.modelPath(out)
			if err := res.Artifact.Save(path); err != nil {
				return errors.Wrap(err, "saving artifact")
			}
			cli.printf("\nModel %s saved to %s (manifest %s)\n", res.Artifact.Header.ID, path, classifier.ManifestPath(path))
			return nil
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", defaultDatasetPath, "Training dataset CSV")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Artifact path (defaults to the configured model path)")
	cmd.Flags().BoolVar(&relabel, "relabel", false, "Replace dataset labels with the Scorer's categories")
	cmd.Flags().IntVar(&p.Trees, "trees", p.Trees, "Number of trees")
	cmd.Flags().IntVar(&p.MaxDepth, "max-depth", p.MaxDepth, "Maximum tree depth")
	cmd.Flags().IntVar(&p.MinSamplesSplit, "min-samples-split", p.MinSamplesSplit, "Minimum samples to split a node")
	cmd.Flags().IntVar(&p.MinSamplesLeaf, "min-samples-leaf", p.MinSamplesLeaf, "Minimum samples in a leaf")
	cmd.Flags().Float64Var(&p.TestSize, "test-size", p.TestSize, "Share of the dataset held out for testing")
	cmd.Flags().Int64Var(&p.Seed, "seed", p.Seed, "Random seed")
	return cmd
}

func (cli *commandLine) evaluateCmd() *cobra.Command {
	var data, model string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a model artifact against a labelled dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cli.loadModel(model)
			if err != nil {
				return err
			}
			ds, err := readDataset(data)
			if err != nil {
				return err
			}
			ev, err := svc.Evaluate(ds)
			if err != nil {
				return err
			}
			cli.printf("\nAccuracy: %.2f\n", ev.Accuracy)
			cli.printEvaluation(ev)
			return nil
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", defaultDatasetPath, "Labelled dataset CSV")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Artifact path")
	return cmd
}

func (cli *commandLine) testModelCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "testmodel",
		Short: "Predict the canonical cases and compare them with the Scorer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cli.loadModel(model)
			if err != nil {
				return err
			}
			matches, err := cli.testModel(svc)
			if err != nil {
				return err
			}
			cli.printf("\n%d/%d cases match\n", matches, len(canonicalCases))
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Artifact path")
	return cmd
}

func (cli *commandLine) testModel(svc *classifier.Service) (matches int, err error) {
	for i, tc := range canonicalCases {
		scores := assessment.NewScores(tc.scores)
		avg, scored := assessment.Categorize(scores)
		predicted, err := svc.Predict(scores)
		if err != nil {
			return matches, errors.Wrapf(err, "case %d", i+1)
		}
		mark := "✗"
		if predicted == tc.want {
			matches++
			mark = "✓"
		}
		cli.printf("\nCase %d: %v\n", i+1, tc.scores)
		cli.printf("  average %.2f, expected %s, scorer %s, predicted %s %s\n", avg, tc.want, scored, predicted, mark)
	}

	info, err := svc.Info()
	if err != nil {
		return matches, err
	}
	cli.printImportances(info.Metrics.Importances, 5)
	return matches, nil
}

func (cli *commandLine) printEvaluation(ev classifier.Evaluation) {
	cli.printf("\n%-6s %9s %9s %9s %9s\n", "", "precision", "recall", "f1", "support")
	for _, c := range ev.Classes {
		cli.printf("%-6s %9.2f %9.2f %9.2f %9d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}

	labels := make([]string, len(ev.Labels))
	for i, l := range ev.Labels {
		labels[i] = fmt.Sprintf("%5s", l)
	}
	cli.printf("\nConfusion matrix (rows: actual, columns: predicted)\n")
	cli.printf("%-6s%s\n", "", strings.Join(labels, ""))
	for i, row := range ev.Confusion {
		cli.printf("%-6s", ev.Labels[i])
		for _, n := range row {
			cli.printf("%5d", n)
		}
		cli.printf("\n")
	}
}

func (cli *commandLine) printImportances(imps []classifier.FeatureImportance, top int) {
	if len(imps) == 0 {
		return
	}
	if len(imps) > top {
		imps = imps[:top]
	}
	cli.printf("\nFeature importance (top %d):\n", len(imps))
	for _, fi := range imps {
		cli.printf("  %-24s %.4f\n", fi.Feature, fi.Importance)
	}
}
