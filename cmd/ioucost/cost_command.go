package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/swdee/go-ioumatch/internal/scene"
	"github.com/swdee/go-ioumatch/tracker"
)

type costOutput struct {
	TrackIDs       []int       `json:"track_ids"`
	DetectionIDs   []int64     `json:"detection_ids"`
	InfeasibleCost float64     `json:"infeasible_cost"`
	Cost           [][]float64 `json:"cost"`
}

func newCostCommand(ctx *commandContext) *cobra.Command {
	var format string
	var workers int

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Print the IoU cost matrix for a scene",
		Long: "Print 1 - IoU between every selected track and detection.\n" +
			"Tracks with time_since_update above 1 are gated and show as inf.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			s, err := ctx.loadScene()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("workers") {
				s.Matching.Workers = workers
			}

			cost, trackIdx, detIdx, err := buildCost(ctx, s)
			if err != nil {
				return err
			}

			trackIDs := make([]int, len(trackIdx))
			for i, k := range trackIdx {
				trackIDs[i] = s.TrackID(k)
			}

			detIDs := make([]int64, len(detIdx))
			for j, k := range detIdx {
				detIDs[j] = s.DetectionID(k)
			}

			if format == "json" {
				return writeJSON(cmd, costOutput{
					TrackIDs:       trackIDs,
					DetectionIDs:   detIDs,
					InfeasibleCost: tracker.InfeasibleCost,
					Cost:           cost.Rows(),
				})
			}

			colorize := shouldColorize(cmd.OutOrStdout())

			headers := []string{""}
			aligns := []columnAlignment{alignLeft}
			for _, id := range detIDs {
				headers = append(headers, fmt.Sprintf("det %d", id))
				aligns = append(aligns, alignRight)
			}

			rows := make([][]string, len(trackIDs))
			for i, id := range trackIDs {
				row := []string{fmt.Sprintf("track %d", id)}
				for _, v := range cost.RawRowView(i) {
					row = append(row, formatCost(v, colorize))
				}
				rows[i] = row
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	cmd.Flags().IntVarP(&workers, "workers", "w", scene.DefaultWorkers, "Goroutines used to build the matrix")

	return cmd
}

// buildCost computes the IoU cost matrix for the scene selections and returns
// it together with the resolved track and detection indices
func buildCost(ctx *commandContext, s *scene.Scene) (*tracker.CostMatrix, []int, []int, error) {

	if s.Matching.Workers < 1 {
		return nil, nil, nil, fmt.Errorf("workers must be at least 1, got %d", s.Matching.Workers)
	}

	tracks, err := s.TrackRefs()
	if err != nil {
		return nil, nil, nil, err
	}

	metric := tracker.IoUMetric(tracker.WithWorkers(s.Matching.Workers))

	cost, err := metric(tracks, s.DetectionRefs(),
		s.Matching.TrackIndices, s.Matching.DetectionIndices)
	if err != nil {
		return nil, nil, nil, err
	}

	trackIdx := selection(s.Matching.TrackIndices, len(s.Tracks))
	detIdx := selection(s.Matching.DetectionIndices, len(s.Detections))

	gated := 0
	for i := range trackIdx {
		if len(detIdx) > 0 && cost.IsInfeasible(i, 0) {
			gated++
		}
	}

	rows, cols := cost.Dims()
	ctx.log().Info("cost matrix built",
		"rows", rows,
		"cols", cols,
		"gated_rows", gated,
		"workers", s.Matching.Workers,
	)

	if rows > 0 && cols > 0 {
		ctx.log().Debug("cost matrix values",
			"matrix", fmt.Sprintf("%.4g", mat.Formatted(cost, mat.Squeeze())),
		)
	}

	return cost, trackIdx, detIdx, nil
}

// selection resolves a nil index slice to every index below n
func selection(indices []int, n int) []int {
	if indices != nil {
		return indices
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
