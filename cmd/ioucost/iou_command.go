package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swdee/go-ioumatch/tracker"
)

func newIoUCommand(ctx *commandContext) *cobra.Command {
	var format string
	var box string
	var candidates []string

	cmd := &cobra.Command{
		Use:   "iou",
		Short: "Print the IoU between a box and candidate boxes",
		Example: "  ioucost iou --box 0,0,10,10 --candidate 5,5,10,10 --candidate 20,20,10,10",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			bbox, err := parseTlwh(box)
			if err != nil {
				return fmt.Errorf("--box: %w", err)
			}

			cands := make([]tracker.Tlwh, len(candidates))
			for i, c := range candidates {
				if cands[i], err = parseTlwh(c); err != nil {
					return fmt.Errorf("--candidate %d: %w", i+1, err)
				}
			}

			scores := tracker.IoU(bbox, cands)
			ctx.log().Debug("iou computed", "candidates", len(cands))

			if format == "json" {
				return writeJSON(cmd, struct {
					IoU []float64 `json:"iou"`
				}{IoU: scores})
			}

			rows := make([][]string, len(cands))
			for i, c := range cands {
				rows[i] = []string{
					formatTlwh(c),
					strconv.FormatFloat(scores[i], 'f', 4, 64),
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Candidate", "IoU"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	cmd.Flags().StringVar(&box, "box", "", "Reference box as x,y,w,h")
	cmd.Flags().StringArrayVar(&candidates, "candidate", nil, "Candidate box as x,y,w,h (repeatable)")
	_ = cmd.MarkFlagRequired("box")

	return cmd
}

func parseTlwh(s string) (tracker.Tlwh, error) {
	var out tracker.Tlwh
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, fmt.Errorf("expected x,y,w,h, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("invalid value %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func formatTlwh(b tracker.Tlwh) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
