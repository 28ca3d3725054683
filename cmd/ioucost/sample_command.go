package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swdee/go-ioumatch/internal/scene"
)

func newSampleCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print or write an example scene file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), scene.Sample)
				return err
			}
			if err := os.WriteFile(output, []byte(scene.Sample), 0o644); err != nil {
				return fmt.Errorf("write sample scene: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample scene to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the sample to this path instead of stdout")

	return cmd
}
