package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/swdee/go-ioumatch/internal/scene"
	"github.com/swdee/go-ioumatch/tracker"
)

type matchPair struct {
	TrackID     int     `json:"track_id"`
	DetectionID int64   `json:"detection_id"`
	Cost        float64 `json:"cost"`
}

type trackOutput struct {
	ID              int        `json:"id"`
	State           string     `json:"state"`
	Hits            int        `json:"hits"`
	Age             int        `json:"age"`
	TimeSinceUpdate int        `json:"time_since_update"`
	Tlwh            [4]float64 `json:"tlwh"`
}

type matchOutput struct {
	Matches             []matchPair   `json:"matches"`
	UnmatchedTracks     []int         `json:"unmatched_tracks"`
	UnmatchedDetections []int64       `json:"unmatched_detections"`
	Tracks              []trackOutput `json:"tracks"`
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var format string
	var maxDistance float64
	var cascade bool
	var cascadeDepth int

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match tracks to detections using the IoU cost",
		Long: "Run one association step: match the scene tracks to the detections,\n" +
			"update matched tracks with their detection and mark the others missed.\n" +
			"Prints the matches with their cost and the resulting track states.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			s, err := ctx.loadScene()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("max-distance") {
				if !(maxDistance > 0) {
					return errors.New("--max-distance must be positive")
				}
				s.Matching.MaxDistance = maxDistance
			}
			if cmd.Flags().Changed("cascade-depth") {
				if cascadeDepth < 1 {
					return errors.New("--cascade-depth must be at least 1")
				}
				s.Matching.CascadeDepth = cascadeDepth
			}

			out, err := runMatch(ctx, s, cascade)
			if err != nil {
				return err
			}

			if format == "json" {
				return writeJSON(cmd, out)
			}

			colorize := shouldColorize(cmd.OutOrStdout())

			rows := make([][]string, 0, len(out.Matches)+len(out.UnmatchedTracks)+len(out.UnmatchedDetections))
			for _, m := range out.Matches {
				rows = append(rows, []string{
					strconv.Itoa(m.TrackID),
					strconv.FormatInt(m.DetectionID, 10),
					formatCost(m.Cost, colorize),
				})
			}
			for _, id := range out.UnmatchedTracks {
				rows = append(rows, []string{strconv.Itoa(id), "-", "-"})
			}
			for _, id := range out.UnmatchedDetections {
				rows = append(rows, []string{"-", strconv.FormatInt(id, 10), "-"})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Track", "Detection", "Cost"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight},
			))

			trackRows := make([][]string, len(out.Tracks))
			for i, t := range out.Tracks {
				trackRows[i] = []string{
					strconv.Itoa(t.ID),
					t.State,
					strconv.Itoa(t.Hits),
					strconv.Itoa(t.TimeSinceUpdate),
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Track", "State", "Hits", "Since Update"},
				trackRows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	cmd.Flags().Float64Var(&maxDistance, "max-distance", scene.DefaultMaxDistance, "Largest cost accepted as a match")
	cmd.Flags().BoolVar(&cascade, "cascade", false,
		"Match level by level in order of time since update (tracks need time_since_update >= 1)")
	cmd.Flags().IntVar(&cascadeDepth, "cascade-depth", scene.DefaultCascadeDepth, "Number of cascade levels")

	return cmd
}

func runMatch(ctx *commandContext, s *scene.Scene, cascade bool) (matchOutput, error) {

	if cascade {
		if err := checkCascadeTracks(s); err != nil {
			return matchOutput{}, err
		}
	}

	tracks, err := s.BuildTracks()
	if err != nil {
		return matchOutput{}, err
	}

	objs := s.DetectionObjects()
	metric := tracker.IoUMetric(tracker.WithWorkers(s.Matching.Workers))

	var m tracker.Matching

	if cascade {
		m, err = tracker.MatchingCascade(metric, s.Matching.MaxDistance,
			s.Matching.CascadeDepth, scene.AsTracks(tracks), s.DetectionRefs(),
			s.Matching.TrackIndices, s.Matching.DetectionIndices)
	} else {
		m, err = tracker.MinCostMatching(metric, s.Matching.MaxDistance,
			scene.AsTracks(tracks), s.DetectionRefs(),
			s.Matching.TrackIndices, s.Matching.DetectionIndices)
	}

	if err != nil {
		return matchOutput{}, err
	}

	out := matchOutput{
		Matches:             make([]matchPair, 0, len(m.Matches)),
		UnmatchedTracks:     make([]int, 0, len(m.UnmatchedTracks)),
		UnmatchedDetections: make([]int64, 0, len(m.UnmatchedDetections)),
		Tracks:              make([]trackOutput, 0, len(tracks)),
	}

	for _, match := range m.Matches {

		if err := tracks[match.TrackIdx].Update(objs[match.DetectionIdx]); err != nil {
			return matchOutput{}, err
		}

		out.Matches = append(out.Matches, matchPair{
			TrackID:     s.TrackID(match.TrackIdx),
			DetectionID: s.DetectionID(match.DetectionIdx),
			Cost:        match.Cost,
		})
	}
	for _, k := range m.UnmatchedTracks {
		tracks[k].MarkMissed()
		out.UnmatchedTracks = append(out.UnmatchedTracks, s.TrackID(k))
	}
	for _, k := range m.UnmatchedDetections {
		out.UnmatchedDetections = append(out.UnmatchedDetections, s.DetectionID(k))
	}

	for _, tr := range tracks {
		out.Tracks = append(out.Tracks, trackOutput{
			ID:              tr.GetTrackID(),
			State:           tr.GetState().String(),
			Hits:            tr.Hits(),
			Age:             tr.Age(),
			TimeSinceUpdate: tr.TimeSinceUpdate(),
			Tlwh:            tr.Tlwh(),
		})
	}

	ctx.log().Info("matching complete",
		"cascade", cascade,
		"matches", len(out.Matches),
		"unmatched_tracks", len(out.UnmatchedTracks),
		"unmatched_detections", len(out.UnmatchedDetections),
	)

	return out, nil
}

// checkCascadeTracks rejects selected tracks the cascade would never visit.
// Out of range indices are left for the matcher to report.
func checkCascadeTracks(s *scene.Scene) error {
	for _, k := range selection(s.Matching.TrackIndices, len(s.Tracks)) {
		if k < 0 || k >= len(s.Tracks) {
			continue
		}
		if s.Tracks[k].TimeSinceUpdate == 0 {
			return fmt.Errorf("track %d has time_since_update 0, the cascade only matches tracks predicted at least once",
				s.Tracks[k].ID)
		}
	}
	return nil
}
