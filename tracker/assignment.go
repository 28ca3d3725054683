package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// InfeasibleCost marks a track/detection pairing that must never be chosen
// as a match.  It is shared by the cost matrix builders and the assignment
// solver.
const InfeasibleCost = 1e5

// gateMargin is added to maxDistance when clamping costs that exceed it, so
// that clamped pairings are still rejected after the solver has run
const gateMargin = 1e-5

// ErrCostShape is returned when a distance metric produces a matrix whose
// dimensions do not match the requested selections
var ErrCostShape = errors.New("cost matrix shape mismatch")

// Match pairs a track with a detection, both given as indices into the
// full track and detection collections
type Match struct {
	TrackIdx     int
	DetectionIdx int
	// Cost is the metric's cost for the pair
	Cost float64
}

// Matching is the result of an association round
type Matching struct {
	// Matches are the accepted track/detection pairs
	Matches []Match
	// UnmatchedTracks are the indices of tracks left without a detection
	UnmatchedTracks []int
	// UnmatchedDetections are the indices of detections left without a track
	UnmatchedDetections []int
}

// LinearAssignment solves the rectangular linear assignment problem for the
// cost matrix.  rowsol[i] is the column assigned to row i and colsol[j] the
// row assigned to column j, or -1 when left unassigned.  As many rows are
// assigned as the smaller dimension allows, at minimum total cost.
func LinearAssignment(cost *CostMatrix) (rowsol, colsol []int, err error) {

	nRows, nCols := cost.Dims()

	rowsol = unassigned(nRows)
	colsol = unassigned(nCols)

	if nRows == 0 || nCols == 0 {
		return rowsol, colsol, nil
	}

	// solve the square (nRows+nCols) extension.  Real rows paired with dummy
	// columns, and dummy rows with real columns, cost more than any real
	// pairing so the solver always prefers a real one.  Dummy to dummy
	// pairings are free.
	padded := paddedCost{
		cost: cost,
		pad:  floats.Max(cost.data) + 1,
	}

	solver := newJVSolver(nRows+nCols, padded.at)

	if err := solver.solve(); err != nil {
		return nil, nil, fmt.Errorf("error solving linear assignment: %w", err)
	}

	x, y := solver.x, solver.y

	for i := 0; i < nRows; i++ {
		if x[i] >= 0 && x[i] < nCols {
			rowsol[i] = x[i]
		}
	}

	for j := 0; j < nCols; j++ {
		if y[j] >= 0 && y[j] < nRows {
			colsol[j] = y[j]
		}
	}

	return rowsol, colsol, nil
}

// MinCostMatching solves the linear assignment problem between the selected
// tracks and detections using the cost computed by metric.  Pairings with a
// cost above maxDistance are never returned as matches.  Nil index slices
// select the whole collection.
func MinCostMatching(metric DistanceMetric, maxDistance float64,
	tracks []Track, detections []Detection, trackIndices,
	detectionIndices []int) (Matching, error) {

	if trackIndices == nil {
		trackIndices = identityIndices(len(tracks))
	}

	if detectionIndices == nil {
		detectionIndices = identityIndices(len(detections))
	}

	if err := checkSelections(trackIndices, len(tracks), detectionIndices,
		len(detections)); err != nil {
		return Matching{}, err
	}

	if len(trackIndices) == 0 || len(detectionIndices) == 0 {
		return Matching{
			UnmatchedTracks:     append([]int{}, trackIndices...),
			UnmatchedDetections: append([]int{}, detectionIndices...),
		}, nil
	}

	cost, err := metric(tracks, detections, trackIndices, detectionIndices)

	if err != nil {
		return Matching{}, fmt.Errorf("error computing cost matrix: %w", err)
	}

	rows, cols := cost.Dims()

	if rows != len(trackIndices) || cols != len(detectionIndices) {
		return Matching{}, fmt.Errorf("metric returned %dx%d, expected %dx%d: %w",
			rows, cols, len(trackIndices), len(detectionIndices), ErrCostShape)
	}

	// costs beyond the gate, infeasible entries included, sit just over it
	gated := NewCostMatrix(rows, cols, nil)

	for i, v := range cost.data {
		if v > maxDistance {
			v = maxDistance + gateMargin
		}
		gated.data[i] = v
	}

	rowsol, colsol, err := LinearAssignment(gated)

	if err != nil {
		return Matching{}, err
	}

	var m Matching

	for col, detIdx := range detectionIndices {
		if colsol[col] < 0 {
			m.UnmatchedDetections = append(m.UnmatchedDetections, detIdx)
		}
	}

	for row, trackIdx := range trackIndices {
		if rowsol[row] < 0 {
			m.UnmatchedTracks = append(m.UnmatchedTracks, trackIdx)
		}
	}

	for row, col := range rowsol {

		if col < 0 {
			continue
		}

		trackIdx := trackIndices[row]
		detIdx := detectionIndices[col]

		if gated.At(row, col) > maxDistance {
			m.UnmatchedTracks = append(m.UnmatchedTracks, trackIdx)
			m.UnmatchedDetections = append(m.UnmatchedDetections, detIdx)
			continue
		}

		m.Matches = append(m.Matches, Match{
			TrackIdx:     trackIdx,
			DetectionIdx: detIdx,
			Cost:         cost.At(row, col),
		})
	}

	return m, nil
}

// MatchingCascade runs MinCostMatching level by level, giving priority to
// the most recently updated tracks.  Level l matches the tracks whose
// TimeSinceUpdate is 1 + l against the detections left over by the previous
// levels.
func MatchingCascade(metric DistanceMetric, maxDistance float64,
	cascadeDepth int, tracks []Track, detections []Detection, trackIndices,
	detectionIndices []int) (Matching, error) {

	if trackIndices == nil {
		trackIndices = identityIndices(len(tracks))
	}

	if detectionIndices == nil {
		detectionIndices = identityIndices(len(detections))
	}

	if err := checkSelections(trackIndices, len(tracks), detectionIndices,
		len(detections)); err != nil {
		return Matching{}, err
	}

	unmatchedDetections := append([]int{}, detectionIndices...)

	var matches []Match

	for level := 0; level < cascadeDepth; level++ {

		if len(unmatchedDetections) == 0 {
			break
		}

		var levelTracks []int

		for _, k := range trackIndices {
			if tracks[k].TimeSinceUpdate() == 1+level {
				levelTracks = append(levelTracks, k)
			}
		}

		if len(levelTracks) == 0 {
			continue
		}

		lm, err := MinCostMatching(metric, maxDistance, tracks, detections,
			levelTracks, unmatchedDetections)

		if err != nil {
			return Matching{}, fmt.Errorf("error matching cascade level %d: %w", level, err)
		}

		matches = append(matches, lm.Matches...)
		unmatchedDetections = append([]int{}, lm.UnmatchedDetections...)
	}

	matched := make(map[int]bool, len(matches))

	for _, match := range matches {
		matched[match.TrackIdx] = true
	}

	var unmatchedTracks []int

	for _, k := range trackIndices {
		if !matched[k] {
			unmatchedTracks = append(unmatchedTracks, k)
		}
	}

	return Matching{
		Matches:             matches,
		UnmatchedTracks:     unmatchedTracks,
		UnmatchedDetections: unmatchedDetections,
	}, nil
}

// paddedCost presents a rows x cols cost matrix as the square
// (rows+cols) x (rows+cols) problem solved by jvSolver
type paddedCost struct {
	cost *CostMatrix
	pad  float64
}

func (p paddedCost) at(i, j int) float64 {

	rows, cols := p.cost.rows, p.cost.cols

	switch {
	case i < rows && j < cols:
		return p.cost.data[i*cols+j]
	case i >= rows && j >= cols:
		return 0
	default:
		return p.pad
	}
}

// checkSelections validates both selections against their collection sizes
func checkSelections(trackIndices []int, nTracks int, detectionIndices []int,
	nDetections int) error {

	if err := checkIndices("track", trackIndices, nTracks); err != nil {
		return err
	}

	return checkIndices("detection", detectionIndices, nDetections)
}

// unassigned returns a slice of length n filled with -1
func unassigned(n int) []int {

	sol := make([]int, n)

	for i := range sol {
		sol[i] = -1
	}

	return sol
}
