package tracker

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// testTrack is a fixed Track used to drive the cost matrix builders
type testTrack struct {
	box             Tlwh
	timeSinceUpdate int
}

func (t testTrack) Tlwh() Tlwh {
	return t.box
}

func (t testTrack) TimeSinceUpdate() int {
	return t.timeSinceUpdate
}

func makeTracks(tracks ...testTrack) []Track {
	out := make([]Track, len(tracks))
	for i := range tracks {
		out[i] = tracks[i]
	}
	return out
}

func makeDetections(boxes ...Tlwh) []Detection {
	out := make([]Detection, len(boxes))
	for i, b := range boxes {
		out[i] = NewObject(Rect{Tlwh: b}, 0, 0.9, int64(i+1))
	}
	return out
}

var approx = cmpopts.EquateApprox(0, 1e-6)

func TestIoUCostScenario(t *testing.T) {

	tracks := makeTracks(testTrack{box: Tlwh{0, 0, 10, 10}})
	dets := makeDetections(
		Tlwh{0, 0, 10, 10},
		Tlwh{20, 20, 10, 10},
		Tlwh{5, 5, 10, 10},
	)

	cost, err := IoUCost(tracks, dets, nil, nil)
	require.NoError(t, err)

	rows, cols := cost.Dims()
	require.Equal(t, 1, rows)
	require.Equal(t, 3, cols)

	expected := [][]float64{{0.0, 1.0, 1 - 25.0/175.0}}

	if diff := cmp.Diff(expected, cost.Rows(), approx); diff != "" {
		t.Errorf("cost matrix mismatch (-want +got):\n%s", diff)
	}

	assert.InDelta(t, 0.8571, cost.At(0, 2), 1e-4)
}

func TestIoUCostStaleTrackGated(t *testing.T) {

	dets := makeDetections(
		Tlwh{0, 0, 10, 10},
		Tlwh{20, 20, 10, 10},
		Tlwh{5, 5, 10, 10},
	)

	for _, tsu := range []int{2, 3, 50} {
		tracks := makeTracks(testTrack{box: Tlwh{0, 0, 10, 10}, timeSinceUpdate: tsu})

		cost, err := IoUCost(tracks, dets, nil, nil)
		require.NoError(t, err)

		for j := 0; j < 3; j++ {
			assert.Equal(t, InfeasibleCost, cost.At(0, j), "staleness %d col %d", tsu, j)
			assert.True(t, cost.IsInfeasible(0, j))
		}
	}
}

func TestIoUCostStalenessOneScored(t *testing.T) {

	tracks := makeTracks(testTrack{box: Tlwh{0, 0, 10, 10}, timeSinceUpdate: 1})
	dets := makeDetections(Tlwh{0, 0, 10, 10})

	cost, err := IoUCost(tracks, dets, nil, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, cost.At(0, 0), 1e-6)
	assert.False(t, cost.IsInfeasible(0, 0))
}

func TestIoUCostMixedRows(t *testing.T) {

	tracks := makeTracks(
		testTrack{box: Tlwh{0, 0, 10, 10}},
		testTrack{box: Tlwh{0, 0, 10, 10}, timeSinceUpdate: 2},
		testTrack{box: Tlwh{20, 20, 10, 10}, timeSinceUpdate: 1},
	)
	dets := makeDetections(Tlwh{0, 0, 10, 10}, Tlwh{20, 20, 10, 10})

	cost, err := IoUCost(tracks, dets, nil, nil)
	require.NoError(t, err)

	expected := [][]float64{
		{0, 1},
		{InfeasibleCost, InfeasibleCost},
		{1, 0},
	}

	if diff := cmp.Diff(expected, cost.Rows(), approx); diff != "" {
		t.Errorf("cost matrix mismatch (-want +got):\n%s", diff)
	}
}

func TestIoUCostSelections(t *testing.T) {

	tracks := makeTracks(
		testTrack{box: Tlwh{0, 0, 10, 10}},
		testTrack{box: Tlwh{100, 100, 10, 10}},
		testTrack{box: Tlwh{5, 5, 10, 10}},
	)
	dets := makeDetections(
		Tlwh{100, 100, 10, 10},
		Tlwh{0, 0, 10, 10},
		Tlwh{5, 5, 10, 10},
		Tlwh{50, 50, 10, 10},
	)

	full, err := IoUCost(tracks, dets, nil, nil)
	require.NoError(t, err)

	trackIdx := []int{2, 0}
	detIdx := []int{3, 1, 1}

	sub, err := IoUCost(tracks, dets, trackIdx, detIdx)
	require.NoError(t, err)

	rows, cols := sub.Dims()
	require.Equal(t, len(trackIdx), rows)
	require.Equal(t, len(detIdx), cols)

	// selection order defines row and column order
	for i, ti := range trackIdx {
		for j, dj := range detIdx {
			assert.Equal(t, full.At(ti, dj), sub.At(i, j), "cell %d,%d", i, j)
		}
	}
}

func TestIoUCostDefaultSelections(t *testing.T) {

	tracks := makeTracks(
		testTrack{box: Tlwh{0, 0, 10, 10}},
		testTrack{box: Tlwh{4, 4, 8, 8}, timeSinceUpdate: 3},
		testTrack{box: Tlwh{7, 1, 3, 9}},
	)
	dets := makeDetections(Tlwh{1, 1, 10, 10}, Tlwh{6, 0, 4, 9})

	defaults, err := IoUCost(tracks, dets, nil, nil)
	require.NoError(t, err)

	explicit, err := IoUCost(tracks, dets, []int{0, 1, 2}, []int{0, 1})
	require.NoError(t, err)

	assert.Equal(t, explicit.Rows(), defaults.Rows())
}

func TestIoUCostEmpty(t *testing.T) {

	tracks := makeTracks(testTrack{box: Tlwh{0, 0, 10, 10}})
	dets := makeDetections(Tlwh{0, 0, 10, 10}, Tlwh{1, 1, 1, 1})

	tests := []struct {
		name             string
		tracks           []Track
		dets             []Detection
		trackIdx, detIdx []int
		rows, cols       int
	}{
		{"no tracks", nil, dets, nil, nil, 0, 2},
		{"no detections", tracks, nil, nil, nil, 1, 0},
		{"nothing at all", nil, nil, nil, nil, 0, 0},
		{"empty track selection", tracks, dets, []int{}, nil, 0, 2},
		{"empty detection selection", tracks, dets, nil, []int{}, 1, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cost, err := IoUCost(tc.tracks, tc.dets, tc.trackIdx, tc.detIdx)
			require.NoError(t, err)

			rows, cols := cost.Dims()
			assert.Equal(t, tc.rows, rows)
			assert.Equal(t, tc.cols, cols)
		})
	}
}

func TestIoUCostIndexOutOfRange(t *testing.T) {

	tracks := makeTracks(
		testTrack{box: Tlwh{0, 0, 10, 10}},
		testTrack{box: Tlwh{0, 0, 10, 10}, timeSinceUpdate: 5},
	)
	dets := makeDetections(Tlwh{0, 0, 10, 10})

	tests := []struct {
		name             string
		trackIdx, detIdx []int
	}{
		{"track index too large", []int{0, 2}, nil},
		{"negative track index", []int{-1}, nil},
		{"detection index too large", nil, []int{1}},
		{"negative detection index", nil, []int{0, -3}},
		{"detection index with only stale rows", []int{1}, []int{4}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cost, err := IoUCost(tracks, dets, tc.trackIdx, tc.detIdx)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIndexOutOfRange))
			assert.Nil(t, cost)
		})
	}
}

func TestIoUCostWithinRange(t *testing.T) {

	tracks := makeTracks(
		testTrack{box: Tlwh{0, 0, 10, 10}},
		testTrack{box: Tlwh{3, 3, 0, 0}},
		testTrack{box: Tlwh{9, 9, 10, 10}, timeSinceUpdate: 2},
	)
	dets := makeDetections(
		Tlwh{0, 0, 10, 10},
		Tlwh{3, 3, 0, 0},
		Tlwh{12, 2, 6, 6},
	)

	cost, err := IoUCost(tracks, dets, nil, nil)
	require.NoError(t, err)

	rows, cols := cost.Dims()

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := cost.At(i, j)
			if v != InfeasibleCost {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
		}
	}
}

func TestIoUMetricWorkers(t *testing.T) {

	var trackList []testTrack

	for i := 0; i < 37; i++ {
		trackList = append(trackList, testTrack{
			box:             Tlwh{float64(i * 3), float64(i * 2), 12, 20},
			timeSinceUpdate: i % 4,
		})
	}

	var boxes []Tlwh

	for i := 0; i < 23; i++ {
		boxes = append(boxes, Tlwh{float64(i * 4), float64(i * 3), 10, 18})
	}

	tracks := makeTracks(trackList...)
	dets := makeDetections(boxes...)

	serial, err := IoUCost(tracks, dets, nil, nil)
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 2, 5, 64} {
		parallel, err := IoUMetric(WithWorkers(workers))(tracks, dets, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, serial.Rows(), parallel.Rows(), "workers %d", workers)
	}
}

func TestIoUCostDoesNotMutateSelections(t *testing.T) {

	tracks := makeTracks(testTrack{box: Tlwh{0, 0, 10, 10}}, testTrack{box: Tlwh{1, 1, 5, 5}})
	dets := makeDetections(Tlwh{0, 0, 10, 10})

	trackIdx := []int{1, 0}
	detIdx := []int{0}

	_, err := IoUCost(tracks, dets, trackIdx, detIdx)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 0}, trackIdx)
	assert.Equal(t, []int{0}, detIdx)
}

func TestCostMatrix(t *testing.T) {

	cost := NewCostMatrix(2, 3, []float64{
		0.1, 0.2, 0.3,
		0.4, InfeasibleCost, 0.6,
	})

	r, c := cost.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)

	assert.Equal(t, 0.6, cost.At(1, 2))
	assert.True(t, cost.IsInfeasible(1, 1))
	assert.False(t, cost.IsInfeasible(0, 1))

	cost.Set(0, 0, 0.9)
	assert.Equal(t, 0.9, cost.At(0, 0))

	// transpose through gonum
	var dense mat.Dense
	dense.CloneFrom(cost.T())
	tr, tc := dense.Dims()
	assert.Equal(t, 3, tr)
	assert.Equal(t, 2, tc)
	assert.Equal(t, 0.4, dense.At(0, 1))

	// Rows returns a copy
	rows := cost.Rows()
	rows[0][1] = 7
	assert.Equal(t, 0.2, cost.At(0, 1))

	assert.Panics(t, func() { cost.At(2, 0) })
	assert.Panics(t, func() { cost.At(0, -1) })
	assert.Panics(t, func() { NewCostMatrix(2, 2, []float64{1}) })
	assert.Panics(t, func() { NewCostMatrix(-1, 2, nil) })
}
