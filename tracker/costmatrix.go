package tracker

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// ErrIndexOutOfRange is returned when a track or detection selection refers
// to a position outside of its collection
var ErrIndexOutOfRange = errors.New("index out of range")

// Track is the read only view of a tracked object needed to score it against
// detections
type Track interface {
	// Tlwh returns the current bounding box of the track
	Tlwh() Tlwh
	// TimeSinceUpdate returns the number of prediction steps since the track
	// was last matched to a detection
	TimeSinceUpdate() int
}

// Detection is the read only view of an observed bounding box
type Detection interface {
	Tlwh() Tlwh
}

// DistanceMetric computes a cost matrix of shape len(trackIndices) x
// len(detectionIndices).  Nil index slices select the whole collection.
type DistanceMetric func(tracks []Track, detections []Detection,
	trackIndices, detectionIndices []int) (*CostMatrix, error)

// CostMatrix is a dense row major tracks x detections matrix of matching
// costs.  It satisfies mat.Matrix and unlike mat.Dense can have a zero
// length dimension.
type CostMatrix struct {
	rows, cols int
	data       []float64
}

// NewCostMatrix creates a rows x cols matrix backed by data, or a zeroed
// matrix when data is nil.  It panics on negative dimensions or when data has
// the wrong length.
func NewCostMatrix(rows, cols int, data []float64) *CostMatrix {

	if rows < 0 || cols < 0 {
		panic(mat.ErrNegativeDimension)
	}

	if data == nil {
		data = make([]float64, rows*cols)
	}

	if len(data) != rows*cols {
		panic(mat.ErrShape)
	}

	return &CostMatrix{
		rows: rows,
		cols: cols,
		data: data,
	}
}

// Dims returns the number of rows (tracks) and columns (detections)
func (c *CostMatrix) Dims() (r, cols int) {
	return c.rows, c.cols
}

// At returns the cost for row i and column j
func (c *CostMatrix) At(i, j int) float64 {
	c.checkAccess(i, j)
	return c.data[i*c.cols+j]
}

// Set sets the cost for row i and column j
func (c *CostMatrix) Set(i, j int, v float64) {
	c.checkAccess(i, j)
	c.data[i*c.cols+j] = v
}

// T returns the transpose of the matrix
func (c *CostMatrix) T() mat.Matrix {
	return mat.Transpose{Matrix: c}
}

// RawRowView returns a slice sharing storage with row i
func (c *CostMatrix) RawRowView(i int) []float64 {
	if i < 0 || i >= c.rows {
		panic(mat.ErrRowAccess)
	}
	return c.data[i*c.cols : (i+1)*c.cols : (i+1)*c.cols]
}

// Rows returns a copy of the matrix as a slice of rows
func (c *CostMatrix) Rows() [][]float64 {

	out := make([][]float64, c.rows)

	for i := range out {
		out[i] = make([]float64, c.cols)
		copy(out[i], c.RawRowView(i))
	}

	return out
}

// IsInfeasible reports whether the pairing at row i and column j carries the
// InfeasibleCost sentinel
func (c *CostMatrix) IsInfeasible(i, j int) bool {
	return c.At(i, j) >= InfeasibleCost
}

func (c *CostMatrix) checkAccess(i, j int) {
	if i < 0 || i >= c.rows {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || j >= c.cols {
		panic(mat.ErrColAccess)
	}
}

// costOptions holds the settings for building an IoU cost matrix
type costOptions struct {
	// workers is the number of goroutines rows are spread over
	workers int
}

// CostOption configures how IoU cost matrices are built
type CostOption func(*costOptions)

// WithWorkers computes the rows of the cost matrix over up to n goroutines.
// The Tlwh and TimeSinceUpdate accessors of the tracks and detections must
// then be safe for concurrent reads.
func WithWorkers(n int) CostOption {
	return func(o *costOptions) {
		if n > 1 {
			o.workers = n
		}
	}
}

// IoUCost is the intersection over union distance metric.  Entry (i, j) of
// the result is 1 - IoU(tracks[trackIndices[i]], detections[detectionIndices[j]]).
// Rows of tracks that have not been updated for more than one step are set
// to InfeasibleCost without being scored.
func IoUCost(tracks []Track, detections []Detection, trackIndices,
	detectionIndices []int) (*CostMatrix, error) {

	return buildIoUCost(tracks, detections, trackIndices, detectionIndices,
		costOptions{workers: 1})
}

// IoUMetric returns IoUCost configured with the given options
func IoUMetric(opts ...CostOption) DistanceMetric {

	o := costOptions{workers: 1}

	for _, opt := range opts {
		opt(&o)
	}

	return func(tracks []Track, detections []Detection, trackIndices,
		detectionIndices []int) (*CostMatrix, error) {

		return buildIoUCost(tracks, detections, trackIndices,
			detectionIndices, o)
	}
}

func buildIoUCost(tracks []Track, detections []Detection, trackIndices,
	detectionIndices []int, o costOptions) (*CostMatrix, error) {

	if trackIndices == nil {
		trackIndices = identityIndices(len(tracks))
	}

	if detectionIndices == nil {
		detectionIndices = identityIndices(len(detections))
	}

	if err := checkIndices("track", trackIndices, len(tracks)); err != nil {
		return nil, err
	}

	if err := checkIndices("detection", detectionIndices, len(detections)); err != nil {
		return nil, err
	}

	cost := NewCostMatrix(len(trackIndices), len(detectionIndices), nil)

	// gather the selected detection boxes once, in column order
	boxes := make([]Tlwh, len(detectionIndices))

	for j, idx := range detectionIndices {
		boxes[j] = detections[idx].Tlwh()
	}

	candidates := newBoxBatch(boxes)

	fillRow := func(row int) {

		track := tracks[trackIndices[row]]
		dst := cost.RawRowView(row)

		if track.TimeSinceUpdate() > 1 {
			for j := range dst {
				dst[j] = InfeasibleCost
			}
			return
		}

		for j, v := range iouBatch(track.Tlwh(), candidates) {
			dst[j] = 1 - v
		}
	}

	rows := len(trackIndices)

	if o.workers <= 1 || rows < 2 {
		for row := 0; row < rows; row++ {
			fillRow(row)
		}
		return cost, nil
	}

	chunk := (rows + o.workers - 1) / o.workers

	var wg sync.WaitGroup

	for start := 0; start < rows; start += chunk {

		end := min(start+chunk, rows)

		wg.Add(1)

		go func(start, end int) {
			defer wg.Done()

			for row := start; row < end; row++ {
				fillRow(row)
			}
		}(start, end)
	}

	wg.Wait()

	return cost, nil
}

// identityIndices returns [0, 1, ..., n-1]
func identityIndices(n int) []int {

	idx := make([]int, n)

	for i := range idx {
		idx[i] = i
	}

	return idx
}

// checkIndices ensures every index refers to a position in a collection of
// length n
func checkIndices(kind string, indices []int, n int) error {

	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%s index %d not in [0, %d): %w", kind, idx, n,
				ErrIndexOutOfRange)
		}
	}

	return nil
}
