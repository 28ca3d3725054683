package tracker

import (
	"errors"
	"math"
)

// lapLarge seeds the running minimums of the solver.  It only survives in a
// result for a 1x1 problem.
const lapLarge = math.MaxFloat64

// jvSolver solves the dense square n x n linear assignment problem with the
// Jonker-Volgenant algorithm.  Costs are read through a function so callers
// can present a padded or otherwise virtual matrix without materialising it.
type jvSolver struct {
	n    int
	cost func(i, j int) float64
	// x[i] is the column assigned to row i
	x []int
	// y[j] is the row assigned to column j
	y []int
	// v holds the column potentials
	v []float64
	// free holds the rows still waiting for a column
	free []int
}

func newJVSolver(n int, cost func(i, j int) float64) *jvSolver {
	return &jvSolver{
		n:    n,
		cost: cost,
		x:    make([]int, n),
		y:    make([]int, n),
		v:    make([]float64, n),
		free: make([]int, n),
	}
}

// solve runs column reduction, up to two passes of augmenting row reduction
// and finally shortest path augmentation for any rows left free
func (s *jvSolver) solve() error {

	nFree := s.reduceColumns()

	for pass := 0; nFree > 0 && pass < 2; pass++ {
		nFree = s.reduceRows(nFree)
	}

	if nFree > 0 {
		return s.augment(nFree)
	}

	return nil
}

// reduceColumns assigns every column to its cheapest row, keeps the first
// claim on each row and transfers the reduction of uniquely assigned rows to
// the column potentials.  It returns the number of free rows.
func (s *jvSolver) reduceColumns() int {

	n := s.n
	unique := make([]bool, n)

	for i := 0; i < n; i++ {
		s.x[i] = -1
		s.v[i] = lapLarge
		s.y[i] = 0
		unique[i] = true
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := s.cost(i, j); c < s.v[j] {
				s.v[j] = c
				s.y[j] = i
			}
		}
	}

	for j := n - 1; j >= 0; j-- {
		i := s.y[j]
		if s.x[i] < 0 {
			s.x[i] = j
		} else {
			unique[i] = false
			s.y[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < n; i++ {

		if s.x[i] < 0 {
			s.free[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		j := s.x[i]
		minVal := lapLarge

		for j2 := 0; j2 < n; j2++ {
			if j2 == j {
				continue
			}
			if c := s.cost(i, j2) - s.v[j2]; c < minVal {
				minVal = c
			}
		}

		s.v[j] -= minVal
	}

	return nFree
}

// reduceRows is one pass of augmenting row reduction over the free rows.  It
// returns the number of rows still free afterwards.
func (s *jvSolver) reduceRows(nFree int) int {

	n := s.n
	current := 0
	newFree := 0
	rrCnt := 0

	for current < nFree {

		rrCnt++
		freeI := s.free[current]
		current++

		// lowest and second lowest reduced cost in the row
		j1 := 0
		v1 := s.cost(freeI, 0) - s.v[0]
		j2 := -1
		v2 := lapLarge

		for j := 1; j < n; j++ {
			c := s.cost(freeI, j) - s.v[j]
			if c >= v2 {
				continue
			}
			if c >= v1 {
				v2 = c
				j2 = j
			} else {
				v2, v1 = v1, c
				j2, j1 = j1, j
			}
		}

		i0 := s.y[j1]
		v1New := s.v[j1] - (v2 - v1)
		v1Lowers := v1New < s.v[j1]

		switch {
		case rrCnt < current*n:
			if v1Lowers {
				s.v[j1] = v1New
			} else if i0 >= 0 && j2 >= 0 {
				j1 = j2
				i0 = s.y[j2]
			}

			if i0 >= 0 {
				if v1Lowers {
					current--
					s.free[current] = i0
				} else {
					s.free[newFree] = i0
					newFree++
				}
			}

		case i0 >= 0:
			s.free[newFree] = i0
			newFree++
		}

		s.x[freeI] = j1
		s.y[j1] = freeI
	}

	return newFree
}

// augment assigns each remaining free row along a shortest augmenting path
func (s *jvSolver) augment(nFree int) error {

	pred := make([]int, s.n)

	for _, freeI := range s.free[:nFree] {

		j := s.shortestPath(freeI, pred)

		if j < 0 || j >= s.n {
			return errors.New("augmenting path not found")
		}

		for k, i := 0, -1; i != freeI; k++ {

			if k >= s.n {
				return errors.New("augmenting path did not terminate")
			}

			i = pred[j]
			s.y[j] = i
			j, s.x[i] = s.x[i], j
		}
	}

	return nil
}

// shortestPath is the modified Dijkstra search from row start to the nearest
// unassigned column.  It updates the potentials of the settled columns and
// returns the column the path ends in.
func (s *jvSolver) shortestPath(start int, pred []int) int {

	n := s.n
	lo, hi := 0, 0
	ready := 0
	end := -1
	cols := make([]int, n)
	d := make([]float64, n)

	for j := 0; j < n; j++ {
		cols[j] = j
		pred[j] = start
		d[j] = s.cost(start, j) - s.v[j]
	}

	for end == -1 {

		// scan list exhausted, collect the next set of closest columns
		if lo == hi {
			ready = lo
			hi = s.closestColumns(lo, d, cols)

			for k := lo; k < hi; k++ {
				if j := cols[k]; s.y[j] < 0 {
					end = j
				}
			}
		}

		if end == -1 {
			end = s.scan(&lo, &hi, d, cols, pred)
		}
	}

	mind := d[cols[lo]]

	for _, j := range cols[:ready] {
		s.v[j] += d[j] - mind
	}

	return end
}

// closestColumns moves the columns of cols[lo:] with the minimum distance to
// the front of that range and returns the end of the moved block
func (s *jvSolver) closestColumns(lo int, d []float64, cols []int) int {

	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < s.n; k++ {

		j := cols[k]

		if d[j] > mind {
			continue
		}

		if d[j] < mind {
			hi = lo
			mind = d[j]
		}

		cols[k] = cols[hi]
		cols[hi] = j
		hi++
	}

	return hi
}

// scan relaxes the unsettled columns through the columns on the scan list.
// It returns an unassigned column reached at the minimum distance, or -1.
func (s *jvSolver) scan(lo, hi *int, d []float64, cols, pred []int) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++
		i := s.y[j]
		mind := d[j]
		h := s.cost(i, j) - s.v[j] - mind

		for k := *hi; k < s.n; k++ {

			j = cols[k]
			reduced := s.cost(i, j) - s.v[j] - h

			if reduced >= d[j] {
				continue
			}

			d[j] = reduced
			pred[j] = i

			if reduced == mind {
				if s.y[j] < 0 {
					return j
				}

				cols[k] = cols[*hi]
				cols[*hi] = j
				(*hi)++
			}
		}
	}

	return -1
}
