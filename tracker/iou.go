package tracker

import (
	"gonum.org/v1/gonum/floats"
)

// IoUEpsilon is added to the union area so that two zero area boxes divide
// to zero rather than NaN
const IoUEpsilon = 1e-7

// boxBatch holds a set of boxes transposed into one slice per coordinate so
// the overlap arithmetic can run element wise across the whole batch
type boxBatch struct {
	x, y, w, h []float64
}

// newBoxBatch transposes the boxes into a boxBatch, clamping negative
// widths and heights to zero
func newBoxBatch(boxes []Tlwh) boxBatch {

	n := len(boxes)

	b := boxBatch{
		x: make([]float64, n),
		y: make([]float64, n),
		w: make([]float64, n),
		h: make([]float64, n),
	}

	for i, box := range boxes {
		b.x[i] = box[0]
		b.y[i] = box[1]
		b.w[i] = max(box[2], 0)
		b.h[i] = max(box[3], 0)
	}

	return b
}

// len returns the number of boxes in the batch
func (b boxBatch) len() int {
	return len(b.x)
}

// IoU computes the intersection over union between bbox and every box in
// candidates.  The result holds one value in [0, 1] per candidate in the
// same order as candidates.  Zero area boxes produce 0.
func IoU(bbox Tlwh, candidates []Tlwh) []float64 {
	return iouBatch(bbox, newBoxBatch(candidates))
}

// iouBatch is IoU over an already transposed candidate batch, which lets the
// cost matrix builder gather detections once and reuse them for every row
func iouBatch(bbox Tlwh, c boxBatch) []float64 {

	n := c.len()
	iou := make([]float64, n)

	if n == 0 {
		return iou
	}

	ref := NewRect(bbox[0], bbox[1], max(bbox[2], 0), max(bbox[3], 0))

	// intersection rectangle edges
	x1 := maxConstTo(make([]float64, n), ref.X(), c.x)
	y1 := maxConstTo(make([]float64, n), ref.Y(), c.y)

	x2 := floats.AddTo(make([]float64, n), c.x, c.w)
	minConstTo(x2, ref.BRX(), x2)

	y2 := floats.AddTo(make([]float64, n), c.y, c.h)
	minConstTo(y2, ref.BRY(), y2)

	// intersection width and height, zero for disjoint boxes
	wInter := floats.SubTo(x2, x2, x1)
	maxConstTo(wInter, 0, wInter)

	hInter := floats.SubTo(y2, y2, y1)
	maxConstTo(hInter, 0, hInter)

	overlap := floats.MulTo(x1, wInter, hInter)

	// union = area1 + area2 - overlap + eps
	union := floats.MulTo(y1, c.w, c.h)
	floats.AddConst(ref.Area(), union)
	floats.Sub(union, overlap)
	floats.AddConst(IoUEpsilon, union)

	floats.DivTo(iou, overlap, union)

	// rounding of the edge sums can push overlap a hair past the smaller area
	minConstTo(iou, 1, iou)

	return iou
}

// maxConstTo sets dst[i] = max(c, s[i]) and returns dst
func maxConstTo(dst []float64, c float64, s []float64) []float64 {
	for i, v := range s {
		dst[i] = max(c, v)
	}
	return dst
}

// minConstTo sets dst[i] = min(c, s[i]) and returns dst
func minConstTo(dst []float64, c float64, s []float64) []float64 {
	for i, v := range s {
		dst[i] = min(c, v)
	}
	return dst
}
