package tracker

// Tlwh (top left x, top left y, width, height) represents a 1x4 box
type Tlwh [4]float64

// Tlbr (top left x, top left y, bottom right x, bottom right y) represents
// a 1x4 box
type Tlbr [4]float64

// Xyah (center x, center y, aspect ratio, height) represents a 1x4 box
type Xyah [4]float64

// Rect represents a rectangle with Tlwh (top, left, width, height) format
type Rect struct {
	Tlwh Tlwh
}

// NewRect creates a new Rect with given coordinates
func NewRect(x, y, width, height float64) Rect {
	return Rect{
		Tlwh: Tlwh{x, y, width, height},
	}
}

// X returns the x coordinate of the rectangle
func (r Rect) X() float64 {
	return r.Tlwh[0]
}

// Y returns the y coordinate of the rectangle
func (r Rect) Y() float64 {
	return r.Tlwh[1]
}

// Width returns the width of the rectangle
func (r Rect) Width() float64 {
	return r.Tlwh[2]
}

// Height returns the height of the rectangle
func (r Rect) Height() float64 {
	return r.Tlwh[3]
}

// BRX returns the bottom-right x coordinate of the rectangle
func (r Rect) BRX() float64 {
	return r.Tlwh[0] + r.Tlwh[2]
}

// BRY returns the bottom-right y coordinate of the rectangle
func (r Rect) BRY() float64 {
	return r.Tlwh[1] + r.Tlwh[3]
}

// Area returns width x height
func (r Rect) Area() float64 {
	return r.Tlwh[2] * r.Tlwh[3]
}

// GetTlbr converts the rectangle to Tlbr format
func (r Rect) GetTlbr() Tlbr {
	return Tlbr{
		r.Tlwh[0],
		r.Tlwh[1],
		r.Tlwh[0] + r.Tlwh[2],
		r.Tlwh[1] + r.Tlwh[3],
	}
}

// GetXyah converts the rectangle to Xyah (center x, center y, aspect ratio,
// height) format.  A zero height gives an infinite aspect ratio.
func (r Rect) GetXyah() Xyah {
	return Xyah{
		r.Tlwh[0] + r.Tlwh[2]/2,
		r.Tlwh[1] + r.Tlwh[3]/2,
		r.Tlwh[2] / r.Tlwh[3],
		r.Tlwh[3],
	}
}

// IoU calculates the Intersection over Union with another rectangle
func (r Rect) IoU(other Rect) float64 {
	return IoU(r.Tlwh, []Tlwh{other.Tlwh})[0]
}

// GenerateRectByTlbr creates a Rect from Tlbr format
func GenerateRectByTlbr(tlbr Tlbr) Rect {
	return NewRect(tlbr[0], tlbr[1], tlbr[2]-tlbr[0], tlbr[3]-tlbr[1])
}

// GenerateRectByXyah creates a Rect from Xyah (center x, center y,
// aspect ratio, height) format
func GenerateRectByXyah(xyah Xyah) Rect {
	width := xyah[2] * xyah[3]
	return NewRect(xyah[0]-width/2, xyah[1]-xyah[3]/2, width, xyah[3])
}
