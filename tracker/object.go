package tracker

// Object represents a detection observed in the current frame
type Object struct {
	// Rect is the bounding box representation of the detected object
	Rect Rect
	// Label is the class label of the object detected
	Label int
	// Prob is the confidence/probability of the object detected
	Prob float64
	// ID is a unique ID to give this object which can be used to match
	// the input detection object and tracked object
	ID int64
}

// NewObject is a constructor function for the Object struct
func NewObject(rect Rect, label int, prob float64, id int64) Object {
	return Object{
		Rect:  rect,
		Label: label,
		Prob:  prob,
		ID:    id,
	}
}

// Tlwh returns the bounding box of the object
func (o Object) Tlwh() Tlwh {
	return o.Rect.Tlwh
}

// Tlbr returns the bounding box as (min x, min y, max x, max y)
func (o Object) Tlbr() Tlbr {
	return o.Rect.GetTlbr()
}

// Xyah returns the bounding box as (center x, center y, aspect ratio,
// height)
func (o Object) Xyah() Xyah {
	return o.Rect.GetXyah()
}
