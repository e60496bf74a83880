package detector

// point is a 2D pixel coordinate in original-photo space
type point struct {
	x, y float32
}

// box is a face bounding box, top-left to bottom-right
type box struct {
	x1, y1, x2, y2 float32
}

func (b box) width() float32  { return b.x2 - b.x1 }
func (b box) height() float32 { return b.y2 - b.y1 }
func (b box) area() float32   { return b.width() * b.height() }

// face is one detection candidate. SCRFD emits five keypoints; the
// try-on pipeline only consumes the two eye centers, so the rest are
// dropped at decode time.
type face struct {
	bounds   box
	leftEye  point
	rightEye point
	score    float32
}
