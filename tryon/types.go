package tryon

// Point is a pixel coordinate in the input photo
type Point struct {
	X float64
	Y float64
}

// Landmarks holds the two eye centers the compositor needs, in pixel
// coordinates of the original photo, plus the detector's confidence
// for the selected face.
type Landmarks struct {
	LeftEye    Point
	RightEye   Point
	Confidence float64
}

// OverlayAsset is the product-supplied eyewear raster to composite
type OverlayAsset struct {
	ImageURL string  // fetchable URL of the overlay image
	Width    float64 // intended dimensions from the catalog, informational
	Height   float64
}

// Placement is the overlay rectangle computed from the eye positions
type Placement struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Composite is the compositor's output
type Composite struct {
	Image     []byte // JPEG-encoded result
	Placement Placement
}
