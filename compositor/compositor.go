package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/image/draw"

	"github.com/lensora/tryon-backend/tryon"
)

// Output canvas and overlay geometry. The ratios come from measuring
// typical eyewear against interpupillary distance: the frame spans
// temple to temple at about 2.5 eye distances, with a 0.4 aspect.
const (
	canvasWidth  = 800
	canvasHeight = 600

	widthPerEyeDistance = 2.5
	heightPerWidth      = 0.4
	anchorXPerWidth     = 0.25
	anchorYPerHeight    = 0.5

	jpegQuality = 80

	maxOverlayBytes = 16 << 20
)

// Compositor renders the product overlay onto a user photo at a
// position derived from the detected eye centers. It deliberately uses
// a fixed-ratio 2D heuristic; correcting for head tilt or yaw is out of
// scope.
type Compositor struct {
	Client *http.Client
}

func New() *Compositor {
	return &Compositor{Client: &http.Client{Timeout: 30 * time.Second}}
}

// PlacementFor computes the overlay rectangle for a pair of eye
// centers: width 2.5x the eye distance, height 0.4x the width, anchored
// left of and vertically centered on the left eye.
func PlacementFor(landmarks tryon.Landmarks) tryon.Placement {
	d := math.Hypot(
		landmarks.RightEye.X-landmarks.LeftEye.X,
		landmarks.RightEye.Y-landmarks.LeftEye.Y,
	)
	width := d * widthPerEyeDistance
	height := width * heightPerWidth
	return tryon.Placement{
		X:      landmarks.LeftEye.X - width*anchorXPerWidth,
		Y:      landmarks.LeftEye.Y - height*anchorYPerHeight,
		Width:  width,
		Height: height,
	}
}

// Composite implements tryon.Compositor. The photo is stretched onto
// the fixed 800x600 canvas, the overlay is drawn at the computed
// rectangle, and the result is JPEG-encoded.
func (c *Compositor) Composite(ctx context.Context, photo []byte, landmarks tryon.Landmarks, asset tryon.OverlayAsset) (tryon.Composite, error) {
	placement := PlacementFor(landmarks)
	if placement.Width <= 0 {
		return tryon.Composite{}, tryon.NewError(tryon.CodeCompositing, "degenerate eye landmarks", nil)
	}

	photoImg, _, err := image.Decode(bytes.NewReader(photo))
	if err != nil {
		return tryon.Composite{}, tryon.NewError(tryon.CodeCompositing, "failed to decode user photo", err)
	}

	overlayImg, err := c.fetchOverlay(ctx, asset.ImageURL)
	if err != nil {
		return tryon.Composite{}, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	draw.CatmullRom.Scale(canvas, canvas.Bounds(), photoImg, photoImg.Bounds(), draw.Src, nil)

	overlayRect := image.Rect(
		int(math.Round(placement.X)),
		int(math.Round(placement.Y)),
		int(math.Round(placement.X+placement.Width)),
		int(math.Round(placement.Y+placement.Height)),
	)
	draw.CatmullRom.Scale(canvas, overlayRect, overlayImg, overlayImg.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return tryon.Composite{}, tryon.NewError(tryon.CodeCompositing, "failed to encode result image", err)
	}

	return tryon.Composite{Image: buf.Bytes(), Placement: placement}, nil
}

// fetchOverlay downloads and decodes the overlay asset
func (c *Compositor) fetchOverlay(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, tryon.NewError(tryon.CodeCompositing, "invalid overlay asset URL", err)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, tryon.NewError(tryon.CodeCompositing, "failed to fetch overlay asset", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, tryon.NewError(tryon.CodeCompositing,
			fmt.Sprintf("overlay asset fetch returned status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxOverlayBytes))
	if err != nil {
		return nil, tryon.NewError(tryon.CodeCompositing, "failed to read overlay asset", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, tryon.NewError(tryon.CodeCompositing, "overlay asset is not a decodable image", err)
	}
	return img, nil
}
