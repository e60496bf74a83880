package compositor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lensora/tryon-backend/tryon"
)

func TestPlacementFor(t *testing.T) {
	tests := []struct {
		name      string
		landmarks tryon.Landmarks
		want      tryon.Placement
	}{
		{
			name: "horizontal eyes",
			landmarks: tryon.Landmarks{
				LeftEye:  tryon.Point{X: 100, Y: 200},
				RightEye: tryon.Point{X: 180, Y: 200},
			},
			// d=80 => width 200, height 80, anchored at (50, 160)
			want: tryon.Placement{X: 50, Y: 160, Width: 200, Height: 80},
		},
		{
			name: "unit distance",
			landmarks: tryon.Landmarks{
				LeftEye:  tryon.Point{X: 10, Y: 10},
				RightEye: tryon.Point{X: 11, Y: 10},
			},
			want: tryon.Placement{X: 9.375, Y: 9.5, Width: 2.5, Height: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlacementFor(tt.landmarks)
			if got != tt.want {
				t.Errorf("PlacementFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPlacementHeightEqualsEyeDistance(t *testing.T) {
	// height = 0.4 * 2.5d = d for any eye distance d
	lm := tryon.Landmarks{
		LeftEye:  tryon.Point{X: 0, Y: 0},
		RightEye: tryon.Point{X: 120, Y: 0},
	}
	if got := PlacementFor(lm).Height; got != 120 {
		t.Errorf("height = %v, want 120", got)
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func overlayServer(t *testing.T, body []byte, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write(body)
	}))
}

func TestComposite(t *testing.T) {
	photo := encodePNG(t, solidImage(400, 300, color.White))
	overlay := encodePNG(t, solidImage(100, 40, color.RGBA{R: 255, A: 255}))

	srv := overlayServer(t, overlay, http.StatusOK)
	defer srv.Close()

	lm := tryon.Landmarks{
		LeftEye:  tryon.Point{X: 100, Y: 200},
		RightEye: tryon.Point{X: 180, Y: 200},
	}

	result, err := New().Composite(context.Background(), photo, lm, tryon.OverlayAsset{ImageURL: srv.URL})
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	if result.Placement != (tryon.Placement{X: 50, Y: 160, Width: 200, Height: 80}) {
		t.Errorf("placement = %+v", result.Placement)
	}

	out, err := jpeg.Decode(bytes.NewReader(result.Image))
	if err != nil {
		t.Fatalf("result is not a decodable JPEG: %v", err)
	}
	if out.Bounds().Dx() != 800 || out.Bounds().Dy() != 600 {
		t.Errorf("canvas = %dx%d, want 800x600", out.Bounds().Dx(), out.Bounds().Dy())
	}

	// Overlay center should be red-dominant, a corner should stay white
	r, g, _, _ := out.At(150, 200).RGBA()
	if r>>8 < 200 || g>>8 > 100 {
		t.Errorf("overlay center pixel = r%d g%d, want red-dominant", r>>8, g>>8)
	}
	r, g, b, _ := out.At(700, 50).RGBA()
	if r>>8 < 200 || g>>8 < 200 || b>>8 < 200 {
		t.Errorf("background pixel = r%d g%d b%d, want white", r>>8, g>>8, b>>8)
	}
}

func TestCompositeErrors(t *testing.T) {
	photo := encodePNG(t, solidImage(40, 30, color.White))
	overlay := encodePNG(t, solidImage(10, 4, color.Black))
	lm := tryon.Landmarks{
		LeftEye:  tryon.Point{X: 10, Y: 10},
		RightEye: tryon.Point{X: 20, Y: 10},
	}

	t.Run("bad photo", func(t *testing.T) {
		srv := overlayServer(t, overlay, http.StatusOK)
		defer srv.Close()
		_, err := New().Composite(context.Background(), []byte("not an image"), lm, tryon.OverlayAsset{ImageURL: srv.URL})
		if tryon.CodeOf(err) != tryon.CodeCompositing {
			t.Errorf("code = %q, want %q", tryon.CodeOf(err), tryon.CodeCompositing)
		}
	})

	t.Run("overlay fetch error", func(t *testing.T) {
		srv := overlayServer(t, nil, http.StatusNotFound)
		defer srv.Close()
		_, err := New().Composite(context.Background(), photo, lm, tryon.OverlayAsset{ImageURL: srv.URL})
		if tryon.CodeOf(err) != tryon.CodeCompositing {
			t.Errorf("code = %q, want %q", tryon.CodeOf(err), tryon.CodeCompositing)
		}
	})

	t.Run("overlay not an image", func(t *testing.T) {
		srv := overlayServer(t, []byte("<html>oops</html>"), http.StatusOK)
		defer srv.Close()
		_, err := New().Composite(context.Background(), photo, lm, tryon.OverlayAsset{ImageURL: srv.URL})
		if tryon.CodeOf(err) != tryon.CodeCompositing {
			t.Errorf("code = %q, want %q", tryon.CodeOf(err), tryon.CodeCompositing)
		}
	})

	t.Run("degenerate landmarks", func(t *testing.T) {
		same := tryon.Landmarks{LeftEye: tryon.Point{X: 5, Y: 5}, RightEye: tryon.Point{X: 5, Y: 5}}
		_, err := New().Composite(context.Background(), photo, same, tryon.OverlayAsset{ImageURL: "http://unused.example.com"})
		if tryon.CodeOf(err) != tryon.CodeCompositing {
			t.Errorf("code = %q, want %q", tryon.CodeOf(err), tryon.CodeCompositing)
		}
	})
}
