package detector

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/lensora/tryon-backend/tryon"
)

const (
	confThreshold = 0.5
	nmsThreshold  = 0.4
	numAnchors    = 2 // anchors per feature-map position
)

var (
	featureStrides = []int{8, 16, 32}

	scrfdInputNames  = []string{"input.1"}
	scrfdOutputNames = []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
		"kps_8", "kps_16", "kps_32",
	}
)

// SCRFD detects faces with the SCRFD keypoint model and reports the
// two eye centers of the selected face. Multi-face photos resolve to
// the first (highest-scoring) candidate; that is the documented policy.
type SCRFD struct {
	manager   *ModelManager
	inputSize int
}

// NewSCRFD builds a detector on top of a model manager. inputSize must
// match the model's expected square input (640 for scrfd_2.5g_kps).
func NewSCRFD(manager *ModelManager, inputSize int) *SCRFD {
	return &SCRFD{manager: manager, inputSize: inputSize}
}

// Detect implements tryon.Detector
func (d *SCRFD) Detect(ctx context.Context, photo []byte) (tryon.Landmarks, error) {
	img, _, err := image.Decode(bytes.NewReader(photo))
	if err != nil {
		return tryon.Landmarks{}, tryon.NewError(tryon.CodeInvalidImage, "input is not a decodable image", err)
	}

	sess, err := d.manager.ensureReady(ctx)
	if err != nil {
		return tryon.Landmarks{}, err
	}
	if err := ctx.Err(); err != nil {
		return tryon.Landmarks{}, err
	}

	origWidth := img.Bounds().Dx()
	origHeight := img.Bounds().Dy()
	blob, scale := prepareInput(img, d.inputSize)

	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(d.inputSize), int64(d.inputSize)), blob)
	if err != nil {
		return tryon.Landmarks{}, tryon.NewError(tryon.CodeProcessing, "failed to create input tensor", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 9)
	outputTensors := make([]*ort.Tensor[float32], 9)
	defer func() {
		for _, t := range outputTensors {
			if t != nil {
				t.Destroy()
			}
		}
	}()

	for i, stride := range featureStrides {
		side := d.inputSize / stride
		anchors := int64(side * side * numAnchors)

		for j, cols := range []int64{1, 4, 10} {
			tensor, tensorErr := ort.NewTensor(ort.NewShape(anchors, cols), make([]float32, anchors*cols))
			if tensorErr != nil {
				return tryon.Landmarks{}, tryon.NewError(tryon.CodeProcessing, "failed to create output tensor", tensorErr)
			}
			outputs[i+j*3] = tensor
			outputTensors[i+j*3] = tensor
		}
	}

	if err := sess.run([]ort.Value{inputTensor}, outputs); err != nil {
		return tryon.Landmarks{}, tryon.NewError(tryon.CodeProcessing, "face detection inference failed", err)
	}

	var faces []face
	for level, stride := range featureStrides {
		faces = append(faces, decodeLevel(
			outputTensors[level].GetData(),
			outputTensors[level+3].GetData(),
			outputTensors[level+6].GetData(),
			stride, d.inputSize, scale, origWidth, origHeight,
		)...)
	}

	faces = nms(faces, nmsThreshold)
	if len(faces) == 0 {
		return tryon.Landmarks{}, tryon.NewError(tryon.CodeNoFaceDetected, "no face detected in the image", nil)
	}

	selected := faces[0]
	return tryon.Landmarks{
		LeftEye:    tryon.Point{X: float64(selected.leftEye.x), Y: float64(selected.leftEye.y)},
		RightEye:   tryon.Point{X: float64(selected.rightEye.x), Y: float64(selected.rightEye.y)},
		Confidence: float64(selected.score),
	}, nil
}

// decodeLevel decodes one feature-map level of SCRFD output. Boxes are
// distances from the anchor center; keypoints are offsets from it. Both
// are in letterboxed space and divided by scale to land in original
// photo pixels.
func decodeLevel(scoreData, bboxData, kpsData []float32, stride, inputSize int, scale float32, origWidth, origHeight int) []face {
	side := inputSize / stride
	var faces []face

	anchorIdx := 0
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			for a := 0; a < numAnchors; a++ {
				if anchorIdx >= len(scoreData) {
					return faces
				}
				score := sigmoid(scoreData[anchorIdx])
				if score > confThreshold {
					cx := (float32(x) + 0.5) * float32(stride)
					cy := (float32(y) + 0.5) * float32(stride)

					bboxIdx := anchorIdx * 4
					bounds := box{
						x1: clamp((cx-bboxData[bboxIdx]*float32(stride))/scale, 0, float32(origWidth)),
						y1: clamp((cy-bboxData[bboxIdx+1]*float32(stride))/scale, 0, float32(origHeight)),
						x2: clamp((cx+bboxData[bboxIdx+2]*float32(stride))/scale, 0, float32(origWidth)),
						y2: clamp((cy+bboxData[bboxIdx+3]*float32(stride))/scale, 0, float32(origHeight)),
					}

					kpsIdx := anchorIdx * 10
					faces = append(faces, face{
						bounds: bounds,
						leftEye: point{
							x: (cx + kpsData[kpsIdx]*float32(stride)) / scale,
							y: (cy + kpsData[kpsIdx+1]*float32(stride)) / scale,
						},
						rightEye: point{
							x: (cx + kpsData[kpsIdx+2]*float32(stride)) / scale,
							y: (cy + kpsData[kpsIdx+3]*float32(stride)) / scale,
						},
						score: score,
					})
				}
				anchorIdx++
			}
		}
	}

	return faces
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
