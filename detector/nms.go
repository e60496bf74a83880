package detector

import "sort"

// nms performs Non-Maximum Suppression on detection candidates. The
// result is score-sorted, which makes the "first face" selection policy
// deterministic for a given model output.
func nms(faces []face, iouThreshold float32) []face {
	if len(faces) == 0 {
		return faces
	}

	sort.Slice(faces, func(i, j int) bool {
		return faces[i].score > faces[j].score
	})

	keep := make([]bool, len(faces))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(faces); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(faces); j++ {
			if !keep[j] {
				continue
			}
			if iou(faces[i].bounds, faces[j].bounds) > iouThreshold {
				keep[j] = false
			}
		}
	}

	result := make([]face, 0, len(faces))
	for i, f := range faces {
		if keep[i] {
			result = append(result, f)
		}
	}

	return result
}

// iou calculates Intersection over Union of two bounding boxes
func iou(a, b box) float32 {
	x1 := max32(a.x1, b.x1)
	y1 := max32(a.y1, b.y1)
	x2 := min32(a.x2, b.x2)
	y2 := min32(a.y2, b.y2)

	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.area() + b.area() - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
