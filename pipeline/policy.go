package pipeline

import "github.com/tandau/firewatch-go/model"

// Evaluate decides whether a detection set is a hazard: at least one
// detection of the target class strictly above the threshold. The reported
// confidence is the FIRST qualifying detection's score in input order, not
// the highest one. Switching to highest-wins would change which confidence
// gets persisted and reported, so it stays an explicit policy choice.
func Evaluate(detections []model.Detection, targetClassID int, threshold float32) HazardDecision {
	for _, det := range detections {
		if det.ClassID == targetClassID && det.Confidence > threshold {
			return HazardDecision{
				Triggered:  true,
				Confidence: det.Confidence,
			}
		}
	}

	return HazardDecision{}
}
