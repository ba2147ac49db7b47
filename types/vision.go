package types

// StepFeedback is the vision collaborator's judgement of a build step.
type StepFeedback struct {
	// Target is the label or step description that was checked.
	Target string `json:"target"`

	// Complete reports whether the step looks finished in the photo.
	Complete bool `json:"complete"`

	// Feedback is a short model-provided hint for the user.
	Feedback string `json:"feedback,omitempty"`

	// Points are normalized (0..1) coordinates where the target was found,
	// when the backend reports them.
	Points []Point `json:"points,omitempty"`
}

// Point is a normalized image coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ImageObject describes an uploaded image in object storage.
type ImageObject struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}
