package generation

// Request is the body sent to the generation service. It is built once per
// Generate action and never modified afterwards.
type Request struct {
	ResumeContent      string `json:"resumeContent" validate:"required"`
	JobDescriptionText string `json:"jobDescriptionText" validate:"required"`
}

type response struct {
	CoverLetter string `json:"coverLetter"`
}
