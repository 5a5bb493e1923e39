package rest

type errorResponse struct {
	Error string `json:"error"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type redactResponse struct {
	Reply               string `json:"reply"`
	RedactedImageBase64 string `json:"redacted_image_base64"`
	SelectionWarning    string `json:"selection_warning,omitempty"`
}
