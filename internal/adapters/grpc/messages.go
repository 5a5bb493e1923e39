package grpc

import "github.com/cp25sy5-modjot/pii-redact-service/internal/domain"

type HealthCheckRequest struct {
	Name string `json:"name,omitempty"`
}

type HealthCheckResponse struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type DetectRequest struct {
	ImageData []byte `json:"image_data"`
}

type DetectResponse struct {
	Text  string           `json:"text"`
	Items []domain.PiiItem `json:"items"`
	Count int              `json:"count"`
}

type RedactAndChatRequest struct {
	ImageData []byte `json:"image_data"`
	Message   string `json:"message,omitempty"`
	// SelectedIDs is the raw JSON array text, parsed the same way as the HTTP form field.
	SelectedIDs string `json:"selected_ids,omitempty"`
}

type RedactAndChatResponse struct {
	Reply            string `json:"reply"`
	RedactedImagePNG []byte `json:"redacted_image_png"`
	Redacted         int    `json:"redacted"`
	SelectionWarning string `json:"selection_warning,omitempty"`
}
