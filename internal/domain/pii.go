package domain

type Category string

const (
	CategoryEmail Category = "email"
	CategoryPhone Category = "phone"
	CategoryName  Category = "name"
)

type PiiItem struct {
	ID   int      `json:"id"`
	Type Category `json:"type"`
	Text string   `json:"text"`
	BBox BBox     `json:"bbox"`
}

type DetectResult struct {
	Text  string    `json:"text"`
	Items []PiiItem `json:"items"`
	Count int       `json:"count"`
}

type RenderedImage struct {
	PNG      []byte
	Width    int
	Height   int
	Redacted int // tokens actually painted
}

type RedactResult struct {
	Reply            string
	ImagePNG         []byte
	ImageBase64      string
	Tokens           int
	Redacted         int
	SelectionWarning string
}
