package domain

import "image"

// BBox is a pixel rectangle in the coordinate space of the normalized image.
type BBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the half-open rectangle covered by the box.
func (b BBox) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Left+b.Width, b.Top+b.Height)
}

// Token is one OCR word. ID is only meaningful within the extraction that produced it.
type Token struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	BBox BBox   `json:"bbox"`
}

// Recognition is the raw engine output: one entry in Boxes per entry in Words.
type Recognition struct {
	Words []string
	Boxes []BBox
}
