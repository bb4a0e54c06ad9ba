package extract

import "context"

// TextExtractor is the pluggable OCR capability. Implementations own
// their timeouts; the pipeline treats any error as "document needs
// re-upload", never as a fatal condition.
type TextExtractor interface {
	Extract(ctx context.Context, imageBytes []byte, languageHints []string) (string, error)
}

// FaceMatcher is the pluggable face comparison capability. Embed returns
// nil when no face is detected.
type FaceMatcher interface {
	Embed(ctx context.Context, imageBytes []byte) ([]float64, error)
	Compare(a, b []float64) bool
}
