package extract

import "context"

// NullTextExtractor is the placeholder OCR capability: it extracts no
// text, so field mapping yields empty fields and name-match scoring
// degrades to its floor. Wire a real OCR client in production.
type NullTextExtractor struct{}

// Extract returns empty text.
func (NullTextExtractor) Extract(ctx context.Context, imageBytes []byte, languageHints []string) (string, error) {
	return "", nil
}

// NullFaceMatcher is the placeholder face capability: it never detects a
// face, so face-match scoring degrades to its floor.
type NullFaceMatcher struct{}

// Embed reports no detected face.
func (NullFaceMatcher) Embed(ctx context.Context, imageBytes []byte) ([]float64, error) {
	return nil, nil
}

// Compare never matches.
func (NullFaceMatcher) Compare(a, b []float64) bool { return false }
