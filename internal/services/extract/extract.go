// Package extract pulls named fields out of document images. OCR and face
// matching are externally pluggable capabilities; the field mapping itself
// is a pure set of pattern rules per document type.
package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"sahel/internal/models"
)

// ErrUnsupportedFormat is returned for file types the extractor cannot
// process. The caller surfaces it to the uploader; the document stays
// replaceable, nothing crashes.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrUnsupportedDocumentType is returned when no field rules exist for
// the document type.
var ErrUnsupportedDocumentType = errors.New("unsupported document type")

var supportedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"pdf":  true,
}

// Field patterns are forgiving on purpose: scanned documents mix French
// and English labels and arbitrary whitespace.
var (
	nameRe       = regexp.MustCompile(`(?im)^\s*(?:nom|name)\s*[:：]?\s*(\S[^\n]*)`)
	idNumberRe   = regexp.MustCompile(`(?im)(?:n°|no|num[ée]ro|id)\s*[:：]?\s*([A-Z0-9]{6,})`)
	birthDateRe  = regexp.MustCompile(`(?im)(?:n[ée]\(?e?\)?\s*le|date\s+de\s+naissance|birth\s*date)\s*[:：]?\s*(\d{1,2}[./-]\d{1,2}[./-]\d{2,4})`)
	birthPlaceRe = regexp.MustCompile(`(?im)(?:lieu\s+de\s+naissance|birth\s*place|[àa]\s+)\s*[:：]?\s*(\S[^\n]*)`)
	addressRe    = regexp.MustCompile(`(?im)^\s*(?:adresse|address)\s*[:：]?\s*(\S[^\n]*)`)
	wilayaRe     = regexp.MustCompile(`(?im)(?:wilaya|r[ée]gion)\s*(?:de|d')?\s*[:：]?\s*(\S[^\n]*)`)
	parentsRe    = regexp.MustCompile(`(?im)(?:fils|fille)\s+de\s+(\S[^\n]*?)\s+et\s+(?:de\s+)?(\S[^\n]*)`)
)

// Extractor maps OCR text to named fields per document type.
type Extractor struct {
	ocr       TextExtractor
	languages []string
}

// NewExtractor creates a field extractor over the given OCR capability.
func NewExtractor(ocr TextExtractor) *Extractor {
	return &Extractor{ocr: ocr, languages: []string{"fr", "en"}}
}

// Extract runs OCR and applies the field rules for the document type.
// Failures come back as errors, never panics; fileType is the lowercase
// extension of the uploaded file.
func (e *Extractor) Extract(ctx context.Context, imageBytes []byte, fileType string, docType models.DocumentType) (map[string]string, error) {
	if !supportedExtensions[strings.ToLower(fileType)] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, fileType)
	}

	text, err := e.ocr.Extract(ctx, imageBytes, e.languages)
	if err != nil {
		return nil, fmt.Errorf("ocr extraction failed: %w", err)
	}

	switch docType {
	case models.DocumentTypeIdentity:
		return map[string]string{
			"name":        firstMatch(nameRe, text),
			"id_number":   firstMatch(idNumberRe, text),
			"birth_date":  firstMatch(birthDateRe, text),
			"birth_place": firstMatch(birthPlaceRe, text),
		}, nil
	case models.DocumentTypeProofOfAddress:
		return map[string]string{
			"address": firstMatch(addressRe, text),
			"wilaya":  firstMatch(wilayaRe, text),
		}, nil
	case models.DocumentTypeBirthCertificate:
		fields := map[string]string{
			"name":        firstMatch(nameRe, text),
			"birth_date":  firstMatch(birthDateRe, text),
			"birth_place": firstMatch(birthPlaceRe, text),
		}
		if m := parentsRe.FindStringSubmatch(text); m != nil {
			fields["father_name"] = strings.TrimSpace(m[1])
			fields["mother_name"] = strings.TrimSpace(m[2])
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDocumentType, docType)
	}
}

func firstMatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
