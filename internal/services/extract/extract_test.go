package extract

import (
	"context"
	"errors"
	"testing"

	"sahel/internal/models"

	"github.com/stretchr/testify/assert"
)

type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) Extract(_ context.Context, _ []byte, _ []string) (string, error) {
	return f.text, f.err
}

func TestExtractIdentityFields(t *testing.T) {
	ocr := &fakeOCR{text: "NOM: BENALI\nN°: AB123456\nNé le: 12/03/1990\nLieu de naissance: Alger"}
	e := NewExtractor(ocr)

	fields, err := e.Extract(context.Background(), []byte("img"), "jpg", models.DocumentTypeIdentity)
	assert.NoError(t, err)
	assert.Equal(t, "BENALI", fields["name"])
	assert.Equal(t, "AB123456", fields["id_number"])
	assert.Equal(t, "12/03/1990", fields["birth_date"])
	assert.Equal(t, "Alger", fields["birth_place"])
}

func TestExtractProofOfAddressFields(t *testing.T) {
	ocr := &fakeOCR{text: "Adresse: 12 Rue des Oliviers\nWilaya de Tizi Ouzou"}
	e := NewExtractor(ocr)

	fields, err := e.Extract(context.Background(), []byte("img"), "png", models.DocumentTypeProofOfAddress)
	assert.NoError(t, err)
	assert.Equal(t, "12 Rue des Oliviers", fields["address"])
	assert.Equal(t, "Tizi Ouzou", fields["wilaya"])
}

func TestExtractBirthCertificateFields(t *testing.T) {
	ocr := &fakeOCR{text: "Nom: Benali Karim\nNé le 05-07-1988\nfils de Ahmed Benali et de Fatima Cherif"}
	e := NewExtractor(ocr)

	fields, err := e.Extract(context.Background(), []byte("img"), "pdf", models.DocumentTypeBirthCertificate)
	assert.NoError(t, err)
	assert.Equal(t, "Benali Karim", fields["name"])
	assert.Equal(t, "05-07-1988", fields["birth_date"])
	assert.Equal(t, "Ahmed Benali", fields["father_name"])
	assert.Equal(t, "Fatima Cherif", fields["mother_name"])
}

func TestExtractMissingFieldsAreEmpty(t *testing.T) {
	ocr := &fakeOCR{text: "texte sans aucun champ reconnaissable"}
	e := NewExtractor(ocr)

	fields, err := e.Extract(context.Background(), []byte("img"), "jpg", models.DocumentTypeIdentity)
	assert.NoError(t, err)
	assert.Equal(t, "", fields["name"])
	assert.Equal(t, "", fields["id_number"])
	assert.Equal(t, "", fields["birth_date"])
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := NewExtractor(&fakeOCR{text: "irrelevant"})

	tests := []string{"exe", "docx", "gif", ""}
	for _, ext := range tests {
		t.Run("ext "+ext, func(t *testing.T) {
			_, err := e.Extract(context.Background(), []byte("img"), ext, models.DocumentTypeIdentity)
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestExtractFormatCaseInsensitive(t *testing.T) {
	e := NewExtractor(&fakeOCR{text: ""})
	_, err := e.Extract(context.Background(), []byte("img"), "JPG", models.DocumentTypeIdentity)
	assert.NoError(t, err)
}

func TestExtractOCRFailure(t *testing.T) {
	ocrErr := errors.New("engine crashed")
	e := NewExtractor(&fakeOCR{err: ocrErr})

	_, err := e.Extract(context.Background(), []byte("img"), "jpg", models.DocumentTypeIdentity)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ocrErr)
}

func TestExtractUnsupportedDocumentType(t *testing.T) {
	e := NewExtractor(&fakeOCR{text: "whatever"})
	_, err := e.Extract(context.Background(), []byte("img"), "jpg", models.DocumentTypeOther)
	assert.ErrorIs(t, err, ErrUnsupportedDocumentType)
}
