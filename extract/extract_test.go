package extract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"testing"

	"github.com/mantravadi/granthalaya/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOCR struct {
	fragments [][]string
	err       error
	calls     int
}

func (o *stubOCR) Recognize(ctx context.Context, img image.Image) ([]string, error) {
	call := o.calls
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	if call < len(o.fragments) {
		return o.fragments[call], nil
	}
	return nil, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func Test_Extract_TextPassthrough(t *testing.T) {
	e := NewExtractor(&stubOCR{})
	txt, err := e.Extract(context.Background(), corpus.Document{
		Bytes: []byte("ఆకాశం నీలం"),
		Kind:  corpus.KindText,
	})
	require.NoError(t, err)
	assert.Equal(t, "ఆకాశం నీలం", txt)
}

func Test_Extract_EmptyBytes(t *testing.T) {
	e := NewExtractor(&stubOCR{})
	_, err := e.Extract(context.Background(), corpus.Document{Kind: corpus.KindText})

	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
}

func Test_Extract_UnsupportedKind(t *testing.T) {
	e := NewExtractor(&stubOCR{})
	_, err := e.Extract(context.Background(), corpus.Document{
		Bytes: []byte("x"),
		Kind:  corpus.MediaKind("audio"),
	})

	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
}

func Test_Extract_Image(t *testing.T) {
	ocr := &stubOCR{fragments: [][]string{{"first line", "second line"}}}
	e := NewExtractor(ocr)

	txt, err := e.Extract(context.Background(), corpus.Document{
		Bytes: pngBytes(t),
		Kind:  corpus.KindImage,
	})
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", txt)
	assert.Equal(t, 1, ocr.calls)
}

func Test_Extract_ImageOCRFailure(t *testing.T) {
	e := NewExtractor(&stubOCR{err: errors.New("ocr down")})
	_, err := e.Extract(context.Background(), corpus.Document{
		Bytes: pngBytes(t),
		Kind:  corpus.KindImage,
	})

	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, corpus.KindImage, xerr.Kind)
}

func Test_Extract_CorruptImage(t *testing.T) {
	e := NewExtractor(&stubOCR{})
	_, err := e.Extract(context.Background(), corpus.Document{
		Bytes: []byte("not an image"),
		Kind:  corpus.KindImage,
	})

	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
}

func Test_Extract_PDFPageOrder(t *testing.T) {
	buf, err := os.ReadFile("testdata/twopage.pdf")
	require.NoError(t, err)

	ocr := &stubOCR{fragments: [][]string{{"page one"}, {"page two"}}}
	e := NewExtractor(ocr)

	txt, err := e.Extract(context.Background(), corpus.Document{
		Bytes: buf,
		Kind:  corpus.KindPDF,
	})
	require.NoError(t, err)
	assert.Equal(t, "page one\npage two", txt)
	assert.Equal(t, 2, ocr.calls)
}

func Test_Extract_PDFPageFailureIsFatal(t *testing.T) {
	buf, err := os.ReadFile("testdata/twopage.pdf")
	require.NoError(t, err)

	e := NewExtractor(&stubOCR{err: errors.New("ocr down")})
	_, err = e.Extract(context.Background(), corpus.Document{
		Bytes: buf,
		Kind:  corpus.KindPDF,
	})

	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, corpus.KindPDF, xerr.Kind)
}
