package source

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Source provides the frames of a sequence by position.
type Source interface {
	Count() int
	// Name identifies frame i in logs and failure reports.
	Name(i int) string
	Frame(ctx context.Context, i int) (image.Image, error)
	Close() error
}

// PDFSource turns every page of a PDF document into a frame.
type PDFSource struct {
	doc   *fitz.Document
	path  string
	dpi   int
	pages int
}

func NewPDFSource(path string, dpi int) (*PDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &PDFSource{doc: doc, path: path, dpi: dpi, pages: doc.NumPage()}, nil
}

func (f *PDFSource) Count() int {
	return f.pages
}

func (f *PDFSource) Name(i int) string {
	return fmt.Sprintf("%s#%d", f.path, i+1)
}

func (f *PDFSource) Frame(ctx context.Context, i int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Документ go-fitz не потокобезопасен: каждый воркер открывает свой
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(i, float64(f.dpi))
}

func (f *PDFSource) Close() error {
	return f.doc.Close()
}
