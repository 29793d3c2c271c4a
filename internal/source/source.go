package source

import (
	"image"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Deck is a paged still source: a PDF or a directory of images.
type Deck interface {
	PageCount() int
	PageSize(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// FitzPDFDeck renders PDF pages through MuPDF.
type FitzPDFDeck struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFDeck(path string) (*FitzPDFDeck, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzPDFDeck{doc: doc, path: path}, nil
}

func (f *FitzPDFDeck) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFDeck) PageSize(index int) (float64, float64, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

// RenderPage opens its own document handle; fitz documents are not safe for
// concurrent rendering and pages are rendered from the preload worker group.
func (f *FitzPDFDeck) RenderPage(index int, dpi int) (image.Image, error) {
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, float64(dpi))
}

func (f *FitzPDFDeck) Close() error {
	return f.doc.Close()
}

// OpenDeck opens a PDF through MuPDF and anything else as an image deck.
func OpenDeck(path string) (Deck, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewFitzPDFDeck(path)
	}
	return NewImageDeck(path)
}
