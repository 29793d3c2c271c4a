package source

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// ParseSrc splits an image src into a file path and a 1-based PDF page. Plain files
// return page 0. "deck.pdf" alone means page 1.
func ParseSrc(src string) (path string, page int, err error) {
	path = src
	if i := strings.LastIndex(src, "#page="); i >= 0 {
		path = src[:i]
		page, err = strconv.Atoi(src[i+len("#page="):])
		if err != nil || page < 1 {
			return "", 0, fmt.Errorf("bad page in %q", src)
		}
	}
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		if page == 0 {
			page = 1
		}
	} else if page != 0 {
		return "", 0, fmt.Errorf("page selector on non-PDF source %q", src)
	}
	return path, page, nil
}

// PageSrc builds the src of one PDF page.
func PageSrc(pdfPath string, page int) string {
	return fmt.Sprintf("%s#page=%d", pdfPath, page)
}

// LoadImage decodes src. PDF pages are rendered at dpi.
func LoadImage(src string, dpi int) (image.Image, error) {
	path, page, err := ParseSrc(src)
	if err != nil {
		return nil, err
	}
	if page == 0 {
		img, err := decodeFile(path)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return img, nil
	}

	deck, err := NewFitzPDFDeck(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer deck.Close()
	if page > deck.PageCount() {
		return nil, fmt.Errorf("%s has %d pages, want page %d", path, deck.PageCount(), page)
	}
	return deck.RenderPage(page-1, dpi)
}
