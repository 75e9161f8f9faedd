package pdfdoc

import (
	"fmt"

	pdflib "github.com/ledongthuc/pdf"
)

// ExtractText returns the plain text of one page. pageIndex is zero-based.
// A page without a content stream yields an empty string.
func ExtractText(path string, pageIndex int) (text string, err error) {
	// ledongthuc/pdf panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("extract text from page %d: %v", pageIndex+1, r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if pageIndex < 0 || pageIndex >= reader.NumPage() {
		return "", fmt.Errorf("page %d of %d: %w", pageIndex+1, reader.NumPage(), ErrPageRange)
	}

	page := reader.Page(pageIndex + 1)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
