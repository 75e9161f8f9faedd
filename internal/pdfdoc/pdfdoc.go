// Package pdfdoc binds the application to its PDF engines: pdfcpu for
// reading, page selection and writing, and ledongthuc/pdf for text.
package pdfdoc

import (
	"errors"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// ErrNoInput is returned when a combine is requested with nothing to combine.
	ErrNoInput = errors.New("nothing to combine")
	// ErrPageRange is returned for a page index outside the document.
	ErrPageRange = errors.New("page index out of range")
)

// Backend names the engine used for combining, shown in status output.
const Backend = "pdfcpu"

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	api.DisableConfigDir()
}

// Dim is the size of a page in PDF points.
type Dim struct {
	Width  float64
	Height float64
}

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount opens and validates the PDF at path and returns its page count.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := api.PageCount(f, newConfig())
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return n, nil
}

// PageDims returns the media box size of every page in the PDF at path.
func PageDims(path string) ([]Dim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dims, err := api.PageDims(f, newConfig())
	if err != nil {
		return nil, fmt.Errorf("read page dims: %w", err)
	}
	out := make([]Dim, len(dims))
	for i, d := range dims {
		out[i] = Dim{Width: d.Width, Height: d.Height}
	}
	return out, nil
}
