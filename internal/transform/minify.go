package transform

import (
	"errors"
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/parse/v2"

	"github.com/3-lines-studio/assetrev/internal/core"
)

// Minifier strips whitespace and comments from stylesheets and scripts.
// It is safe for concurrent use.
type Minifier struct {
	m *minify.M
}

func NewMinifier() *Minifier {
	m := minify.New()
	m.AddFunc(core.KindStylesheet.MediaType(), css.Minify)
	m.AddFunc(core.KindScript.MediaType(), js.Minify)
	return &Minifier{m: m}
}

// Transform returns the minified form of source. Parse failures come back
// as *core.AssetError of kind core.ErrSyntax; nothing is returned
// alongside an error, so callers never see partial output.
func (x *Minifier) Transform(path string, kind core.AssetKind, source []byte) ([]byte, error) {
	mediaType := kind.MediaType()
	if mediaType == "" {
		return nil, fmt.Errorf("no minifier for %s asset %s", kind, path)
	}

	if kind == core.KindStylesheet {
		if err := checkStylesheet(source); err != nil {
			return nil, stylesheetError(path, err)
		}
		if err := lexStylesheet(source); err != nil {
			return nil, stylesheetError(path, err)
		}
	}

	out, err := x.m.Bytes(mediaType, source)
	if err != nil {
		var perr *parse.Error
		if errors.As(err, &perr) {
			return nil, core.NewSyntaxError(path, perr.Line, perr.Column, errors.New(perr.Message))
		}
		return nil, core.NewSyntaxError(path, 0, 0, err)
	}

	if kind == core.KindStylesheet {
		if err := checkStylesheet(out); err != nil {
			return nil, core.NewSyntaxError(path, 0, 0, fmt.Errorf("minified output is malformed: %w", err))
		}
	}
	return out, nil
}

func stylesheetError(path string, err error) error {
	var se *structureError
	if errors.As(err, &se) {
		return core.NewSyntaxError(path, se.line, se.column, se)
	}
	return core.NewSyntaxError(path, 0, 0, err)
}
