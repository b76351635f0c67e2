package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"sort"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/errors"
)

// FormatError prints an error, expanding the code and context of an
// AnalysisError.
func FormatError(w io.Writer, err error, s styles) {
	if err == nil {
		return
	}

	var ae *errors.AnalysisError
	if !stderrors.As(err, &ae) {
		_, _ = fmt.Fprintf(w, "%s %s\n", s.errLevel.Render("Error:"), err.Error())
		return
	}

	_, _ = fmt.Fprintf(w, "%s %s\n", s.errLevel.Render("Error "+string(ae.Code)+":"), ae.Message)

	keys := make([]string, 0, len(ae.Context))
	for k := range ae.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "  %s %v\n", s.dim.Render(k+":"), ae.Context[k])
	}
	if ae.Cause != nil {
		_, _ = fmt.Fprintf(w, "  %s %v\n", s.dim.Render("cause:"), ae.Cause)
	}
}
