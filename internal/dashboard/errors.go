package dashboard

import "errors"

var (
	// ErrInvalidResult reports a forecast result whose shape or values
	// cannot be rendered.
	ErrInvalidResult = errors.New("invalid forecast result")

	// ErrWrite reports a failure to resolve or write the output document.
	ErrWrite = errors.New("dashboard write failed")

	// ErrNoPDFEngine is returned by ExportPDF when no headless Chromium
	// or Chrome binary can be found.
	ErrNoPDFEngine = errors.New("no PDF engine available (install chromium or google-chrome)")
)
