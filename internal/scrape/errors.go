package scrape

import "fmt"

// NotFoundError reports that no identifier could be read from the input.
type NotFoundError struct {
	Input string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not retrieve id from %q", e.Input)
}

// ExtractionError reports an expected page structure or data literal that is
// missing or unparsable. Step names the extraction stage that failed.
type ExtractionError struct {
	Step string
	URL  string
	Err  error
}

func (e *ExtractionError) Error() string {
	msg := "extract " + e.Step
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
