package engine

import "fmt"

// AnalysisError is returned when a coverage analysis cannot complete. No
// partial result accompanies it.
type AnalysisError struct {
	Op  string
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: coverage analysis failed: %v", e.Op, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
