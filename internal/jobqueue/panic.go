package jobqueue

import "fmt"

// recoverToError turns a recovered panic value into an error, regardless
// of whether the panic value was itself an error.
func recoverToError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("proof worker panicked: %w", err)
	}
	return fmt.Errorf("proof worker panicked: %v", r)
}
