package acquisition

import (
	"errors"
	"fmt"
)

// ErrFetch matches every per-item acquisition failure.
var ErrFetch = errors.New("thumbnail acquisition failed")

var errDecodedEmpty = errors.New("decoded image is empty")

const (
	StageFetch  = "fetch"
	StageDecode = "decode"
)

// FetchError is a non-fatal failure for one catalog entry. The entry is left
// out of the recognition set.
type FetchError struct {
	Tag   int
	URL   string
	Stage string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("tag %d (%s): %s failed: %v", e.Tag, e.URL, e.Stage, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }
