package buffer

import "errors"

// ErrHistoryEmpty is returned by ReopenLastClosed when no closed
// buffers remain in the history.
var ErrHistoryEmpty = errors.New("no closed buffers to reopen")
