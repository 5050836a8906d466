package ftp

// ProgressFunc receives transfer progress: total is the size of the whole
// transfer and current the number of bytes moved so far. It is called
// synchronously from the transferring goroutine.
type ProgressFunc func(total, current int64)

// ProgressListener is implemented by types that want to follow both
// directions of transfer, such as a terminal progress bar.
type ProgressListener interface {
	OnBytesRead(total, current int64)
	OnBytesWrite(total, current int64)
}

// ReadProgress adapts the read side of a listener to a ProgressFunc.
// It returns nil for a nil listener.
func ReadProgress(l ProgressListener) ProgressFunc {
	if l == nil {
		return nil
	}
	return l.OnBytesRead
}

// WriteProgress adapts the write side of a listener to a ProgressFunc.
// It returns nil for a nil listener.
func WriteProgress(l ProgressListener) ProgressFunc {
	if l == nil {
		return nil
	}
	return l.OnBytesWrite
}
