package kernel

import (
	"io"
	"sync"
)

// File is an open file description shared by every descriptor that refers
// to it. Pipes and stdio are the only kinds there are.
type File struct {
	mu   sync.Mutex
	refs int

	r io.ReadCloser
	w io.WriteCloser
}

func (f *File) Writer() (io.Writer, bool) {
	if f.w == nil {
		return nil, false
	}

	return f.w, true
}

func (f *File) Reader() (io.Reader, bool) {
	if f.r == nil {
		return nil, false
	}

	return f.r, true
}

func (f *File) incRef() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refs++
}

// Close drops one reference, closing the underlying ends with the last one.
// Closing the last write end of a pipe makes its reader see end of file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refs--
	if f.refs > 0 {
		return nil
	}

	var err error

	if f.r != nil {
		if se := f.r.Close(); se != nil {
			err = se
		}
	}

	if f.w != nil {
		if se := f.w.Close(); se != nil {
			err = se
		}
	}

	return err
}
