package syscalls

import (
	"context"
	"io"

	"github.com/evanphx/sysgate/kernel"
	hclog "github.com/hashicorp/go-hclog"
)

func sysClose(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	fd := ArgInt(t, 0)

	if err := t.CloseFile(int(fd)); err != nil {
		if err != kernel.ErrUnknownFile {
			l.Error("error closing fd", "error", err, "fd", fd)
		}

		return -1
	}

	return 0
}

func sysDup(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	fd := ArgInt(t, 0)

	nfd, err := t.Dup(int(fd))
	if err != nil {
		return -1
	}

	return int64(nfd)
}

func sysPipe(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	fdArray := ArgAddr(t, 0)

	rfd, wfd, err := t.CreatePipe()
	if err != nil {
		l.Error("error creating pipe", "error", err)
		return -1
	}

	if err := copyOut(t, fdArray, [2]int32{int32(rfd), int32(wfd)}); err != nil {
		t.CloseFile(rfd)
		t.CloseFile(wfd)
		return -1
	}

	return 0
}

func sysWrite(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	var (
		fd  = ArgInt(t, 0)
		ptr = ArgAddr(t, 1)
		sz  = ArgInt(t, 2)
	)

	if sz < 0 {
		return -1
	}

	f, ok := t.GetFile(int(fd))
	if !ok {
		return -1
	}

	w, ok := f.Writer()
	if !ok {
		return -1
	}

	if sz == 0 {
		return 0
	}

	if err := checkRange(t, ptr, uint64(sz)); err != nil {
		return -1
	}

	data := make([]byte, sz)

	if err := t.Mem.PT.CopyIn(data, ptr); err != nil {
		l.Trace("error reading data from userspace", "pid", t.Pid, "error", err)
		return -1
	}

	n, err := w.Write(data)
	if err != nil {
		l.Trace("error writing data", "pid", t.Pid, "fd", fd, "error", err)
		if n == 0 {
			return -1
		}
	}

	return int64(n)
}

// sysRead returns 0 at end of file.
func sysRead(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	var (
		fd  = ArgInt(t, 0)
		buf = ArgAddr(t, 1)
		sz  = ArgInt(t, 2)
	)

	if sz < 0 {
		return -1
	}

	f, ok := t.GetFile(int(fd))
	if !ok {
		return -1
	}

	r, ok := f.Reader()
	if !ok {
		return -1
	}

	if sz == 0 {
		return 0
	}

	if err := checkRange(t, buf, uint64(sz)); err != nil {
		return -1
	}

	data := make([]byte, sz)

	n, err := r.Read(data)
	if err != nil && n == 0 {
		if err == io.EOF {
			return 0
		}

		l.Trace("error reading data", "pid", t.Pid, "fd", fd, "error", err)
		return -1
	}

	if err := t.Mem.PT.CopyOut(buf, data[:n]); err != nil {
		l.Trace("error writing data to userspace", "pid", t.Pid, "error", err)
		return -1
	}

	return int64(n)
}
