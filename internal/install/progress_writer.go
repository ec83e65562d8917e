package install

import (
	"io"

	"github.com/pkgx-run/pkgx/internal/progress"
)

// progressWriter reports each chunk written to the shared sink, mirroring
// the teacher's downloader/http.go progressWriter but emitting raw byte
// deltas (Inc) instead of a rendered percentage string, since rendering
// is the CLI widget's job, not ours.
type progressWriter struct {
	sink progress.Sink
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.sink.Inc(int64(n))
	return n, nil
}

// copyWithProgress copies src into dst while also mirroring every chunk
// into pw, the same io.MultiWriter composition the teacher uses in
// pkg/downloader/http.go.
func copyWithProgress(dst io.Writer, src io.Reader, pw *progressWriter) (int64, error) {
	return io.Copy(io.MultiWriter(dst, pw), src)
}
