package peripheral

import "io"

// l2capChannel is a bidirectional in-process stream backed by two
// io.Pipes, standing in for an L2CAP connection-oriented channel. Local is
// handed to the peripheral side; Remote is handed to whichever central
// opened the channel.
type l2capChannel struct {
	Local  io.ReadWriteCloser
	Remote io.ReadWriteCloser
}

type pipeHalf struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (h pipeHalf) Read(p []byte) (int, error)  { return h.r.Read(p) }
func (h pipeHalf) Write(p []byte) (int, error) { return h.w.Write(p) }
func (h pipeHalf) Close() error {
	_ = h.r.Close()
	return h.w.Close()
}

func newL2CAPChannel() *l2capChannel {
	ar, aw := io.Pipe()
	br, bw := io.Pipe()
	return &l2capChannel{
		Local:  pipeHalf{r: ar, w: bw},
		Remote: pipeHalf{r: br, w: aw},
	}
}
