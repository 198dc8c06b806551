package ptp

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/paulbellamy/ratecounter"
)

// DataSource produces the payload of a send data phase. Get fills p
// with at most len(p) bytes and returns io.EOF once exhausted.
type DataSource interface {
	Get(p []byte) (int, error)
}

// DataSink consumes the payload of a receive data phase. Put consumes
// all of p or fails.
type DataSink interface {
	Put(p []byte) error
}

// DataHandler can act as either end of a data phase.
type DataHandler interface {
	DataSource
	DataSink
}

// RecvBuffer is a growable in-memory sink. The buffer is owned by the
// handler until Bytes hands it over.
type RecvBuffer struct {
	buf []byte
}

func NewRecvBuffer() *RecvBuffer {
	return &RecvBuffer{}
}

func (b *RecvBuffer) Put(p []byte) error {
	b.buf = append(b.buf, p...)
	return nil
}

func (b *RecvBuffer) Len() int {
	return len(b.buf)
}

// Bytes passes ownership of the received data to the caller. The
// handler is empty afterwards.
func (b *RecvBuffer) Bytes() []byte {
	out := b.buf
	b.buf = nil
	return out
}

// SendBuffer serves a borrowed byte slice. It never writes to it.
type SendBuffer struct {
	data []byte
	off  int
}

func NewSendBuffer(data []byte) *SendBuffer {
	return &SendBuffer{data: data}
}

func (b *SendBuffer) Get(p []byte) (int, error) {
	if b.off >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.off:])
	b.off += n
	return n, nil
}

// Len returns the number of bytes not yet consumed.
func (b *SendBuffer) Len() int {
	return len(b.data) - b.off
}

// Size returns the total payload size.
func (b *SendBuffer) Size() int64 {
	return int64(len(b.data))
}

// FileHandler reads from and writes to an open file descriptor.
type FileHandler struct {
	f *os.File
}

func NewFileHandler(f *os.File) *FileHandler {
	return &FileHandler{f: f}
}

func (h *FileHandler) Get(p []byte) (int, error) {
	return h.f.Read(p)
}

func (h *FileHandler) Put(p []byte) error {
	n, err := h.f.Write(p)
	if err != nil {
		return &TransportError{Op: "write " + h.f.Name(), Err: err}
	}
	if n < len(p) {
		return &TransportError{Op: "write " + h.f.Name(), Err: io.ErrShortWrite}
	}
	return nil
}

type writerSink struct {
	w io.Writer
}

// WriterSink adapts an io.Writer.
func WriterSink(w io.Writer) DataSink {
	return writerSink{w}
}

func (s writerSink) Put(p []byte) error {
	n, err := s.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return err
}

type readerSource struct {
	r io.Reader
}

// ReaderSource adapts an io.Reader.
func ReaderSource(r io.Reader) DataSource {
	return readerSource{r}
}

func (s readerSource) Get(p []byte) (int, error) {
	return s.r.Read(p)
}

// discardSink swallows unexpected data.
type discardSink struct{}

func (discardSink) Put(p []byte) error { return nil }

// ProgressSink counts the bytes flowing into another sink and keeps a
// per-second rate.
type ProgressSink struct {
	next  DataSink
	total int64
	rate  *ratecounter.RateCounter
	start time.Time
}

func NewProgressSink(next DataSink) *ProgressSink {
	return &ProgressSink{
		next:  next,
		rate:  ratecounter.NewRateCounter(time.Second),
		start: time.Now(),
	}
}

func (p *ProgressSink) Put(b []byte) error {
	if err := p.next.Put(b); err != nil {
		return err
	}
	p.total += int64(len(b))
	p.rate.Incr(int64(len(b)))
	return nil
}

// Total returns the number of bytes received so far.
func (p *ProgressSink) Total() int64 {
	return p.total
}

// Rate returns bytes received during the last second.
func (p *ProgressSink) Rate() int64 {
	return p.rate.Rate()
}

func (p *ProgressSink) String() string {
	return fmt.Sprintf("%d bytes in %s", p.total, time.Since(p.start).Round(time.Millisecond))
}

// guardedSink and guardedSource return ErrCancelled between chunks
// once the session is cancelled.
type guardedSink struct {
	next   DataSink
	cancel func() error
	n      int64
}

func (g *guardedSink) Put(p []byte) error {
	if err := g.cancel(); err != nil {
		return err
	}
	g.n += int64(len(p))
	return g.next.Put(p)
}

type guardedSource struct {
	next   DataSource
	cancel func() error
	n      int64
}

func (g *guardedSource) Get(p []byte) (int, error) {
	if err := g.cancel(); err != nil {
		return 0, err
	}
	n, err := g.next.Get(p)
	g.n += int64(n)
	return n, err
}
