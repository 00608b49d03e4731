package fwdcapture

import (
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("fwdcapture: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("fwdcapture: CBOR decoder initialization failed: " + err.Error())
	}
}

// Writer appends frames to a capture stream.
type Writer struct {
	file io.Closer // nil unless the Writer opened the file
	zw   io.WriteCloser
	enc  *cbor.Encoder
}

// Create creates the capture file at path, compressed according to its
// extension.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create capture %s", path)
	}
	w, err := NewWriter(f, CompressionFor(path))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.file = f
	return w, nil
}

// NewWriter writes the header to w and returns a frame writer.
func NewWriter(w io.Writer, c Compression) (*Writer, error) {
	zw, err := compressWriter(w, c)
	if err != nil {
		return nil, err
	}
	cw := &Writer{zw: zw, enc: encMode.NewEncoder(zw)}
	hdr := Header{Magic: Magic, Version: Version, Created: time.Now().UnixMilli()}
	if err := cw.enc.Encode(hdr); err != nil {
		return nil, errors.Wrap(err, "write capture header")
	}
	return cw, nil
}

// WriteFrame appends one frame.
func (w *Writer) WriteFrame(f Frame) error {
	return errors.Wrap(w.enc.Encode(f), "write frame")
}

// Close flushes the compressor and closes the file if Create opened it.
func (w *Writer) Close() error {
	err := w.zw.Close()
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	return errors.Wrap(err, "close capture")
}

// Reader reads frames from a capture stream.
type Reader struct {
	Header Header

	file    io.Closer
	release func()
	dec     *cbor.Decoder
}

// Open opens the capture at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open capture %s", path)
	}
	r, err := NewReader(f, CompressionFor(path))
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "read capture %s", path)
	}
	r.file = f
	return r, nil
}

// NewReader reads and checks the header from r.
func NewReader(r io.Reader, c Compression) (*Reader, error) {
	zr, release, err := decompressReader(r, c)
	if err != nil {
		return nil, err
	}
	cr := &Reader{release: release, dec: decMode.NewDecoder(zr)}
	if err := cr.dec.Decode(&cr.Header); err != nil {
		release()
		return nil, errors.Wrap(err, "read capture header")
	}
	if cr.Header.Magic != Magic {
		release()
		return nil, errors.Errorf("not a capture stream (magic %q)", cr.Header.Magic)
	}
	if cr.Header.Version > Version {
		release()
		return nil, errors.Errorf("capture version %d is newer than supported version %d", cr.Header.Version, Version)
	}
	return cr, nil
}

// Next returns the next frame, or io.EOF at the end of the stream.
func (r *Reader) Next() (Frame, error) {
	var f Frame
	if err := r.dec.Decode(&f); err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, errors.Wrap(err, "read frame")
	}
	return f, nil
}

// Close releases the decompressor and the file.
func (r *Reader) Close() error {
	r.release()
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ReadAll loads every frame of the capture at path.
func ReadAll(path string) ([]Frame, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	var frames []Frame
	for {
		f, err := r.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, errors.Wrapf(err, "frame %d of %s", len(frames), path)
		}
		frames = append(frames, f)
	}
}
