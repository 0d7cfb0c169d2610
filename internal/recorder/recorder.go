// Package recorder writes and reads flock recordings.
//
// A recording is a zstd stream of length-delimited protobuf messages: one
// Header followed by one Frame per recorded tick.
package recorder

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
	"google.golang.org/protobuf/encoding/protowire"
)

// Version is the recording format written by this package.
const Version = 1

// maxRecordSize bounds a single message so a corrupt length cannot make the
// reader allocate without limit.
const maxRecordSize = 256 << 20

// An agent takes at least a tag and a length byte inside a frame, so no frame
// can hold more agents than this.
const maxAgents = maxRecordSize / 2

// framePrealloc caps the agent slice allocated up front from the header count.
const framePrealloc = 4096

var (
	ErrBadVersion = errors.New("unsupported recording version")
	ErrTooLarge   = errors.New("recording too large")
)

// Header describes the run a recording belongs to.
type Header struct {
	RunID   uuid.UUID
	Version int
	Bounds  flock.FieldBounds
	Agents  int
	Config  flock.Config
}

// NewHeader returns a header with a fresh run ID.
func NewHeader(bounds flock.FieldBounds, agents int, cfg flock.Config) Header {
	return Header{
		RunID:   uuid.New(),
		Version: Version,
		Bounds:  bounds,
		Agents:  agents,
		Config:  cfg,
	}
}

// Frame is the flock state after one tick.
type Frame struct {
	Tick   uint64
	Agents []flock.Agent
}

// Writer appends frames to a recording.
type Writer struct {
	enc     *zstd.Encoder
	buf     []byte
	scratch []byte
	frames  uint64
}

// NewWriter starts a recording on w and writes h. Close must be called to
// flush the stream; it does not close w.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("open zstd stream: %w", err)
	}
	rw := &Writer{enc: enc}

	cfgJSON, err := json.Marshal(h.Config)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("encode header config: %w", err)
	}
	var b []byte
	b = protowire.AppendTag(b, headerRunID, protowire.BytesType)
	b = protowire.AppendString(b, h.RunID.String())
	b = protowire.AppendTag(b, headerVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, Version)
	b = appendVector(b, headerBounds, geometry.Vector3D{X: h.Bounds.X, Y: h.Bounds.Y, Z: h.Bounds.Z})
	b = protowire.AppendTag(b, headerAgents, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.Agents))
	b = protowire.AppendTag(b, headerConfig, protowire.BytesType)
	b = protowire.AppendBytes(b, cfgJSON)

	if err := rw.writeRecord(b); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return rw, nil
}

// WriteFrame records the agents as they are after tick.
func (w *Writer) WriteFrame(tick uint64, agents []flock.Agent) error {
	b := w.buf[:0]
	b = protowire.AppendTag(b, frameTick, protowire.VarintType)
	b = protowire.AppendVarint(b, tick)
	for _, a := range agents {
		b, w.scratch = appendAgent(b, w.scratch, frameAgents, a)
	}
	w.buf = b

	if err := w.writeRecord(b); err != nil {
		return fmt.Errorf("write frame %d: %w", tick, err)
	}
	w.frames++
	return nil
}

// Frames returns how many frames were written.
func (w *Writer) Frames() uint64 {
	return w.frames
}

// Close flushes and ends the zstd stream.
func (w *Writer) Close() error {
	return w.enc.Close()
}

func (w *Writer) writeRecord(msg []byte) error {
	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(len(msg)))
	if _, err := w.enc.Write(prefix[:n]); err != nil {
		return err
	}
	_, err := w.enc.Write(msg)
	return err
}

// Reader reads a recording written by Writer.
type Reader struct {
	dec    *zstd.Decoder
	br     *bufio.Reader
	header Header
	buf    []byte
}

// NewReader opens a recording and reads its header.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open zstd stream: %w", err)
	}
	rr := &Reader{dec: dec, br: bufio.NewReader(dec)}

	msg, err := rr.readRecord()
	if err != nil {
		dec.Close()
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := rr.decodeHeader(msg); err != nil {
		dec.Close()
		return nil, err
	}
	return rr, nil
}

// Header returns the recording header.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (Frame, error) {
	msg, err := r.readRecord()
	if err != nil {
		return Frame{}, err
	}

	f := Frame{Agents: make([]flock.Agent, 0, min(r.header.Agents, framePrealloc))}
	err = walk(msg, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case frameTick:
			return consumeUint(typ, b, &f.Tick)
		case frameAgents:
			if typ != protowire.BytesType {
				return 0
			}
			body, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			a, err := decodeAgent(body)
			if err != nil {
				return -1
			}
			f.Agents = append(f.Agents, a)
			return n
		}
		return 0
	})
	if err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// Close releases the decoder.
func (r *Reader) Close() {
	r.dec.Close()
}

func (r *Reader) decodeHeader(msg []byte) error {
	var (
		h       Header
		runID   string
		version uint64
		agents  uint64
		bounds  geometry.Vector3D
		cfgJSON []byte
	)
	err := walk(msg, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case headerRunID:
			if typ != protowire.BytesType {
				return 0
			}
			s, n := protowire.ConsumeString(b)
			runID = s
			return n
		case headerVersion:
			return consumeUint(typ, b, &version)
		case headerBounds:
			return consumeVector(typ, b, &bounds)
		case headerAgents:
			return consumeUint(typ, b, &agents)
		case headerConfig:
			if typ != protowire.BytesType {
				return 0
			}
			v, n := protowire.ConsumeBytes(b)
			cfgJSON = v
			return n
		}
		return 0
	})
	if err != nil {
		return fmt.Errorf("decode header: %w", err)
	}
	if version != Version {
		return fmt.Errorf("%w: %d", ErrBadVersion, version)
	}
	if agents > maxAgents {
		return fmt.Errorf("decode header: %w: %d agents", ErrTooLarge, agents)
	}

	h.Version = int(version)
	h.Agents = int(agents)
	h.Bounds = flock.FieldBounds{X: bounds.X, Y: bounds.Y, Z: bounds.Z}
	if h.RunID, err = uuid.Parse(runID); err != nil {
		return fmt.Errorf("decode header run id: %w", err)
	}
	if len(cfgJSON) > 0 {
		if err := json.Unmarshal(cfgJSON, &h.Config); err != nil {
			return fmt.Errorf("decode header config: %w", err)
		}
	}
	r.header = h
	return nil
}

func (r *Reader) readRecord() ([]byte, error) {
	size, err := binary.ReadUvarint(r.br)
	if err != nil {
		return nil, err
	}
	if size > maxRecordSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	if cap(r.buf) < int(size) {
		r.buf = make([]byte, size)
	}
	r.buf = r.buf[:size]
	if _, err := io.ReadFull(r.br, r.buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return r.buf, nil
}
