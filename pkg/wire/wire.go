package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Message sizes in bytes.
const (
	RequestSize  = 12
	ResponseSize = 36
)

// Interval is up to two disjoint contiguous ranges of ids. Either range may be
// empty. A max-size query reuses the structure and carries the scalar in ASize.
type Interval struct {
	AStart uint64 `json:"aStart"`
	ASize  uint64 `json:"aSize"`
	BStart uint64 `json:"bStart"`
	BSize  uint64 `json:"bSize"`
}

// Len returns the number of ids in the interval.
func (iv Interval) Len() uint64 { return iv.ASize + iv.BSize }

// Empty reports whether the interval grants no ids.
func (iv Interval) Empty() bool { return iv.Len() == 0 }

// At returns the id at offset, walking the first range then the second.
// ok is false when offset is beyond Len.
func (iv Interval) At(offset uint64) (id uint64, ok bool) {
	if offset < iv.ASize {
		return iv.AStart + offset, true
	}
	if offset-iv.ASize < iv.BSize {
		return iv.BStart + (offset - iv.ASize), true
	}
	return 0, false
}

// String renders the interval as "[a,a+n)+[b,b+m)".
func (iv Interval) String() string {
	if iv.BSize == 0 {
		return fmt.Sprintf("[%d,+%d)", iv.AStart, iv.ASize)
	}
	return fmt.Sprintf("[%d,+%d)+[%d,+%d)", iv.AStart, iv.ASize, iv.BStart, iv.BSize)
}

// Request is a client request.
type Request struct {
	Code Code
	Size uint64
}

// Response is a server response.
type Response struct {
	Interval Interval
	Status   Status
}

// EncodeRequest packs r into its fixed 12-byte form.
func EncodeRequest(r Request) [RequestSize]byte {
	var b [RequestSize]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(r.Code))
	binary.BigEndian.PutUint64(b[4:12], r.Size)
	return b
}

// DecodeRequest unpacks a request. Unknown codes are returned as-is; the
// server decides how to answer them.
func DecodeRequest(b []byte) (Request, error) {
	if len(b) < RequestSize {
		return Request{}, fmt.Errorf("%w: request is %d bytes, want %d", ErrProtocol, len(b), RequestSize)
	}
	return Request{
		Code: Code(int32(binary.BigEndian.Uint32(b[0:4]))),
		Size: binary.BigEndian.Uint64(b[4:12]),
	}, nil
}

// EncodeResponse packs r into its fixed 36-byte form.
func EncodeResponse(r Response) [ResponseSize]byte {
	var b [ResponseSize]byte
	binary.BigEndian.PutUint64(b[0:8], r.Interval.AStart)
	binary.BigEndian.PutUint64(b[8:16], r.Interval.ASize)
	binary.BigEndian.PutUint64(b[16:24], r.Interval.BStart)
	binary.BigEndian.PutUint64(b[24:32], r.Interval.BSize)
	binary.BigEndian.PutUint32(b[32:36], uint32(r.Status))
	return b
}

// DecodeResponse unpacks a response.
func DecodeResponse(b []byte) (Response, error) {
	if len(b) < ResponseSize {
		return Response{}, fmt.Errorf("%w: response is %d bytes, want %d", ErrProtocol, len(b), ResponseSize)
	}
	status := Status(int32(binary.BigEndian.Uint32(b[32:36])))
	if !status.Valid() {
		return Response{}, fmt.Errorf("%w: unknown status %d", ErrProtocol, int32(status))
	}
	return Response{
		Interval: Interval{
			AStart: binary.BigEndian.Uint64(b[0:8]),
			ASize:  binary.BigEndian.Uint64(b[8:16]),
			BStart: binary.BigEndian.Uint64(b[16:24]),
			BSize:  binary.BigEndian.Uint64(b[24:32]),
		},
		Status: status,
	}, nil
}

// WriteRequest writes the encoded request to w.
func WriteRequest(w io.Writer, r Request) error {
	b := EncodeRequest(r)
	_, err := w.Write(b[:])
	return err
}

// ReadRequest reads exactly one request from r. I/O errors (including a
// connection closed mid-message) are returned unwrapped so callers can tell
// a dropped connection from a malformed message.
func ReadRequest(r io.Reader) (Request, error) {
	var b [RequestSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return Request{}, err
	}
	return DecodeRequest(b[:])
}

// WriteResponse writes the encoded response to w.
func WriteResponse(w io.Writer, r Response) error {
	b := EncodeResponse(r)
	_, err := w.Write(b[:])
	return err
}

// ReadResponse reads exactly one response from r. I/O errors are returned
// unwrapped; a malformed message wraps ErrProtocol.
func ReadResponse(r io.Reader) (Response, error) {
	var b [ResponseSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return Response{}, err
	}
	return DecodeResponse(b[:])
}

// BlockReply is the JSON body of the HTTP block endpoints. It carries the
// same interval and status as a binary Response.
type BlockReply struct {
	Interval Interval `json:"interval"`
	Status   Status   `json:"status"`
	Error    string   `json:"error,omitempty"`
}
