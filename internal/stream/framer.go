package stream

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxRecordBytes bounds the accumulated payload of a single record. Inline
// images dominate record size; anything beyond this is treated as a protocol
// violation rather than buffered indefinitely.
const maxRecordBytes = 32 << 20

// Framer turns a raw byte stream into classified events. It owns all
// reassembly concerns: records split across arbitrary transport chunks,
// comment heartbeats, CRLF line endings, and payloads whose JSON body spans
// multiple flushed fragments.
//
// Recv blocks until a complete event is available, the stream ends, or an
// unrecoverable framing fault is detected. After a Done or Error event every
// subsequent call returns io.EOF.
type Framer struct {
	br       *bufio.Reader
	record   bytes.Buffer
	pending  []*Event
	terminal bool
}

// NewFramer wraps r. The framer does not close r; the caller owns the
// underlying transport.
func NewFramer(r io.Reader) *Framer {
	return &Framer{br: bufio.NewReader(r)}
}

// Recv returns the next event in stream order. io.EOF signals a finished
// stream; all other failure modes are surfaced as Error events, not Go
// errors, so the caller can forward them on the wire unchanged.
func (f *Framer) Recv() (*Event, error) {
	for {
		if len(f.pending) > 0 {
			ev := f.pending[0]
			f.pending = f.pending[1:]
			if ev.Kind == EventDone || ev.Kind == EventError {
				f.terminal = true
			}
			return ev, nil
		}
		if f.terminal {
			return nil, io.EOF
		}

		line, readErr := f.br.ReadString('\n')
		if len(line) > 0 {
			f.processLine(strings.TrimRight(line, "\r\n"))
		}
		if readErr != nil && len(f.pending) == 0 {
			f.finish(readErr)
		}
	}
}

// processLine consumes one logical line, queueing an event when a record
// completes.
func (f *Framer) processLine(line string) {
	switch {
	case line == "":
		// Blank line terminates a record. An unparseable buffer here is
		// not yet fatal: the transport may have flushed mid-payload and
		// the remainder arrives as further data lines. The size bound is
		// enforced on the data path, which never lets the buffer grow
		// past it.
		if f.record.Len() == 0 {
			return
		}
		ev, err := decodeRecord(f.record.Bytes())
		if err != nil {
			return
		}
		f.record.Reset()
		if ev != nil {
			f.pending = append(f.pending, ev)
		}

	case strings.HasPrefix(line, ":"):
		// Comment heartbeat, carries no payload.

	default:
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// Unknown field lines (event:, id:, retry:) are tolerated.
			return
		}
		payload = strings.TrimPrefix(payload, " ")
		if f.record.Len()+len(payload) > maxRecordBytes {
			f.fail(ErrKindMalformedPayload,
				fmt.Sprintf("record exceeds %d bytes", maxRecordBytes), "")
			return
		}
		// Fragments of one payload are rejoined without a separator;
		// record JSON never contains raw newlines, so any split is a
		// transport artifact.
		f.record.WriteString(payload)
	}
}

// finish handles end of input. A clean end requires a terminal record to have
// been delivered already; anything else surfaces as an error event.
func (f *Framer) finish(readErr error) {
	if f.record.Len() > 0 {
		// Final record arrived without its trailing blank line.
		ev, err := decodeRecord(f.record.Bytes())
		f.record.Reset()
		if err != nil {
			f.fail(ErrKindMalformedPayload, "stream ended inside an unparseable record", "")
			return
		}
		if ev != nil {
			f.pending = append(f.pending, ev)
			if ev.Kind == EventDone || ev.Kind == EventError {
				return
			}
		}
	}

	if !errors.Is(readErr, io.EOF) {
		f.fail(ErrKindTruncated, "stream transport failed before completion", readErr.Error())
		return
	}
	f.fail(ErrKindTruncated, "stream closed before completion", "")
}

func (f *Framer) fail(kind ErrorKind, message, details string) {
	f.pending = append(f.pending, NewErrorEvent(kind, message, details))
}

// decodeRecord parses one complete record payload into an event. A valid
// JSON object carrying none of the known keys is skipped (nil, nil) so newer
// upstream record types do not break older consoles.
func decodeRecord(payload []byte) (*Event, error) {
	var rec wireRecord
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}

	switch {
	case rec.Error != nil:
		return NewErrorEvent(normalizeErrorKind(*rec.Error), rec.Message, rec.Details), nil
	case rec.Done:
		return &Event{Kind: EventDone}, nil
	case rec.Image != nil:
		data, err := base64.StdEncoding.DecodeString(rec.Image.Data)
		if err != nil {
			return nil, fmt.Errorf("image payload is not valid base64: %w", err)
		}
		return &Event{Kind: EventImage, Image: &ImagePayload{
			Data:     data,
			MimeType: rec.Image.MimeType,
			Thinking: rec.Image.Thinking,
		}}, nil
	case rec.Thinking != nil:
		return &Event{Kind: EventThinking, Text: *rec.Thinking}, nil
	case rec.Text != nil:
		return &Event{Kind: EventText, Text: *rec.Text}, nil
	default:
		return nil, nil
	}
}

// normalizeErrorKind maps upstream error identifiers onto the local taxonomy,
// passing unknown kinds through so diagnostics survive the relay.
func normalizeErrorKind(kind string) ErrorKind {
	if kind == "" {
		return ErrKindUpstreamUnavailable
	}
	return ErrorKind(kind)
}
