package protocol

import "bytes"

// Splitter turns raw stream reads into complete lines. A read may hold zero,
// one or several lines; a trailing fragment is kept for the next Feed.
type Splitter struct {
	buf []byte
	max int
	// discarding skips the rest of an oversized line up to its newline.
	discarding bool
}

// NewSplitter returns a Splitter that discards a line once its pending
// fragment grows past max bytes. The remainder of that line is skipped too.
// max <= 0 means unbounded.
func NewSplitter(max int) *Splitter {
	return &Splitter{max: max}
}

// Feed appends chunk and returns every complete line, without newlines.
// The second result is true when an oversized fragment was dropped.
func (s *Splitter) Feed(chunk []byte) ([]string, bool) {
	if s.discarding {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			return nil, false
		}
		s.discarding = false
		chunk = chunk[i+1:]
	}
	s.buf = append(s.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(s.buf[:i]))
		s.buf = s.buf[i+1:]
	}

	overflow := false
	if s.max > 0 && len(s.buf) > s.max {
		s.buf = nil
		s.discarding = true
		overflow = true
	}
	if len(s.buf) == 0 {
		s.buf = nil
	}
	return lines, overflow
}

// Pending returns the buffered partial line.
func (s *Splitter) Pending() string {
	return string(s.buf)
}
