package playback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRange marks a Range header that is ignored; the whole clip
	// is served instead.
	ErrInvalidRange = errors.New("invalid range header")
	// ErrRangeNotSatisfiable marks a range that starts past the end of the
	// clip payload.
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
)

// clipSpan is an inclusive byte window inside a clip payload.
type clipSpan struct {
	first int
	last  int
}

func (s clipSpan) length() int {
	return s.last - s.first + 1
}

func (s clipSpan) contentRange(total int) string {
	return fmt.Sprintf("bytes %d-%d/%d", s.first, s.last, total)
}

// slice returns the span's bytes from payload.
func (s clipSpan) slice(payload []byte) []byte {
	return payload[s.first : s.last+1]
}

// spanOf resolves a Range header against a clip payload. A nil span with a
// nil error means the whole payload. Only the first range of a multi-range
// header is honoured, since audio elements never send more than one.
func spanOf(header string, payload []byte) (*clipSpan, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrInvalidRange
	}
	spec, _, _ = strings.Cut(spec, ",")
	from, to, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return nil, ErrInvalidRange
	}

	n := len(payload)

	if from == "" {
		tail, err := strconv.Atoi(to)
		if err != nil || tail <= 0 {
			return nil, ErrInvalidRange
		}
		if n == 0 {
			return nil, ErrRangeNotSatisfiable
		}
		return &clipSpan{first: max(0, n-tail), last: n - 1}, nil
	}

	first, err := strconv.Atoi(from)
	if err != nil || first < 0 {
		return nil, ErrInvalidRange
	}
	last := n - 1
	if to != "" {
		last, err = strconv.Atoi(to)
		if err != nil || last < first {
			return nil, ErrInvalidRange
		}
	}

	if first >= n {
		return nil, ErrRangeNotSatisfiable
	}
	return &clipSpan{first: first, last: min(last, n-1)}, nil
}
