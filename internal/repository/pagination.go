package repository

import "strconv"

const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 100

	DefaultLogLimit = 100
	MaxLogLimit     = 500
)

// Window is a normalized limit/offset pair for feed queries.
type Window struct {
	Limit  int
	Offset int
}

// ParseWindow clamps raw query parameters into a usable window. Non-numeric
// input falls back to the defaults instead of failing the request.
func ParseWindow(limitRaw, offsetRaw string, defaultLimit, maxLimit int) Window {
	w := Window{Limit: defaultLimit, Offset: 0}

	if limitRaw != "" {
		if v, err := strconv.Atoi(limitRaw); err == nil {
			// numeric input is clamped, not defaulted
			if v < 1 {
				v = 1
			}
			if v > maxLimit {
				v = maxLimit
			}
			w.Limit = v
		}
	}

	if offsetRaw != "" {
		if v, err := strconv.Atoi(offsetRaw); err == nil && v > 0 {
			w.Offset = v
		}
	}
	return w
}

// HasMore reports whether another page exists past the returned slice.
func (w Window) HasMore(returned int, total int64) bool {
	return int64(w.Offset+returned) < total
}
