package resolution

import "strings"

// StatusSource is one way of finding the ticket status on a page.
type StatusSource interface {
	ResolveStatus() (string, bool)
}

// StatusFunc adapts a function to StatusSource.
type StatusFunc func() (string, bool)

// ResolveStatus calls f.
func (f StatusFunc) ResolveStatus() (string, bool) {
	return f()
}

// ResolveStatus asks each source in order and returns the first non-empty
// status.
func ResolveStatus(sources ...StatusSource) (string, bool) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		status, ok := src.ResolveStatus()
		if !ok {
			continue
		}
		if status = strings.TrimSpace(status); status != "" {
			return status, true
		}
	}
	return "", false
}
