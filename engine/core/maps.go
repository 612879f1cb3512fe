package core

// CloneMap returns a shallow copy of the provided metadata map. A nil input
// yields a nil output so callers can distinguish "absent" from "empty".
func CloneMap[V any](src map[string]V) map[string]V {
	if src == nil {
		return nil
	}
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
