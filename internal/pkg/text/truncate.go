package text

// Truncate caps s at max bytes, ellipsis included, so the result never
// exceeds a hard wire limit.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
