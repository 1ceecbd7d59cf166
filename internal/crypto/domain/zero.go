package domain

// Zero overwrites b with zeros so key material does not linger in memory.
// Zeroing is best effort: the runtime may have copied the slice contents
// before the caller got here.
func Zero(b []byte) {
	clear(b)
}
