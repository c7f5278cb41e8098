package badger

// Key prefixes for different data types
const (
	progressPrefix = "progress:"
	dedupPrefix    = "dedup:"
)

// makeProgressKey generates a key for a file's progress entry.
// Format: progress:fileID
func makeProgressKey(fileID string) []byte {
	return append([]byte(progressPrefix), fileID...)
}

// makeDedupKey generates a key for a dedup entry.
// Format: dedup:identifier
func makeDedupKey(identifier string) []byte {
	return append([]byte(dedupPrefix), identifier...)
}

// hasPrefix checks if a byte slice has a given prefix
func hasPrefix(s, prefix []byte) bool {
	return len(s) >= len(prefix) && string(s[:len(prefix)]) == string(prefix)
}
