package delivery

// Chunk splits message into consecutive pieces of at most size characters.
// Concatenating the pieces reproduces message exactly. A multi-byte character
// is never split.
func Chunk(message string, size int) []string {
	if message == "" {
		return nil
	}
	if size <= 0 {
		return []string{message}
	}

	var chunks []string
	count, start := 0, 0
	for i := range message {
		if count == size {
			chunks = append(chunks, message[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(chunks, message[start:])
}
