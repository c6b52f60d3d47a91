package ota

// ChunkImage partitions image into consecutive slices of at most packetSize
// bytes, in ascending offset order; only the final chunk may be shorter.
// Chunks alias the image, they do not copy it — the engine treats the image
// as immutable.
//
// packetSize must be positive and image non-empty; both are validated by the
// engine before chunking begins.
func ChunkImage(image []byte, packetSize int) [][]byte {
	if packetSize <= 0 || len(image) == 0 {
		return nil
	}
	count := (len(image) + packetSize - 1) / packetSize
	chunks := make([][]byte, 0, count)
	for off := 0; off < len(image); off += packetSize {
		end := off + packetSize
		if end > len(image) {
			end = len(image)
		}
		chunks = append(chunks, image[off:end])
	}
	return chunks
}
