package demo

import "math/rand"

// GenerateObjects builds count random byte blobs, each sized uniformly in
// [minBytes, maxBytes], grounded on original_source/server.py's
// generate_random_object. The server hands these out by index in
// response to client requests.
func GenerateObjects(rng *rand.Rand, count int, minBytes, maxBytes int) [][]byte {
	objects := make([][]byte, count)
	span := maxBytes - minBytes + 1
	for i := range objects {
		size := minBytes
		if span > 0 {
			size += rng.Intn(span)
		}
		blob := make([]byte, size)
		rng.Read(blob)
		objects[i] = blob
	}
	return objects
}
