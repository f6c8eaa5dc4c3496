package demo

import "encoding/json"

// Handshake is the small JSON payload the producer process sends over the
// SCM_RIGHTS-carrying Unix socket alongside the region and notification
// fds (SPEC_FULL.md §4.8), so the consumer process knows how to interpret
// the descriptors it just received without any other shared state.
type Handshake struct {
	// RegionSize is the exact byte length of the shared memory region,
	// needed because mmap requires a length and a bare fd carries none.
	RegionSize int `json:"region_size"`
	// Notify reports whether two extra fds (readable, writable eventfds)
	// follow the region fd.
	Notify bool `json:"notify"`
}

func (h Handshake) marshal() ([]byte, error) {
	return json.Marshal(h)
}

func unmarshalHandshake(data []byte) (Handshake, error) {
	var h Handshake
	err := json.Unmarshal(data, &h)
	return h, err
}
