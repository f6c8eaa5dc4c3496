package shm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wheelmem/memwheel/wheel"
)

func TestCreate_MapsZeroedRegion(t *testing.T) {
	r, err := Create("memwheel-test", 4096)
	require.NoError(t, err)
	defer r.Close()

	data, err := r.Bytes()
	require.NoError(t, err)
	require.Len(t, data, 4096)
	for _, b := range data {
		require.Equal(t, byte(0), b)
	}
}

func TestCreate_RejectsNonPositiveSize(t *testing.T) {
	_, err := Create("x", 0)
	require.Error(t, err)
	_, err = Create("x", -1)
	require.Error(t, err)
}

// Attach, given the fd Create produced, must see the exact same bytes:
// this is the single-process stand-in for what two processes do with a
// passed fd.
func TestAttach_SeesSameMemory(t *testing.T) {
	r, err := Create("memwheel-test", 8192)
	require.NoError(t, err)
	defer r.Close()

	fd, err := r.FD()
	require.NoError(t, err)

	peer, err := Attach(fd, 8192)
	require.NoError(t, err)
	defer peer.Close()

	data, err := r.Bytes()
	require.NoError(t, err)
	peerData, err := peer.Bytes()
	require.NoError(t, err)

	data[100] = 0xAB
	require.Equal(t, byte(0xAB), peerData[100])

	peerData[200] = 0xCD
	require.Equal(t, byte(0xCD), data[200])
}

// A wheel initialized through one mapping must be fully usable through the
// other: this is the whole point of the package.
func TestRegion_HostsAWheelAcrossTwoMappings(t *testing.T) {
	const size = 64 * 64 // 64 A-units
	r, err := Create("memwheel-wheel-test", size)
	require.NoError(t, err)
	defer r.Close()

	fd, err := r.FD()
	require.NoError(t, err)
	peer, err := Attach(fd, size)
	require.NoError(t, err)
	defer peer.Close()

	producerData, err := r.Bytes()
	require.NoError(t, err)
	consumerData, err := peer.Bytes()
	require.NoError(t, err)

	producer, err := wheel.Init(producerData)
	require.NoError(t, err)
	consumer, err := wheel.Open(consumerData)
	require.NoError(t, err)

	off, payload, ok := producer.Make(5)
	require.True(t, ok)
	copy(payload, "hello")
	producer.Share(off)

	gotOff, gotPayload, u, ok := consumer.Next()
	require.True(t, ok)
	require.Equal(t, off, gotOff)
	require.Equal(t, uint32(5), u)
	require.Equal(t, "hello", string(gotPayload))

	require.Equal(t, 1, consumer.Return(gotOff))
}

func TestClose_IsIdempotentAndInvalidatesAccessors(t *testing.T) {
	r, err := Create("memwheel-test", 4096)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Bytes()
	require.ErrorIs(t, err, ErrClosed)
	_, err = r.FD()
	require.ErrorIs(t, err, ErrClosed)
}
