package signer

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/fystack/walletcore/pkg/bridge"
	"github.com/fystack/walletcore/pkg/host"
	"github.com/fystack/walletcore/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLoopbackHardware wires a hardware signer to the loopback host with a
// goroutine standing in for the engine's device event routing.
func newLoopbackHardware(t *testing.T) (*HardwareSigner, ed25519.PrivateKey, func()) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	ingress := bridge.NewIngress()
	loop, err := host.NewLoopback(ingress, priv)
	require.NoError(t, err)

	hw := NewHardwareSigner(host.LoopbackDeviceName, loop, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ingress.Run(ctx, func(ev bridge.Event) {
			if ev.IsDeviceEvent() {
				hw.HandleEvent(ev)
			}
		})
	}()

	return hw, priv, func() {
		cancel()
		<-done
	}
}

func TestHardwareSigner_ConnectAndSign(t *testing.T) {
	hw, priv, stop := newLoopbackHardware(t)
	defer stop()

	assert.False(t, hw.Available())
	require.NoError(t, hw.Connect())

	require.Eventually(t, hw.Available, 2*time.Second, 10*time.Millisecond)

	s := NewHardware(hw)
	ctx := context.Background()

	pk, err := s.PublicKey(ctx)
	require.NoError(t, err)
	expected, err := wire.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, expected, pk)

	data := []byte("hardware payload")
	sig, err := s.Sign(ctx, data)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(priv.Public().(ed25519.PublicKey), data, sig))
}

func TestHardwareSigner_NotConnected(t *testing.T) {
	hw, _, stop := newLoopbackHardware(t)
	defer stop()

	_, err := hw.Sign(context.Background(), []byte("data"))
	assert.ErrorContains(t, err, "not connected")
}

func TestHardwareSigner_Timeout(t *testing.T) {
	// A dispatcher that accepts writes but never answers.
	dsp := &stubDispatcher{}
	hw := NewHardwareSigner("dead-device", dsp, 50*time.Millisecond)
	hw.HandleEvent(bridge.Event{Type: bridge.EventDeviceOpened, Payload: "dead-device"})

	_, err := hw.Sign(context.Background(), []byte("data"))
	assert.ErrorContains(t, err, "timed out")
}

func TestHardwareSigner_ContextCancel(t *testing.T) {
	dsp := &stubDispatcher{}
	hw := NewHardwareSigner("dead-device", dsp, time.Minute)
	hw.HandleEvent(bridge.Event{Type: bridge.EventDeviceOpened, Payload: "dead-device"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := hw.Sign(ctx, []byte("data"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHardwareSigner_SerializedRoundTrips(t *testing.T) {
	hw, _, stop := newLoopbackHardware(t)
	defer stop()

	require.NoError(t, hw.Connect())
	require.Eventually(t, hw.Available, 2*time.Second, 10*time.Millisecond)

	// Concurrent signs must queue on the device, not interleave frames.
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = hw.Sign(context.Background(), []byte("concurrent"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestHardwareSigner_DeviceError(t *testing.T) {
	dsp := &stubDispatcher{}
	hw := NewHardwareSigner("mydev", dsp, time.Second)
	hw.HandleEvent(bridge.Event{Type: bridge.EventDeviceOpened, Payload: "mydev"})

	go func() {
		time.Sleep(20 * time.Millisecond)
		hw.HandleEvent(bridge.Event{Type: bridge.EventDeviceError, Payload: "user rejected"})
	}()

	_, err := hw.Sign(context.Background(), []byte("data"))
	assert.ErrorContains(t, err, "user rejected")
}

func TestHardwareSigner_ClosedEvent(t *testing.T) {
	dsp := &stubDispatcher{}
	hw := NewHardwareSigner("mydev", dsp, time.Second)

	hw.HandleEvent(bridge.Event{Type: bridge.EventDeviceOpened, Payload: "mydev"})
	assert.True(t, hw.Available())

	// Events for other devices are ignored.
	hw.HandleEvent(bridge.Event{Type: bridge.EventDeviceClosed, Payload: "otherdev"})
	assert.True(t, hw.Available())

	hw.HandleEvent(bridge.Event{Type: bridge.EventDeviceClosed, Payload: "mydev"})
	assert.False(t, hw.Available())
}

func TestHardwareSigner_AbsentFromListing(t *testing.T) {
	dsp := &stubDispatcher{}
	hw := NewHardwareSigner("mydev", dsp, 50*time.Millisecond)

	hw.HandleEvent(bridge.Event{Type: bridge.EventDeviceOpened, Payload: "mydev"})
	require.True(t, hw.Available())

	// A listing that omits the device blocks round trips.
	hw.HandleEvent(bridge.Event{Type: bridge.EventDeviceList, Payload: `["otherdev"]`})
	_, err := hw.Sign(context.Background(), []byte("data"))
	assert.ErrorContains(t, err, "not attached")

	// A listing that includes it restores them; the stub never answers, so
	// the round trip now reaches the device and times out instead.
	hw.HandleEvent(bridge.Event{Type: bridge.EventDeviceList, Payload: `["otherdev","mydev"]`})
	_, err = hw.Sign(context.Background(), []byte("data"))
	assert.ErrorContains(t, err, "timed out")
}
