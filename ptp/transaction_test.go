package ptp

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numObjectsDevice() *fakeDevice {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.handle(OC_GetNumObjects, func(req *Container, _ []byte) fakeReply {
		return okReply(42)
	})
	return f
}

func TestTransactionIDLockstep(t *testing.T) {
	f := numObjectsDevice()
	s := newTestSession(t, f)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n, err := s.GetNumObjects(ctx, 0xFFFFFFFF, 0, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 42, n)
	}

	// GetDeviceInfo and OpenSession run outside the session.
	require.Len(t, f.reqs, 5)
	for i, want := range []uint32{0, 0, 1, 2, 3} {
		assert.Equal(t, want, f.reqs[i].TransactionID, "request %d", i)
	}
	assert.EqualValues(t, 1, f.reqs[4].SessionID)
}

func TestTransactionIDWrap(t *testing.T) {
	f := numObjectsDevice()
	s := newTestSession(t, f)
	ctx := context.Background()

	s.tid = 0xFFFFFFFE
	_, err := s.GetNumObjects(ctx, 0, 0, 0)
	require.NoError(t, err)
	_, err = s.GetNumObjects(ctx, 0, 0, 0)
	require.NoError(t, err)

	n := len(f.reqs)
	assert.EqualValues(t, 0xFFFFFFFE, f.reqs[n-2].TransactionID)
	assert.EqualValues(t, 1, f.reqs[n-1].TransactionID)
}

func TestResponseRetry(t *testing.T) {
	f := numObjectsDevice()
	s := newTestSession(t, f)
	ctx := context.Background()

	f.respErrs = []error{ErrTimeout, ErrNotReady, ErrTimeout}
	n, err := s.GetNumObjects(ctx, 0, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)

	f.respErrs = []error{ErrTimeout, ErrTimeout, ErrTimeout, ErrTimeout}
	_, err = s.GetNumObjects(ctx, 0, 0, 0)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	var cat Catastrophic
	assert.False(t, errors.As(err, &cat), "timeout should not be fatal")
}

func TestResponseLinkFailure(t *testing.T) {
	f := numObjectsDevice()
	s := newTestSession(t, f)

	f.respErrs = []error{
		&TransportError{Op: "read", Err: io.ErrUnexpectedEOF},
		ErrTimeout,
	}
	_, err := s.GetNumObjects(context.Background(), 0, 0, 0)
	var cat Catastrophic
	require.True(t, errors.As(err, &cat), "got %v", err)
	assert.True(t, errors.Is(err, ErrIO))
	// No retry after a link failure.
	assert.Len(t, f.respErrs, 1)
}

func TestStaleResponseSkipped(t *testing.T) {
	f := numObjectsDevice()
	s := newTestSession(t, f)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := s.GetNumObjects(ctx, 0, 0, 0)
		require.NoError(t, err)
	}

	f.early = []Container{
		{Code: RC_OK, TransactionID: 1},
		{Code: RC_GeneralError, TransactionID: 2},
	}
	n, err := s.GetNumObjects(ctx, 0, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
	assert.Empty(t, f.early)
}

func TestTooManyStaleResponses(t *testing.T) {
	f := numObjectsDevice()
	s := newTestSession(t, f)
	ctx := context.Background()
	s.opts.MaxStaleReplies = 1
	for i := 0; i < 2; i++ {
		_, err := s.GetNumObjects(ctx, 0, 0, 0)
		require.NoError(t, err)
	}

	f.early = []Container{
		{Code: RC_OK, TransactionID: 1},
		{Code: RC_OK, TransactionID: 2},
	}
	_, err := s.GetNumObjects(ctx, 0, 0, 0)
	var cat Catastrophic
	require.True(t, errors.As(err, &cat), "got %v", err)
	var se SyncError
	assert.True(t, errors.As(err, &se))
	assert.True(t, errors.Is(err, ErrBadParam))
}

func TestFutureResponseIsSyncError(t *testing.T) {
	f := numObjectsDevice()
	s := newTestSession(t, f)

	tid := uint32(99)
	f.tidOverride = &tid
	_, err := s.GetNumObjects(context.Background(), 0, 0, 0)
	var se SyncError
	assert.True(t, errors.As(err, &se), "got %v", err)
}

func TestFuzzingAcceptsMismatch(t *testing.T) {
	f := numObjectsDevice()
	s := newTestSession(t, f)
	s.opts.Fuzzing = true

	tid := uint32(99)
	f.tidOverride = &tid
	n, err := s.GetNumObjects(context.Background(), 0, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
}

func TestCloseSessionTIDZero(t *testing.T) {
	f := numObjectsDevice()
	s := newTestSession(t, f)
	s.Objects().Insert(5)

	tid := uint32(0)
	f.tidOverride = &tid
	require.NoError(t, s.CloseSession(context.Background()))
	assert.False(t, s.IsOpen())
	assert.Zero(t, s.SessionID())
	assert.Zero(t, s.Objects().Len())
}

func TestCloseSessionSkipsStaleReply(t *testing.T) {
	f := numObjectsDevice()
	s := newTestSession(t, f)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.GetNumObjects(ctx, 0, 0, 0)
		require.NoError(t, err)
	}

	f.early = []Container{{Code: RC_GeneralError, TransactionID: 2}}
	require.NoError(t, s.CloseSession(ctx))
	assert.Empty(t, f.early)
	assert.False(t, s.IsOpen())
}

func TestOpenSessionLeftoverResponse(t *testing.T) {
	f := numObjectsDevice()
	s := NewSession(f, DefaultOptions(), nil, nil)
	ctx := context.Background()
	require.NoError(t, s.GetDeviceInfo(ctx, nil))

	f.early = []Container{{Code: RC_OK, TransactionID: 17}}
	require.NoError(t, s.OpenSession(ctx, 7))
	assert.True(t, s.IsOpen())
	assert.EqualValues(t, 7, s.SessionID())

	err := s.OpenSession(ctx, 7)
	assert.True(t, errors.Is(err, ErrBadParam), "got %v", err)
}

func TestResponseCode(t *testing.T) {
	f := numObjectsDevice()
	f.handle(OC_DeleteObject, func(*Container, []byte) fakeReply {
		return rcReply(RC_ObjectWriteProtected)
	})
	s := newTestSession(t, f)

	err := s.DeleteObject(context.Background(), 3)
	assert.Equal(t, RCError(RC_ObjectWriteProtected), err)
}

func TestBadParams(t *testing.T) {
	f := numObjectsDevice()
	s := newTestSession(t, f)
	ctx := context.Background()
	before := len(f.reqs)

	req := Container{Code: OC_GetObject}
	var rep Container
	err := s.RunTransaction(ctx, &req, &rep, NewRecvBuffer(), NewSendBuffer(nil), 0)
	assert.True(t, errors.Is(err, ErrBadParam), "got %v", err)

	req = Container{Code: OC_GetNumObjects, Param: []uint32{1, 2, 3, 4, 5, 6}}
	err = s.RunTransaction(ctx, &req, &rep, nil, nil, 0)
	assert.True(t, errors.Is(err, ErrBadParam), "got %v", err)

	assert.Len(t, f.reqs, before)
}

// cancelSink cancels the session after the first chunk.
type cancelSink struct {
	s *Session
	n int
}

func (c *cancelSink) Put(p []byte) error {
	c.n += len(p)
	c.s.Cancel()
	return nil
}

func TestCancelDataPhase(t *testing.T) {
	f := numObjectsDevice()
	f.handle(OC_GetObject, func(*Container, []byte) fakeReply {
		return rawReply(make([]byte, 100))
	})
	s := newTestSession(t, f)
	ctx := context.Background()

	sink := &cancelSink{s: s}
	err := s.GetObject(ctx, 1, sink)
	assert.True(t, errors.Is(err, ErrCancelled), "got %v", err)
	assert.Equal(t, f.chunk, sink.n)

	last := f.reqs[len(f.reqs)-1]
	assert.Equal(t, []uint32{last.TransactionID}, f.cancels)

	// The flag is consumed.
	_, err = s.GetNumObjects(ctx, 0, 0, 0)
	assert.NoError(t, err)
}

func TestCancelBeforeRequest(t *testing.T) {
	f := numObjectsDevice()
	s := newTestSession(t, f)
	before := len(f.reqs)

	s.Cancel()
	_, err := s.GetNumObjects(context.Background(), 0, 0, 0)
	assert.True(t, errors.Is(err, ErrCancelled), "got %v", err)
	assert.Len(t, f.reqs, before)
	assert.Empty(t, f.cancels)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.GetNumObjects(ctx, 0, 0, 0)
	assert.True(t, errors.Is(err, ErrCancelled), "got %v", err)
}

func TestSendDataPhase(t *testing.T) {
	f := numObjectsDevice()
	f.handle(OC_SetDevicePropValue, func(*Container, []byte) fakeReply { return okReply() })
	s := newTestSession(t, f)

	require.NoError(t, s.SetDevicePropValue(context.Background(), DPC_BatteryLevel, uint16(0x1234)))
	assert.Equal(t, []byte{0x34, 0x12}, f.sent[OC_SetDevicePropValue])
}

func TestRunTransactionMetrics(t *testing.T) {
	f := numObjectsDevice()
	f.handle(OC_GetObject, func(*Container, []byte) fakeReply {
		return rawReply(make([]byte, 50))
	})
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := NewSession(f, DefaultOptions(), nil, m)
	ctx := context.Background()
	require.NoError(t, s.GetDeviceInfo(ctx, nil))
	require.NoError(t, s.OpenSession(ctx, 1))
	infoBytes := testutil.ToFloat64(m.DataBytes.WithLabelValues("get"))

	_, err := s.GetNumObjects(ctx, 0, 0, 0)
	require.NoError(t, err)
	require.NoError(t, s.GetObject(ctx, 1, NewRecvBuffer()))
	f.respErrs = []error{ErrTimeout}
	_, err = s.GetNumObjects(ctx, 0, 0, 0)
	require.NoError(t, err)

	op := s.OperationName(OC_GetNumObjects)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transactions.WithLabelValues(op, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResponseRetries))
	assert.Equal(t, infoBytes+50, testutil.ToFloat64(m.DataBytes.WithLabelValues("get")))
}
