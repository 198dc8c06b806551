package ptp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeReply is what the fake device answers to one request.
type fakeReply struct {
	code   uint16
	params []uint32
	data   []byte
}

type fakeOp func(req *Container, data []byte) fakeReply

// fakeDevice is a scripted Transport. Operations without a handler
// answer OperationNotSupported.
type fakeDevice struct {
	info DeviceInfo
	ops  map[uint16]fakeOp

	// Size of the chunks the data phase is delivered in.
	chunk int

	reqs    []Container
	sent    map[uint16][]byte
	cancels []uint32
	closed  bool

	// Errors returned by GetResponse before the real response.
	respErrs []error
	// Containers returned by GetResponse before the real response.
	early []Container
	// Overrides the transaction id of the next real response.
	tidOverride *uint32

	cur   Container
	reply fakeReply
}

func newFakeDevice(info DeviceInfo) *fakeDevice {
	f := &fakeDevice{
		info:  info,
		ops:   map[uint16]fakeOp{},
		chunk: 7,
		sent:  map[uint16][]byte{},
	}
	f.handle(OC_GetDeviceInfo, func(*Container, []byte) fakeReply {
		return dataReply(&f.info)
	})
	f.handle(OC_OpenSession, func(*Container, []byte) fakeReply { return okReply() })
	f.handle(OC_CloseSession, func(*Container, []byte) fakeReply { return okReply() })
	return f
}

func (f *fakeDevice) handle(code uint16, op fakeOp) {
	f.ops[code] = op
	found := false
	for _, o := range f.info.OperationsSupported {
		if o == code {
			found = true
		}
	}
	if !found && code != OC_GetDeviceInfo {
		f.info.OperationsSupported = append(f.info.OperationsSupported, code)
	}
}

func okReply(params ...uint32) fakeReply {
	return fakeReply{code: RC_OK, params: params}
}

func rcReply(rc uint16) fakeReply {
	return fakeReply{code: rc}
}

func dataReply(v interface{}) fakeReply {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		panic(err)
	}
	return fakeReply{code: RC_OK, data: buf.Bytes()}
}

func rawReply(data []byte, params ...uint32) fakeReply {
	return fakeReply{code: RC_OK, data: data, params: params}
}

func (f *fakeDevice) count(code uint16) int {
	n := 0
	for _, r := range f.reqs {
		if r.Code == code {
			n++
		}
	}
	return n
}

func (f *fakeDevice) answer(data []byte) {
	op, ok := f.ops[f.cur.Code]
	if !ok {
		f.reply = rcReply(RC_OperationNotSupported)
		return
	}
	f.reply = op(&f.cur, data)
}

func (f *fakeDevice) SendRequest(ctx context.Context, req *Container, dir DataPhase) error {
	c := *req
	c.Param = append([]uint32(nil), req.Param...)
	f.reqs = append(f.reqs, c)
	f.cur = c
	if dir != DataSend {
		f.answer(nil)
	}
	return nil
}

func (f *fakeDevice) SendData(ctx context.Context, req *Container, size int64, src DataSource) error {
	var got []byte
	buf := make([]byte, f.chunk)
	for {
		n, err := src.Get(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	f.sent[req.Code] = got
	f.answer(got)
	return nil
}

func (f *fakeDevice) GetData(ctx context.Context, req *Container, dest DataSink) error {
	data := f.reply.data
	for len(data) > 0 {
		n := f.chunk
		if n > len(data) {
			n = len(data)
		}
		if err := dest.Put(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (f *fakeDevice) GetResponse(ctx context.Context, rep *Container) error {
	if len(f.respErrs) > 0 {
		err := f.respErrs[0]
		f.respErrs = f.respErrs[1:]
		return err
	}
	if len(f.early) > 0 {
		*rep = f.early[0]
		f.early = f.early[1:]
		return nil
	}
	rep.Code = f.reply.code
	rep.Param = f.reply.params
	rep.TransactionID = f.cur.TransactionID
	if f.tidOverride != nil {
		rep.TransactionID = *f.tidOverride
		f.tidOverride = nil
	}
	return nil
}

func (f *fakeDevice) CancelRequest(ctx context.Context, tid uint32) error {
	f.cancels = append(f.cancels, tid)
	return nil
}

func (f *fakeDevice) Close() error {
	f.closed = true
	return nil
}

// fakeEventDevice adds an interrupt event channel.
type fakeEventDevice struct {
	*fakeDevice
	pending []Event
}

func (f *fakeEventDevice) ReadEvent(ctx context.Context, timeout time.Duration) (*Event, error) {
	if len(f.pending) == 0 {
		return nil, ErrTimeout
	}
	ev := f.pending[0]
	f.pending = f.pending[1:]
	return &ev, nil
}

func testDeviceInfo(vendor uint32) DeviceInfo {
	return DeviceInfo{
		StandardVersion:   100,
		VendorExtensionID: vendor,
		Manufacturer:      "Acme",
		Model:             "Test 1",
		SerialNumber:      "0001",
	}
}

// newTestSession opens session 1 on t.
func newTestSession(t *testing.T, tr Transport) *Session {
	s := NewSession(tr, DefaultOptions(), nil, nil)
	ctx := context.Background()
	require.NoError(t, s.GetDeviceInfo(ctx, nil))
	require.NoError(t, s.OpenSession(ctx, 1))
	return s
}

const testStore = 0x00010001

// addTree serves the storage and object operations from objs. The map
// may be changed while the device is in use.
func (f *fakeDevice) addTree(stores []uint32, objs map[uint32]ObjectInfo) {
	f.handle(OC_GetStorageIDs, func(*Container, []byte) fakeReply {
		return dataReply(&Uint32Array{Values: stores})
	})
	f.handle(OC_GetStorageInfo, func(req *Container, _ []byte) fakeReply {
		return dataReply(&StorageInfo{
			StorageType:        ST_FixedRAM,
			FilesystemType:     FST_GenericHierarchical,
			StorageDescription: fmt.Sprintf("store %x", req.Param[0]),
		})
	})
	f.handle(OC_GetObjectInfo, func(req *Container, _ []byte) fakeReply {
		info, ok := objs[req.Param[0]]
		if !ok {
			return rcReply(RC_InvalidObjectHandle)
		}
		return dataReply(&info)
	})
	f.handle(OC_GetObjectHandles, func(req *Container, _ []byte) fakeReply {
		storage, parent := req.Param[0], req.Param[2]
		if parent == 0xFFFFFFFF {
			parent = 0
		}
		var hs []uint32
		for h, info := range objs {
			if info.ParentObject == parent && (storage == 0xFFFFFFFF || info.StorageID == storage) {
				hs = append(hs, h)
			}
		}
		sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
		return dataReply(&Uint32Array{Values: hs})
	})
}

func fileInfo(parent uint32, name string, size uint32) ObjectInfo {
	return ObjectInfo{
		StorageID:      testStore,
		ObjectFormat:   OFC_EXIF_JPEG,
		CompressedSize: size,
		ParentObject:   parent,
		Filename:       name,
	}
}

func dirInfo(parent uint32, name string) ObjectInfo {
	return ObjectInfo{
		StorageID:       testStore,
		ObjectFormat:    OFC_Association,
		ParentObject:    parent,
		AssociationType: AT_GenericFolder,
		Filename:        name,
	}
}
