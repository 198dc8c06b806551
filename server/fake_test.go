package server

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/hanwen/go-ptp/ptp"
)

const testStore = 0x00010001

// camera is an in-memory PTP responder with one storage, a few
// properties and an interrupt event pipe.
type camera struct {
	mu      sync.Mutex
	info    ptp.DeviceInfo
	props   map[uint16]uint16
	objects map[uint32]ptp.ObjectInfo
	events  []ptp.Event

	cur  ptp.Container
	rc   uint16
	data []byte
}

func newCamera() *camera {
	return &camera{
		info: ptp.DeviceInfo{
			StandardVersion:   100,
			VendorExtensionID: ptp.VENDOR_MICROSOFT,
			Manufacturer:      "Acme",
			Model:             "Server 1",
			OperationsSupported: []uint16{
				ptp.OC_GetDeviceInfo, ptp.OC_OpenSession, ptp.OC_CloseSession,
				ptp.OC_GetStorageIDs, ptp.OC_GetStorageInfo, ptp.OC_GetObjectHandles,
				ptp.OC_GetObjectInfo, ptp.OC_GetDevicePropDesc, ptp.OC_SetDevicePropValue,
			},
			DevicePropertiesSupported: []uint16{ptp.DPC_BatteryLevel, ptp.DPC_ExposureIndex},
		},
		props: map[uint16]uint16{ptp.DPC_BatteryLevel: 80, ptp.DPC_ExposureIndex: 100},
		objects: map[uint32]ptp.ObjectInfo{
			1: {StorageID: testStore, ObjectFormat: ptp.OFC_Association, AssociationType: ptp.AT_GenericFolder, Filename: "DCIM"},
			2: {StorageID: testStore, ParentObject: 1, ObjectFormat: ptp.OFC_EXIF_JPEG, CompressedSize: 2048, Filename: "a.jpg"},
		},
	}
}

func (c *camera) push(ev ptp.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *camera) prop(code uint16) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.props[code]
}

func encode(v interface{}) []byte {
	var buf bytes.Buffer
	if err := ptp.Encode(&buf, v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func (c *camera) answer(sent []byte) {
	c.rc, c.data = ptp.RC_OK, nil
	switch c.cur.Code {
	case ptp.OC_GetDeviceInfo:
		c.data = encode(&c.info)
	case ptp.OC_OpenSession, ptp.OC_CloseSession:
	case ptp.OC_GetStorageIDs:
		c.data = encode(&ptp.Uint32Array{Values: []uint32{testStore}})
	case ptp.OC_GetStorageInfo:
		c.data = encode(&ptp.StorageInfo{StorageType: ptp.ST_FixedRAM, FilesystemType: ptp.FST_GenericHierarchical,
			StorageDescription: "Internal"})
	case ptp.OC_GetObjectHandles:
		parent := c.cur.Param[2]
		if parent == 0xFFFFFFFF {
			parent = 0
		}
		var hs []uint32
		for h := uint32(1); h <= uint32(len(c.objects)); h++ {
			if c.objects[h].ParentObject == parent {
				hs = append(hs, h)
			}
		}
		c.data = encode(&ptp.Uint32Array{Values: hs})
	case ptp.OC_GetObjectInfo:
		info, ok := c.objects[c.cur.Param[0]]
		if !ok {
			c.rc = ptp.RC_InvalidObjectHandle
			return
		}
		c.data = encode(&info)
	case ptp.OC_GetDevicePropDesc:
		code := uint16(c.cur.Param[0])
		v, ok := c.props[code]
		if !ok {
			c.rc = ptp.RC_DevicePropNotSupported
			return
		}
		c.data = encode(&ptp.DevicePropDesc{DevicePropDescFixed: ptp.DevicePropDescFixed{
			DevicePropertyCode:  code,
			DataType:            ptp.DTC_UINT16,
			GetSet:              ptp.DPGS_GetSet,
			FactoryDefaultValue: uint16(0),
			CurrentValue:        v,
			FormFlag:            ptp.DPFF_None,
		}})
	case ptp.OC_SetDevicePropValue:
		if len(sent) != 2 {
			c.rc = ptp.RC_InvalidDevicePropValue
			return
		}
		c.props[uint16(c.cur.Param[0])] = uint16(sent[0]) | uint16(sent[1])<<8
	default:
		c.rc = ptp.RC_OperationNotSupported
	}
}

func (c *camera) SendRequest(ctx context.Context, req *ptp.Container, dir ptp.DataPhase) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = *req
	c.cur.Param = append([]uint32(nil), req.Param...)
	if dir != ptp.DataSend {
		c.answer(nil)
	}
	return nil
}

func (c *camera) SendData(ctx context.Context, req *ptp.Container, size int64, src ptp.DataSource) error {
	var got []byte
	buf := make([]byte, 512)
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
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answer(got)
	return nil
}

func (c *camera) GetData(ctx context.Context, req *ptp.Container, dest ptp.DataSink) error {
	c.mu.Lock()
	data := c.data
	c.mu.Unlock()
	if len(data) == 0 {
		return nil
	}
	return dest.Put(data)
}

func (c *camera) GetResponse(ctx context.Context, rep *ptp.Container) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rep.Code = c.rc
	rep.TransactionID = c.cur.TransactionID
	rep.Param = nil
	return nil
}

func (c *camera) CancelRequest(ctx context.Context, tid uint32) error { return nil }
func (c *camera) Close() error                                       { return nil }

func (c *camera) ReadEvent(ctx context.Context, timeout time.Duration) (*ptp.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil, ptp.ErrTimeout
	}
	ev := c.events[0]
	c.events = c.events[1:]
	return &ev, nil
}
