package ptp

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

// Canon extensions

// Name returns the 8.3 filename without padding.
func (e *CanonFolderEntry) Name() string {
	n := bytes.IndexByte(e.Filename[:], 0)
	if n < 0 {
		n = len(e.Filename)
	}
	return string(e.Filename[:n])
}

// IsDir reports whether the entry is a folder.
func (e *CanonFolderEntry) IsDir() bool {
	return e.ObjectFormatCode == OFC_Association
}

// CanonGetFolderEntries lists the children of parent in one go. The
// entry count comes back in the first response parameter.
func (s *Session) CanonGetFolderEntries(ctx context.Context, storageID, parent, handle uint32) ([]CanonFolderEntry, error) {
	var req Container
	req.Code = OC_CANON_GetFolderEntries
	req.Param = []uint32{storageID, 0, parent, handle}
	data, rep, err := s.GetRawData(ctx, &req)
	if err != nil {
		return nil, err
	}
	return decodeCanonFolderEntries(data, param(rep, 0))
}

func decodeCanonFolderEntries(data []byte, n uint32) ([]CanonFolderEntry, error) {
	if int64(n)*canonFolderEntryLen > int64(len(data)) {
		return nil, fmt.Errorf("%w: %d folder entries in %d bytes", ErrMalformed, n, len(data))
	}
	r := bytes.NewReader(data)
	entries := make([]CanonFolderEntry, n)
	for i := range entries {
		if err := binary.Read(r, byteOrder, &entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// CanonCheckEvent polls for one pending event. It returns nil if
// there is none.
func (s *Session) CanonCheckEvent(ctx context.Context) (*Event, error) {
	var req Container
	req.Code = OC_CANON_CheckEvent
	data, _, err := s.GetRawData(ctx, &req)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return decodeUSBEvent(data)
}

// decodeUSBEvent parses an event in USB bulk container layout.
func decodeUSBEvent(data []byte) (*Event, error) {
	if len(data) < usbHdrLen {
		return nil, fmt.Errorf("%w: event container of %d bytes", ErrMalformed, len(data))
	}
	var hdr usbBulkHeader
	if err := binary.Read(bytes.NewReader(data), byteOrder, &hdr); err != nil {
		return nil, err
	}
	end := int(hdr.Length)
	if end > len(data) || end < usbHdrLen {
		end = len(data)
	}
	np := (end - usbHdrLen) / 4
	if np > maxParams {
		np = maxParams
	}
	ev := &Event{Code: hdr.Code, TransactionID: hdr.TransactionID}
	for i := 0; i < np; i++ {
		ev.Param = append(ev.Param, byteOrder.Uint32(data[usbHdrLen+4*i:]))
	}
	return ev, nil
}

// Nikon extensions

func (s *Session) NikonDeviceReady(ctx context.Context) error {
	_, err := s.call(ctx, OC_NIKON_DeviceReady)
	return err
}

func (s *Session) NikonAfDrive(ctx context.Context) error {
	_, err := s.call(ctx, OC_NIKON_AfDrive)
	return err
}

// NikonGetEvent drains the legacy event list.
func (s *Session) NikonGetEvent(ctx context.Context) ([]Event, error) {
	var req Container
	req.Code = OC_NIKON_GetEvent
	data, _, err := s.GetRawData(ctx, &req)
	if err != nil {
		return nil, err
	}
	return decodeNikonEvents(data)
}

// NikonGetEventEx drains the extended event list, which carries a
// variable number of parameters per event.
func (s *Session) NikonGetEventEx(ctx context.Context) ([]Event, error) {
	var req Container
	req.Code = OC_NIKON_GetEventEx
	data, _, err := s.GetRawData(ctx, &req)
	if err != nil {
		return nil, err
	}
	return decodeNikonEventsEx(data)
}

// NikonGetObjectSize returns the 64 bit size of handle.
func (s *Session) NikonGetObjectSize(ctx context.Context, handle uint32) (uint64, error) {
	var req Container
	req.Code = OC_NIKON_GetObjectSize
	req.Param = []uint32{handle}
	var v Uint64Value
	if err := s.GetData(ctx, &req, &v); err != nil {
		return 0, err
	}
	return v.Value, nil
}

// Layout: u16 count, then count times {u16 code, u32 param}.
func decodeNikonEvents(data []byte) ([]Event, error) {
	r := bytes.NewReader(data)
	var n uint16
	if err := binary.Read(r, byteOrder, &n); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	evs := make([]Event, 0, n)
	for i := 0; i < int(n); i++ {
		var e struct {
			Code  uint16
			Param uint32
		}
		if err := binary.Read(r, byteOrder, &e); err != nil {
			return nil, fmt.Errorf("%w: event %d of %d", ErrMalformed, i, n)
		}
		evs = append(evs, Event{Code: e.Code, Param: []uint32{e.Param}})
	}
	return evs, nil
}

// Layout: u16 count, then count times {u16 code, u16 nparams,
// nparams times u32}.
func decodeNikonEventsEx(data []byte) ([]Event, error) {
	r := bytes.NewReader(data)
	var n uint16
	if err := binary.Read(r, byteOrder, &n); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	evs := make([]Event, 0, n)
	for i := 0; i < int(n); i++ {
		var hdr struct {
			Code    uint16
			NParams uint16
		}
		if err := binary.Read(r, byteOrder, &hdr); err != nil {
			return nil, fmt.Errorf("%w: event %d of %d", ErrMalformed, i, n)
		}
		if int(hdr.NParams)*4 > r.Len() {
			return nil, fmt.Errorf("%w: event 0x%x has %d params", ErrMalformed, hdr.Code, hdr.NParams)
		}
		params := make([]uint32, hdr.NParams)
		if err := binary.Read(r, byteOrder, params); err != nil {
			return nil, err
		}
		evs = append(evs, Event{Code: hdr.Code, Param: params})
	}
	return evs, nil
}

// Sony extensions

// SonySDIOConnect runs one step of the Sony remote control handshake.
func (s *Session) SonySDIOConnect(ctx context.Context, phase, keyA, keyB uint32) error {
	var req Container
	req.Code = OC_SONY_SDIOConnect
	req.Param = []uint32{phase, keyA, keyB}
	_, _, err := s.GetRawData(ctx, &req)
	return err
}

// SonyExtDeviceInfo lists the properties and controls a Sony body
// offers beyond DeviceInfo.
type SonyExtDeviceInfo struct {
	Version    uint16
	Properties []uint16
	Controls   []uint16
}

func (s *Session) SonyGetExtDeviceInfo(ctx context.Context, version uint32) (*SonyExtDeviceInfo, error) {
	var req Container
	req.Code = OC_SONY_GetSDIOGetExtDeviceInfo
	req.Param = []uint32{version}
	data, _, err := s.GetRawData(ctx, &req)
	if err != nil {
		return nil, err
	}
	info := &SonyExtDeviceInfo{}
	r := bytes.NewReader(data)
	if err := binary.Read(r, byteOrder, &info.Version); err != nil {
		return nil, fmt.Errorf("%w: ext device info: %v", ErrMalformed, err)
	}
	var props Uint16Array
	if err := Decode(r, &props); err != nil {
		return nil, err
	}
	info.Properties = props.Values
	if r.Len() > 0 {
		var ctrls Uint16Array
		if err := Decode(r, &ctrls); err != nil {
			return nil, err
		}
		info.Controls = ctrls.Values
	}
	return info, nil
}

func (s *Session) SonyGetDevicePropDesc(ctx context.Context, propCode uint16, info *SonyDevicePropDesc) error {
	var req Container
	req.Code = OC_SONY_GetDevicePropdesc
	req.Param = []uint32{uint32(propCode)}
	return s.GetData(ctx, &req, info)
}

// SonyGetAllDevicePropData fetches every property descriptor in one
// transaction. Layout: u64 count, then count descriptors.
func (s *Session) SonyGetAllDevicePropData(ctx context.Context) ([]SonyDevicePropDesc, error) {
	var req Container
	req.Code = OC_SONY_GetAllDevicePropData
	data, _, err := s.GetRawData(ctx, &req)
	if err != nil {
		return nil, err
	}
	return decodeSonyAllProps(data)
}

func decodeSonyAllProps(data []byte) ([]SonyDevicePropDesc, error) {
	r := bytes.NewReader(data)
	var n uint64
	if err := binary.Read(r, byteOrder, &n); err != nil {
		return nil, fmt.Errorf("%w: property data: %v", ErrMalformed, err)
	}
	if n > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d properties in %d bytes", ErrMalformed, n, len(data))
	}
	descs := make([]SonyDevicePropDesc, n)
	for i := range descs {
		if err := descs[i].Decode(r); err != nil {
			return nil, fmt.Errorf("property %d of %d: %w", i, n, err)
		}
	}
	return descs, nil
}

// SonySetControlDeviceA sets a property. The device applies the value
// as sent.
func (s *Session) SonySetControlDeviceA(ctx context.Context, propCode uint16, value DataDependentType) error {
	return s.sonySetControl(ctx, OC_SONY_SetControlDeviceA, propCode, value)
}

// SonySetControlDeviceB triggers a control, such as the shutter
// button.
func (s *Session) SonySetControlDeviceB(ctx context.Context, propCode uint16, value DataDependentType) error {
	return s.sonySetControl(ctx, OC_SONY_SetControlDeviceB, propCode, value)
}

func (s *Session) sonySetControl(ctx context.Context, op uint16, propCode uint16, value DataDependentType) error {
	var req, rep Container
	req.Code = op
	req.Param = []uint32{uint32(propCode)}

	var buf bytes.Buffer
	if err := EncodeValue(&buf, value); err != nil {
		return err
	}
	return s.RunTransaction(ctx, &req, &rep, nil, NewSendBuffer(buf.Bytes()), int64(buf.Len()))
}
