package ptp

import (
	"bytes"
	"context"
	"fmt"
)

// param returns response parameter i, or 0 if the device sent fewer.
func param(rep *Container, i int) uint32 {
	if i < len(rep.Param) {
		return rep.Param[i]
	}
	return 0
}

// GetDeviceInfo fetches the DeviceInfo dataset. The session keeps a
// copy, which drives vendor detection and capability checks. info may
// be nil.
func (s *Session) GetDeviceInfo(ctx context.Context, info *DeviceInfo) error {
	var req Container
	req.Code = OC_GetDeviceInfo

	var di DeviceInfo
	if err := s.GetData(ctx, &req, &di); err != nil {
		return err
	}
	s.setDeviceInfo(&di)
	if info != nil {
		*info = di
	}
	return nil
}

// OpenSession opens a session, which is necesary for any command that
// queries or modifies storage. It is an error to open a session
// twice. A zero sid picks a random one.
func (s *Session) OpenSession(ctx context.Context, sid uint32) error {
	if s.open {
		return fmt.Errorf("%w: session already open", ErrBadParam)
	}
	if sid == 0 {
		sid = randomSessionID()
	}
	var req, rep Container
	req.Code = OC_OpenSession
	req.Param = []uint32{sid}
	if err := s.RunTransaction(ctx, &req, &rep, nil, nil, 0); err != nil {
		return err
	}

	s.open = true
	s.sid = sid
	s.tid = 1
	return nil
}

// CloseSession closes the session. The caches go with it.
func (s *Session) CloseSession(ctx context.Context) error {
	var req, rep Container
	req.Code = OC_CloseSession
	err := s.RunTransaction(ctx, &req, &rep, nil, nil, 0)
	s.open = false
	s.sid = 0
	s.tid = 0
	s.resetCaches()
	return err
}

func (s *Session) GetStorageIDs(ctx context.Context, info *Uint32Array) error {
	var req Container
	req.Code = OC_GetStorageIDs
	return s.GetData(ctx, &req, info)
}

func (s *Session) GetStorageInfo(ctx context.Context, id uint32, info *StorageInfo) error {
	var req Container
	req.Code = OC_GetStorageInfo
	req.Param = []uint32{id}
	return s.GetData(ctx, &req, info)
}

func (s *Session) GetNumObjects(ctx context.Context, storageID uint32, formatCode uint16, parent uint32) (uint32, error) {
	rep, err := s.call(ctx, OC_GetNumObjects, storageID, uint32(formatCode), parent)
	if err != nil {
		return 0, err
	}
	return param(rep, 0), nil
}

func (s *Session) GetObjectHandles(ctx context.Context, storageID, objFormatCode, parent uint32, info *Uint32Array) error {
	var req Container
	req.Code = OC_GetObjectHandles
	req.Param = []uint32{storageID, objFormatCode, parent}
	return s.GetData(ctx, &req, info)
}

// GetObjectInfo fetches the ObjectInfo dataset straight from the
// device, bypassing the object cache.
func (s *Session) GetObjectInfo(ctx context.Context, handle uint32, info *ObjectInfo) error {
	var req Container
	req.Code = OC_GetObjectInfo
	req.Param = []uint32{handle}
	return s.GetData(ctx, &req, info)
}

func (s *Session) GetObject(ctx context.Context, handle uint32, dest DataSink) error {
	var req, rep Container
	req.Code = OC_GetObject
	req.Param = []uint32{handle}
	return s.RunTransaction(ctx, &req, &rep, dest, nil, 0)
}

// GetPartialObject reads size bytes at offset. It returns the number
// of bytes the device reports to have sent.
func (s *Session) GetPartialObject(ctx context.Context, handle uint32, offset, size uint32, dest DataSink) (uint32, error) {
	var req, rep Container
	req.Code = OC_GetPartialObject
	req.Param = []uint32{handle, offset, size}
	if err := s.RunTransaction(ctx, &req, &rep, dest, nil, 0); err != nil {
		return 0, err
	}
	return param(&rep, 0), nil
}

func (s *Session) GetThumb(ctx context.Context, handle uint32, dest DataSink) error {
	var req, rep Container
	req.Code = OC_GetThumb
	req.Param = []uint32{handle}
	return s.RunTransaction(ctx, &req, &rep, dest, nil, 0)
}

// DeleteObject deletes handle on the device and drops it from the
// object cache.
func (s *Session) DeleteObject(ctx context.Context, handle uint32) error {
	if _, err := s.call(ctx, OC_DeleteObject, handle, 0); err != nil {
		return err
	}
	s.objects.Remove(handle)
	return nil
}

// SendObjectInfo announces an object to be sent with SendObject. The
// device answers with the storage, parent and handle it assigned.
func (s *Session) SendObjectInfo(ctx context.Context, wantStorageID, wantParent uint32, info *ObjectInfo) (storageID, parent, handle uint32, err error) {
	var req, rep Container
	req.Code = OC_SendObjectInfo
	req.Param = []uint32{wantStorageID, wantParent}
	if err = s.SendData(ctx, &req, &rep, info); err != nil {
		return
	}
	return param(&rep, 0), param(&rep, 1), param(&rep, 2), nil
}

func (s *Session) SendObject(ctx context.Context, src DataSource, size int64) error {
	var req, rep Container
	req.Code = OC_SendObject
	return s.RunTransaction(ctx, &req, &rep, nil, src, size)
}

// MoveObject moves handle below parent on storage. The moved subtree
// is dropped from the cache.
func (s *Session) MoveObject(ctx context.Context, handle, storageID, parent uint32) error {
	if _, err := s.call(ctx, OC_MoveObject, handle, storageID, parent); err != nil {
		return err
	}
	s.objects.Move(handle, storageID, parent)
	return nil
}

func (s *Session) InitiateCapture(ctx context.Context, storageID uint32, format uint16) error {
	_, err := s.call(ctx, OC_InitiateCapture, storageID, uint32(format))
	return err
}

func (s *Session) FormatStore(ctx context.Context, storageID uint32) error {
	_, err := s.call(ctx, OC_FormatStore, storageID)
	if err == nil {
		s.resetCaches()
	}
	return err
}

func (s *Session) GetDevicePropDesc(ctx context.Context, propCode uint16, info *DevicePropDesc) error {
	var req Container
	req.Code = OC_GetDevicePropDesc
	req.Param = []uint32{uint32(propCode)}
	return s.GetData(ctx, &req, info)
}

// GetDevicePropValue decodes the current value of propCode into dest.
func (s *Session) GetDevicePropValue(ctx context.Context, propCode uint16, dest interface{}) error {
	var req Container
	req.Code = OC_GetDevicePropValue
	req.Param = []uint32{uint32(propCode)}
	return s.GetData(ctx, &req, dest)
}

// GetDevicePropValueAs reads the current value of propCode as data
// type dt.
func (s *Session) GetDevicePropValueAs(ctx context.Context, propCode uint16, dt DataTypeSelector) (DataDependentType, error) {
	var req Container
	req.Code = OC_GetDevicePropValue
	req.Param = []uint32{uint32(propCode)}
	data, _, err := s.GetRawData(ctx, &req)
	if err != nil {
		return nil, err
	}
	return DecodeValue(bytes.NewReader(data), dt)
}

// SetDevicePropValue writes a single value. The type of value selects
// the wire encoding.
func (s *Session) SetDevicePropValue(ctx context.Context, propCode uint16, value DataDependentType) error {
	var req, rep Container
	req.Code = OC_SetDevicePropValue
	req.Param = []uint32{uint32(propCode)}

	var buf bytes.Buffer
	if err := EncodeValue(&buf, value); err != nil {
		return err
	}
	return s.RunTransaction(ctx, &req, &rep, nil, NewSendBuffer(buf.Bytes()), int64(buf.Len()))
}

func (s *Session) ResetDevicePropValue(ctx context.Context, propCode uint16) error {
	_, err := s.call(ctx, OC_ResetDevicePropValue, uint32(propCode))
	if err == nil {
		s.props.Invalidate(propCode)
	}
	return err
}
