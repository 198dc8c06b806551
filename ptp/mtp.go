package ptp

import (
	"bytes"
	"context"
)

// MTP object property operations.

func (s *Session) GetObjectPropsSupported(ctx context.Context, objFormatCode uint16, props *Uint16Array) error {
	var req Container
	req.Code = OC_MTP_GetObjectPropsSupported
	req.Param = []uint32{uint32(objFormatCode)}
	return s.GetData(ctx, &req, props)
}

func (s *Session) GetObjectPropDesc(ctx context.Context, objPropCode, objFormatCode uint16, info *ObjectPropDesc) error {
	var req Container
	req.Code = OC_MTP_GetObjectPropDesc
	req.Param = []uint32{uint32(objPropCode), uint32(objFormatCode)}
	return s.GetData(ctx, &req, info)
}

// GetObjectPropValue decodes a property value into value, which
// should be one of the single-value wrappers such as *Uint64Value or
// *StringValue.
func (s *Session) GetObjectPropValue(ctx context.Context, objHandle uint32, objPropCode uint16, value interface{}) error {
	var req Container
	req.Code = OC_MTP_GetObjectPropValue
	req.Param = []uint32{objHandle, uint32(objPropCode)}
	return s.GetData(ctx, &req, value)
}

func (s *Session) SetObjectPropValue(ctx context.Context, objHandle uint32, objPropCode uint16, value interface{}) error {
	var req, rep Container
	req.Code = OC_MTP_SetObjectPropValue
	req.Param = []uint32{objHandle, uint32(objPropCode)}
	if err := s.SendData(ctx, &req, &rep, value); err != nil {
		return err
	}
	s.objects.invalidate(objHandle)
	return nil
}

// GetObjectPropList fetches properties for handle. A prop of
// 0xFFFFFFFF asks for all properties; with handle 0 and depth 1 the
// device lists the children of the root.
func (s *Session) GetObjectPropList(ctx context.Context, handle uint32, format uint32, prop uint32, group uint32, depth uint32, list *ObjectPropList) error {
	var req Container
	req.Code = OC_MTP_GetObjectPropList
	req.Param = []uint32{handle, format, prop, group, depth}
	return s.GetData(ctx, &req, list)
}

func (s *Session) GetObjectReferences(ctx context.Context, handle uint32, refs *Uint32Array) error {
	var req Container
	req.Code = OC_MTP_GetObjectReferences
	req.Param = []uint32{handle}
	return s.GetData(ctx, &req, refs)
}

// Android MTP extensions

// AndroidGetPartialObject64 is GetPartialObject with a 64 bit offset.
func (s *Session) AndroidGetPartialObject64(ctx context.Context, handle uint32, dest DataSink, offset int64, size uint32) error {
	var req, rep Container
	req.Code = OC_ANDROID_GetPartialObject64
	req.Param = []uint32{handle, uint32(offset & 0xFFFFFFFF), uint32(offset >> 32), size}
	return s.RunTransaction(ctx, &req, &rep, dest, nil, 0)
}

// AndroidBeginEditObject must be called before using
// AndroidSendPartialObject and AndroidTruncate.
func (s *Session) AndroidBeginEditObject(ctx context.Context, handle uint32) error {
	_, err := s.call(ctx, OC_ANDROID_BeginEditObject, handle)
	return err
}

func (s *Session) AndroidTruncate(ctx context.Context, handle uint32, offset int64) error {
	_, err := s.call(ctx, OC_ANDROID_TruncateObject, handle, uint32(offset&0xFFFFFFFF), uint32(offset>>32))
	return err
}

func (s *Session) AndroidSendPartialObject(ctx context.Context, handle uint32, offset int64, size uint32, src DataSource) error {
	var req, rep Container
	req.Code = OC_ANDROID_SendPartialObject
	req.Param = []uint32{handle, uint32(offset & 0xFFFFFFFF), uint32(offset >> 32), size}
	return s.RunTransaction(ctx, &req, &rep, nil, src, int64(size))
}

// AndroidEndEditObject commits changes made by AndroidSendPartialObject
// and AndroidTruncate.
func (s *Session) AndroidEndEditObject(ctx context.Context, handle uint32) error {
	if _, err := s.call(ctx, OC_ANDROID_EndEditObject, handle); err != nil {
		return err
	}
	s.objects.invalidate(handle)
	return nil
}

// objectPropUint64 reads a 64 bit object property, such as the
// ObjectSize.
func (s *Session) objectPropUint64(ctx context.Context, handle uint32, prop uint16) (uint64, error) {
	var req Container
	req.Code = OC_MTP_GetObjectPropValue
	req.Param = []uint32{handle, uint32(prop)}
	data, _, err := s.GetRawData(ctx, &req)
	if err != nil {
		return 0, err
	}
	v, err := DecodeValue(bytes.NewReader(data), DTC_UINT64)
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}
