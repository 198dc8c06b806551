package ptp

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectCacheSorted(t *testing.T) {
	s := NewSession(newFakeDevice(testDeviceInfo(0)), DefaultOptions(), nil, nil)
	c := s.Objects()

	for _, h := range []uint32{5, 1, 9, 3} {
		c.Insert(h)
	}
	first := c.Insert(3)
	assert.Same(t, first, c.Lookup(3))
	assert.Equal(t, []uint32{1, 3, 5, 9}, c.Handles())

	c.Remove(3)
	c.Remove(42)
	assert.Equal(t, []uint32{1, 5, 9}, c.Handles())
	assert.Nil(t, c.Lookup(3))

	c.Move(5, testStore, 9)
	assert.Equal(t, []uint32{1, 9}, c.Handles())

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestObjectCacheRandomOps(t *testing.T) {
	s := NewSession(newFakeDevice(testDeviceInfo(0)), DefaultOptions(), nil, nil)
	c := s.Objects()
	rnd := rand.New(rand.NewSource(1))
	want := map[uint32]bool{}

	for step := 0; step < 500; step++ {
		h := uint32(rnd.Intn(64))
		switch rnd.Intn(4) {
		case 0:
			c.Insert(h)
			want[h] = true
		case 1:
			c.Remove(h)
			delete(want, h)
		case 2:
			var batch []*Object
			for i := rnd.Intn(8); i >= 0; i-- {
				bh := uint32(rnd.Intn(64))
				batch = append(batch, &Object{Handle: bh})
				want[bh] = true
			}
			c.AddBatch(batch)
		case 3:
			c.Move(h, testStore, 0)
			delete(want, h)
		}

		hs := c.Handles()
		require.True(t, sort.SliceIsSorted(hs, func(i, j int) bool { return hs[i] < hs[j] }),
			"step %d: %v", step, hs)
		require.Len(t, hs, len(want), "step %d", step)
		for _, h := range hs {
			require.True(t, want[h], "step %d: stray handle %d", step, h)
			require.Equal(t, h, c.Lookup(h).Handle)
		}
	}
}

func TestObjectCacheAddBatch(t *testing.T) {
	s := NewSession(newFakeDevice(testDeviceInfo(0)), DefaultOptions(), nil, nil)
	c := s.Objects()

	old := c.Insert(7)
	c.AddBatch([]*Object{
		{Handle: 9, Flags: infoFlags},
		{Handle: 7, Info: ObjectInfo{Filename: "seven"}, Flags: infoFlags},
		{Handle: 2},
		{Handle: 9, Info: ObjectInfo{Filename: "dup"}, Flags: infoFlags},
	})

	assert.Equal(t, []uint32{2, 7, 9}, c.Handles())
	// Existing entries are kept and filled in.
	assert.Same(t, old, c.Lookup(7))
	assert.Equal(t, "seven", old.Info.Filename)
	assert.True(t, old.Has(ObjectInfoLoaded))
	// The first entry of a duplicate wins.
	assert.Equal(t, "", c.Lookup(9).Info.Filename)
}

func TestWantLoadsInfoOnce(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{testStore}, map[uint32]ObjectInfo{
		1: fileInfo(0, "a.jpg", 100),
	})
	s := newTestSession(t, f)
	ctx := context.Background()

	o, err := s.Objects().Want(ctx, 1, ObjectInfoLoaded)
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", o.Name())
	assert.EqualValues(t, 100, o.Size64)
	assert.True(t, o.Has(infoFlags))

	_, err = s.Objects().Want(ctx, 1, ParentLoaded|StorageIDLoaded)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(OC_GetObjectInfo))
}

func TestWantInvalidHandle(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{testStore}, map[uint32]ObjectInfo{})
	s := newTestSession(t, f)

	_, err := s.Objects().Want(context.Background(), 8, ObjectInfoLoaded)
	assert.True(t, errors.Is(err, RCError(RC_InvalidObjectHandle)), "got %v", err)
	assert.Nil(t, s.Objects().Lookup(8))
}

func TestWantPropListUnsupported(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{testStore}, map[uint32]ObjectInfo{
		1: fileInfo(0, "a.jpg", 100),
	})
	s := newTestSession(t, f)

	_, err := s.Objects().Want(context.Background(), 1, ObjectInfoLoaded|MTPPropListLoaded)
	assert.True(t, errors.Is(err, RCError(RC_OperationNotSupported)), "got %v", err)
}

func bigFileDevice(vendor uint32) *fakeDevice {
	f := newFakeDevice(testDeviceInfo(vendor))
	f.addTree([]uint32{testStore}, map[uint32]ObjectInfo{
		1: fileInfo(0, "big.mov", sizeUnknown),
		2: fileInfo(0, "small.jpg", 10),
	})
	return f
}

func TestWantLargeObjectUsesPropList(t *testing.T) {
	f := bigFileDevice(VENDOR_MICROSOFT)
	f.handle(OC_MTP_GetObjectPropList, func(req *Container, _ []byte) fakeReply {
		h := req.Param[0]
		size := uint64(5 << 30)
		name := "big.mov"
		if h == 2 {
			size = 10
			name = "small.jpg"
		}
		return dataReply(&ObjectPropList{Props: []ObjectProp{
			{Handle: h, Code: OPC_ObjectSize, DataType: DTC_UINT64, Value: size},
			{Handle: h, Code: OPC_ObjectFileName, DataType: DTC_STR, Value: name},
		}})
	})
	s := newTestSession(t, f)
	ctx := context.Background()

	o, err := s.Objects().Want(ctx, 1, ObjectInfoLoaded)
	require.NoError(t, err)
	assert.EqualValues(t, 5<<30, o.Size64)
	assert.EqualValues(t, sizeUnknown, o.Info.CompressedSize)
	assert.True(t, o.Has(MTPPropListLoaded))
	assert.True(t, s.HasQuirk(QuirkPropListOverridesObjectInfo))

	// Once the quirk is set, every info load pulls the property
	// list as well.
	o, err = s.Objects().Want(ctx, 2, ObjectInfoLoaded)
	require.NoError(t, err)
	assert.True(t, o.Has(MTPPropListLoaded))
	assert.Equal(t, 2, f.count(OC_MTP_GetObjectPropList))
}

func TestWantLargeObjectNikon(t *testing.T) {
	f := bigFileDevice(VENDOR_NIKON)
	f.handle(OC_NIKON_GetObjectSize, func(req *Container, _ []byte) fakeReply {
		return dataReply(&Uint64Value{Value: 6 << 30})
	})
	s := newTestSession(t, f)

	o, err := s.Objects().Want(context.Background(), 1, ObjectInfoLoaded)
	require.NoError(t, err)
	assert.EqualValues(t, 6<<30, o.Size64)
	assert.False(t, s.HasQuirk(QuirkPropListOverridesObjectInfo))
}

func TestWantLargeObjectPropValue(t *testing.T) {
	f := bigFileDevice(VENDOR_MICROSOFT)
	f.handle(OC_MTP_GetObjectPropValue, func(req *Container, _ []byte) fakeReply {
		if req.Param[1] != OPC_ObjectSize {
			return rcReply(RC_MTP_Invalid_ObjectPropCode)
		}
		return dataReply(&Uint64Value{Value: 7 << 30})
	})
	s := newTestSession(t, f)

	o, err := s.Objects().Want(context.Background(), 1, ObjectInfoLoaded)
	require.NoError(t, err)
	assert.EqualValues(t, 7<<30, o.Size64)
	assert.True(t, s.HasQuirk(QuirkPropListOverridesObjectInfo))
}

func TestDeleteObjectDropsEntry(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{testStore}, map[uint32]ObjectInfo{
		1: fileInfo(0, "a.jpg", 100),
	})
	f.handle(OC_DeleteObject, func(*Container, []byte) fakeReply { return okReply() })
	s := newTestSession(t, f)
	ctx := context.Background()

	_, err := s.Objects().Want(ctx, 1, ObjectInfoLoaded)
	require.NoError(t, err)
	require.NoError(t, s.DeleteObject(ctx, 1))
	assert.Zero(t, s.Objects().Len())
}

func TestObjectsFromPropList(t *testing.T) {
	l := ObjectPropList{Props: []ObjectProp{
		{Handle: 4, Code: OPC_ObjectFileName, DataType: DTC_STR, Value: "x"},
		{Handle: 4, Code: OPC_ParentObject, DataType: DTC_UINT32, Value: uint32(0)},
		{Handle: 4, Code: OPC_StorageID, DataType: DTC_UINT32, Value: uint32(testStore)},
		{Handle: 5, Code: OPC_ObjectFormat, DataType: DTC_UINT16, Value: uint16(OFC_Association)},
	}}
	objs := objectsFromPropList(&l)
	require.Len(t, objs, 2)
	assert.Equal(t, "x", objs[0].Name())
	assert.True(t, objs[0].Has(infoFlags|MTPPropListLoaded))
	assert.True(t, objs[1].IsDir())
	assert.False(t, objs[1].Has(ParentLoaded))
}
