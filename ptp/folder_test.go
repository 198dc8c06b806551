package ptp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(objs []*Object) []string {
	var out []string
	for _, o := range objs {
		out = append(out, o.Name())
	}
	return out
}

func testTree() map[uint32]ObjectInfo {
	return map[uint32]ObjectInfo{
		1: dirInfo(0, "DCIM"),
		2: fileInfo(0, "a.txt", 3),
		3: fileInfo(1, "b.jpg", 1000),
	}
}

func TestStoragesSkipsEmptySlots(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{0x00010000, testStore}, testTree())
	s := newTestSession(t, f)
	ctx := context.Background()

	sts, err := s.Storages(ctx)
	require.NoError(t, err)
	require.Len(t, sts, 1)
	assert.EqualValues(t, testStore, sts[0].ID)
	assert.True(t, sts[0].Info.IsHierarchical())

	_, err = s.Storages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(OC_GetStorageIDs))
}

func TestListFolderByHandles(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{testStore}, testTree())
	s := newTestSession(t, f)
	ctx := context.Background()

	kids, err := s.ListFolder(ctx, testStore, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"DCIM", "a.txt"}, names(kids))
	assert.True(t, kids[0].IsDir())

	kids, err = s.ListFolder(ctx, testStore, 0xFFFFFFFF)
	require.NoError(t, err)
	assert.Equal(t, []string{"DCIM", "a.txt"}, names(kids))
	assert.Equal(t, 1, f.count(OC_GetObjectHandles))

	kids, err = s.ListFolder(ctx, testStore, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.jpg"}, names(kids))
	assert.True(t, s.Objects().Lookup(1).Has(DirectoryLoaded))
	assert.Equal(t, 3, f.count(OC_GetObjectInfo))
}

func TestListFolderIncompleteIsRetried(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{testStore}, testTree())
	info := f.ops[OC_GetObjectInfo]
	busy := true
	f.handle(OC_GetObjectInfo, func(req *Container, data []byte) fakeReply {
		if req.Param[0] == 2 && busy {
			busy = false
			return rcReply(RC_DeviceBusy)
		}
		return info(req, data)
	})
	s := newTestSession(t, f)
	ctx := context.Background()

	_, err := s.ListFolder(ctx, testStore, 0)
	assert.True(t, errors.Is(err, RCError(RC_DeviceBusy)), "got %v", err)
	assert.False(t, s.dirLoaded(testStore, 0))

	kids, err := s.ListFolder(ctx, testStore, 0)
	require.NoError(t, err)
	assert.Len(t, kids, 2)
	assert.Equal(t, 2, f.count(OC_GetObjectHandles))
}

func TestListFolderSkipsVanished(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{testStore}, testTree())
	f.handle(OC_GetObjectHandles, func(*Container, []byte) fakeReply {
		return dataReply(&Uint32Array{Values: []uint32{1, 2, 77}})
	})
	s := newTestSession(t, f)

	kids, err := s.ListFolder(context.Background(), testStore, 0)
	require.NoError(t, err)
	assert.Len(t, kids, 2)
	assert.Nil(t, s.Objects().Lookup(77))
}

func TestListFolderCanon(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_CANON))
	f.addTree([]uint32{testStore}, testTree())
	f.handle(OC_CANON_GetFolderEntries, func(req *Container, _ []byte) fakeReply {
		return rawReply(parseHex(canonEntriesStr), 2)
	})
	s := newTestSession(t, f)

	kids, err := s.ListFolder(context.Background(), testStore, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"DCIM", "IMG_0001.JPG"}, names(kids))
	assert.True(t, kids[0].IsDir())
	assert.EqualValues(t, 0x123456, kids[1].Size64)
	assert.Zero(t, f.count(OC_GetObjectHandles))
	assert.Zero(t, f.count(OC_GetObjectInfo))

	req := f.reqs[len(f.reqs)-1]
	assert.Equal(t, []uint32{testStore, 0, 0xFFFFFFFF, 0}, req.Param)
}

func propListTree() fakeOp {
	return func(req *Container, _ []byte) fakeReply {
		if req.Param[0] != 0 || req.Param[4] != 1 {
			return rcReply(RC_MTP_Specification_By_Depth_Unsupported)
		}
		var props []ObjectProp
		for h, name := range map[uint32]string{10: "x.jpg", 11: "y.jpg"} {
			props = append(props,
				ObjectProp{Handle: h, Code: OPC_StorageID, DataType: DTC_UINT32, Value: uint32(testStore)},
				ObjectProp{Handle: h, Code: OPC_ParentObject, DataType: DTC_UINT32, Value: uint32(0)},
				ObjectProp{Handle: h, Code: OPC_ObjectFileName, DataType: DTC_STR, Value: name},
				ObjectProp{Handle: h, Code: OPC_ObjectFormat, DataType: DTC_UINT16, Value: uint16(OFC_EXIF_JPEG)},
				ObjectProp{Handle: h, Code: OPC_ObjectSize, DataType: DTC_UINT64, Value: uint64(h)},
			)
		}
		return dataReply(&ObjectPropList{Props: props})
	}
}

func TestListFolderPropList(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{testStore}, testTree())
	f.handle(OC_MTP_GetObjectPropList, propListTree())
	s := newTestSession(t, f)

	kids, err := s.ListFolder(context.Background(), testStore, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.jpg", "y.jpg"}, names(kids))
	assert.EqualValues(t, 11, kids[1].Size64)
	assert.True(t, kids[0].Has(infoFlags|MTPPropListLoaded))
	assert.Zero(t, f.count(OC_GetObjectHandles))
	assert.Zero(t, f.count(OC_GetObjectInfo))
}

func TestListFolderPropListFallback(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{testStore}, testTree())
	f.handle(OC_MTP_GetObjectPropList, func(*Container, []byte) fakeReply {
		return rcReply(RC_MTP_Specification_By_Group_Unsupported)
	})
	s := newTestSession(t, f)
	ctx := context.Background()

	kids, err := s.ListFolder(ctx, testStore, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"DCIM", "a.txt"}, names(kids))
	assert.True(t, s.HasQuirk(QuirkNoBulkPropList))

	_, err = s.ListFolder(ctx, testStore, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(OC_MTP_GetObjectPropList))
}

func TestStoreEventForcesRewalk(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{testStore}, testTree())
	s := newTestSession(t, f)
	ctx := context.Background()

	_, err := s.Storages(ctx)
	require.NoError(t, err)
	_, err = s.ListFolder(ctx, testStore, 0)
	require.NoError(t, err)

	s.Inject(Event{Code: EC_StoreAdded, Param: []uint32{testStore}})
	assert.Zero(t, s.Objects().Len())

	kids, err := s.ListFolder(ctx, testStore, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"DCIM", "a.txt"}, names(kids))
	assert.Equal(t, 2, f.count(OC_GetStorageIDs))
	// Root and DCIM were both listed again.
	assert.Equal(t, 3, f.count(OC_GetObjectHandles))
	assert.Equal(t, 3, s.Objects().Len())
	b := s.Objects().Lookup(3)
	require.NotNil(t, b)
	assert.Equal(t, "b.jpg", b.Name())

	_, err = s.ListFolder(ctx, testStore, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, f.count(OC_GetObjectHandles))
}

func TestMoveObjectDropsSubtree(t *testing.T) {
	const otherStore = 0x00020001
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	tree := testTree()
	f.addTree([]uint32{testStore, otherStore}, tree)
	f.handle(OC_MoveObject, func(req *Container, _ []byte) fakeReply {
		h, storage, parent := req.Param[0], req.Param[1], req.Param[2]
		for k, info := range tree {
			if k == h || info.ParentObject == h {
				info.StorageID = storage
				if k == h {
					info.ParentObject = parent
				}
				tree[k] = info
			}
		}
		return okReply()
	})
	s := newTestSession(t, f)
	ctx := context.Background()

	_, err := s.ListFolder(ctx, testStore, 0)
	require.NoError(t, err)
	kids, err := s.ListFolder(ctx, testStore, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.jpg"}, names(kids))

	require.NoError(t, s.MoveObject(ctx, 1, otherStore, 0))
	assert.Nil(t, s.Objects().Lookup(1))
	assert.Nil(t, s.Objects().Lookup(3))
	assert.Equal(t, []uint32{2}, s.Objects().Handles())

	kids, err = s.ListFolder(ctx, otherStore, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.jpg"}, names(kids))
	assert.EqualValues(t, otherStore, kids[0].Info.StorageID)

	kids, err = s.ListFolder(ctx, otherStore, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"DCIM"}, names(kids))

	kids, err = s.ListFolder(ctx, testStore, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, names(kids))
}

func TestListFolderResolvesAddedObjects(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	tree := testTree()
	f.addTree([]uint32{testStore}, tree)
	s := newTestSession(t, f)
	ctx := context.Background()

	_, err := s.ListFolder(ctx, testStore, 0)
	require.NoError(t, err)

	tree[5] = fileInfo(0, "new.jpg", 9)
	s.Inject(Event{Code: EC_ObjectAdded, Param: []uint32{5}})

	kids, err := s.ListFolder(ctx, testStore, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"DCIM", "a.txt", "new.jpg"}, names(kids))
	assert.Equal(t, 1, f.count(OC_GetObjectHandles))
}

func TestWantDirectory(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{testStore}, testTree())
	s := newTestSession(t, f)

	o, err := s.Objects().Want(context.Background(), 1, ObjectInfoLoaded|DirectoryLoaded)
	require.NoError(t, err)
	assert.True(t, o.Has(DirectoryLoaded))
	assert.NotNil(t, s.Objects().Lookup(3))
}

func TestRewalk(t *testing.T) {
	f := newFakeDevice(testDeviceInfo(VENDOR_MICROSOFT))
	f.addTree([]uint32{testStore}, testTree())
	s := newTestSession(t, f)

	n, err := s.Rewalk(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, s.Objects().Len())
}
