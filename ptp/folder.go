package ptp

import (
	"context"
	"errors"
	"time"
)

// Storage is one store of the device.
type Storage struct {
	ID   uint32
	Info StorageInfo
}

// Storages returns the stores of the device. The list is cached until
// a store is added or removed.
func (s *Session) Storages(ctx context.Context) ([]Storage, error) {
	if s.storagesLoaded {
		return s.storages, nil
	}
	var ids Uint32Array
	if err := s.GetStorageIDs(ctx, &ids); err != nil {
		return nil, err
	}
	var out []Storage
	for _, id := range ids.Values {
		// Logical store without media.
		if id&0xFFFF == 0 {
			s.log.Cache.Debugf("skipping store 0x%x without media", id)
			continue
		}
		st := Storage{ID: id}
		if err := s.GetStorageInfo(ctx, id, &st.Info); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	s.storages = out
	s.storagesLoaded = true
	return out, nil
}

// invalidateTree drops everything learned about the stores and their
// contents. The next ListFolder walks the whole tree again.
func (s *Session) invalidateTree() {
	s.objects.Clear()
	s.rootLoaded = map[uint32]bool{}
	s.storages = nil
	s.storagesLoaded = false
	s.rewalk = true
}

// resetCaches forgets all per-session state.
func (s *Session) resetCaches() {
	s.invalidateTree()
	s.rewalk = false
	s.props.clear()
	s.poller = nil
}

func (s *Session) dirLoaded(storageID, handle uint32) bool {
	if isRoot(handle) {
		return s.rootLoaded[storageID]
	}
	o := s.objects.Lookup(handle)
	return o != nil && o.Has(DirectoryLoaded)
}

func (s *Session) setDirLoaded(storageID, handle uint32) {
	if isRoot(handle) {
		s.rootLoaded[storageID] = true
		return
	}
	s.objects.Insert(handle).Flags |= DirectoryLoaded
}

// ListFolder returns the children of handle on storage. Handle 0 or
// 0xFFFFFFFF is the root of the store; storage 0xFFFFFFFF matches
// all stores. Once a folder is loaded it is served from the cache.
func (s *Session) ListFolder(ctx context.Context, storageID, handle uint32) ([]*Object, error) {
	if s.rewalk {
		s.log.Cache.Infof("store change, reading folder tree again")
		if _, err := s.Rewalk(ctx); err != nil {
			s.rewalk = true
			return nil, err
		}
	}

	if s.dirLoaded(storageID, handle) {
		return s.cachedChildren(ctx, storageID, handle)
	}

	var err error
	switch {
	case s.Vendor() == VENDOR_CANON && s.Supports(OC_CANON_GetFolderEntries):
		err = s.listCanon(ctx, storageID, handle)
	case s.Supports(OC_MTP_GetObjectPropList) && !s.HasQuirk(QuirkNoBulkPropList):
		err = s.listPropList(ctx, storageID, handle)
		if isUnsupported(err) {
			s.log.Cache.Infof("bulk property list unsupported (%v), listing by handle", err)
			s.SetQuirk(QuirkNoBulkPropList)
			err = s.listHandles(ctx, storageID, handle)
		}
	default:
		err = s.listHandles(ctx, storageID, handle)
	}
	if err != nil {
		return nil, err
	}

	s.setDirLoaded(storageID, handle)
	return s.objects.children(storageID, rootParent(handle)), nil
}

func rootParent(h uint32) uint32 {
	if isRoot(h) {
		return 0
	}
	return h
}

func isUnsupported(err error) bool {
	return errors.Is(err, RCError(RC_OperationNotSupported)) ||
		errors.Is(err, RCError(RC_ParameterNotSupported)) ||
		errors.Is(err, RCError(RC_MTP_Specification_By_Group_Unsupported)) ||
		errors.Is(err, RCError(RC_MTP_Specification_By_Depth_Unsupported))
}

// cachedChildren serves a loaded folder. Entries that arrived with
// ObjectAdded events are resolved first.
func (s *Session) cachedChildren(ctx context.Context, storageID, handle uint32) ([]*Object, error) {
	for _, h := range s.objects.Handles() {
		o := s.objects.Lookup(h)
		if o == nil || o.Has(ParentLoaded) {
			continue
		}
		if _, err := s.objects.Want(ctx, h, infoFlags); err != nil {
			if errors.Is(err, RCError(RC_InvalidObjectHandle)) {
				continue
			}
			return nil, err
		}
	}
	return s.objects.children(storageID, rootParent(handle)), nil
}

func (s *Session) listCanon(ctx context.Context, storageID, handle uint32) error {
	parent := handle
	if isRoot(handle) {
		parent = 0xFFFFFFFF
	}
	entries, err := s.CanonGetFolderEntries(ctx, storageID, parent, 0)
	if err != nil {
		return err
	}
	objs := make([]*Object, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		o := &Object{
			Handle: e.ObjectHandle,
			Info: ObjectInfo{
				StorageID:        storageID,
				ObjectFormat:     e.ObjectFormatCode,
				CompressedSize:   e.ObjectSize,
				ParentObject:     rootParent(handle),
				Filename:         e.Name(),
				ModificationDate: time.Unix(int64(e.Time), 0).UTC(),
			},
			Size64: uint64(e.ObjectSize),
			Flags:  infoFlags,
		}
		if e.IsDir() {
			o.Info.AssociationType = AT_GenericFolder
		}
		objs = append(objs, o)
	}
	s.log.Cache.Debugf("Canon folder 0x%x: %d entries", handle, len(objs))
	s.objects.AddBatch(objs)
	return nil
}

func (s *Session) listPropList(ctx context.Context, storageID, handle uint32) error {
	var l ObjectPropList
	if err := s.GetObjectPropList(ctx, rootParent(handle), 0, 0xFFFFFFFF, 0, 1, &l); err != nil {
		return err
	}
	var objs []*Object
	for _, o := range objectsFromPropList(&l) {
		if o.Handle == handle {
			continue
		}
		if _, ok := o.Prop(OPC_ParentObject); !ok {
			o.Info.ParentObject = rootParent(handle)
		}
		if _, ok := o.Prop(OPC_StorageID); !ok && storageID != 0xFFFFFFFF {
			o.Info.StorageID = storageID
		}
		if o.Info.StorageID != 0 && o.Info.StorageID != 0xFFFFFFFF {
			o.Flags |= infoFlags
		}
		objs = append(objs, o)
	}
	s.log.Cache.Debugf("property list folder 0x%x: %d entries", handle, len(objs))
	s.objects.AddBatch(objs)
	return nil
}

func (s *Session) listHandles(ctx context.Context, storageID, handle uint32) error {
	parent := handle
	if isRoot(handle) {
		parent = 0xFFFFFFFF
	}
	var hs Uint32Array
	if err := s.GetObjectHandles(ctx, storageID, 0, parent, &hs); err != nil {
		return err
	}
	for _, h := range hs.Values {
		if _, err := s.objects.Want(ctx, h, infoFlags); err != nil {
			if errors.Is(err, RCError(RC_InvalidObjectHandle)) {
				s.log.Cache.Debugf("object 0x%x vanished", h)
				continue
			}
			return err
		}
	}
	return nil
}

// Rewalk drops the cached tree and lists every store recursively. It
// returns the number of objects found.
func (s *Session) Rewalk(ctx context.Context) (int, error) {
	s.invalidateTree()
	s.rewalk = false
	sts, err := s.Storages(ctx)
	if err != nil {
		return 0, err
	}

	type dir struct{ storage, handle uint32 }
	var todo []dir
	for _, st := range sts {
		todo = append(todo, dir{st.ID, 0})
	}
	n := 0
	for len(todo) > 0 {
		d := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		kids, err := s.ListFolder(ctx, d.storage, d.handle)
		if err != nil {
			return n, err
		}
		n += len(kids)
		for _, k := range kids {
			if k.IsDir() {
				todo = append(todo, dir{d.storage, k.Handle})
			}
		}
	}
	s.log.Cache.Infof("walked %d objects on %d stores", n, len(sts))
	return n, nil
}
