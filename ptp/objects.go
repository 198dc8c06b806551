package ptp

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ObjectFlags records which parts of an Object have been fetched.
type ObjectFlags uint32

const (
	ObjectInfoLoaded ObjectFlags = 1 << iota
	StorageIDLoaded
	ParentLoaded
	MTPPropListLoaded
	DirectoryLoaded
)

// infoFlags all come from one GetObjectInfo.
const infoFlags = ObjectInfoLoaded | StorageIDLoaded | ParentLoaded

// sizeUnknown is the ObjectInfo size of objects of 4G and over.
const sizeUnknown = 0xFFFFFFFF

// Object is a cached device object. Fields are only meaningful for
// the parts named in Flags.
type Object struct {
	Handle uint32
	Info   ObjectInfo
	// Size64 is the real size; ObjectInfo only has 32 bits.
	Size64 uint64
	Props  []ObjectProp
	Flags  ObjectFlags
}

func (o *Object) Has(f ObjectFlags) bool {
	return o.Flags&f == f
}

func (o *Object) IsDir() bool {
	return o.Info.IsDir()
}

func (o *Object) Name() string {
	return o.Info.Filename
}

// Prop returns the cached MTP property code.
func (o *Object) Prop(code uint16) (DataDependentType, bool) {
	for _, p := range o.Props {
		if p.Code == code {
			return p.Value, true
		}
	}
	return nil, false
}

// applyProps copies the MTP properties that duplicate ObjectInfo
// fields over the latter.
func (o *Object) applyProps() {
	for _, p := range o.Props {
		switch p.Code {
		case OPC_ObjectSize:
			if sz, ok := toUint64(p.Value); ok {
				o.Size64 = sz
				if sz < sizeUnknown {
					o.Info.CompressedSize = uint32(sz)
				} else {
					o.Info.CompressedSize = sizeUnknown
				}
			}
		case OPC_ObjectFileName:
			if n, ok := p.Value.(string); ok && n != "" {
				o.Info.Filename = n
			}
		case OPC_DateCreated:
			if s, ok := p.Value.(string); ok {
				if t, err := parseTime(s); err == nil {
					o.Info.CaptureDate = t
				}
			}
		case OPC_DateModified:
			if s, ok := p.Value.(string); ok {
				if t, err := parseTime(s); err == nil {
					o.Info.ModificationDate = t
				}
			}
		case OPC_StorageID:
			if v, ok := toUint64(p.Value); ok {
				o.Info.StorageID = uint32(v)
			}
		case OPC_ParentObject:
			if v, ok := toUint64(p.Value); ok {
				o.Info.ParentObject = uint32(v)
			}
		case OPC_ObjectFormat:
			if v, ok := toUint64(p.Value); ok {
				o.Info.ObjectFormat = uint16(v)
			}
		}
	}
}

func toUint64(v DataDependentType) (uint64, bool) {
	switch x := v.(type) {
	case uint8:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	}
	return 0, false
}

// ObjectCache holds the objects of a session, sorted by handle.
type ObjectCache struct {
	s    *Session
	objs []*Object
}

func newObjectCache(s *Session) *ObjectCache {
	return &ObjectCache{s: s}
}

func (c *ObjectCache) search(handle uint32) (int, bool) {
	i := sort.Search(len(c.objs), func(i int) bool {
		return c.objs[i].Handle >= handle
	})
	return i, i < len(c.objs) && c.objs[i].Handle == handle
}

// Lookup returns the cached entry for handle without any I/O.
func (c *ObjectCache) Lookup(handle uint32) *Object {
	if i, ok := c.search(handle); ok {
		return c.objs[i]
	}
	return nil
}

// Insert returns the entry for handle, adding an empty one if needed.
func (c *ObjectCache) Insert(handle uint32) *Object {
	i, ok := c.search(handle)
	if ok {
		return c.objs[i]
	}
	o := &Object{Handle: handle}
	c.objs = append(c.objs, nil)
	copy(c.objs[i+1:], c.objs[i:])
	c.objs[i] = o
	c.s.metrics.setObjects(len(c.objs))
	return o
}

// AddBatch adds many objects at once and sorts once. An object whose
// handle is already present is merged into the existing entry.
func (c *ObjectCache) AddBatch(objs []*Object) {
	if len(objs) == 0 {
		return
	}
	c.objs = append(c.objs, objs...)
	sort.SliceStable(c.objs, func(i, j int) bool {
		return c.objs[i].Handle < c.objs[j].Handle
	})
	out := c.objs[:1]
	for _, o := range c.objs[1:] {
		last := out[len(out)-1]
		if last.Handle == o.Handle {
			last.merge(o)
			continue
		}
		out = append(out, o)
	}
	for i := len(out); i < len(c.objs); i++ {
		c.objs[i] = nil
	}
	c.objs = out
	c.s.metrics.setObjects(len(c.objs))
}

// merge copies the parts of o that e lacks.
func (e *Object) merge(o *Object) {
	if !e.Has(ObjectInfoLoaded) && o.Has(ObjectInfoLoaded) {
		e.Info = o.Info
		e.Size64 = o.Size64
		e.Flags |= o.Flags & infoFlags
	}
	if !e.Has(MTPPropListLoaded) && o.Has(MTPPropListLoaded) {
		e.Props = o.Props
		e.Flags |= MTPPropListLoaded
	}
}

// Remove drops handle from the cache.
func (c *ObjectCache) Remove(handle uint32) {
	i, ok := c.search(handle)
	if !ok {
		return
	}
	copy(c.objs[i:], c.objs[i+1:])
	c.objs[len(c.objs)-1] = nil
	c.objs = c.objs[:len(c.objs)-1]
	c.s.metrics.setObjects(len(c.objs))
}

// Move evicts handle and every cached object below it, and marks the
// destination folder as not loaded.
func (c *ObjectCache) Move(handle, storageID, parent uint32) {
	gone := map[uint32]bool{handle: true}
	for grew := true; grew; {
		grew = false
		for _, o := range c.objs {
			if !gone[o.Handle] && o.Has(ParentLoaded) && gone[o.Info.ParentObject] {
				gone[o.Handle] = true
				grew = true
			}
		}
	}

	out := c.objs[:0]
	for _, o := range c.objs {
		if !gone[o.Handle] {
			out = append(out, o)
		}
	}
	for i := len(out); i < len(c.objs); i++ {
		c.objs[i] = nil
	}
	c.objs = out
	c.s.metrics.setObjects(len(c.objs))

	if isRoot(parent) {
		delete(c.s.rootLoaded, storageID)
		delete(c.s.rootLoaded, 0xFFFFFFFF)
	} else if p := c.Lookup(parent); p != nil {
		p.Flags &^= DirectoryLoaded
	}
}

// invalidate forgets the fetched metadata of handle. A loaded
// directory listing stays valid.
func (c *ObjectCache) invalidate(handle uint32) {
	if o := c.Lookup(handle); o != nil {
		o.Flags &^= infoFlags | MTPPropListLoaded
	}
}

func (c *ObjectCache) Clear() {
	c.objs = nil
	c.s.metrics.setObjects(0)
}

func (c *ObjectCache) Len() int {
	return len(c.objs)
}

// Handles returns the cached handles in ascending order.
func (c *ObjectCache) Handles() []uint32 {
	hs := make([]uint32, len(c.objs))
	for i, o := range c.objs {
		hs[i] = o.Handle
	}
	return hs
}

// children returns the cached objects with a known parent of parent
// on storage.
func (c *ObjectCache) children(storageID, parent uint32) []*Object {
	var out []*Object
	for _, o := range c.objs {
		if !o.Has(ParentLoaded | StorageIDLoaded) {
			continue
		}
		if storageID != 0xFFFFFFFF && o.Info.StorageID != storageID {
			continue
		}
		if o.Info.ParentObject == parent || (isRoot(parent) && isRoot(o.Info.ParentObject)) {
			out = append(out, o)
		}
	}
	return out
}

func isRoot(h uint32) bool {
	return h == 0 || h == 0xFFFFFFFF
}

// Want returns the entry for handle with at least flags loaded,
// fetching what is missing.
func (c *ObjectCache) Want(ctx context.Context, handle uint32, flags ObjectFlags) (*Object, error) {
	o := c.Insert(handle)
	need := flags &^ o.Flags
	if need == 0 {
		return o, nil
	}

	if need&infoFlags != 0 {
		if err := c.loadInfo(ctx, o); err != nil {
			if errors.Is(err, RCError(RC_InvalidObjectHandle)) {
				c.Remove(handle)
			}
			return nil, err
		}
	}
	if flags&MTPPropListLoaded != 0 && !o.Has(MTPPropListLoaded) {
		if !c.s.Supports(OC_MTP_GetObjectPropList) {
			return nil, fmt.Errorf("object 0x%x property list: %w", handle, RCError(RC_OperationNotSupported))
		}
		if err := c.loadPropList(ctx, o); err != nil {
			return nil, err
		}
	}
	if flags&DirectoryLoaded != 0 && !o.Has(DirectoryLoaded) {
		if _, err := c.s.ListFolder(ctx, o.Info.StorageID, handle); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (c *ObjectCache) loadInfo(ctx context.Context, o *Object) error {
	var info ObjectInfo
	if err := c.s.GetObjectInfo(ctx, o.Handle, &info); err != nil {
		return err
	}
	o.Info = info
	o.Size64 = uint64(info.CompressedSize)
	o.Flags |= infoFlags

	if info.CompressedSize == sizeUnknown {
		return c.fixSize(ctx, o)
	}
	if c.s.HasQuirk(QuirkPropListOverridesObjectInfo) && c.s.Supports(OC_MTP_GetObjectPropList) {
		return c.loadPropList(ctx, o)
	}
	return nil
}

// fixSize finds the real size of an object of 4G or more.
func (c *ObjectCache) fixSize(ctx context.Context, o *Object) error {
	if c.s.Supports(OC_NIKON_GetObjectSize) {
		sz, err := c.s.NikonGetObjectSize(ctx, o.Handle)
		if err == nil {
			o.Size64 = sz
			return nil
		}
		c.s.log.Cache.Warningf("GetObjectSize 0x%x: %v", o.Handle, err)
	}

	if !c.s.HasQuirk(QuirkPropListOverridesObjectInfo) {
		c.s.log.Cache.Infof("object 0x%x reports size 0x%x, preferring property list sizes",
			o.Handle, uint32(sizeUnknown))
		c.s.SetQuirk(QuirkPropListOverridesObjectInfo)
	}
	if c.s.Supports(OC_MTP_GetObjectPropList) {
		return c.loadPropList(ctx, o)
	}
	if c.s.Supports(OC_MTP_GetObjectPropValue) {
		sz, err := c.s.objectPropUint64(ctx, o.Handle, OPC_ObjectSize)
		if err != nil {
			return err
		}
		o.Size64 = sz
		return nil
	}
	c.s.log.Cache.Warningf("no way to find the size of 0x%x", o.Handle)
	return nil
}

func (c *ObjectCache) loadPropList(ctx context.Context, o *Object) error {
	var l ObjectPropList
	if err := c.s.GetObjectPropList(ctx, o.Handle, 0, 0xFFFFFFFF, 0, 0, &l); err != nil {
		return err
	}
	o.Props = o.Props[:0]
	for _, p := range l.Props {
		if p.Handle == o.Handle {
			o.Props = append(o.Props, p)
		}
	}
	o.Flags |= MTPPropListLoaded
	o.applyProps()
	return nil
}

// objectsFromPropList builds one object per handle found in l. The
// entries count as fully loaded when the list carried the location.
func objectsFromPropList(l *ObjectPropList) []*Object {
	var out []*Object
	byHandle := map[uint32]*Object{}
	for _, p := range l.Props {
		o := byHandle[p.Handle]
		if o == nil {
			o = &Object{Handle: p.Handle}
			byHandle[p.Handle] = o
			out = append(out, o)
		}
		o.Props = append(o.Props, p)
	}
	for _, o := range out {
		o.applyProps()
		o.Flags |= MTPPropListLoaded
		_, hasParent := o.Prop(OPC_ParentObject)
		_, hasStorage := o.Prop(OPC_StorageID)
		if hasParent && hasStorage {
			o.Flags |= infoFlags
		}
	}
	return out
}
