package ptp

import (
	"context"
	"fmt"
	"time"
)

// Set operations whose success means the device took the value as
// sent, so the cache can be updated without a refetch.
var echoWhitelist = map[uint16]bool{
	OC_SONY_SetControlDeviceA: true,
}

type propEntry struct {
	desc    DevicePropDesc
	enabled bool
	fetched time.Time
}

// PropStats counts property cache lookups.
type PropStats struct {
	Hits      int
	Misses    int
	Refreshes int
}

// PropCache caches device property descriptors for
// Options.PropCacheTime.
type PropCache struct {
	s        *Session
	entries  map[uint16]*propEntry
	strategy propStrategy
	stats    PropStats
}

func newPropCache(s *Session) *PropCache {
	return &PropCache{
		s:       s,
		entries: map[uint16]*propEntry{},
	}
}

// propStrategy is one way of refreshing descriptors.
type propStrategy interface {
	name() string
	supported(s *Session) bool
	refresh(ctx context.Context, c *PropCache, code uint16) error
}

// In order of preference.
var propStrategies = []propStrategy{
	sonyAllProps{},
	sonyOneProp{},
	genericProp{},
}

func (c *PropCache) pick() propStrategy {
	if c.strategy != nil {
		return c.strategy
	}
	for _, st := range propStrategies {
		if st.supported(c.s) {
			c.strategy = st
			c.s.log.Cache.Debugf("property refresh via %s", st.name())
			break
		}
	}
	return c.strategy
}

func (c *PropCache) fresh(e *propEntry) bool {
	return !e.fetched.IsZero() && c.s.now().Sub(e.fetched) < c.s.opts.PropCacheTime
}

func (c *PropCache) commit(desc DevicePropDesc, enabled bool, now time.Time) {
	c.entries[desc.DevicePropertyCode] = &propEntry{
		desc:    desc,
		enabled: enabled,
		fetched: now,
	}
}

// Get returns the descriptor for code, refreshing it when it is older
// than the cache time. A failed refresh keeps cached entries as they
// were.
func (c *PropCache) Get(ctx context.Context, code uint16) (*DevicePropDesc, error) {
	if e, ok := c.entries[code]; ok && c.fresh(e) {
		c.stats.Hits++
		c.s.metrics.propCache("hit")
		d := e.desc
		return &d, nil
	}
	c.stats.Misses++
	c.s.metrics.propCache("miss")

	st := c.pick()
	if err := st.refresh(ctx, c, code); err != nil {
		return nil, fmt.Errorf("refresh property 0x%04x via %s: %w", code, st.name(), err)
	}
	c.stats.Refreshes++
	c.s.metrics.propCache("refresh")

	e, ok := c.entries[code]
	if !ok {
		return nil, fmt.Errorf("property 0x%04x: %w", code, RCError(RC_DevicePropNotSupported))
	}
	d := e.desc
	return &d, nil
}

// Peek returns the cached descriptor for code, fresh or not, without
// any I/O.
func (c *PropCache) Peek(code uint16) (*DevicePropDesc, bool) {
	e, ok := c.entries[code]
	if !ok {
		return nil, false
	}
	d := e.desc
	return &d, true
}

// Enabled reports the Sony enable flag of code. Other vendors always
// report true.
func (c *PropCache) Enabled(code uint16) bool {
	e, ok := c.entries[code]
	return !ok || e.enabled
}

// Set writes value to the device. Afterwards the entry is either
// updated in place, for operations that echo the value, or marked
// stale.
func (c *PropCache) Set(ctx context.Context, code uint16, value DataDependentType) error {
	op := uint16(OC_SetDevicePropValue)
	if c.s.Vendor() == VENDOR_SONY && c.s.Supports(OC_SONY_SetControlDeviceA) {
		op = OC_SONY_SetControlDeviceA
	}

	var err error
	if op == OC_SONY_SetControlDeviceA {
		err = c.s.SonySetControlDeviceA(ctx, code, value)
	} else {
		err = c.s.SetDevicePropValue(ctx, code, value)
	}
	if err != nil {
		return err
	}

	if echoWhitelist[op] {
		if e, ok := c.entries[code]; ok {
			e.desc.CurrentValue = value
			e.fetched = c.s.now()
		}
		return nil
	}
	c.Invalidate(code)
	return nil
}

// Invalidate marks code stale. The descriptor stays available through
// Peek.
func (c *PropCache) Invalidate(code uint16) {
	if e, ok := c.entries[code]; ok {
		e.fetched = time.Time{}
	}
}

func (c *PropCache) InvalidateAll() {
	for _, e := range c.entries {
		e.fetched = time.Time{}
	}
}

func (c *PropCache) Stats() PropStats {
	return c.stats
}

// Codes returns the cached property codes.
func (c *PropCache) Codes() []uint16 {
	out := make([]uint16, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out
}

func (c *PropCache) clear() {
	c.entries = map[uint16]*propEntry{}
	c.strategy = nil
}

// sonyAllProps fetches every descriptor with one GetAllDevicePropData.
type sonyAllProps struct{}

func (sonyAllProps) name() string { return "sony-all" }

func (sonyAllProps) supported(s *Session) bool {
	return s.Vendor() == VENDOR_SONY && s.Supports(OC_SONY_GetAllDevicePropData)
}

func (sonyAllProps) refresh(ctx context.Context, c *PropCache, code uint16) error {
	descs, err := c.s.SonyGetAllDevicePropData(ctx)
	if err != nil {
		return err
	}
	now := c.s.now()
	for i := range descs {
		c.commit(descs[i].Standard(), descs[i].IsEnabled != 0, now)
	}
	c.s.log.Cache.Debugf("loaded %d properties", len(descs))
	return nil
}

// sonyOneProp fetches a single Sony descriptor.
type sonyOneProp struct{}

func (sonyOneProp) name() string { return "sony-one" }

func (sonyOneProp) supported(s *Session) bool {
	return s.Vendor() == VENDOR_SONY && s.Supports(OC_SONY_GetDevicePropdesc)
}

func (sonyOneProp) refresh(ctx context.Context, c *PropCache, code uint16) error {
	var d SonyDevicePropDesc
	if err := c.s.SonyGetDevicePropDesc(ctx, code, &d); err != nil {
		return err
	}
	c.commit(d.Standard(), d.IsEnabled != 0, c.s.now())
	return nil
}

// genericProp uses the standard GetDevicePropDesc.
type genericProp struct{}

func (genericProp) name() string { return "generic" }

func (genericProp) supported(s *Session) bool { return true }

func (genericProp) refresh(ctx context.Context, c *PropCache, code uint16) error {
	var d DevicePropDesc
	if err := c.s.GetDevicePropDesc(ctx, code, &d); err != nil {
		return err
	}
	c.commit(d, true, c.s.now())
	return nil
}
