package ptp

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/atomic"

	"github.com/hanwen/go-ptp/log"
)

// Options tune the engine. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// Response read attempts after the first one, on timeout or
	// not-ready.
	ResponseRetries int
	// Pause between response read attempts.
	RetryDelay time.Duration
	// Bound on replies with an older transaction id that are skipped
	// while waiting for the current one.
	MaxStaleReplies int
	// Validity window of cached property descriptors.
	PropCacheTime time.Duration
	// Accept responses whose transaction id does not match. Only for
	// replaying recorded traffic.
	Fuzzing bool
	// Timeout for single transport reads where the transport takes one.
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		ResponseRetries: 3,
		RetryDelay:      0,
		MaxStaleReplies: 32,
		PropCacheTime:   2 * time.Second,
		Timeout:         2 * time.Second,
	}
}

// Quirk is a per-session capability bit.
type Quirk uint32

const (
	// ObjectInfo sizes are unreliable; take size and name from the MTP
	// property list. Set the first time a 0xFFFFFFFF size shows up.
	QuirkPropListOverridesObjectInfo Quirk = 1 << iota
	// Skip the MTP GetObjectPropList bulk listing.
	QuirkNoBulkPropList
	// Skip vendor event polling and use the interrupt pipe.
	QuirkInterruptEventsOnly
)

// Session is one logical connection to a device. It is not safe for
// concurrent use; callers that share a session must serialize access.
type Session struct {
	t       Transport
	opts    Options
	log     *log.Children
	metrics *Metrics
	now     func() time.Time

	sid    uint32
	tid    uint32
	open   bool
	info   DeviceInfo
	vendor uint32
	quirks Quirk
	cancel *atomic.Bool

	objects *ObjectCache
	props   *PropCache
	events  *EventQueue
	poller  eventPoller

	storages       []Storage
	storagesLoaded bool
	rootLoaded     map[uint32]bool
	rewalk         bool
}

// NewSession creates a session over t. logs and m may be nil.
func NewSession(t Transport, opts Options, logs *log.Children, m *Metrics) *Session {
	if logs == nil {
		logs = log.Discard()
	}
	s := &Session{
		t:          t,
		opts:       opts,
		log:        logs,
		metrics:    m,
		now:        time.Now,
		cancel:     atomic.NewBool(false),
		events:     &EventQueue{},
		rootLoaded: map[uint32]bool{},
	}
	s.objects = newObjectCache(s)
	s.props = newPropCache(s)
	return s
}

func (s *Session) Transport() Transport  { return s.t }
func (s *Session) Options() Options      { return s.opts }
func (s *Session) Objects() *ObjectCache { return s.objects }
func (s *Session) Props() *PropCache     { return s.props }
func (s *Session) Events() *EventQueue   { return s.events }
func (s *Session) Logs() *log.Children   { return s.log }
func (s *Session) SessionID() uint32     { return s.sid }
func (s *Session) IsOpen() bool          { return s.open }

// DeviceInfo returns the last DeviceInfo fetched by GetDeviceInfo.
func (s *Session) DeviceInfo() *DeviceInfo {
	return &s.info
}

// Vendor returns the effective vendor extension id.
func (s *Session) Vendor() uint32 {
	return s.vendor
}

func (s *Session) HasQuirk(q Quirk) bool { return s.quirks&q != 0 }
func (s *Session) SetQuirk(q Quirk)      { s.quirks |= q }

// Supports reports whether the device advertises op.
func (s *Session) Supports(op uint16) bool {
	for _, o := range s.info.OperationsSupported {
		if o == op {
			return true
		}
	}
	return false
}

// SupportsEvent reports whether the device advertises event code ec.
func (s *Session) SupportsEvent(ec uint16) bool {
	for _, e := range s.info.EventsSupported {
		if e == ec {
			return true
		}
	}
	return false
}

// SupportsProp reports whether the device advertises property dpc.
func (s *Session) SupportsProp(dpc uint16) bool {
	for _, p := range s.info.DevicePropertiesSupported {
		if p == dpc {
			return true
		}
	}
	return false
}

// Cancel flags the running transaction for cancellation. The data
// phase stops at the next chunk boundary. Safe to call from any
// goroutine.
func (s *Session) Cancel() {
	s.cancel.Store(true)
}

func (s *Session) checkCancel(ctx context.Context) error {
	if s.cancel.Load() {
		return ErrCancelled
	}
	if ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

// OperationName names op in the context of the session's vendor.
func (s *Session) OperationName(op uint16) string {
	return operationName(s.vendor, op)
}

func operationName(vendor uint32, op uint16) string {
	if n, ok := OC_names[int(op)]; ok {
		return n
	}
	if n, ok := vendorOC_names[vendor][int(op)]; ok {
		return n
	}
	return fmt.Sprintf("0x%04x", op)
}

func (s *Session) setDeviceInfo(info *DeviceInfo) {
	s.info = *info
	s.vendor = detectVendor(info)
}

// detectVendor maps the reported extension to the vendor whose
// opcodes the device actually speaks. Cameras in MTP mode report the
// Microsoft extension with the vendor in the description.
func detectVendor(info *DeviceInfo) uint32 {
	if info.VendorExtensionID != VENDOR_MICROSOFT {
		return info.VendorExtensionID
	}
	desc := strings.ToLower(info.VendorExtensionDesc)
	switch {
	case strings.Contains(desc, "sony.net"):
		return VENDOR_SONY
	case strings.Contains(desc, "nikon.com"):
		return VENDOR_NIKON
	case strings.Contains(desc, "canon.com"):
		return VENDOR_CANON
	case strings.Contains(info.Manufacturer, "Nikon"):
		return VENDOR_NIKON
	case strings.Contains(info.Manufacturer, "Canon"):
		return VENDOR_CANON
	}
	return info.VendorExtensionID
}

// nextTID returns the transaction id for the next request. Ids 0 and
// 0xFFFFFFFF are reserved and skipped on wrap.
func (s *Session) nextTID() uint32 {
	if !s.open {
		return 0
	}
	tid := s.tid
	s.tid++
	if s.tid == 0xFFFFFFFF || s.tid == 0 {
		s.log.PTP.Warningf("transaction id wrapped after 0x%x", tid)
		s.tid = 1
	}
	return tid
}

// Configure is a robust version of OpenSession. It fetches the device
// info, opens a session, and on failure resets the device when the
// transport allows it and tries once more.
func (s *Session) Configure(ctx context.Context) error {
	if err := s.GetDeviceInfo(ctx, nil); err != nil {
		return fmt.Errorf("GetDeviceInfo: %w", err)
	}

	err := s.OpenSession(ctx, 0)
	if err == RCError(RC_SessionAlreadyOpened) {
		// It's open, so close the session. Fortunately, this
		// even works without a transaction ID, at least on Android.
		s.open = true
		s.CloseSession(ctx)
		err = s.OpenSession(ctx, 0)
	}

	if err != nil {
		r, ok := s.t.(Resetter)
		if !ok {
			return err
		}
		s.log.PTP.Warningf("OpenSession failed: %v; attempting reset", err)
		if err := r.Reset(ctx); err != nil {
			return fmt.Errorf("reset: %w", err)
		}

		// Give the device some rest.
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := s.OpenSession(ctx, 0); err != nil {
			return fmt.Errorf("OpenSession after reset: %w", err)
		}
	}

	// Some devices only list their vendor operations inside a session.
	if err := s.GetDeviceInfo(ctx, nil); err != nil {
		return fmt.Errorf("GetDeviceInfo: %w", err)
	}
	s.log.PTP.Infof("session 0x%x open on %s %s (%s)", s.sid, s.info.Manufacturer, s.info.Model,
		VENDOR_names[int(s.vendor)])
	return nil
}

// Close ends the session if one is open and closes the transport.
func (s *Session) Close(ctx context.Context) error {
	if s.open {
		if err := s.CloseSession(ctx); err != nil {
			s.log.PTP.Warningf("failed to close session: %v", err)
		}
	}
	return s.t.Close()
}

// randomSessionID avoids 0xFFFFFFFF and 0x00000000 for session IDs.
func randomSessionID() uint32 {
	return uint32(rand.Int31()) | 1
}
