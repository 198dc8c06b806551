package ptp

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// interruptPollTimeout bounds one read of the interrupt pipe during
// Poll.
const interruptPollTimeout = 100 * time.Millisecond

// canonMaxEvents bounds the CheckEvent calls of one poll.
const canonMaxEvents = 32

// EventQueue is a FIFO of absorbed events.
type EventQueue struct {
	evs []Event
}

func (q *EventQueue) Push(ev Event) {
	q.evs = append(q.evs, ev)
}

// Pop returns the oldest event.
func (q *EventQueue) Pop() (Event, bool) {
	return q.PopCode(0)
}

// PopCode returns the oldest event with the given code. Code 0
// matches any event.
func (q *EventQueue) PopCode(code uint16) (Event, bool) {
	for i, ev := range q.evs {
		if code != 0 && ev.Code != code {
			continue
		}
		copy(q.evs[i:], q.evs[i+1:])
		q.evs[len(q.evs)-1] = Event{}
		q.evs = q.evs[:len(q.evs)-1]
		return ev, true
	}
	return Event{}, false
}

func (q *EventQueue) Len() int {
	return len(q.evs)
}

// EventName names an event code.
func EventName(code uint16) string {
	if n, ok := EC_names[int(code)]; ok {
		return n
	}
	return fmt.Sprintf("0x%04x", code)
}

// eventPoller is one way of asking the device for pending events.
type eventPoller interface {
	name() string
	supported(s *Session) bool
	poll(ctx context.Context, s *Session) ([]Event, error)
}

// In order of preference.
var eventPollers = []eventPoller{
	nikonEventEx{},
	legacyEvents{},
	interruptEvents{},
}

func (s *Session) pickPoller() eventPoller {
	if s.poller != nil {
		return s.poller
	}
	for _, p := range eventPollers {
		if p.supported(s) {
			s.poller = p
			s.log.Event.Debugf("polling events via %s", p.name())
			break
		}
	}
	return s.poller
}

// Poll fetches pending events from the device and absorbs them. It
// returns the number of events queued.
func (s *Session) Poll(ctx context.Context) (int, error) {
	p := s.pickPoller()
	if p == nil {
		return 0, fmt.Errorf("no event source: %w", RCError(RC_OperationNotSupported))
	}
	evs, err := p.poll(ctx, s)
	for _, ev := range evs {
		s.absorb(ev)
	}
	return len(evs), err
}

// GetOne pops the oldest queued event with code, or the oldest of any
// code if code is 0. It never blocks.
func (s *Session) GetOne(code uint16) (Event, bool) {
	return s.events.PopCode(code)
}

// Inject absorbs an event that did not come from Poll, such as one
// read from a PTP/IP event connection.
func (s *Session) Inject(ev Event) {
	s.absorb(ev)
}

// absorb applies the cache side effects of ev and queues it.
func (s *Session) absorb(ev Event) {
	s.log.Event.Debugf("event %s %v", EventName(ev.Code), ev.Param)
	s.metrics.event(EventName(ev.Code))

	switch ev.Code {
	case EC_DevicePropChanged:
		s.props.Invalidate(uint16(ev.P(0)))
	case EC_StoreAdded, EC_StoreRemoved:
		s.invalidateTree()
	case EC_ObjectAdded:
		s.objects.Insert(ev.P(0))
	case EC_ObjectRemoved:
		s.objects.Remove(ev.P(0))
	case EC_ObjectInfoChanged:
		s.objects.invalidate(ev.P(0))
	}
	s.events.Push(ev)
}

// nikonEventEx uses the Nikon GetEventEx list.
type nikonEventEx struct{}

func (nikonEventEx) name() string { return "nikon-event-ex" }

func (nikonEventEx) supported(s *Session) bool {
	return !s.HasQuirk(QuirkInterruptEventsOnly) && s.Supports(OC_NIKON_GetEventEx)
}

func (nikonEventEx) poll(ctx context.Context, s *Session) ([]Event, error) {
	return s.NikonGetEventEx(ctx)
}

// legacyEvents uses the Nikon GetEvent list or Canon CheckEvent,
// depending on the vendor.
type legacyEvents struct{}

func (legacyEvents) name() string { return "legacy" }

func (legacyEvents) supported(s *Session) bool {
	if s.HasQuirk(QuirkInterruptEventsOnly) {
		return false
	}
	switch s.Vendor() {
	case VENDOR_NIKON:
		return s.Supports(OC_NIKON_GetEvent)
	case VENDOR_CANON:
		return s.Supports(OC_CANON_CheckEvent)
	}
	return false
}

func (legacyEvents) poll(ctx context.Context, s *Session) ([]Event, error) {
	if s.Vendor() == VENDOR_NIKON {
		return s.NikonGetEvent(ctx)
	}

	var evs []Event
	for i := 0; i < canonMaxEvents; i++ {
		ev, err := s.CanonCheckEvent(ctx)
		if err != nil {
			return evs, err
		}
		if ev == nil {
			break
		}
		evs = append(evs, *ev)
	}
	return evs, nil
}

// interruptEvents reads the asynchronous event channel of the
// transport.
type interruptEvents struct{}

func (interruptEvents) name() string { return "interrupt" }

func (interruptEvents) supported(s *Session) bool {
	_, ok := s.t.(EventReader)
	return ok
}

func (interruptEvents) poll(ctx context.Context, s *Session) ([]Event, error) {
	ev, err := s.t.(EventReader).ReadEvent(ctx, interruptPollTimeout)
	if errors.Is(err, ErrTimeout) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []Event{*ev}, nil
}
