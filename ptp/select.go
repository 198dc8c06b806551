package ptp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/gousb"

	"github.com/hanwen/go-ptp/log"
)

// findCandidate looks for an interface with a bulk in, bulk out and
// interrupt in endpoint, preferring the still image class.
func findCandidate(desc *gousb.DeviceDesc) (usbCandidate, bool) {
	var fallback *usbCandidate
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, a := range iface.AltSettings {
				if len(a.Endpoints) != 3 {
					continue
				}
				c := usbCandidate{config: cfg.Number, iface: iface.Number, alt: a.Alternate}
				for _, ep := range a.Endpoints {
					switch {
					case ep.Direction == gousb.EndpointDirectionIn && ep.TransferType == gousb.TransferTypeInterrupt:
						c.event = ep
					case ep.Direction == gousb.EndpointDirectionIn && ep.TransferType == gousb.TransferTypeBulk:
						c.fetch = ep
					case ep.Direction == gousb.EndpointDirectionOut && ep.TransferType == gousb.TransferTypeBulk:
						c.send = ep
					}
				}
				if c.send.Number == 0 || c.fetch.Number == 0 || c.event.Number == 0 {
					continue
				}
				if a.Class == gousb.ClassPTP {
					return c, true
				}
				// Some of the win8phones have vendor class
				// interfaces with the same layout.
				if fallback == nil {
					fallback = &c
				}
			}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return usbCandidate{}, false
}

// FindDevices opens every device that looks like a PTP device.
func FindDevices(uctx *gousb.Context, logs *log.Children) ([]*USBTransport, error) {
	if logs == nil {
		logs = log.Discard()
	}
	devs, err := uctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		_, ok := findCandidate(desc)
		return ok
	})
	if err != nil && len(devs) == 0 {
		return nil, &TransportError{Op: "open devices", Err: err}
	}

	var out []*USBTransport
	for _, d := range devs {
		c, _ := findCandidate(d.Desc)
		out = append(out, &USBTransport{
			dev:     d,
			desc:    d.Desc,
			cand:    c,
			Timeout: DefaultOptions().Timeout,
			log:     logs,
		})
	}
	return out, nil
}

// SelectDevice returns an opened transport for the device whose ID
// matches pattern. An empty pattern matches any device, but only one
// may be connected then.
func SelectDevice(uctx *gousb.Context, pattern string, logs *log.Children) (*USBTransport, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	cands, err := FindDevices(uctx, logs)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("no PTP devices found")
	}

	var found []*USBTransport
	var ids []string
	for _, cand := range cands {
		id, err := cand.ID()
		if err != nil || (pattern != "" && re.FindString(id) == "") {
			cand.Close()
			continue
		}
		found = append(found, cand)
		ids = append(ids, id)
	}

	if len(found) > 1 {
		for _, f := range found {
			f.Close()
		}
		return nil, fmt.Errorf("ambiguous devices: %s", strings.Join(ids, ", "))
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no device matched")
	}

	t := found[0]
	if err := t.Open(); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}
