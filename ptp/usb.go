package ptp

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gousb"

	"github.com/hanwen/go-ptp/log"
)

const rwBufSize = 0x4000

// USBTransport implements Transport over the bulk and interrupt pipes
// of a still image class interface. It accesses the libusb driver via
// gousb.
type USBTransport struct {
	dev   *gousb.Device
	desc  *gousb.DeviceDesc
	cand  usbCandidate
	cfg   *gousb.Config
	iface *gousb.Interface

	sendEP  *gousb.OutEndpoint
	fetchEP *gousb.InEndpoint
	eventEP *gousb.InEndpoint

	// Response that arrived in place of data or glued to its end.
	pending *Container

	// Timeout for a single read.
	Timeout time.Duration
	log     *log.Children
}

// usbCandidate is a PTP interface found in the descriptors.
type usbCandidate struct {
	config, iface, alt int
	send, fetch, event gousb.EndpointDesc
}

func (t *USBTransport) connected() bool {
	return t.sendEP != nil
}

// Open claims the interface and its endpoints.
func (t *USBTransport) Open() error {
	if t.connected() {
		return nil
	}
	if err := t.dev.SetAutoDetach(true); err != nil {
		t.log.USB.Debugf("auto detach: %v", err)
	}
	cfg, err := t.dev.Config(t.cand.config)
	if err != nil {
		return &TransportError{Op: "open configuration", Err: err}
	}

	iface, err := cfg.Interface(t.cand.iface, t.cand.alt)
	if err != nil {
		cfg.Close()
		return &TransportError{Op: "open interface", Err: err}
	}
	fail := func(op string, err error) error {
		iface.Close()
		cfg.Close()
		return &TransportError{Op: op, Err: err}
	}

	if t.sendEP, err = iface.OutEndpoint(t.cand.send.Number); err != nil {
		return fail("open send EP", err)
	}
	if t.fetchEP, err = iface.InEndpoint(t.cand.fetch.Number); err != nil {
		return fail("open fetch EP", err)
	}
	if t.cand.event.Number != 0 {
		if t.eventEP, err = iface.InEndpoint(t.cand.event.Number); err != nil {
			return fail("open event EP", err)
		}
	}
	t.cfg = cfg
	t.iface = iface
	t.log.USB.Debugf("opened %s config %d iface %d alt %d", t.desc.String(),
		t.cand.config, t.cand.iface, t.cand.alt)
	return nil
}

// Close releases the interface, and closes the device.
func (t *USBTransport) Close() error {
	if t.connected() {
		t.iface.Close()
		if err := t.cfg.Close(); err != nil {
			t.log.USB.Errorf("failed to close configuration: %s", err)
		}
		t.sendEP = nil
		t.fetchEP = nil
		t.eventEP = nil
	}
	return t.dev.Close()
}

// ID describes the device for matching with a pattern.
func (t *USBTransport) ID() (string, error) {
	manu, err := t.dev.Manufacturer()
	if err != nil {
		return "", &TransportError{Op: "manufacturer", Err: err}
	}
	prod, err := t.dev.Product()
	if err != nil {
		return "", &TransportError{Op: "product", Err: err}
	}
	serial, _ := t.dev.SerialNumber()
	return fmt.Sprintf("%s %s %s %s:%s", manu, prod, serial, t.desc.Vendor, t.desc.Product), nil
}

func (t *USBTransport) packetSize() int {
	return t.cand.fetch.MaxPacketSize
}

// Prints data going over the USB connection.
func (t *USBTransport) dataPrint(ep gousb.EndpointDesc, data []byte) {
	if !t.log.Data.IsDebug() {
		return
	}
	dir := "send"
	if ep.Direction == gousb.EndpointDirectionIn {
		dir = "recv"
	}
	t.log.Data.Debugf("%s: 0x%x bytes with ep 0x%x:\n%s", dir, len(data), uint8(ep.Address), hex.Dump(data))
}

func (t *USBTransport) readCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.Timeout)
}

func (t *USBTransport) bulkTransferIn(ctx context.Context, ep *gousb.InEndpoint, buf []byte) (int, error) {
	rctx, cancel := t.readCtx(ctx)
	defer cancel()
	n, err := ep.ReadContext(rctx, buf)
	if n > 0 {
		t.dataPrint(ep.Desc, buf[:n])
	}
	if err != nil {
		return n, t.mapErr(ctx, rctx, "bulk read", err)
	}
	return n, nil
}

func (t *USBTransport) bulkTransferOut(ctx context.Context, buf []byte) (int, error) {
	t.dataPrint(t.cand.send, buf)
	n, err := t.sendEP.WriteContext(ctx, buf)
	if err != nil {
		return n, t.mapErr(ctx, ctx, "bulk write", err)
	}
	return n, nil
}

func (t *USBTransport) mapErr(ctx, rctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, gousb.ErrorTimeout), errors.Is(err, gousb.TransferTimedOut):
		return ErrTimeout
	case ctx.Err() != nil:
		return ErrCancelled
	case rctx.Err() == context.DeadlineExceeded:
		return ErrTimeout
	}
	return &TransportError{Op: op, Err: err}
}

func (t *USBTransport) SendRequest(ctx context.Context, req *Container, dir DataPhase) error {
	c := usbBulkContainer{
		usbBulkHeader: usbBulkHeader{
			Length:        uint32(usbHdrLen + 4*len(req.Param)),
			Type:          USB_CONTAINER_COMMAND,
			Code:          req.Code,
			TransactionID: req.TransactionID,
		},
	}
	copy(c.Param[:], req.Param)

	var wData [usbBulkLen]byte
	buf := bytes.NewBuffer(wData[:0])
	binary.Write(buf, byteOrder, c.usbBulkHeader)
	binary.Write(buf, byteOrder, c.Param[:len(req.Param)])

	_, err := t.bulkTransferOut(ctx, buf.Bytes())
	return err
}

// fill reads from src until p is full or src is exhausted.
func fill(src DataSource, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		m, err := src.Get(p[n:])
		n += m
		if err == io.EOF {
			return n, io.EOF
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (t *USBTransport) SendData(ctx context.Context, req *Container, size int64, src DataSource) error {
	packetSize := t.cand.send.MaxPacketSize
	hdr := usbBulkHeader{
		Type:          USB_CONTAINER_DATA,
		Code:          req.Code,
		TransactionID: req.TransactionID,
	}
	if size+usbHdrLen > 0xFFFFFFFF {
		hdr.Length = 0xFFFFFFFF
	} else {
		hdr.Length = uint32(size + usbHdrLen)
	}

	buf := make([]byte, rwBufSize)
	byteOrder.PutUint32(buf[0:], hdr.Length)
	byteOrder.PutUint16(buf[4:], hdr.Type)
	byteOrder.PutUint16(buf[6:], hdr.Code)
	byteOrder.PutUint32(buf[8:], hdr.TransactionID)

	first := int64(packetSize - usbHdrLen)
	if first > size {
		first = size
	}
	n, err := fill(src, buf[usbHdrLen:usbHdrLen+int(first)])
	if err != nil && err != io.EOF {
		return err
	}
	if int64(n) < first {
		return &TransportError{Op: "send data", Err: io.ErrUnexpectedEOF}
	}
	if _, err := t.bulkTransferOut(ctx, buf[:usbHdrLen+n]); err != nil {
		return err
	}

	total := int64(usbHdrLen + n)
	left := size - int64(n)
	for left > 0 {
		chunk := buf
		if int64(len(chunk)) > left {
			chunk = buf[:left]
		}
		m, err := fill(src, chunk)
		if err != nil && err != io.EOF {
			return err
		}
		if m == 0 {
			return &TransportError{Op: "send data", Err: io.ErrUnexpectedEOF}
		}
		if _, err := t.bulkTransferOut(ctx, chunk[:m]); err != nil {
			return err
		}
		left -= int64(m)
		total += int64(m)
	}

	if total%int64(packetSize) == 0 {
		// write a short packet just to be sure.
		if _, err := t.bulkTransferOut(ctx, buf[:0]); err != nil {
			return err
		}
	}
	return nil
}

// decodeRep parses a response container.
func decodeRep(h *usbBulkHeader, rest []byte, rep *Container) error {
	if h.Type != USB_CONTAINER_RESPONSE {
		return SyncError(fmt.Sprintf("got type %d (%s) in response, want CONTAINER_RESPONSE.",
			h.Type, USB_names[int(h.Type)]))
	}
	rep.Code = h.Code
	rep.TransactionID = h.TransactionID
	rep.Param = nil

	restLen := int(h.Length) - usbHdrLen
	if restLen > len(rest) || restLen < 0 {
		return fmt.Errorf("%w: header specified 0x%x bytes, but have 0x%x",
			ErrMalformed, restLen, len(rest))
	}
	nParam := restLen / 4
	if nParam > maxParams {
		nParam = maxParams
	}
	for i := 0; i < nParam; i++ {
		rep.Param = append(rep.Param, byteOrder.Uint32(rest[4*i:]))
	}
	return nil
}

func splitHeader(data []byte) (*usbBulkHeader, []byte, error) {
	if len(data) < usbHdrLen {
		return nil, nil, fmt.Errorf("%w: container of 0x%x bytes", ErrMalformed, len(data))
	}
	h := &usbBulkHeader{
		Length:        byteOrder.Uint32(data[0:]),
		Type:          byteOrder.Uint16(data[4:]),
		Code:          byteOrder.Uint16(data[6:]),
		TransactionID: byteOrder.Uint32(data[8:]),
	}
	return h, data[usbHdrLen:], nil
}

func (t *USBTransport) stashResponse(h *usbBulkHeader, rest []byte) error {
	var rep Container
	if err := decodeRep(h, rest, &rep); err != nil {
		return err
	}
	t.pending = &rep
	return nil
}

func (t *USBTransport) GetData(ctx context.Context, req *Container, dest DataSink) error {
	packetSize := t.packetSize()
	buf := make([]byte, rwBufSize)
	n, err := t.bulkTransferIn(ctx, t.fetchEP, buf[:packetSize])
	if err != nil {
		return err
	}
	h, rest, err := splitHeader(buf[:n])
	if err != nil {
		return err
	}
	switch h.Type {
	case USB_CONTAINER_RESPONSE:
		// No data; the device answered right away.
		return t.stashResponse(h, rest)
	case USB_CONTAINER_DATA:
	default:
		return SyncError(fmt.Sprintf("got type %d (%s) in data phase", h.Type, USB_names[int(h.Type)]))
	}

	want := int64(-1)
	if h.Length != 0xFFFFFFFF {
		want = int64(h.Length) - usbHdrLen
	}
	var got int64
	put := func(p []byte) error {
		if want >= 0 && int64(len(p)) > want-got {
			p = p[:want-got]
		}
		got += int64(len(p))
		if len(p) == 0 {
			return nil
		}
		return dest.Put(p)
	}
	if err := put(rest); err != nil {
		return err
	}
	if n < packetSize {
		return nil
	}

	// A full packet: read until we have a short read.
	for {
		n, err := t.bulkTransferIn(ctx, t.fetchEP, buf)
		if err == ErrTimeout && want >= 0 && got >= want {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if want >= 0 && got >= want {
			// This should be a null packet, but on Linux + XHCI it's
			// actually the response instead.
			t.log.USB.Debugf("reusing final packet of 0x%x bytes", n)
			h, rest, err := splitHeader(buf[:n])
			if err != nil {
				return err
			}
			return t.stashResponse(h, rest)
		}
		if err := put(buf[:n]); err != nil {
			return err
		}
		if n%packetSize != 0 {
			return nil
		}
	}
}

func (t *USBTransport) GetResponse(ctx context.Context, rep *Container) error {
	if t.pending != nil {
		*rep = *t.pending
		t.pending = nil
		return nil
	}
	packetSize := t.packetSize()
	buf := make([]byte, packetSize)
	for {
		n, err := t.bulkTransferIn(ctx, t.fetchEP, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotReady
		}
		h, rest, err := splitHeader(buf[:n])
		if err != nil {
			return err
		}
		if h.Type != USB_CONTAINER_DATA {
			return decodeRep(h, rest, rep)
		}

		t.log.USB.Warningf("discarding unexpected data 0x%x bytes", h.Length)
		if n == packetSize {
			if err := t.drain(ctx); err != nil {
				return err
			}
		}
	}
}

// drain reads and drops data up to the next short packet.
func (t *USBTransport) drain(ctx context.Context) error {
	buf := make([]byte, rwBufSize)
	for {
		n, err := t.bulkTransferIn(ctx, t.fetchEP, buf)
		if err != nil {
			return err
		}
		if n%t.packetSize() != 0 || n == 0 {
			return nil
		}
	}
}

func (t *USBTransport) classRequest(out bool, req uint8, data []byte) (int, error) {
	rType := uint8(gousb.ControlClass | gousb.ControlInterface)
	if out {
		rType |= gousb.ControlOut
	} else {
		rType |= gousb.ControlIn
	}
	n, err := t.dev.Control(rType, req, 0, uint16(t.cand.iface), data)
	if err != nil {
		return n, &TransportError{Op: fmt.Sprintf("control 0x%x", req), Err: err}
	}
	return n, nil
}

// CancelRequest sends the still image class cancel request for tid.
func (t *USBTransport) CancelRequest(ctx context.Context, tid uint32) error {
	data := make([]byte, 6)
	byteOrder.PutUint16(data[0:], EC_CancelTransaction)
	byteOrder.PutUint32(data[2:], tid)
	t.pending = nil
	_, err := t.classRequest(true, USB_REQ_CANCEL, data)
	return err
}

// Reset issues a device reset class request.
func (t *USBTransport) Reset(ctx context.Context) error {
	t.pending = nil
	_, err := t.classRequest(true, USB_REQ_DEVICE_RESET, nil)
	return err
}

// DeviceStatus returns the response code of the class status request.
func (t *USBTransport) DeviceStatus(ctx context.Context) (uint16, error) {
	data := make([]byte, 4)
	n, err := t.classRequest(false, USB_REQ_GET_DEVICE_STATUS, data)
	if err != nil {
		return 0, err
	}
	if n < 4 {
		return 0, fmt.Errorf("%w: status of %d bytes", ErrMalformed, n)
	}
	return byteOrder.Uint16(data[2:]), nil
}

// ReadEvent reads the interrupt pipe.
func (t *USBTransport) ReadEvent(ctx context.Context, timeout time.Duration) (*Event, error) {
	if t.eventEP == nil {
		return nil, ErrTimeout
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	buf := make([]byte, t.cand.event.MaxPacketSize)
	n, err := t.eventEP.ReadContext(rctx, buf)
	if err != nil {
		return nil, t.mapErr(ctx, rctx, "event read", err)
	}
	t.dataPrint(t.cand.event, buf[:n])
	return decodeUSBEvent(buf[:n])
}
