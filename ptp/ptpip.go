package ptp

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"

	"github.com/hanwen/go-ptp/log"
)

// PTP/IP packet types.
const (
	PTPIP_INIT_COMMAND_REQUEST = 1
	PTPIP_INIT_COMMAND_ACK     = 2
	PTPIP_INIT_EVENT_REQUEST   = 3
	PTPIP_INIT_EVENT_ACK       = 4
	PTPIP_INIT_FAIL            = 5
	PTPIP_CMD_REQUEST          = 6
	PTPIP_CMD_RESPONSE         = 7
	PTPIP_EVENT                = 8
	PTPIP_START_DATA_PACKET    = 9
	PTPIP_DATA_PACKET          = 10
	PTPIP_CANCEL_TRANSACTION   = 11
	PTPIP_END_DATA_PACKET      = 12
	PTPIP_PING                 = 13
	PTPIP_PONG                 = 14
)

// PTPIPPort is the IANA port of PTP/IP.
const PTPIPPort = "15740"

const (
	ptpipHdrLen     = 8
	ptpipWriteBlock = 65536
	ptpipMaxPacket  = 1 << 26
	ptpipVersion    = 0x00010000 // major 1, minor 0
)

// IPTransport implements Transport over the PTP/IP command and event
// connections.
type IPTransport struct {
	cmd    net.Conn
	evt    net.Conn
	connID uint32
	guid   uuid.UUID

	// CameraName is the friendly name from the command ack.
	CameraName string
	// Timeout for a single read.
	Timeout time.Duration

	pending *Container
	log     *log.Children
}

func newIPTransport(cmd net.Conn, logs *log.Children) *IPTransport {
	if logs == nil {
		logs = log.Discard()
	}
	return &IPTransport{
		cmd:     cmd,
		guid:    uuid.New(),
		Timeout: DefaultOptions().Timeout,
		log:     logs,
	}
}

// DialIP connects to a PTP/IP responder at addr, which may omit the
// port, and runs the init handshake on both connections.
func DialIP(ctx context.Context, addr string, logs *log.Children) (*IPTransport, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, PTPIPPort)
	}
	var d net.Dialer
	cmd, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "dial " + addr, Err: err}
	}
	t := newIPTransport(cmd, logs)
	host, _ := os.Hostname()
	if err := t.initCommand(ctx, host); err != nil {
		cmd.Close()
		return nil, err
	}
	evt, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		cmd.Close()
		return nil, &TransportError{Op: "dial event " + addr, Err: err}
	}
	if err := t.initEvent(ctx, evt); err != nil {
		t.Close()
		return nil, err
	}
	t.log.USB.Infof("PTP/IP connected to %q at %s", t.CameraName, addr)
	return t, nil
}

func (t *IPTransport) deadline(ctx context.Context, timeout time.Duration) time.Time {
	if timeout <= 0 {
		timeout = t.Timeout
	}
	var dl time.Time
	if timeout > 0 {
		dl = time.Now().Add(timeout)
	}
	if cdl, ok := ctx.Deadline(); ok && (dl.IsZero() || cdl.Before(dl)) {
		dl = cdl
	}
	return dl
}

func (t *IPTransport) mapErr(ctx context.Context, op string, err error) error {
	var ne net.Error
	switch {
	case ctx.Err() != nil:
		return ErrCancelled
	case errors.As(err, &ne) && ne.Timeout():
		return ErrTimeout
	}
	return &TransportError{Op: op, Err: err}
}

func (t *IPTransport) dataPrint(dir string, data []byte) {
	if !t.log.Data.IsDebug() {
		return
	}
	t.log.Data.Debugf("ptpip %s: 0x%x bytes:\n%s", dir, len(data), hex.Dump(data))
}

func (t *IPTransport) writePacket(ctx context.Context, conn net.Conn, typ uint32, payload []byte) error {
	buf := make([]byte, ptpipHdrLen+len(payload))
	byteOrder.PutUint32(buf[0:], uint32(len(buf)))
	byteOrder.PutUint32(buf[4:], typ)
	copy(buf[ptpipHdrLen:], payload)
	t.dataPrint("send", buf)

	conn.SetWriteDeadline(t.deadline(ctx, 0))
	if _, err := conn.Write(buf); err != nil {
		return t.mapErr(ctx, "ptpip write", err)
	}
	return nil
}

func (t *IPTransport) readPacket(ctx context.Context, conn net.Conn, timeout time.Duration) (uint32, []byte, error) {
	conn.SetReadDeadline(t.deadline(ctx, timeout))
	var hdr [ptpipHdrLen]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return 0, nil, t.mapErr(ctx, "ptpip read", err)
	}
	n := byteOrder.Uint32(hdr[0:])
	typ := byteOrder.Uint32(hdr[4:])
	if n < ptpipHdrLen || n > ptpipMaxPacket {
		return 0, nil, fmt.Errorf("%w: ptpip packet length 0x%x", ErrMalformed, n)
	}
	payload := make([]byte, n-ptpipHdrLen)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return 0, nil, t.mapErr(ctx, "ptpip read", err)
	}
	t.dataPrint("recv", append(hdr[:], payload...))
	return typ, payload, nil
}

func encodeUCS2(s string) []byte {
	units := append(utf16.Encode([]rune(s)), 0)
	out := make([]byte, 2*len(units))
	for i, u := range units {
		byteOrder.PutUint16(out[2*i:], u)
	}
	return out
}

func decodeUCS2(b []byte) string {
	var units []uint16
	for i := 0; i+1 < len(b); i += 2 {
		u := byteOrder.Uint16(b[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

func (t *IPTransport) initCommand(ctx context.Context, host string) error {
	var payload []byte
	payload = append(payload, t.guid[:]...)
	payload = append(payload, encodeUCS2(host)...)
	payload = binary.LittleEndian.AppendUint32(payload, ptpipVersion)
	if err := t.writePacket(ctx, t.cmd, PTPIP_INIT_COMMAND_REQUEST, payload); err != nil {
		return err
	}

	typ, data, err := t.readPacket(ctx, t.cmd, 0)
	if err != nil {
		return err
	}
	switch typ {
	case PTPIP_INIT_COMMAND_ACK:
	case PTPIP_INIT_FAIL:
		// likely reason is permission denied
		return RCError(RC_AccessDenied)
	default:
		return SyncError(fmt.Sprintf("ptpip: got packet type %d, want init command ack", typ))
	}
	if len(data) < 20 {
		return fmt.Errorf("%w: init command ack of %d bytes", ErrMalformed, len(data))
	}
	t.connID = byteOrder.Uint32(data[0:])
	t.CameraName = decodeUCS2(data[20:])
	return nil
}

func (t *IPTransport) initEvent(ctx context.Context, evt net.Conn) error {
	t.evt = evt
	payload := make([]byte, 4)
	byteOrder.PutUint32(payload, t.connID)
	if err := t.writePacket(ctx, evt, PTPIP_INIT_EVENT_REQUEST, payload); err != nil {
		return err
	}
	typ, _, err := t.readPacket(ctx, evt, 0)
	if err != nil {
		return err
	}
	if typ != PTPIP_INIT_EVENT_ACK {
		return SyncError(fmt.Sprintf("ptpip: got packet type %d, want init event ack", typ))
	}
	return nil
}

func (t *IPTransport) SendRequest(ctx context.Context, req *Container, dir DataPhase) error {
	payload := make([]byte, 10+4*len(req.Param))
	phase := uint32(1)
	if dir == DataSend {
		phase = 2
	}
	byteOrder.PutUint32(payload[0:], phase)
	byteOrder.PutUint16(payload[4:], req.Code)
	byteOrder.PutUint32(payload[6:], req.TransactionID)
	for i, p := range req.Param {
		byteOrder.PutUint32(payload[10+4*i:], p)
	}
	return t.writePacket(ctx, t.cmd, PTPIP_CMD_REQUEST, payload)
}

func (t *IPTransport) SendData(ctx context.Context, req *Container, size int64, src DataSource) error {
	start := make([]byte, 12)
	byteOrder.PutUint32(start[0:], req.TransactionID)
	byteOrder.PutUint32(start[4:], uint32(size))
	byteOrder.PutUint32(start[8:], uint32(uint64(size)>>32))
	if err := t.writePacket(ctx, t.cmd, PTPIP_START_DATA_PACKET, start); err != nil {
		return err
	}

	buf := make([]byte, 4+ptpipWriteBlock)
	byteOrder.PutUint32(buf, req.TransactionID)
	left := size
	for {
		chunk := int64(ptpipWriteBlock)
		typ := uint32(PTPIP_DATA_PACKET)
		if left <= chunk {
			chunk = left
			typ = PTPIP_END_DATA_PACKET
		}
		n, err := fill(src, buf[4:4+chunk])
		if err != nil && err != io.EOF {
			return err
		}
		if int64(n) < chunk {
			return &TransportError{Op: "ptpip send data", Err: io.ErrUnexpectedEOF}
		}
		if err := t.writePacket(ctx, t.cmd, typ, buf[:4+n]); err != nil {
			return err
		}
		left -= chunk
		if typ == PTPIP_END_DATA_PACKET {
			return nil
		}
	}
}

func decodeIPResponse(data []byte, rep *Container) error {
	if len(data) < 6 {
		return fmt.Errorf("%w: response of %d bytes", ErrMalformed, len(data))
	}
	rep.Code = byteOrder.Uint16(data[0:])
	rep.TransactionID = byteOrder.Uint32(data[2:])
	rep.Param = nil
	np := (len(data) - 6) / 4
	if np > maxParams {
		np = maxParams
	}
	for i := 0; i < np; i++ {
		rep.Param = append(rep.Param, byteOrder.Uint32(data[6+4*i:]))
	}
	return nil
}

func (t *IPTransport) GetData(ctx context.Context, req *Container, dest DataSink) error {
	typ, data, err := t.readPacket(ctx, t.cmd, 0)
	if err != nil {
		return err
	}
	if typ == PTPIP_CMD_RESPONSE {
		// No data transfer due to an error.
		var rep Container
		if err := decodeIPResponse(data, &rep); err != nil {
			return err
		}
		t.pending = &rep
		return nil
	}
	if typ != PTPIP_START_DATA_PACKET {
		return SyncError(fmt.Sprintf("ptpip: got packet type %d, want start data", typ))
	}
	if len(data) >= 12 {
		total := uint64(byteOrder.Uint32(data[4:])) | uint64(byteOrder.Uint32(data[8:]))<<32
		t.log.USB.Debugf("ptpip data of 0x%x bytes", total)
	}

	for {
		typ, data, err := t.readPacket(ctx, t.cmd, 0)
		if err != nil {
			return err
		}
		switch typ {
		case PTPIP_DATA_PACKET, PTPIP_END_DATA_PACKET:
			if len(data) < 4 {
				return fmt.Errorf("%w: data packet of %d bytes", ErrMalformed, len(data))
			}
			if len(data) > 4 {
				if err := dest.Put(data[4:]); err != nil {
					return err
				}
			}
			if typ == PTPIP_END_DATA_PACKET {
				return nil
			}
		case PTPIP_CMD_RESPONSE:
			var rep Container
			if err := decodeIPResponse(data, &rep); err != nil {
				return err
			}
			t.pending = &rep
			return nil
		default:
			return SyncError(fmt.Sprintf("ptpip: got packet type %d in data phase", typ))
		}
	}
}

func (t *IPTransport) GetResponse(ctx context.Context, rep *Container) error {
	if t.pending != nil {
		*rep = *t.pending
		t.pending = nil
		return nil
	}
	for {
		typ, data, err := t.readPacket(ctx, t.cmd, 0)
		if err != nil {
			return err
		}
		switch typ {
		case PTPIP_END_DATA_PACKET:
			t.log.USB.Debugf("skipping end data packet")
			continue
		case PTPIP_CMD_RESPONSE:
			return decodeIPResponse(data, rep)
		}
		return SyncError(fmt.Sprintf("ptpip: got packet type %d, want response", typ))
	}
}

func (t *IPTransport) CancelRequest(ctx context.Context, tid uint32) error {
	t.pending = nil
	payload := make([]byte, 4)
	byteOrder.PutUint32(payload, tid)
	return t.writePacket(ctx, t.cmd, PTPIP_CANCEL_TRANSACTION, payload)
}

// ReadEvent reads the event connection. Pings are answered on the
// way.
func (t *IPTransport) ReadEvent(ctx context.Context, timeout time.Duration) (*Event, error) {
	if t.evt == nil {
		return nil, ErrTimeout
	}
	for {
		typ, data, err := t.readPacket(ctx, t.evt, timeout)
		if err != nil {
			return nil, err
		}
		switch typ {
		case PTPIP_PING:
			if err := t.writePacket(ctx, t.evt, PTPIP_PONG, nil); err != nil {
				return nil, err
			}
			continue
		case PTPIP_EVENT:
		default:
			return nil, SyncError(fmt.Sprintf("ptpip: got packet type %d on event connection", typ))
		}
		if len(data) < 6 {
			return nil, fmt.Errorf("%w: event of %d bytes", ErrMalformed, len(data))
		}
		ev := &Event{
			Code:          byteOrder.Uint16(data[0:]),
			TransactionID: byteOrder.Uint32(data[2:]),
		}
		for i := 6; i+4 <= len(data) && len(ev.Param) < maxParams; i += 4 {
			ev.Param = append(ev.Param, byteOrder.Uint32(data[i:]))
		}
		return ev, nil
	}
}

func (t *IPTransport) Close() error {
	var err error
	if t.evt != nil {
		err = t.evt.Close()
	}
	if cerr := t.cmd.Close(); cerr != nil {
		err = cerr
	}
	return err
}
