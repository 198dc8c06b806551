package ptp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	retry "github.com/sethvargo/go-retry"
)

// RunTransaction runs a single PTP transaction. dest and src cannot be
// specified at the same time; which one is set selects the direction
// of the data phase. The request should fill out Code and Param as
// necessary; session and transaction ids are assigned here. The
// response is provided here, but usually only the return code is of
// interest. If the return code is an error, this function will return
// an RCError instance.
//
// Errors that are likely to affect future transactions are wrapped in
// Catastrophic. Such errors include lost transaction synchronization
// and link failures.
func (s *Session) RunTransaction(ctx context.Context, req *Container, rep *Container,
	dest DataSink, src DataSource, size int64) error {
	start := s.now()
	err := s.runTransaction(ctx, req, rep, dest, src, size)
	s.metrics.observeTransaction(s.OperationName(req.Code), err, s.now().Sub(start))
	if err != nil {
		var se SyncError
		var te *TransportError
		if errors.As(err, &se) || (errors.As(err, &te) && !IsRetryable(err)) {
			return Catastrophic{Err: err}
		}
		return err
	}
	return nil
}

// runTransaction is like RunTransaction, but without classifying the
// error.
func (s *Session) runTransaction(ctx context.Context, req *Container, rep *Container,
	dest DataSink, src DataSource, size int64) error {
	if dest != nil && src != nil {
		return fmt.Errorf("%w: both data source and sink given", ErrBadParam)
	}
	if len(req.Param) > maxParams {
		return fmt.Errorf("%w: %d parameters", ErrBadParam, len(req.Param))
	}
	if err := s.checkCancel(ctx); err != nil {
		s.cancel.Store(false)
		return err
	}

	dir := DataNone
	if src != nil {
		dir = DataSend
	} else if dest != nil {
		dir = DataGet
	}

	req.SessionID = s.sid
	req.TransactionID = s.nextTID()

	name := s.OperationName(req.Code)
	s.log.PTP.Debugf("request %s %v tid 0x%x (%s)", name, req.Param, req.TransactionID, dir)

	if err := s.t.SendRequest(ctx, req, dir); err != nil {
		s.log.PTP.Debugf("sendreq %s failed: %v", name, err)
		return err
	}

	guard := func() error { return s.checkCancel(ctx) }
	var err error
	switch dir {
	case DataSend:
		g := &guardedSource{next: src, cancel: guard}
		err = s.t.SendData(ctx, req, size, g)
		s.metrics.addData("send", g.n)
	case DataGet:
		g := &guardedSink{next: dest, cancel: guard}
		err = s.t.GetData(ctx, req, g)
		s.metrics.addData("get", g.n)
		if g.n > 0 {
			s.log.PTP.Debugf("%s data 0x%x bytes", name, g.n)
		}
	}
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			s.cancel.Store(false)
			s.log.PTP.Infof("cancelling %s tid 0x%x", name, req.TransactionID)
			if cerr := s.t.CancelRequest(context.Background(), req.TransactionID); cerr != nil {
				s.log.PTP.Warningf("cancel request failed: %v", cerr)
			}
			return ErrCancelled
		}
		return err
	}

	if err := s.readResponse(ctx, req, rep); err != nil {
		return err
	}
	rep.SessionID = req.SessionID
	s.log.PTP.Debugf("response %s %v tid 0x%x", ErrorString(rep.Code), rep.Param, rep.TransactionID)

	if rep.Code != RC_OK {
		return RCError(rep.Code)
	}
	return nil
}

// readResponse reads until the response matching req arrives.
// Replies to earlier transactions are skipped, up to MaxStaleReplies
// of them.
func (s *Session) readResponse(ctx context.Context, req *Container, rep *Container) error {
	stale := 0
	resyncs := 0
	for {
		if err := s.getResponse(ctx, rep); err != nil {
			return err
		}
		if rep.TransactionID == req.TransactionID {
			return nil
		}

		// Devices answer CloseSession with id 0 after they have
		// dropped the session already.
		if req.Code == OC_CloseSession && rep.TransactionID == 0 {
			return nil
		}

		if rep.TransactionID < req.TransactionID && stale < s.opts.MaxStaleReplies {
			stale++
			s.metrics.staleReply()
			s.log.PTP.Warningf("skipping stale response 0x%x for tid 0x%x, want 0x%x",
				rep.Code, rep.TransactionID, req.TransactionID)
			continue
		}

		// Left-over reply from a session the device still had open.
		if req.Code == OC_OpenSession && resyncs < s.opts.ResponseRetries {
			resyncs++
			s.log.PTP.Warningf("OpenSession: got tid 0x%x, want 0x%x; reading again",
				rep.TransactionID, req.TransactionID)
			continue
		}

		if s.opts.Fuzzing {
			return nil
		}
		return SyncError(fmt.Sprintf("transaction ID mismatch got %x want %x",
			rep.TransactionID, req.TransactionID))
	}
}

// getResponse reads one response container, retrying reads that
// timed out or found nothing.
func (s *Session) getResponse(ctx context.Context, rep *Container) error {
	delay := s.opts.RetryDelay
	b := retry.WithMaxRetries(uint64(s.opts.ResponseRetries), retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	}))

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if attempt > 0 {
			s.metrics.responseRetry()
			s.log.PTP.Debugf("retrying response read (%d)", attempt)
		}
		attempt++
		*rep = Container{}
		err := s.t.GetResponse(ctx, rep)
		if err != nil && IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// call runs a transaction without data phase.
func (s *Session) call(ctx context.Context, code uint16, params ...uint32) (*Container, error) {
	req := Container{Code: code, Param: params}
	var rep Container
	err := s.RunTransaction(ctx, &req, &rep, nil, nil, 0)
	return &rep, err
}

// GetData runs req with a receive data phase and decodes the payload
// into info.
func (s *Session) GetData(ctx context.Context, req *Container, info interface{}) error {
	buf := NewRecvBuffer()
	var rep Container
	if err := s.RunTransaction(ctx, req, &rep, buf, nil, 0); err != nil {
		return err
	}
	data := buf.Bytes()
	if err := Decode(bytes.NewReader(data), info); err != nil {
		return fmt.Errorf("decode %s: %w", s.OperationName(req.Code), err)
	}
	if s.log.Data.IsDebug() {
		s.log.Data.Debugf("%s decoded %#v", s.OperationName(req.Code), info)
	}
	return nil
}

// GetRawData runs req with a receive data phase and returns the
// payload.
func (s *Session) GetRawData(ctx context.Context, req *Container) ([]byte, *Container, error) {
	buf := NewRecvBuffer()
	var rep Container
	if err := s.RunTransaction(ctx, req, &rep, buf, nil, 0); err != nil {
		return nil, &rep, err
	}
	return buf.Bytes(), &rep, nil
}

// SendData encodes value and runs req with it as the send data phase.
func (s *Session) SendData(ctx context.Context, req *Container, rep *Container, value interface{}) error {
	var buf bytes.Buffer
	if err := Encode(&buf, value); err != nil {
		return err
	}
	if s.log.Data.IsDebug() {
		s.log.Data.Debugf("%s encoded %#v", s.OperationName(req.Code), value)
	}
	return s.RunTransaction(ctx, req, rep, nil, NewSendBuffer(buf.Bytes()), int64(buf.Len()))
}
