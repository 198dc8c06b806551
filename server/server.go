package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/paulbellamy/ratecounter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/hanwen/go-ptp/log"
	"github.com/hanwen/go-ptp/ptp"
)

// Server polls a session for events and serves them to websocket
// clients, together with the property and object caches.
type Server struct {
	upgrader       websocket.Upgrader
	eventClients   map[*websocket.Conn]bool
	eventLock      sync.Mutex
	controlClients map[*websocket.Conn]bool
	controlLock    sync.Mutex

	sess     *ptp.Session
	sessLock sync.Mutex
	gatherer prometheus.Gatherer

	pollTicker  *MutableTicker
	pollNowChan chan bool
	eventChan   chan EventPayload
	eventRate   *ratecounter.RateCounter
	polled      *atomic.Int64
	dropped     *atomic.Int64

	eg  *errgroup.Group
	ctx context.Context
	log *log.Children
}

// New creates a server for sess. The server stops when ctx is done.
func New(sess *ptp.Session, logs *log.Children, ctx context.Context) *Server {
	if logs == nil {
		logs = log.Discard()
	}
	eg, egCtx := errgroup.WithContext(ctx)

	return &Server{
		eventClients:   map[*websocket.Conn]bool{},
		controlClients: map[*websocket.Conn]bool{},

		sess:     sess,
		gatherer: prometheus.DefaultGatherer,

		pollTicker:  NewMutableTicker(egCtx, time.Second),
		pollNowChan: make(chan bool, 1),
		eventChan:   make(chan EventPayload, 64),
		eventRate:   ratecounter.NewRateCounter(time.Second),
		polled:      atomic.NewInt64(0),
		dropped:     atomic.NewInt64(0),

		eg:  eg,
		ctx: egCtx,
		log: logs,
	}
}

// SetGatherer selects the registry served on /metrics.
func (s *Server) SetGatherer(g prometheus.Gatherer) {
	s.gatherer = g
}

// SetPollInterval changes the event poll interval.
func (s *Server) SetPollInterval(d time.Duration) {
	s.pollTicker.SetInterval(d)
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler {
		return log.HTTPLogHandler(s.log.HTTP, next)
	})
	r.Use(middleware.Recoverer)

	r.Get("/events", s.HandleEvents)
	r.Get("/control", s.HandleControl)
	r.Get("/props/{code}", s.HandleProp)
	r.Get("/objects/{storage}/{handle}", s.HandleObjects)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// HTTP handler / WebSocket

// EventPayload is the JSON form of one device event.
type EventPayload struct {
	Code   uint16    `json:"code"`
	Name   string    `json:"name"`
	Params []uint32  `json:"params"`
	Time   time.Time `json:"time"`
}

func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.HTTP.Errorf("events: failed to upgrade: %s", err)
		return
	}
	defer ws.Close()

	s.registerClient(&s.eventLock, s.eventClients, ws)
	defer s.unregisterClient(&s.eventLock, s.eventClients, ws)
	for {
		var mes struct{}
		if err := ws.ReadJSON(&mes); err != nil {
			s.log.HTTP.Debugf("events: client gone: %s", err)
			return
		}
	}
}

// ControlPayload is sent by control clients. Absent fields are left
// alone.
type ControlPayload struct {
	PollEnable   *bool        `json:"poll_enable,omitempty"`
	PollInterval *string      `json:"poll_interval,omitempty"`
	PollNow      *bool        `json:"poll_now,omitempty"`
	SetProp      *SetPropArgs `json:"set_prop,omitempty"`
}

type SetPropArgs struct {
	Code  uint16 `json:"code"`
	Value string `json:"value"`
}

// InfoPayload is broadcast to control clients every second.
type InfoPayload struct {
	Model        string `json:"model"`
	PollEnabled  bool   `json:"poll_enabled"`
	PollInterval string `json:"poll_interval"`
	EventRate    int64  `json:"event_rate"`
	Polls        int64  `json:"polls"`
	Dropped      int64  `json:"dropped"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) HandleControl(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.HTTP.Errorf("control: failed to upgrade: %s", err)
		return
	}
	defer ws.Close()

	s.registerClient(&s.controlLock, s.controlClients, ws)
	defer s.unregisterClient(&s.controlLock, s.controlClients, ws)
	for {
		var p ControlPayload
		if err := ws.ReadJSON(&p); err != nil {
			s.log.HTTP.Debugf("control: client gone: %s", err)
			return
		}
		if err := s.control(&p); err != nil {
			s.log.HTTP.Warningf("control: %s", err)
			s.sendInfo(ws, err)
		}
	}
}

func (s *Server) control(p *ControlPayload) error {
	if p.PollEnable != nil {
		if *p.PollEnable {
			s.log.Event.Debug("enable polling")
			s.pollTicker.Start()
		} else {
			s.log.Event.Debug("disable polling")
			s.pollTicker.Stop()
		}
	}

	if p.PollInterval != nil {
		d, err := time.ParseDuration(*p.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll interval %q: %w", *p.PollInterval, err)
		}
		if d < 10*time.Millisecond {
			return fmt.Errorf("poll interval %s too short", d)
		}
		s.pollTicker.SetInterval(d)
		s.log.Event.Debugf("set poll interval: %s", d)
	}

	if p.PollNow != nil && *p.PollNow {
		select {
		case s.pollNowChan <- true:
		default:
		}
	}

	if p.SetProp != nil {
		if err := s.setProp(p.SetProp.Code, p.SetProp.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) registerClient(mu *sync.Mutex, clients map[*websocket.Conn]bool, c *websocket.Conn) {
	mu.Lock()
	defer mu.Unlock()
	clients[c] = true
}

func (s *Server) unregisterClient(mu *sync.Mutex, clients map[*websocket.Conn]bool, c *websocket.Conn) {
	mu.Lock()
	defer mu.Unlock()
	delete(clients, c)
}

// PropPayload is the JSON form of a device property descriptor.
type PropPayload struct {
	Code     uint16      `json:"code"`
	Name     string      `json:"name"`
	DataType uint16      `json:"data_type"`
	Writable bool        `json:"writable"`
	Enabled  bool        `json:"enabled"`
	Current  interface{} `json:"current"`
	Default  interface{} `json:"default"`
	Form     interface{} `json:"form,omitempty"`
}

func NewPropPayload(d *ptp.DevicePropDesc, enabled bool) PropPayload {
	return PropPayload{
		Code:     d.DevicePropertyCode,
		Name:     ptp.PropName(d.DevicePropertyCode),
		DataType: uint16(d.DataType),
		Writable: d.GetSet == ptp.DPGS_GetSet,
		Enabled:  enabled,
		Current:  d.CurrentValue,
		Default:  d.FactoryDefaultValue,
		Form:     d.Form,
	}
}

func (s *Server) HandleProp(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.ParseUint(chi.URLParam(r, "code"), 0, 16)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := s.getProp(r.Context(), uint16(code))
	if err != nil {
		writeError(w, deviceStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ObjectPayload is the JSON form of a cached object.
type ObjectPayload struct {
	Handle   uint32    `json:"handle"`
	Storage  uint32    `json:"storage"`
	Parent   uint32    `json:"parent"`
	Name     string    `json:"name"`
	Dir      bool      `json:"dir"`
	Format   string    `json:"format"`
	Size     uint64    `json:"size"`
	Modified time.Time `json:"modified,omitempty"`
}

func NewObjectPayload(o *ptp.Object) ObjectPayload {
	return ObjectPayload{
		Handle:   o.Handle,
		Storage:  o.Info.StorageID,
		Parent:   o.Info.ParentObject,
		Name:     o.Name(),
		Dir:      o.IsDir(),
		Format:   ptp.FormatName(o.Info.ObjectFormat),
		Size:     o.Size64,
		Modified: o.Info.ModificationDate,
	}
}

func (s *Server) HandleObjects(w http.ResponseWriter, r *http.Request) {
	storage, err := strconv.ParseUint(chi.URLParam(r, "storage"), 0, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	handle, err := strconv.ParseUint(chi.URLParam(r, "handle"), 0, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	objs, err := s.listFolder(r.Context(), uint32(storage), uint32(handle))
	if err != nil {
		writeError(w, deviceStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, objs)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func deviceStatus(err error) int {
	var rc ptp.RCError
	if errors.As(err, &rc) {
		switch uint16(rc) {
		case ptp.RC_DevicePropNotSupported, ptp.RC_InvalidObjectHandle,
			ptp.RC_InvalidStorageId, ptp.RC_InvalidParentObject:
			return http.StatusNotFound
		case ptp.RC_DeviceBusy:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusBadGateway
}

// Workers

// Run polls the device and broadcasts events until the context is
// done or the device link fails.
func (s *Server) Run() error {
	s.eg.Go(s.workerPoll)
	s.eg.Go(s.workerBroadcastEvents)
	s.eg.Go(s.workerBroadcastInfo)
	return s.eg.Wait()
}

// ListenAndServe runs the workers and an HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	hs := &http.Server{Handler: s.Handler()}
	s.log.HTTP.Infof("listening on %s", l.Addr())

	s.eg.Go(func() error {
		<-s.ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(ctx)
	})
	s.eg.Go(func() error {
		if err := hs.Serve(l); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	return s.Run()
}

func (s *Server) workerPoll() error {
	for {
		select {
		case <-s.pollTicker.C:
			// Let's go!
		case <-s.pollNowChan:
			// Do it now
		case <-s.ctx.Done():
			return nil
		}

		evs, err := s.poll()
		for _, ev := range evs {
			s.eventRate.Incr(1)
			select {
			case s.eventChan <- ev:
			default:
				s.dropped.Inc()
				s.log.Event.Warningf("dropping event %s: clients too slow", ev.Name)
			}
		}
		if err == nil {
			continue
		}

		var fatal ptp.Catastrophic
		if errors.As(err, &fatal) {
			return fmt.Errorf("device lost: %w", err)
		}
		if errors.Is(err, ptp.RCError(ptp.RC_OperationNotSupported)) {
			s.log.Event.Warningf("device has no event source, polling disabled: %s", err)
			s.pollTicker.Stop()
			continue
		}
		s.log.Event.Warning(err)
	}
}

func (s *Server) workerBroadcastEvents() error {
	broadcast := func(ev EventPayload) {
		s.eventLock.Lock()
		defer s.eventLock.Unlock()

		j, err := json.Marshal(ev)
		if err != nil {
			s.log.Event.Errorf("failed to marshal event: %s", err)
			return
		}
		for c := range s.eventClients {
			if err := c.WriteMessage(websocket.TextMessage, j); err != nil {
				s.log.Event.Errorf("failed to send an event: %s", err)
			}
		}
	}

	for {
		select {
		case <-s.ctx.Done():
			return nil
		case ev := <-s.eventChan:
			broadcast(ev)
		}
	}
}

func (s *Server) info(err error) InfoPayload {
	s.sessLock.Lock()
	model := s.sess.DeviceInfo().Model
	s.sessLock.Unlock()

	p := InfoPayload{
		Model:        model,
		PollEnabled:  s.pollTicker.Enabled(),
		PollInterval: s.pollTicker.Interval().String(),
		EventRate:    s.eventRate.Rate(),
		Polls:        s.polled.Load(),
		Dropped:      s.dropped.Load(),
	}
	if err != nil {
		p.Error = err.Error()
	}
	return p
}

func (s *Server) sendInfo(c *websocket.Conn, err error) {
	s.controlLock.Lock()
	defer s.controlLock.Unlock()
	if err := c.WriteJSON(s.info(err)); err != nil {
		s.log.HTTP.Errorf("failed to send info: %s", err)
	}
}

func (s *Server) workerBroadcastInfo() error {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	broadcast := func() {
		j, err := json.Marshal(s.info(nil))
		if err != nil {
			s.log.HTTP.Errorf("failed to marshal payload: %s", err)
			return
		}

		s.controlLock.Lock()
		defer s.controlLock.Unlock()
		for c := range s.controlClients {
			if err := c.WriteMessage(websocket.TextMessage, j); err != nil {
				s.log.HTTP.Errorf("failed to send info: %s", err)
			}
		}
	}

	for {
		select {
		case <-s.ctx.Done():
			return nil
		case <-tick.C:
			// Let's go!
		}

		broadcast()
	}
}

// Thread-safe session access

func (s *Server) poll() ([]EventPayload, error) {
	s.sessLock.Lock()
	defer s.sessLock.Unlock()

	_, err := s.sess.Poll(s.ctx)
	s.polled.Inc()

	var out []EventPayload
	now := time.Now()
	for {
		ev, ok := s.sess.GetOne(0)
		if !ok {
			break
		}
		out = append(out, EventPayload{
			Code:   ev.Code,
			Name:   ptp.EventName(ev.Code),
			Params: ev.Param,
			Time:   now,
		})
	}
	return out, err
}

func (s *Server) getProp(ctx context.Context, code uint16) (PropPayload, error) {
	s.sessLock.Lock()
	defer s.sessLock.Unlock()

	d, err := s.sess.Props().Get(ctx, code)
	if err != nil {
		return PropPayload{}, err
	}
	return NewPropPayload(d, s.sess.Props().Enabled(code)), nil
}

func (s *Server) setProp(code uint16, value string) error {
	s.sessLock.Lock()
	defer s.sessLock.Unlock()

	d, err := s.sess.Props().Get(s.ctx, code)
	if err != nil {
		return err
	}
	v, err := ptp.ParseValue(d.DataType, value)
	if err != nil {
		return fmt.Errorf("property %s: %w", ptp.PropName(code), err)
	}
	if err := s.sess.Props().Set(s.ctx, code, v); err != nil {
		return fmt.Errorf("failed to set %s: %w", ptp.PropName(code), err)
	}
	s.log.HTTP.Debugf("set %s to %v", ptp.PropName(code), v)
	return nil
}

func (s *Server) listFolder(ctx context.Context, storage, handle uint32) ([]ObjectPayload, error) {
	s.sessLock.Lock()
	defer s.sessLock.Unlock()

	objs, err := s.sess.ListFolder(ctx, storage, handle)
	if err != nil {
		return nil, err
	}
	out := make([]ObjectPayload, 0, len(objs))
	for _, o := range objs {
		out = append(out, NewObjectPayload(o))
	}
	return out, nil
}
