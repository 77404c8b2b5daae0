package zone

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tilerealm.gg/internal/protocol"
	"tilerealm.gg/internal/sim/tilemap"
	"tilerealm.gg/internal/sim/tuning"
)

type Config struct {
	ID         string
	DefaultMap string
	Tuning     tuning.Tuning
}

// MapProvider supplies tile maps by id. A failing provider is not fatal:
// unknown ids fall back to a generated default map.
type MapProvider interface {
	GetMap(id string) (*tilemap.Map, error)
}

type JoinRequest struct {
	Name      string
	Map       string
	SessionID string
	Resume    string // resume token to register for this participant
	Out       chan []byte
	Resp      chan JoinResponse
}

// AttachRequest re-binds a live participant to a new connection.
type AttachRequest struct {
	Resume    string
	SessionID string
	Out       chan []byte
	Resp      chan JoinResponse
}

type JoinResponse struct {
	OK      bool
	Welcome protocol.WelcomeMsg
}

// LeaveRequest reports a gone connection. Out identifies the connection so
// that a leave raced by a resume re-attach cannot tear down the fresh one;
// a nil Out (admin removal) always detaches.
type LeaveRequest struct {
	ID  string
	Out chan []byte
}

// TransferRequest moves a participant to another map at a tick boundary.
type TransferRequest struct {
	ID   string
	Map  string
	X, Y int
	Resp chan error
}

// SpawnRequest creates a server-owned participant (mob/NPC) with no client.
type SpawnRequest struct {
	Ch   string
	Name string
	Map  string
	X, Y int
	Resp chan string
}

// IntentEnvelope carries one decoded movement intent from the network path
// into the zone. It is the only way input reaches simulation state.
type IntentEnvelope struct {
	ParticipantID string
	Intent        Intent
}

type IntentKind int

const (
	IntentMove IntentKind = iota
	IntentFace
)

// Intent is the closed set of movement intents. X and Y are the client's
// claimed position; they are never trusted as a destination.
type Intent struct {
	Kind IntentKind
	X, Y int
	Dir  int
}

type clientState struct {
	Out       chan []byte
	SessionID string

	// outbox buffers this tick's outbound messages for pkg coalescing.
	outbox [][]byte

	// lastSent tracks the last field values sent per observed entity id,
	// for delta compression. Pruned on the roster-snapshot step.
	lastSent map[string]entityFields
}

type entityFields struct {
	Ch   string
	S    int
	D    int
	X, Y int
}

// Zone owns every piece of mutable simulation state. All of it is touched
// only from the Run goroutine; the channels below are the sole handoff from
// the network path.
type Zone struct {
	cfg Config
	log *zap.SugaredLogger

	tick atomic.Uint64

	provider MapProvider
	maps     map[string]*tilemap.Map

	participants map[string]*Participant
	order        []string // join order: the intent application order
	clients      map[string]*clientState
	byResume     map[string]string

	queues  *queueSet
	monitor *Monitor

	// pending maps a participant id to the wall-clock completion time of
	// its current traversal. At most one entry per participant.
	pending map[string]time.Time

	// detached holds participants whose connection dropped, keyed to the
	// detach time. They stay in the world until the linger window passes
	// so a resume re-attach finds them alive.
	detached map[string]time.Time

	// occupancy indexes mapID -> packed tile key -> participant id. A tile
	// is occupied from move acceptance until its occupant reserves another.
	occupancy map[string]map[int]string

	inbox    chan IntentEnvelope
	join     chan JoinRequest
	attach   chan AttachRequest
	leave    chan LeaveRequest
	transfer chan TransferRequest
	spawn    chan SpawnRequest
	stop     chan struct{}

	nextNum atomic.Uint64

	journal TickJournal
	audit   AuditTrail
	store   Store

	clock func() time.Time

	metrics atomic.Value // ZoneMetrics

	counters counters

	// per-tick scratch
	tickMoves      []RecordedMove
	tickViolations int
	toKick         []string
}

func New(cfg Config, provider MapProvider, log *zap.SugaredLogger) (*Zone, error) {
	cfg.Tuning.ApplyDefaults()
	if cfg.ID == "" {
		cfg.ID = "zone_1"
	}
	if cfg.DefaultMap == "" {
		cfg.DefaultMap = "overworld"
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	z := &Zone{
		cfg:          cfg,
		log:          log,
		provider:     provider,
		maps:         make(map[string]*tilemap.Map),
		participants: make(map[string]*Participant),
		clients:      make(map[string]*clientState),
		byResume:     make(map[string]string),
		queues:       newQueueSet(cfg.Tuning.MaxInputQueue),
		monitor:      NewMonitor(),
		pending:      make(map[string]time.Time),
		detached:     make(map[string]time.Time),
		occupancy:    make(map[string]map[int]string),
		inbox:        make(chan IntentEnvelope, 1024),
		join:         make(chan JoinRequest, 16),
		attach:       make(chan AttachRequest, 16),
		leave:        make(chan LeaveRequest, 64),
		transfer:     make(chan TransferRequest, 16),
		spawn:        make(chan SpawnRequest, 16),
		stop:         make(chan struct{}),
		clock:        time.Now,
	}
	z.metrics.Store(ZoneMetrics{})
	return z, nil
}

// Optional sinks; set before Run.
func (z *Zone) SetJournal(j TickJournal) { z.journal = j }
func (z *Zone) SetAudit(a AuditTrail)    { z.audit = a }
func (z *Zone) SetStore(s Store)         { z.store = s }

func (z *Zone) Inbox() chan<- IntentEnvelope     { return z.inbox }
func (z *Zone) Join() chan<- JoinRequest         { return z.join }
func (z *Zone) Attach() chan<- AttachRequest     { return z.attach }
func (z *Zone) Leave() chan<- LeaveRequest       { return z.leave }
func (z *Zone) Transfer() chan<- TransferRequest { return z.transfer }
func (z *Zone) Spawn() chan<- SpawnRequest       { return z.spawn }

func (z *Zone) ID() string { return z.cfg.ID }

// mapFor returns the cached map for id, loading it through the provider on
// first use. Provider failures degrade to a generated default map so a
// missing map store never fails a tick.
func (z *Zone) mapFor(id string) *tilemap.Map {
	if id == "" {
		id = z.cfg.DefaultMap
	}
	if m, ok := z.maps[id]; ok {
		return m
	}
	var m *tilemap.Map
	if z.provider != nil {
		loaded, err := z.provider.GetMap(id)
		if err != nil || loaded == nil {
			z.log.Warnw("map unavailable, using generated default", "map", id, "err", err)
		} else {
			m = loaded
		}
	}
	if m == nil {
		m = tilemap.GenerateDefault(id)
	}
	z.maps[id] = m
	return m
}

func (z *Zone) handleJoin(req JoinRequest) {
	m := z.mapFor(req.Map)
	x, y, ok := z.findSpawn(m)
	if !ok {
		z.log.Warnw("join rejected, map full", "map", m.ID, "name", req.Name)
		if req.Resp != nil {
			req.Resp <- JoinResponse{}
		}
		return
	}
	id := fmt.Sprintf("P%06d", z.nextNum.Add(1))

	p := &Participant{
		ID:         id,
		Name:       req.Name,
		Ch:         ChPlayer,
		MapID:      m.ID,
		X:          x,
		Y:          y,
		FromX:      x,
		FromY:      y,
		Dir:        protocol.DirDown,
		BaseStepMs: z.cfg.Tuning.BaseStepMs,
		StepMs:     z.cfg.Tuning.BaseStepMs,
		Resume:     req.Resume,
		joinSeq:    z.nextNum.Load(),
	}
	z.participants[id] = p
	z.order = append(z.order, id)
	z.setOccupant(m.ID, x, y, id)
	if req.Resume != "" {
		z.byResume[req.Resume] = id
	}
	if req.Out != nil {
		z.clients[id] = &clientState{
			Out:       req.Out,
			SessionID: req.SessionID,
			lastSent:  make(map[string]entityFields),
		}
	}

	resp := JoinResponse{OK: true, Welcome: z.welcomeFor(p, req.SessionID)}
	if req.Resp != nil {
		req.Resp <- resp
	}
}

func (z *Zone) handleAttach(req AttachRequest) {
	id, ok := z.byResume[req.Resume]
	p := z.participants[id]
	if !ok || p == nil {
		if req.Resp != nil {
			req.Resp <- JoinResponse{}
		}
		return
	}
	if old := z.clients[id]; old != nil {
		close(old.Out)
	}
	cl := &clientState{
		Out:       req.Out,
		SessionID: req.SessionID,
		lastSent:  make(map[string]entityFields),
	}
	z.clients[id] = cl
	delete(z.detached, id)
	if req.Resp != nil {
		req.Resp <- JoinResponse{OK: true, Welcome: z.welcomeFor(p, cl.SessionID)}
	}
}

func (z *Zone) welcomeFor(p *Participant, sessionID string) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:       protocol.TypeWelcome,
		ID:         p.ID,
		SessionID:  sessionID,
		Resume:     p.Resume,
		Map:        p.MapID,
		X:          p.X,
		Y:          p.Y,
		TickRateHz: z.cfg.Tuning.TickRateHz,
		ViewWidth:  z.cfg.Tuning.ViewWidth,
		ViewHeight: z.cfg.Tuning.ViewHeight,
	}
}

func (z *Zone) handleSpawn(req SpawnRequest) {
	m := z.mapFor(req.Map)
	ch := req.Ch
	if ch != ChMob && ch != ChNPC {
		ch = ChNPC
	}
	x, y := req.X, req.Y
	if !m.Walkable(x, y) || z.occupantAt(m.ID, x, y) != "" {
		var ok bool
		x, y, ok = z.findSpawn(m)
		if !ok {
			if req.Resp != nil {
				req.Resp <- ""
			}
			return
		}
	}
	id := fmt.Sprintf("E%06d", z.nextNum.Add(1))
	p := &Participant{
		ID:         id,
		Name:       req.Name,
		Ch:         ch,
		MapID:      m.ID,
		X:          x,
		Y:          y,
		FromX:      x,
		FromY:      y,
		Dir:        protocol.DirDown,
		BaseStepMs: z.cfg.Tuning.BaseStepMs,
		StepMs:     z.cfg.Tuning.BaseStepMs,
		joinSeq:    z.nextNum.Load(),
	}
	z.participants[id] = p
	z.order = append(z.order, id)
	z.setOccupant(m.ID, x, y, id)
	if req.Resp != nil {
		req.Resp <- id
	}
}

func (z *Zone) handleTransfer(req TransferRequest) {
	p := z.participants[req.ID]
	if p == nil {
		if req.Resp != nil {
			req.Resp <- fmt.Errorf("no such participant %q", req.ID)
		}
		return
	}
	m := z.mapFor(req.Map)
	x, y := req.X, req.Y
	if !m.Walkable(x, y) || z.occupantAt(m.ID, x, y) != "" {
		var ok bool
		x, y, ok = z.findSpawn(m)
		if !ok {
			if req.Resp != nil {
				req.Resp <- fmt.Errorf("map %q has no free tile", m.ID)
			}
			return
		}
	}

	z.clearOccupant(p.MapID, p.X, p.Y, p.ID)
	delete(z.pending, p.ID)
	z.queues.Remove(p.ID)
	p.MapID = m.ID
	p.X, p.Y = x, y
	p.FromX, p.FromY = x, y
	p.Moving = false
	z.setOccupant(m.ID, x, y, p.ID)

	z.queueMsg(p.ID, protocol.PosMsg{Type: protocol.TypePos, X: x, Y: y, T: 1})
	if req.Resp != nil {
		req.Resp <- nil
	}
}

// detachClient releases the connection of a gone client while the
// participant lingers in the world. A stale leave whose connection was
// already superseded by a re-attach is ignored.
func (z *Zone) detachClient(req LeaveRequest, now time.Time) {
	if cl := z.clients[req.ID]; cl != nil {
		if cl.Out != req.Out {
			return
		}
		close(cl.Out)
		delete(z.clients, req.ID)
	}
	if _, ok := z.detached[req.ID]; !ok {
		z.detached[req.ID] = now
		if p := z.participants[req.ID]; p != nil && z.store != nil {
			z.store.Checkpoint(Checkpoint{
				ParticipantID: req.ID,
				MapID:         p.MapID,
				X:             p.X,
				Y:             p.Y,
				Tick:          z.tick.Load(),
			})
		}
	}
}

// removeParticipant releases every piece of per-participant state. It runs
// only inside a tick, so teardown is atomic with respect to simulation.
func (z *Zone) removeParticipant(id string) {
	p := z.participants[id]
	if p == nil {
		return
	}
	if z.store != nil {
		z.store.Checkpoint(Checkpoint{
			ParticipantID: id,
			MapID:         p.MapID,
			X:             p.X,
			Y:             p.Y,
			Tick:          z.tick.Load(),
		})
	}
	z.clearOccupant(p.MapID, p.X, p.Y, id)
	delete(z.pending, id)
	delete(z.detached, id)
	z.queues.Remove(id)
	z.monitor.Remove(id)
	if p.Resume != "" {
		delete(z.byResume, p.Resume)
	}
	if cl := z.clients[id]; cl != nil {
		close(cl.Out)
		delete(z.clients, id)
	}
	delete(z.participants, id)
	for i, oid := range z.order {
		if oid == id {
			z.order = append(z.order[:i], z.order[i+1:]...)
			break
		}
	}
}

func (z *Zone) setOccupant(mapID string, x, y int, id string) {
	tiles := z.occupancy[mapID]
	if tiles == nil {
		tiles = make(map[int]string)
		z.occupancy[mapID] = tiles
	}
	tiles[tilemap.Key(x, y)] = id
}

func (z *Zone) clearOccupant(mapID string, x, y int, id string) {
	tiles := z.occupancy[mapID]
	if tiles != nil && tiles[tilemap.Key(x, y)] == id {
		delete(tiles, tilemap.Key(x, y))
	}
}

func (z *Zone) occupantAt(mapID string, x, y int) string {
	return z.occupancy[mapID][tilemap.Key(x, y)]
}

// findSpawn walks outward from the map spawn point to the nearest walkable,
// unoccupied tile. ok is false when the map has no free tile left.
func (z *Zone) findSpawn(m *tilemap.Map) (x, y int, ok bool) {
	sx, sy := m.SpawnX, m.SpawnY
	for r := 0; r < m.Width+m.Height; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if abs(dx)+abs(dy) != r {
					continue
				}
				x, y := sx+dx, sy+dy
				if m.Walkable(x, y) && z.occupantAt(m.ID, x, y) == "" {
					return x, y, true
				}
			}
		}
	}
	return 0, 0, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func manhattan(x1, y1, x2, y2 int) int {
	return abs(x1-x2) + abs(y1-y2)
}
