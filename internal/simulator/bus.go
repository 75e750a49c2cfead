package simulator

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/chrisdamba/ridetopo/internal/network"
	"github.com/gammazero/deque"
	"github.com/samber/lo"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnfinished     = errors.New("requests still pending")
)

type waypoint struct {
	node    int
	arrival float64
	// passenger indices
	pickups  []int
	dropoffs []int
}

type passenger struct {
	request models.Request
	direct  int
	pickup  float64
	dropoff float64
}

// ZeroDetourBus is a single vehicle of unlimited capacity travelling one
// edge per time unit. A new request is either served by stops that lie on
// the planned route already, or the route is extended at its end, so nobody
// on board ever takes a detour.
//
// route[0] is the node reached last. Stops can be attached from route[1] on
// while the bus is moving, and at route[0] while it is idle.
type ZeroDetourBus struct {
	net            *network.Network
	computeVolumes bool

	route      deque.Deque[*waypoint]
	passengers []passenger
	insertions []models.InsertionRecord
	pending    int
	driven     int64
	now        float64
}

func NewZeroDetourBus(net *network.Network, networkType string, start int) (*ZeroDetourBus, error) {
	if start < 0 || start >= net.NumNodes() {
		return nil, fmt.Errorf("start node %d: %w", start, network.ErrUnknownNode)
	}
	b := &ZeroDetourBus{
		net:            net,
		computeVolumes: networkType != models.NetworkTypeNoVolComp,
	}
	b.route.PushBack(&waypoint{node: start})
	return b, nil
}

// Position is the node the bus reached last.
func (b *ZeroDetourBus) Position() int { return b.route.Front().node }

func (b *ZeroDetourBus) Idle() bool { return b.route.Len() == 1 }

// Pending is the number of stops not yet served.
func (b *ZeroDetourBus) Pending() int { return b.pending }

func (b *ZeroDetourBus) DistanceDriven() int64 { return b.driven }

// Advance moves the bus along its route up to time t, serving the stops of
// every waypoint reached on the way.
func (b *ZeroDetourBus) Advance(t float64) {
	for b.route.Len() > 1 && b.route.At(1).arrival <= t {
		b.route.PopFront()
		b.driven++
		b.serve(b.route.Front())
	}
	if t > b.now {
		b.now = t
	}
}

func (b *ZeroDetourBus) serve(wp *waypoint) {
	for _, p := range wp.pickups {
		b.passengers[p].pickup = wp.arrival
		b.pending--
	}
	for _, p := range wp.dropoffs {
		b.passengers[p].dropoff = wp.arrival
		b.pending--
	}
	wp.pickups, wp.dropoffs = nil, nil
}

func (b *ZeroDetourBus) find(node, from int) int {
	for k := from; k < b.route.Len(); k++ {
		if b.route.At(k).node == node {
			return k
		}
	}
	return -1
}

func (b *ZeroDetourBus) volume(from int) int64 {
	if !b.computeVolumes {
		return -1
	}
	seen := make(map[int]struct{})
	for k := from; k < b.route.Len(); k++ {
		seen[b.route.At(k).node] = struct{}{}
	}
	return int64(len(seen))
}

// extend appends a shortest path from the end of the route to target. The
// bus leaves the last node no earlier than t.
func (b *ZeroDetourBus) extend(target int, t float64) error {
	last := b.route.Back()
	path, err := b.net.Path(last.node, target)
	if err != nil {
		return err
	}
	clock := math.Max(last.arrival, t)
	for _, u := range path[1:] {
		clock++
		b.route.PushBack(&waypoint{node: u, arrival: clock})
	}
	return nil
}

// Request advances the bus to the request time and inserts the request.
// Requests must arrive in time order.
func (b *ZeroDetourBus) Request(req models.Request) error {
	if req.Origin == req.Destination {
		return fmt.Errorf("%w: request %d has origin equal to destination", ErrInvalidRequest, req.ID)
	}
	if req.Time < b.now {
		return fmt.Errorf("%w: request %d at %g before current time %g", ErrInvalidRequest, req.ID, req.Time, b.now)
	}
	direct, err := b.net.Distance(req.Origin, req.Destination)
	if err != nil {
		return err
	}
	if direct < 0 {
		return fmt.Errorf("request %d: %w", req.ID, network.ErrDisconnected)
	}

	b.Advance(req.Time)
	t := req.Time

	start := 1
	if b.Idle() {
		start = 0
	}
	i := b.find(req.Origin, start)
	j := -1
	if i >= 0 {
		j = b.find(req.Destination, i+1)
	}
	b.insertions = append(b.insertions, models.InsertionRecord{
		RequestID:      req.ID,
		Time:           t,
		StoplistLength: int64(b.pending),
		RouteVolume:    b.volume(start),
		RemainingRoute: int64(b.route.Len() - 1),
		PickupIndex:    int64(i),
		DropoffIndex:   int64(j),
		PickupEnRoute:  i >= 0,
		DropoffEnRoute: j >= 0,
	})

	idx := len(b.passengers)
	b.passengers = append(b.passengers, passenger{request: req, direct: direct})

	if i < 0 {
		if err := b.extend(req.Origin, t); err != nil {
			return err
		}
		i = b.route.Len() - 1
	}
	if i == 0 {
		// idle at the origin
		b.passengers[idx].pickup = t
	} else {
		wp := b.route.At(i)
		wp.pickups = append(wp.pickups, idx)
		b.pending++
	}

	if j < 0 {
		if err := b.extend(req.Destination, t); err != nil {
			return err
		}
		j = b.route.Len() - 1
	}
	wp := b.route.At(j)
	wp.dropoffs = append(wp.dropoffs, idx)
	b.pending++
	return nil
}

// Finish drives the remaining route to its end.
func (b *ZeroDetourBus) Finish() {
	b.Advance(math.Inf(1))
}

// SimulateAll serves all requests and drains the route.
func (b *ZeroDetourBus) SimulateAll(requests []models.Request) error {
	for _, req := range requests {
		if err := b.Request(req); err != nil {
			return err
		}
	}
	b.Finish()
	return nil
}

// Summary aggregates a finished simulation.
func (b *ZeroDetourBus) Summary() (models.PointSummary, error) {
	if b.pending > 0 {
		return models.PointSummary{}, fmt.Errorf("%w: %d stops", ErrUnfinished, b.pending)
	}
	n := float64(len(b.passengers))
	if n == 0 {
		return models.PointSummary{}, nil
	}

	var horizon float64
	for _, p := range b.passengers {
		horizon = math.Max(horizon, p.dropoff)
	}
	inVehicle := lo.SumBy(b.passengers, func(p passenger) float64 { return p.dropoff - p.pickup })
	direct := lo.SumBy(b.passengers, func(p passenger) int { return p.direct })

	s := models.PointSummary{
		NumRequests:        len(b.passengers),
		MeanWait:           lo.SumBy(b.passengers, func(p passenger) float64 { return p.pickup - p.request.Time }) / n,
		MeanInVehicle:      inVehicle / n,
		MeanDirectDistance: float64(direct) / n,
		MeanDetourRatio: lo.SumBy(b.passengers, func(p passenger) float64 {
			return (p.dropoff - p.pickup) / float64(p.direct)
		}) / n,
		MeanStoplistLength: float64(lo.SumBy(b.insertions, func(r models.InsertionRecord) int64 { return r.StoplistLength })) / n,
		MeanRouteVolume:    -1,
		PickupEnRouteFrac:  float64(lo.CountBy(b.insertions, func(r models.InsertionRecord) bool { return r.PickupEnRoute })) / n,
		DropoffEnRouteFrac: float64(lo.CountBy(b.insertions, func(r models.InsertionRecord) bool { return r.DropoffEnRoute })) / n,
		DistanceDriven:     b.driven,
		Horizon:            horizon,
	}
	if b.computeVolumes {
		s.MeanRouteVolume = float64(lo.SumBy(b.insertions, func(r models.InsertionRecord) int64 { return r.RouteVolume })) / n
	}
	if horizon > 0 {
		s.MeanOccupancy = inVehicle / horizon
	}
	if b.driven > 0 {
		s.Efficiency = float64(direct) / float64(b.driven)
	}
	return s, nil
}

// Records returns the per-request and per-insertion records of a finished
// simulation, stamped with the given point.
func (b *ZeroDetourBus) Records(runID, topology string, index int, x float64) ([]models.RequestRecord, []models.InsertionRecord) {
	requests := lo.Map(b.passengers, func(p passenger, _ int) models.RequestRecord {
		return models.RequestRecord{
			RunID:          runID,
			Topology:       topology,
			PointIndex:     int64(index),
			X:              x,
			RequestID:      p.request.ID,
			Origin:         int64(p.request.Origin),
			Destination:    int64(p.request.Destination),
			RequestTime:    p.request.Time,
			PickupTime:     p.pickup,
			DropoffTime:    p.dropoff,
			WaitTime:       p.pickup - p.request.Time,
			InVehicleTime:  p.dropoff - p.pickup,
			DirectDistance: int64(p.direct),
		}
	})
	insertions := lo.Map(b.insertions, func(r models.InsertionRecord, _ int) models.InsertionRecord {
		r.RunID = runID
		r.Topology = topology
		r.PointIndex = int64(index)
		r.X = x
		return r
	})
	return requests, insertions
}
