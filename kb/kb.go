package kb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/signalsfoundry/radioprop/model"
)

// ErrStationNotFound is returned for unknown station IDs.
var ErrStationNotFound = errors.New("station not found")

// FrequencyToleranceMHz is how close two frequencies must be to count as
// the same channel.
const FrequencyToleranceMHz = 0.0001

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
	EventStationAdded EventType = iota
	EventStationMoved
	EventStationRemoved
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type    EventType
	Station model.Station
}

// StationRegistry is an in-memory, thread-safe store for transmitters.
type StationRegistry struct {
	mu sync.RWMutex

	stations map[string]*model.Station

	nextSub int
	subs    map[int]func(Event)
}

// NewStationRegistry constructs an empty registry.
func NewStationRegistry() *StationRegistry {
	return &StationRegistry{
		stations: make(map[string]*model.Station),
		subs:     make(map[int]func(Event)),
	}
}

// AddStation validates and stores a station. It returns an error if the ID
// already exists.
func (r *StationRegistry) AddStation(s model.Station) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	if _, exists := r.stations[s.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("station with ID %q already exists", s.ID)
	}
	r.stations[s.ID] = &s
	subs := r.subscribersLocked()
	r.mu.Unlock()

	notify(subs, Event{Type: EventStationAdded, Station: s})
	return nil
}

// GetStation returns a copy of the station with the given ID.
func (r *StationRegistry) GetStation(id string) (model.Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stations[id]
	if !ok {
		return model.Station{}, fmt.Errorf("%w: %q", ErrStationNotFound, id)
	}
	return *s, nil
}

// RemoveStation deletes a station and notifies subscribers.
func (r *StationRegistry) RemoveStation(id string) error {
	r.mu.Lock()
	s, ok := r.stations[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrStationNotFound, id)
	}
	delete(r.stations, id)
	subs := r.subscribersLocked()
	r.mu.Unlock()

	notify(subs, Event{Type: EventStationRemoved, Station: *s})
	return nil
}

// ListStations returns a snapshot of all stations ordered by ID.
func (r *StationRegistry) ListStations() []model.Station {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]model.Station, 0, len(r.stations))
	for _, s := range r.stations {
		res = append(res, *s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// ByFrequency returns the stations transmitting on freqMHz, ordered by ID.
func (r *StationRegistry) ByFrequency(freqMHz float64) []model.Station {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.Station
	for _, s := range r.stations {
		if math.Abs(s.FrequencyMHz-freqMHz) <= FrequencyToleranceMHz {
			res = append(res, *s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// UpdateStationPosition moves a station, such as an airborne transmitter,
// and notifies subscribers.
func (r *StationRegistry) UpdateStationPosition(id string, pos model.Position) error {
	r.mu.Lock()
	s, ok := r.stations[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrStationNotFound, id)
	}
	s.Position = pos
	event := Event{
		Type:    EventStationMoved,
		Station: *s, // copy for safety
	}
	subs := r.subscribersLocked()
	r.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	notify(subs, event)
	return nil
}

// Subscribe registers a callback for registry events. It returns an
// unsubscribe function.
func (r *StationRegistry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *StationRegistry) subscribersLocked() []func(Event) {
	subs := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Event), e Event) {
	for _, sub := range subs {
		sub(e)
	}
}

// stationFile is the on-disk station list.
type stationFile struct {
	Stations []model.Station `json:"stations"`
}

// LoadStations decodes a JSON station list and adds every station to r.
// It returns the number of stations added.
func (r *StationRegistry) LoadStations(rd io.Reader) (int, error) {
	var f stationFile
	dec := json.NewDecoder(rd)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return 0, fmt.Errorf("decode stations: %w", err)
	}
	for i, s := range f.Stations {
		if err := r.AddStation(s); err != nil {
			return i, fmt.Errorf("station %d: %w", i, err)
		}
	}
	return len(f.Stations), nil
}

// LoadStationsFile reads a JSON station list from path.
func (r *StationRegistry) LoadStationsFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open stations %q: %w", path, err)
	}
	defer f.Close()
	return r.LoadStations(f)
}
