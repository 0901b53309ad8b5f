package main

import (
	"fmt"
	"sync"

	"github.com/decred/slog"

	"github.com/opencardroom/pokerd/pkg/escrow"
	"github.com/opencardroom/pokerd/pkg/persistence"
	"github.com/opencardroom/pokerd/pkg/room"
	"github.com/opencardroom/pokerd/pkg/table"
)

// registry owns every table's Room, keyed by table ID. Dynamic table
// creation/listing over REST is out of scope (spec.md §1); tables are
// configured once at startup and run for the process lifetime.
type registry struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room
	esc   escrow.Client
	store persistence.Store
	log   slog.Logger
}

func newRegistry(esc escrow.Client, store persistence.Store, log slog.Logger) *registry {
	return &registry{
		rooms: map[string]*room.Room{},
		esc:   esc,
		store: store,
		log:   log,
	}
}

// open constructs and starts a Room for cfg, running its loop in a new
// goroutine.
func (r *registry) open(cfg table.Config) (*room.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rooms[cfg.ID]; exists {
		return nil, fmt.Errorf("registry: table %q already open", cfg.ID)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rm := room.New(cfg, r.esc, r.store, r.log)
	r.rooms[cfg.ID] = rm
	go rm.Run()
	return rm, nil
}

func (r *registry) get(tableID string) (*room.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[tableID]
	return rm, ok
}

// stopAll signals every open table's Room to exit (events still queued are
// not processed), and waits for each loop to finish.
func (r *registry) stopAll() {
	r.mu.Lock()
	rooms := make([]*room.Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.Unlock()
	for _, rm := range rooms {
		rm.Stop()
	}
}
