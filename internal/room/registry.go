package room

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Djttt/rpsls-battle/internal/apperr"
)

// Registry owns every room hosted by this process. Its lock only guards
// the map itself; room mutations take the room's own lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	stats  Recorder
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger, stats Recorder) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		stats:  stats,
		logger: logger,
	}
}

func (g *Registry) Create(host, hostAddr string, s Settings) (*Room, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	r := newRoom(uuid.NewString(), host, hostAddr, s, false, g.stats, g.logger)

	g.mu.Lock()
	g.rooms[r.id] = r
	g.mu.Unlock()

	g.logger.Info("room created",
		zap.String("room", r.id),
		zap.String("host", host),
		zap.Int("max_players", s.MaxPlayers),
		zap.Int("best_of", s.BestOf),
	)
	return r, nil
}

// CreateQuick builds the 2-player best-of-1 room behind a challenge.
func (g *Registry) CreateQuick(host, hostAddr, password string) (*Room, error) {
	r := newRoom(uuid.NewString(), host, hostAddr, Settings{
		MaxPlayers: 2,
		BestOf:     1,
		Password:   password,
	}, true, g.stats, g.logger)

	g.mu.Lock()
	g.rooms[r.id] = r
	g.mu.Unlock()

	g.logger.Info("challenge room created", zap.String("room", r.id), zap.String("host", host))
	return r, nil
}

func (g *Registry) Get(id string) (*Room, error) {
	g.mu.RLock()
	r, ok := g.rooms[id]
	g.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("room %s not found", id)
	}
	return r, nil
}

// Count reports how many rooms this instance currently hosts.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

func (g *Registry) Delete(id string) {
	g.mu.Lock()
	_, existed := g.rooms[id]
	delete(g.rooms, id)
	g.mu.Unlock()
	if existed {
		g.logger.Info("room deleted", zap.String("room", id))
	}
}
