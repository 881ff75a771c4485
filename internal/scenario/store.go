// Package scenario adapts the external scenario content store: read-only
// lookup of scene/choice graphs by id. Content loads once at startup; the
// engine never writes it.
package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/SaranshG2501/LifePath-sub000/pkg/interfaces"
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// Store is an in-memory scenario catalog.
type Store struct {
	mu        sync.RWMutex
	scenarios map[string]*types.Scenario
}

// NewStore creates a store preloaded with the built-in sample scenario.
func NewStore() *Store {
	s := &Store{scenarios: make(map[string]*types.Scenario)}
	s.Add(sampleScenario())
	return s
}

// Add registers a scenario, replacing any previous one with the same id.
func (s *Store) Add(sc *types.Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios[sc.ID] = sc
}

// LoadFile merges scenarios from a JSON file into the catalog.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}

	var scenarios []*types.Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range scenarios {
		s.scenarios[sc.ID] = sc
	}

	log.Printf("scenario: loaded %d scenarios from %s", len(scenarios), path)
	return nil
}

// GetScenario returns a scenario by id.
func (s *Store) GetScenario(ctx context.Context, scenarioID string) (*types.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenarios[scenarioID]
	if !ok {
		return nil, fmt.Errorf("%w: scenario %s", types.ErrNotFound, scenarioID)
	}
	return sc, nil
}

// GetScene returns one scene of a scenario's choice graph.
func (s *Store) GetScene(ctx context.Context, scenarioID, sceneID string) (*types.Scene, error) {
	sc, err := s.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	scene, ok := sc.Scenes[sceneID]
	if !ok {
		return nil, fmt.Errorf("%w: scene %s in scenario %s", types.ErrNotFound, sceneID, scenarioID)
	}
	return &scene, nil
}

var _ interfaces.ScenarioStore = (*Store)(nil)
