// Package state holds the console's transient cache of backend data.
//
// Every loader replaces its slice wholesale; there is no incremental merge.
// Concurrent writers are last-write-wins.
package state

import (
	"sync"
	"time"

	"github.com/livecommerce/console/internal/backend"
)

// AllProducts is the scripts filter value that selects every product.
const AllProducts int64 = 0

type AppState struct {
	mu sync.RWMutex

	products       []backend.Product
	scripts        []backend.Script
	scriptsFilter  int64
	scriptPersonas []backend.ScriptPersona
	voicePersonas  []backend.VoicePersona
	stats          *backend.Stats
	generating     map[int64]time.Time
	updatedAt      map[string]time.Time
}

func New() *AppState {
	return &AppState{
		products:       []backend.Product{},
		scripts:        []backend.Script{},
		scriptPersonas: []backend.ScriptPersona{},
		voicePersonas:  []backend.VoicePersona{},
		generating:     make(map[int64]time.Time),
		updatedAt:      make(map[string]time.Time),
	}
}

func (s *AppState) touch(key string) {
	s.updatedAt[key] = time.Now()
}

// UpdatedAt returns when a cache was last replaced; zero if never.
func (s *AppState) UpdatedAt(key string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt[key]
}

func (s *AppState) SetProducts(products []backend.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = nonNil(products)
	s.touch("products")
}

func (s *AppState) Products() []backend.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.products)
}

func (s *AppState) Product(id int64) (backend.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return backend.Product{}, false
}

// SetScripts replaces the script cache and records which product filter produced it.
func (s *AppState) SetScripts(filter int64, scripts []backend.Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = nonNil(scripts)
	s.scriptsFilter = filter
	s.touch("scripts")
}

func (s *AppState) Scripts() []backend.Script {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.scripts)
}

// ScriptsFilter returns the product id the script cache was loaded for, or AllProducts.
func (s *AppState) ScriptsFilter() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scriptsFilter
}

func (s *AppState) Script(id int64) (backend.Script, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sc := range s.scripts {
		if sc.ID == id {
			return sc, true
		}
	}
	return backend.Script{}, false
}

// PutScript replaces the cached copy of a script, keeping the product tags
// added by the all-products loader. Unknown scripts are ignored.
func (s *AppState) PutScript(script backend.Script) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.scripts {
		if s.scripts[i].ID == script.ID {
			if script.ProductName == "" {
				script.ProductName = s.scripts[i].ProductName
				script.ProductSKU = s.scripts[i].ProductSKU
			}
			s.scripts[i] = script
			return true
		}
	}
	return false
}

// SetScriptMP3 flips the cached lock flags of one script.
func (s *AppState) SetScriptMP3(id int64, has bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.scripts {
		if s.scripts[i].ID == id {
			s.scripts[i].SetMP3(has)
			return true
		}
	}
	return false
}

func (s *AppState) RemoveScript(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.scripts[:0:0]
	for _, sc := range s.scripts {
		if sc.ID != id {
			out = append(out, sc)
		}
	}
	s.scripts = out
}

func (s *AppState) SetScriptPersonas(p []backend.ScriptPersona) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scriptPersonas = nonNil(p)
	s.touch("script_personas")
}

func (s *AppState) ScriptPersonas() []backend.ScriptPersona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.scriptPersonas)
}

func (s *AppState) SetVoicePersonas(p []backend.VoicePersona) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voicePersonas = nonNil(p)
	s.touch("voice_personas")
}

func (s *AppState) VoicePersonas() []backend.VoicePersona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.voicePersonas)
}

func (s *AppState) SetStats(st *backend.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = st
	s.touch("stats")
}

func (s *AppState) Stats() *backend.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stats == nil {
		return nil
	}
	cp := *s.stats
	return &cp
}

// MarkGenerating records that an MP3 job is in flight for the scripts.
func (s *AppState) MarkGenerating(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, id := range ids {
		s.generating[id] = now
	}
}

func (s *AppState) ClearGenerating(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.generating, id)
	}
}

func (s *AppState) IsGenerating(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.generating[id]
	return ok
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
