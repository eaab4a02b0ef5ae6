// Package store persists trust rules, one JSON file per profile plus a
// shared global file, and serves the engine's rule lookups from an
// in-memory cache.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/agentwarden/warden/internal/fileutil"
	"github.com/agentwarden/warden/internal/logger"
	"github.com/agentwarden/warden/internal/trust"
)

var log = logger.New("store")

// DefaultProfile is used when the caller does not name a profile.
const DefaultProfile = "default"

// contextFile is the per-profile rule file name.
const contextFile = "context.json"

// Scope addresses one rule file: a named profile, or the global scope
// shared by every profile.
type Scope struct {
	profile string
	global  bool
}

// ProfileScope addresses the rules of one profile; an empty name means
// DefaultProfile.
func ProfileScope(name string) Scope {
	if name == "" {
		name = DefaultProfile
	}
	return Scope{profile: name}
}

// GlobalScope addresses the rules shared by every profile.
func GlobalScope() Scope { return Scope{global: true} }

// IsGlobal reports whether the scope is the shared global one.
func (s Scope) IsGlobal() bool { return s.global }

// Profile returns the profile name, or "" for the global scope.
func (s Scope) Profile() string { return s.profile }

func (s Scope) String() string {
	if s.global {
		return "global"
	}
	return "profile " + s.profile
}

// key returns the cache key. Prefixed so a profile literally named
// "global" cannot collide with the global scope.
func (s Scope) key() string {
	if s.global {
		return "g"
	}
	return "p:" + s.profile
}

// StoreError wraps an I/O or serialization failure against a rule file.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// Store reads and mutates persisted trust rules.
//
// Cached configs are treated as immutable: mutations clone, swap the
// cache pointer, then persist, so readers never observe a half-applied
// change. A per-scope mutex serializes each load, mutate, save sequence
// within the process. Writers in other processes are not coordinated;
// the last writer wins.
type Store struct {
	profileRoot string
	globalPath  string

	mu    sync.RWMutex
	cache map[string]*trust.Config
	locks map[string]*sync.Mutex
}

// New creates a store with per-profile files under profileRoot and the
// global scope file at globalPath.
func New(profileRoot, globalPath string) *Store {
	return &Store{
		profileRoot: profileRoot,
		globalPath:  globalPath,
		cache:       map[string]*trust.Config{},
		locks:       map[string]*sync.Mutex{},
	}
}

// Path returns the file backing scope.
func (s *Store) Path(scope Scope) string {
	if scope.IsGlobal() {
		return s.globalPath
	}
	return filepath.Join(s.profileRoot, scope.Profile(), contextFile)
}

// Load returns the config for scope, reading the file on first use.
// A missing file yields an empty config. A corrupt or unreadable file
// logs a warning and also yields an empty config: decisions must stay
// available, and an empty config grants no trust. The returned config
// is shared; callers must not mutate it.
func (s *Store) Load(scope Scope) *trust.Config {
	s.mu.RLock()
	cfg, ok := s.cache[scope.key()]
	s.mu.RUnlock()
	if ok {
		return cfg
	}

	cfg = s.read(scope)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[scope.key()]; ok {
		return existing
	}
	s.cache[scope.key()] = cfg
	return cfg
}

// ConfigFor returns a deep copy of the scope's config, safe to mutate.
func (s *Store) ConfigFor(scope Scope) *trust.Config {
	return s.Load(scope).Clone()
}

func (s *Store) read(scope Scope) *trust.Config {
	if !scope.IsGlobal() && !validProfileName(scope.Profile()) {
		log.Warn("invalid profile name %q, treating as empty trust config", scope.Profile())
		return trust.NewConfig()
	}

	path := s.Path(scope)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return trust.NewConfig()
	}
	if err != nil {
		log.Warn("cannot read %s: %v, treating as empty trust config", path, err)
		return trust.NewConfig()
	}

	cfg := trust.NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Warn("corrupt trust config %s: %v, treating as empty trust config", path, err)
		return trust.NewConfig()
	}
	if cfg.TrustedCommands == nil {
		cfg.TrustedCommands = map[trust.Tool][]trust.Rule{}
	}
	return cfg
}

// save writes cfg for scope. Callers hold the scope lock.
func (s *Store) save(scope Scope, cfg *trust.Config) error {
	path := s.Path(scope)
	if err := fileutil.SecureMkdirAll(filepath.Dir(path)); err != nil {
		return &StoreError{Op: "save", Path: path, Err: err}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return &StoreError{Op: "save", Path: path, Err: err}
	}
	data = append(data, '\n')
	if err := fileutil.SecureWriteFileAtomic(path, data); err != nil {
		return &StoreError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// AddRule validates, appends, and persists a rule. A validation failure
// returns *trust.ValidationError and changes nothing. A persistence
// failure returns *StoreError, but the appended rule stays visible in
// memory for the rest of the session; the caller decides how loudly to
// warn about lost durability.
func (s *Store) AddRule(scope Scope, tool trust.Tool, rule trust.Rule) error {
	if err := s.checkScope(scope); err != nil {
		return err
	}

	lock := s.lockFor(scope)
	lock.Lock()
	defer lock.Unlock()

	next := s.Load(scope).Clone()
	if err := next.Add(tool, rule); err != nil {
		return err
	}
	s.swap(scope, next)

	if err := s.save(scope, next); err != nil {
		log.Warn("rule %q for %s kept in memory only: %v", rule.Pattern, tool, err)
		return err
	}
	log.Debug("added %s rule %q (%s)", tool, rule.Pattern, scope)
	return nil
}

// RemoveRule deletes the first rule whose pattern equals pattern
// exactly. The bool reports whether anything was removed; a non-nil
// error reports a persistence failure (the removal stays effective in
// memory either way).
func (s *Store) RemoveRule(scope Scope, tool trust.Tool, pattern string) (bool, error) {
	if err := s.checkScope(scope); err != nil {
		return false, err
	}

	lock := s.lockFor(scope)
	lock.Lock()
	defer lock.Unlock()

	next := s.Load(scope).Clone()
	if !next.Remove(tool, pattern) {
		return false, nil
	}
	s.swap(scope, next)

	if err := s.save(scope, next); err != nil {
		return true, err
	}
	log.Debug("removed %s rule %q (%s)", tool, pattern, scope)
	return true, nil
}

// RemoveAll clears every rule for tool in scope.
func (s *Store) RemoveAll(scope Scope, tool trust.Tool) error {
	if err := s.checkScope(scope); err != nil {
		return err
	}

	lock := s.lockFor(scope)
	lock.Lock()
	defer lock.Unlock()

	next := s.Load(scope).Clone()
	if len(next.Rules(tool)) == 0 {
		return nil
	}
	next.RemoveAll(tool)
	s.swap(scope, next)

	if err := s.save(scope, next); err != nil {
		return err
	}
	log.Debug("removed all %s rules (%s)", tool, scope)
	return nil
}

// Rules implements trust.RuleSource: global-scope rules first, then the
// profile's rules whose pattern is not already present globally. The
// caller must not mutate the result.
func (s *Store) Rules(_ context.Context, profile string, tool trust.Tool) []trust.Rule {
	global := s.Load(GlobalScope()).Rules(tool)
	prof := s.Load(ProfileScope(profile)).Rules(tool)

	if len(global) == 0 {
		return prof
	}
	out := make([]trust.Rule, 0, len(global)+len(prof))
	out = append(out, global...)
	seen := make(map[string]struct{}, len(global))
	for _, r := range global {
		seen[r.Pattern] = struct{}{}
	}
	for _, r := range prof {
		if _, dup := seen[r.Pattern]; !dup {
			out = append(out, r)
		}
	}
	return out
}

// Invalidate drops the cached config for scope; the next read loads
// from disk again.
func (s *Store) Invalidate(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, scope.key())
}

// InvalidateAll drops every cached config.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = map[string]*trust.Config{}
}

// Profiles lists profile names that have a rule file on disk, sorted.
func (s *Store) Profiles() []string {
	entries, err := os.ReadDir(s.profileRoot)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.profileRoot, e.Name(), contextFile)); err == nil {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

func (s *Store) checkScope(scope Scope) error {
	if scope.IsGlobal() || validProfileName(scope.Profile()) {
		return nil
	}
	return &trust.ValidationError{Reason: fmt.Sprintf("invalid profile name %q", scope.Profile())}
}

func (s *Store) lockFor(scope Scope) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[scope.key()]
	if !ok {
		l = &sync.Mutex{}
		s.locks[scope.key()] = l
	}
	return l
}

func (s *Store) swap(scope Scope, cfg *trust.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[scope.key()] = cfg
}

// validProfileName rejects names that would escape the profile root.
func validProfileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return name == filepath.Base(name)
}
