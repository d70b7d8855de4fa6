package forms

import (
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// storageKey is the key the override is persisted under, shared with any
// other process pointing at the same session store.
const storageKey = "formsApi"

var schemePattern = regexp.MustCompile(`(?i)^https?://`)
var resetPattern = regexp.MustCompile(`(?i)^(clear|env)$`)

// Resolver owns the forms backend base URL: a single mutable cell with a
// subscribe/notify contract. Resolution order is runtime override >
// persisted session override > configured default. The resolved value is
// always a valid http(s) URL with no trailing slash.
type Resolver struct {
	mu          sync.RWMutex
	store       Store
	envBase     string
	current     string
	subscribers []func(string)
}

// NewResolver resolves the initial value. queryOverride carries an explicit
// runtime override (from a request query parameter); it wins over anything
// persisted and, when valid, is itself persisted for the session.
func NewResolver(store Store, envBase, queryOverride string) *Resolver {
	if store == nil {
		store = NewMemoryStore()
	}

	r := &Resolver{
		store:   store,
		envBase: strings.TrimSuffix(envBase, "/"),
	}
	r.current = r.envBase

	if saved, ok := store.Get(storageKey); ok && saved != "" {
		r.current = strings.TrimSuffix(saved, "/")
	}

	if queryOverride != "" {
		r.Override(queryOverride)
	}

	return r
}

// Resolve returns the most recently resolved base URL.
func (r *Resolver) Resolve() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Override installs a new base URL. "clear" and "env" evict any persisted
// override and revert to the configured default. Anything else is
// normalized (https:// prefixed when schemeless, trailing slash stripped)
// and must parse as an http(s) URL; invalid values are silently ignored so
// the previously resolved value stays in effect.
func (r *Resolver) Override(value string) {
	if resetPattern.MatchString(strings.TrimSpace(value)) {
		r.store.Delete(storageKey)
		r.set(r.envBase)
		return
	}

	cand := strings.TrimSpace(value)
	if cand == "" {
		return
	}
	if !schemePattern.MatchString(cand) {
		cand = "https://" + cand
	}

	u, err := url.Parse(cand)
	if err != nil {
		return
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return
	}
	if u.Host == "" {
		return
	}

	next := strings.TrimSuffix(cand, "/")
	r.store.Set(storageKey, next)
	r.set(next)
}

// Refresh re-reads the session store and notifies subscribers if the value
// changed out from under us. This is how a second process sharing the store
// observes an override made elsewhere; same-process overrides notify
// directly without it.
func (r *Resolver) Refresh() {
	next := r.envBase
	if saved, ok := r.store.Get(storageKey); ok && saved != "" {
		next = strings.TrimSuffix(saved, "/")
	}

	r.mu.RLock()
	unchanged := next == r.current
	r.mu.RUnlock()
	if unchanged {
		return
	}

	r.set(next)
}

// Subscribe registers a listener called with the new value after every
// change. Returns an unsubscribe function.
func (r *Resolver) Subscribe(fn func(string)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers = append(r.subscribers, fn)
	idx := len(r.subscribers) - 1

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.subscribers[idx] = nil
	}
}

func (r *Resolver) set(value string) {
	r.mu.Lock()
	r.current = value
	subscribers := make([]func(string), len(r.subscribers))
	copy(subscribers, r.subscribers)
	r.mu.Unlock()

	for _, fn := range subscribers {
		if fn != nil {
			fn(value)
		}
	}
}
