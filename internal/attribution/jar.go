// Package attribution captures campaign-attribution identifiers (UTM tags,
// ad-click IDs, the GA client id) and keeps them durable across page views
// through a cookie-style key/value store with day-granular TTL.
package attribution

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Jar is the durable side channel for attribution values. Implementations
// URL-decode on read and URL-encode on write where the underlying store
// requires it.
type Jar interface {
	// Get returns the stored value for name, or "" if absent.
	Get(name string) string
	// Set stores value under name with an expiry of days*24h from now.
	Set(name, value string, days int)
}

// CookieJar reads cookies from an incoming request and writes Set-Cookie
// headers on the response. Writes are also visible to subsequent Gets
// within the same request.
type CookieJar struct {
	req     *http.Request
	w       http.ResponseWriter
	now     func() time.Time
	written map[string]string
}

// NewCookieJar builds a jar over one request/response pair. w may be nil
// for read-only use.
func NewCookieJar(w http.ResponseWriter, req *http.Request) *CookieJar {
	return &CookieJar{req: req, w: w, now: time.Now, written: make(map[string]string)}
}

func (j *CookieJar) Get(name string) string {
	if v, ok := j.written[name]; ok {
		return v
	}
	c, err := j.req.Cookie(name)
	if err != nil {
		return ""
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return c.Value
	}
	return v
}

func (j *CookieJar) Set(name, value string, days int) {
	j.written[name] = value
	if j.w == nil {
		return
	}
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		Expires:  j.now().Add(time.Duration(days) * 24 * time.Hour),
		SameSite: http.SameSiteLaxMode,
	})
}

// MemJar is a map-backed Jar with expiry, for tests and embedded use.
type MemJar struct {
	mu     sync.Mutex
	now    func() time.Time
	values map[string]memEntry
}

type memEntry struct {
	value   string
	expires time.Time
}

func NewMemJar() *MemJar {
	return &MemJar{now: time.Now, values: make(map[string]memEntry)}
}

// WithClock overrides the jar's time source.
func (j *MemJar) WithClock(now func() time.Time) *MemJar {
	j.now = now
	return j
}

func (j *MemJar) Get(name string) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.values[name]
	if !ok || j.now().After(e.expires) {
		return ""
	}
	return e.value
}

func (j *MemJar) Set(name, value string, days int) {
	j.mu.Lock()
	j.values[name] = memEntry{value: value, expires: j.now().Add(time.Duration(days) * 24 * time.Hour)}
	j.mu.Unlock()
}

// Expiry returns when name expires (zero time if absent). Test hook.
func (j *MemJar) Expiry(name string) time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.values[name].expires
}
