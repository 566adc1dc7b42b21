package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"horse.fit/storefront/internal/cart"
	"horse.fit/storefront/internal/storage"
)

const (
	defaultSessionCookie = "storefront_cart"
	defaultSessionTTL    = 30 * 24 * time.Hour
	defaultMaxOpenCarts  = 4096

	cartContextKey = "storefront.cart"
)

// cartSessions keeps recently used carts open. A cart stays leased while a
// request holds it, so eviction never splits one session across two stores.
// Evicted carts that nobody holds are reloaded from storage on the next
// request.
type cartSessions struct {
	mu     sync.Mutex
	kv     storage.KV
	prefix string
	open   *lru.Cache
	leased map[string]*cartLease
	logger zerolog.Logger
}

type cartLease struct {
	store *cart.Store
	refs  int
}

func newCartSessions(kv storage.KV, prefix string, maxOpen int, logger zerolog.Logger) *cartSessions {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = cart.DefaultKey
	}
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenCarts
	}
	open, err := lru.New(maxOpen)
	if err != nil {
		logger.Warn().Err(err).Msg("open cart cache disabled")
	}
	return &cartSessions{
		kv:     kv,
		prefix: prefix,
		open:   open,
		leased: make(map[string]*cartLease),
		logger: logger,
	}
}

func (cs *cartSessions) key(sessionID string) string {
	return cs.prefix + ":" + sessionID
}

// acquire returns the cart for sessionID, loading it from storage when it is
// neither leased nor cached. Call release when the request is done with it.
func (cs *cartSessions) acquire(ctx context.Context, sessionID string) (*cart.Store, func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	key := cs.key(sessionID)
	lease, ok := cs.leased[key]
	if !ok {
		lease = &cartLease{store: cs.cached(key)}
		if lease.store == nil {
			lease.store = cart.Open(ctx, cs.kv, cart.Options{Key: key, Logger: cs.logger})
		}
		cs.leased[key] = lease
	}
	lease.refs++
	if cs.open != nil {
		cs.open.Add(key, lease.store)
	}

	var once sync.Once
	return lease.store, func() {
		once.Do(func() { cs.release(key) })
	}
}

func (cs *cartSessions) cached(key string) *cart.Store {
	if cs.open == nil {
		return nil
	}
	value, ok := cs.open.Get(key)
	if !ok {
		return nil
	}
	store, _ := value.(*cart.Store)
	return store
}

func (cs *cartSessions) release(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	lease, ok := cs.leased[key]
	if !ok {
		return
	}
	lease.refs--
	if lease.refs <= 0 {
		delete(cs.leased, key)
	}
}

// withCart resolves the session cookie, minting a new session when it is
// missing or malformed, and stores the session cart on the context.
func (s *Server) withCart() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID, ok := s.sessionIDFromCookie(c)
			if !ok {
				sessionID = uuid.NewString()
			}
			s.setSessionCookie(c, sessionID, time.Now().Add(s.opts.SessionTTL))

			store, release := s.carts.acquire(c.Request().Context(), sessionID)
			defer release()

			c.Set(cartContextKey, store)
			return next(c)
		}
	}
}

func cartFromContext(c echo.Context) (*cart.Store, bool) {
	store, ok := c.Get(cartContextKey).(*cart.Store)
	return store, ok && store != nil
}

func (s *Server) sessionIDFromCookie(c echo.Context) (string, bool) {
	if c == nil {
		return "", false
	}

	cookie, err := c.Cookie(s.opts.SessionCookie)
	if err != nil || cookie == nil {
		return "", false
	}

	sessionID := strings.TrimSpace(cookie.Value)
	if sessionID == "" {
		return "", false
	}
	parsed, err := uuid.Parse(sessionID)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func (s *Server) setSessionCookie(c echo.Context, sessionID string, expiresAt time.Time) {
	if c == nil {
		return
	}

	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	c.SetCookie(&http.Cookie{
		Name:     s.opts.SessionCookie,
		Value:    strings.TrimSpace(sessionID),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SessionSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt.UTC(),
		MaxAge:   maxAge,
	})
}
