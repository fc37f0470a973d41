package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"
)

// MemorySettingsStore keeps settings in process memory
type MemorySettingsStore struct {
	mu       sync.RWMutex
	settings map[string]domain.ShopSettings
}

// NewMemorySettingsStore creates an empty in-memory settings store
func NewMemorySettingsStore() *MemorySettingsStore {
	return &MemorySettingsStore{settings: make(map[string]domain.ShopSettings)}
}

func (s *MemorySettingsStore) Get(_ context.Context, shop string) (*domain.ShopSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[shop]
	if !ok {
		return nil, nil
	}
	return &settings, nil
}

func (s *MemorySettingsStore) Put(_ context.Context, shop string, settings domain.ShopSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[shop] = settings
	return nil
}

func (s *MemorySettingsStore) Delete(_ context.Context, shop string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.settings, shop)
	return nil
}

// MemorySessionStore keeps sessions in process memory
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.ShopSession
}

// NewMemorySessionStore creates an empty in-memory session store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domain.ShopSession)}
}

func (s *MemorySessionStore) Store(_ context.Context, session *domain.ShopSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemorySessionStore) Load(_ context.Context, id string) (*domain.ShopSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemorySessionStore) FindByShop(_ context.Context, shop string) ([]*domain.ShopSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.ShopSession
	for _, session := range s.sessions {
		if session.ShopDomain == shop {
			session := session
			out = append(out, &session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemorySessionStore) DeleteByShop(_ context.Context, shop string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.ShopDomain == shop {
			delete(s.sessions, id)
		}
	}
	return nil
}

// MemoryShopRepository keeps shops in process memory
type MemoryShopRepository struct {
	mu    sync.RWMutex
	shops map[string]domain.Shop
}

// NewMemoryShopRepository creates an empty in-memory shop repository
func NewMemoryShopRepository() *MemoryShopRepository {
	return &MemoryShopRepository{shops: make(map[string]domain.Shop)}
}

func (r *MemoryShopRepository) Upsert(_ context.Context, shop *domain.Shop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.shops[shop.Domain]; ok {
		shop.InstalledAt = existing.InstalledAt
		shop.UseScriptTag = existing.UseScriptTag
		shop.ScriptTagID = existing.ScriptTagID
	}
	if shop.InstalledAt.IsZero() {
		shop.InstalledAt = now
	}
	shop.UpdatedAt = now
	r.shops[shop.Domain] = *shop
	return nil
}

func (r *MemoryShopRepository) Get(_ context.Context, shopDomain string) (*domain.Shop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	shop, ok := r.shops[shopDomain]
	if !ok {
		return nil, nil
	}
	return &shop, nil
}

func (r *MemoryShopRepository) MarkUninstalled(_ context.Context, shopDomain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	shop, ok := r.shops[shopDomain]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	shop.UninstalledAt = &now
	shop.ScriptTagID = 0
	shop.UpdatedAt = now
	r.shops[shopDomain] = shop
	return nil
}

func (r *MemoryShopRepository) SetScriptTag(_ context.Context, shopDomain string, useScriptTag bool, scriptTagID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	shop, ok := r.shops[shopDomain]
	if !ok {
		return domain.ErrNotFound
	}
	shop.UseScriptTag = useScriptTag
	shop.ScriptTagID = scriptTagID
	shop.UpdatedAt = time.Now().UTC()
	r.shops[shopDomain] = shop
	return nil
}

func (r *MemoryShopRepository) Delete(_ context.Context, shopDomain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.shops, shopDomain)
	return nil
}

// MemorySubscriptionRepository keeps subscriptions in process memory
type MemorySubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[string][]domain.Subscription
}

// NewMemorySubscriptionRepository creates an empty in-memory subscription repository
func NewMemorySubscriptionRepository() *MemorySubscriptionRepository {
	return &MemorySubscriptionRepository{subs: make(map[string][]domain.Subscription)}
}

func (r *MemorySubscriptionRepository) Save(_ context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	sub.ID = sub.ChargeID

	list := r.subs[sub.ShopDomain]
	for i := range list {
		if list[i].ChargeID == sub.ChargeID {
			sub.CreatedAt = list[i].CreatedAt
			list[i] = *sub
			return nil
		}
	}
	r.subs[sub.ShopDomain] = append(list, *sub)
	return nil
}

func (r *MemorySubscriptionRepository) Latest(_ context.Context, shop string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.subs[shop]
	if len(list) == 0 {
		return nil, nil
	}
	latest := list[len(list)-1]
	return &latest, nil
}

func (r *MemorySubscriptionRepository) UpdateStatus(_ context.Context, shop string, chargeID uint64, status domain.SubscriptionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.subs[shop]
	for i := range list {
		if list[i].ChargeID == chargeID {
			list[i].Status = status
			list[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MemorySubscriptionRepository) DeleteByShop(_ context.Context, shop string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, shop)
	return nil
}

var (
	_ ports.SettingsStore          = (*MemorySettingsStore)(nil)
	_ ports.SessionStore           = (*MemorySessionStore)(nil)
	_ ports.ShopRepository         = (*MemoryShopRepository)(nil)
	_ ports.SubscriptionRepository = (*MemorySubscriptionRepository)(nil)
)
