package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"OptInSync/internal/geo"
	"OptInSync/internal/interfaces"
	"OptInSync/internal/model"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func strPtr(s string) *string { return &s }

// memoryStore 内存版 OrderStore，按 external_id 幂等
type memoryStore struct {
	mu       sync.Mutex
	nextID   uint64
	byKey    map[string]*model.Order
	failNext bool
	countErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byKey: map[string]*model.Order{}}
}

func (s *memoryStore) Upsert(_ context.Context, orders []*model.Order) interfaces.UpsertResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return interfaces.UpsertResult{Errors: len(orders)}
	}
	for _, o := range orders {
		cp := *o
		if existing, ok := s.byKey[o.ExternalID]; ok {
			cp.ID = existing.ID
		} else {
			s.nextID++
			cp.ID = s.nextID
		}
		s.byKey[o.ExternalID] = &cp
	}
	return interfaces.UpsertResult{Inserted: len(orders)}
}

func (s *memoryStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	return int64(len(s.byKey)), nil
}

func (s *memoryStore) HighestExternalID(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := ""
	for k := range s.byKey {
		if best == "" || greaterID(k, best) {
			best = k
		}
	}
	return best, nil
}

func (s *memoryStore) ListPage(_ context.Context, offset, limit int) ([]*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*model.Order, 0, len(s.byKey))
	for _, o := range s.byKey {
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]*model.Order, 0, end-offset)
	for _, o := range all[offset:end] {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memoryStore) UpdateGeo(_ context.Context, id uint64, loc geo.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.byKey {
		if o.ID == id {
			o.City, o.Province, o.Country = loc.City, loc.Province, loc.Country
			return nil
		}
	}
	return errors.New("not found")
}

func (s *memoryStore) get(key string) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byKey[key]
}

// memoryLock 进程内 TTL 锁
type memoryLock struct {
	mu       sync.Mutex
	owner    string
	expires  time.Time
	seq      int
	releases int
}

func (l *memoryLock) TryAcquire(_ context.Context, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner != "" && time.Now().Before(l.expires) {
		return "", false, nil
	}
	l.seq++
	l.owner = string(rune('a' + l.seq))
	l.expires = time.Now().Add(ttl)
	return l.owner, true, nil
}

func (l *memoryLock) Release(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if token == l.owner {
		l.owner = ""
		l.releases++
	}
	return nil
}

func (l *memoryLock) held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner != ""
}

// scriptedFetcher 按顺序返回预设结果，超出后重复最后一个
type scriptedFetcher struct {
	mu       sync.Mutex
	steps    []fetchStep
	requests []interfaces.FetchRequest
	block    chan struct{}
}

type fetchStep struct {
	result *interfaces.FetchResult
	err    error
}

func (f *scriptedFetcher) Fetch(ctx context.Context, req interfaces.FetchRequest) (*interfaces.FetchResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	idx := len(f.requests) - 1
	if idx >= len(f.steps) {
		idx = len(f.steps) - 1
	}
	step := f.steps[idx]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return step.result, step.err
}

func (f *scriptedFetcher) calls() []interfaces.FetchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interfaces.FetchRequest(nil), f.requests...)
}

func rawOrder(id string, optIn bool, price, city, country string) model.RawOrder {
	b := model.FlexBool(optIn)
	return model.RawOrder{
		ExternalID: model.FlexString(id),
		StoreID:    "store-1",
		OptIn:      &b,
		TotalPrice: model.FlexString(price),
		City:       model.FlexString(city),
		Country:    model.FlexString(country),
		CreatedAt:  "2026-03-04T10:00:00Z",
	}
}
