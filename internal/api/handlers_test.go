package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"OptInSync/internal/adapter/source"
	"OptInSync/internal/model"
	"OptInSync/internal/repository"
	"OptInSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeCoordinator struct {
	mu     sync.Mutex
	calls  []service.SyncOptions
	result *service.SyncResult
	err    error
	done   chan struct{}
}

func (f *fakeCoordinator) Sync(_ context.Context, opts service.SyncOptions) (*service.SyncResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return f.result, f.err
}

func (f *fakeCoordinator) Status() service.SyncStatus {
	return service.SyncStatus{State: service.StateSyncing, MaxRetries: 5}
}

type fakeEngine struct{ err error }

func (f *fakeEngine) Aggregate(context.Context) (*model.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Snapshot{Summary: model.Summary{TotalOrders: 4, TotalOptIns: 1, TotalOptOuts: 3, OptInRate: 25}}, nil
}

type fakeOrders struct {
	filter repository.OrderFilter
}

func (f *fakeOrders) ListOrders(_ context.Context, filter repository.OrderFilter, page, pageSize int) ([]*model.Order, int64, error) {
	f.filter = filter
	city := "Leeds"
	return []*model.Order{{
		ExternalID: "1",
		StoreID:    "s1",
		OptIn:      true,
		TotalPrice: decimal.RequireFromString("12.5"),
		City:       &city,
	}}, 1, nil
}

func (f *fakeOrders) GetByExternalID(_ context.Context, id string) (*model.Order, error) {
	if id != "1" {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.Order{ExternalID: "1", TotalPrice: decimal.NewFromInt(3)}, nil
}

type fakeBackfill struct{}

func (fakeBackfill) Run(context.Context) (*service.BackfillResult, error) {
	return &service.BackfillResult{Scanned: 3, Updated: 1}, nil
}

func newTestRouter(coord *fakeCoordinator, engine *fakeEngine, orders *fakeOrders) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	r := gin.New()
	RegisterRoutes(r,
		NewSyncHandler(context.Background(), coord, logger),
		NewAnalyticsHandler(engine, logger),
		NewOrderHandler(orders, fakeBackfill{}, logger),
	)
	return r
}

func do(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestTriggerSync_AsyncReturnsAccepted(t *testing.T) {
	coord := &fakeCoordinator{result: &service.SyncResult{Success: true}, done: make(chan struct{}, 1)}
	r := newTestRouter(coord, &fakeEngine{}, &fakeOrders{})

	w := do(r, http.MethodPost, "/api/sync?force_full=true")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"syncing"`)

	select {
	case <-coord.done:
	case <-time.After(time.Second):
		t.Fatal("sync was not started")
	}
	coord.mu.Lock()
	defer coord.mu.Unlock()
	require.Len(t, coord.calls, 1)
	assert.True(t, coord.calls[0].ForceFull)
	assert.False(t, coord.calls[0].TriggerRemoteRefresh)
}

func TestTriggerSync_WaitReturnsResult(t *testing.T) {
	coord := &fakeCoordinator{result: &service.SyncResult{Success: true, Inserted: 7, TotalAfter: 9}}
	r := newTestRouter(coord, &fakeEngine{}, &fakeOrders{})

	w := do(r, http.MethodPost, "/api/sync?wait=true&refresh=1")
	require.Equal(t, http.StatusOK, w.Code)

	var res service.SyncResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 7, res.Inserted)
	assert.True(t, coord.calls[0].TriggerRemoteRefresh)
}

func TestTriggerSync_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrMissingCredentials, http.StatusInternalServerError},
		{&source.FetchError{Kind: source.KindAuth, StatusCode: 401, Err: errors.New("denied")}, http.StatusBadGateway},
		{fmt.Errorf("%w: %w", service.ErrMaxRetriesExceeded, errors.New("503")), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		coord := &fakeCoordinator{result: &service.SyncResult{}, err: tc.err}
		r := newTestRouter(coord, &fakeEngine{}, &fakeOrders{})
		w := do(r, http.MethodPost, "/api/sync?wait=true")
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
		assert.Contains(t, w.Body.String(), `"error"`)
	}
}

func TestGetSnapshot(t *testing.T) {
	r := newTestRouter(&fakeCoordinator{}, &fakeEngine{}, &fakeOrders{})
	w := do(r, http.MethodGet, "/api/analytics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"opt_in_rate":25`)

	r = newTestRouter(&fakeCoordinator{}, &fakeEngine{err: errors.New("db down")}, &fakeOrders{})
	w = do(r, http.MethodGet, "/api/analytics")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListOrders(t *testing.T) {
	orders := &fakeOrders{}
	r := newTestRouter(&fakeCoordinator{}, &fakeEngine{}, orders)

	w := do(r, http.MethodGet, "/api/orders?store_id=s1&opt_in=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", orders.filter.StoreID)
	require.NotNil(t, orders.filter.OptIn)
	assert.True(t, *orders.filter.OptIn)
	assert.Contains(t, w.Body.String(), `"total_price":"12.50"`)

	w = do(r, http.MethodGet, "/api/orders?opt_in=maybe")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder(t *testing.T) {
	r := newTestRouter(&fakeCoordinator{}, &fakeEngine{}, &fakeOrders{})

	w := do(r, http.MethodGet, "/api/orders/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"external_id":"1"`)

	w = do(r, http.MethodGet, "/api/orders/404")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReconcileGeo(t *testing.T) {
	r := newTestRouter(&fakeCoordinator{}, &fakeEngine{}, &fakeOrders{})
	w := do(r, http.MethodPost, "/api/orders/reconcile-geo")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":1`)
}
