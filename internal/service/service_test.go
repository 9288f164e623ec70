package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ugc/exporter/internal/catalog"
	"ugc/exporter/internal/category"
	"ugc/exporter/internal/config"
	"ugc/exporter/internal/domain"
	"ugc/exporter/internal/domain/task"
	"ugc/exporter/internal/feed"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	products []domain.Product
	audits   []domain.ExportAudit
}

func (f *fakeRepository) LoadCategoryRows(ctx context.Context) ([]catalog.Row, error) {
	return nil, nil
}

func (f *fakeRepository) CountProducts(ctx context.Context) (int, error) {
	return len(f.products), nil
}

func (f *fakeRepository) ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	if offset >= len(f.products) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.products) {
		end = len(f.products)
	}
	return f.products[offset:end], nil
}

func (f *fakeRepository) SaveExportAudit(ctx context.Context, audit *domain.ExportAudit) error {
	f.audits = append(f.audits, *audit)
	return nil
}

type fakeQueue struct {
	added []task.Task
}

func (f *fakeQueue) AddTask(ctx context.Context, t task.Task) (string, error) {
	f.added = append(f.added, t)
	return fmt.Sprintf("%d-0", len(f.added)), nil
}

func (f *fakeQueue) GetTask(ctx context.Context, group, consumer, stream string) (*redis.XMessage, error) {
	return nil, nil
}

func (f *fakeQueue) AckTask(ctx context.Context, stream, group, msgID string) error { return nil }

func (f *fakeQueue) CreateGroup(ctx context.Context, stream, group string) error { return nil }

func (f *fakeQueue) AutoClaim(ctx context.Context, group, consumer, stream string, minIdleTime time.Duration) ([]redis.XMessage, error) {
	return nil, nil
}

func (f *fakeQueue) EnsureStreamsExist(ctx context.Context) error { return nil }

type fakeState struct {
	pages    map[string]int
	failures map[string]int
}

func newFakeState() *fakeState {
	return &fakeState{pages: map[string]int{}, failures: map[string]int{}}
}

func (f *fakeState) GetLastExportedPage(ctx context.Context, jobID string) (int, error) {
	return f.pages[jobID], nil
}

func (f *fakeState) SetLastExportedPage(ctx context.Context, jobID string, page int) error {
	f.pages[jobID] = page
	return nil
}

func (f *fakeState) ClearProgress(ctx context.Context, jobID string) error {
	delete(f.pages, jobID)
	delete(f.failures, jobID)
	return nil
}

func (f *fakeState) IncrConsecutiveFailures(ctx context.Context, jobID string) (int, error) {
	f.failures[jobID]++
	return f.failures[jobID], nil
}

func (f *fakeState) ResetConsecutiveFailures(ctx context.Context, jobID string) error {
	f.failures[jobID] = 0
	return nil
}

type fakeClient struct {
	chunks    map[int][]domain.ExportRecord
	events    []domain.CommerceEvent
	failPages map[int]bool
	eventErr  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{chunks: map[int][]domain.ExportRecord{}, failPages: map[int]bool{}}
}

func (f *fakeClient) SendFeedChunk(ctx context.Context, page int, records []domain.ExportRecord) error {
	if f.failPages[page] {
		return fmt.Errorf("upload rejected")
	}
	f.chunks[page] = records
	return nil
}

func (f *fakeClient) SendEvent(ctx context.Context, event domain.CommerceEvent) error {
	if f.eventErr != nil {
		return f.eventErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeClient) Ping(ctx context.Context) error { return nil }

func testTree() catalog.Provider {
	return catalog.BuildTree([]catalog.Row{
		{ID: "women", Name: "Women", Position: 1},
		{ID: "shoes", ParentID: "women", Name: "Shoes", Position: 2},
	})
}

func testCategoryConfig() config.CategoryConfig {
	return config.CategoryConfig{
		Separator:               " > ",
		MaxObjectKeys:           2000,
		SmallCatalogMax:         1500,
		LargeCatalogMin:         1500,
		EstimationCap:           5000,
		ChunkSize:               1600,
		MaxTraversalDepth:       20,
		PrimaryMapCap:           650,
		OverflowCacheCap:        300,
		MaxCategoriesPerProduct: 1900,
	}
}

func newTestService(repo *fakeRepository, q *fakeQueue, st *fakeState, cl *fakeClient, exportCfg config.ExportConfig) *Service {
	categories := category.NewManager(testTree(), testCategoryConfig())
	assembler := feed.NewAssembler(categories)
	return NewService(repo, cl, q, st, categories, assembler, exportCfg, "test-group", 120)
}

func products(n int) []domain.Product {
	out := make([]domain.Product, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.Product{
			ID:          fmt.Sprintf("sku-%d", i),
			Name:        fmt.Sprintf("Product %d", i),
			CategoryIDs: []string{"shoes"},
		})
	}
	return out
}

func TestRunExportShipsAllChunks(t *testing.T) {
	repo := &fakeRepository{products: products(5)}
	q := &fakeQueue{}
	st := newFakeState()
	cl := newFakeClient()

	svc := newTestService(repo, q, st, cl, config.ExportConfig{
		ChunkSize:              2,
		MaxConsecutiveFailures: 10,
		CheckpointInterval:     1,
	})

	require.NoError(t, svc.RunExport(context.Background()))

	assert.Len(t, cl.chunks, 3, "five products in chunks of two")
	assert.Len(t, cl.chunks[0], 2)
	assert.Len(t, cl.chunks[2], 1)

	require.Len(t, repo.audits, 1)
	audit := repo.audits[0]
	assert.Equal(t, 5, audit.Exported)
	assert.Zero(t, audit.Failed)
	assert.False(t, audit.Aborted)
	assert.Equal(t, string(category.TierSingleMap), audit.Strategy)

	assert.Empty(t, st.pages, "progress is cleared after a finished run")
	assert.Equal(t, "uninitialized", svc.categories.Stats().Strategy, "index state is torn down at job end")

	for _, record := range cl.chunks[0] {
		assert.NotEmpty(t, record.Categories, "records carry resolved categories")
	}
}

func TestRunExportQueuesRetryOnUploadFailure(t *testing.T) {
	repo := &fakeRepository{products: products(4)}
	q := &fakeQueue{}
	st := newFakeState()
	cl := newFakeClient()
	cl.failPages[1] = true

	svc := newTestService(repo, q, st, cl, config.ExportConfig{
		ChunkSize:              2,
		MaxConsecutiveFailures: 10,
		CheckpointInterval:     1,
	})

	require.NoError(t, svc.RunExport(context.Background()))

	require.Len(t, q.added, 1, "the failed page goes to the retry stream")
	retry, ok := q.added[0].(*task.FeedChunkRetryTask)
	require.True(t, ok)
	assert.Equal(t, 1, retry.Page)

	assert.Equal(t, 2, repo.audits[0].Exported, "only the delivered chunk counts")
}

func TestRunExportAbortsAfterConsecutiveFailures(t *testing.T) {
	bad := []domain.Product{{ID: "", Name: "broken 1"}, {ID: "", Name: "broken 2"}, {ID: "sku-ok"}}
	repo := &fakeRepository{products: bad}
	q := &fakeQueue{}
	st := newFakeState()
	cl := newFakeClient()

	svc := newTestService(repo, q, st, cl, config.ExportConfig{
		ChunkSize:              3,
		MaxConsecutiveFailures: 2,
		CheckpointInterval:     1,
	})

	err := svc.RunExport(context.Background())
	require.Error(t, err)

	require.Len(t, repo.audits, 1)
	assert.True(t, repo.audits[0].Aborted)
	assert.Empty(t, cl.chunks, "nothing ships once the job aborts")
}

func TestRunExportResumesFromCheckpoint(t *testing.T) {
	repo := &fakeRepository{products: products(6)}
	q := &fakeQueue{}
	st := newFakeState()
	st.pages[feedJobID] = 2
	cl := newFakeClient()

	svc := newTestService(repo, q, st, cl, config.ExportConfig{
		ChunkSize:              2,
		MaxConsecutiveFailures: 10,
		CheckpointInterval:     1,
	})

	require.NoError(t, svc.RunExport(context.Background()))

	assert.Len(t, cl.chunks, 1, "pages before the checkpoint are not re-sent")
	assert.Contains(t, cl.chunks, 2)
}

func eventMessage(t *testing.T, eventTask *task.CommerceEventTask) *redis.XMessage {
	t.Helper()
	data, err := eventTask.TaskValue()
	require.NoError(t, err)
	return &redis.XMessage{
		ID: "1-0",
		Values: map[string]interface{}{
			"task_type": eventTask.TaskType(),
			"task_data": string(data),
		},
	}
}

func TestProcessMessageForwardsEvent(t *testing.T) {
	repo := &fakeRepository{}
	q := &fakeQueue{}
	st := newFakeState()
	cl := newFakeClient()
	svc := newTestService(repo, q, st, cl, config.ExportConfig{ChunkSize: 2})

	msg := eventMessage(t, &task.CommerceEventTask{
		Event: domain.CommerceEvent{
			Type:      domain.EventAddToCart,
			ProductID: "sku-1",
			Quantity:  2,
			Timestamp: time.Now().Unix(),
		},
	})

	require.NoError(t, svc.processMessage(context.Background(), msg))

	require.Len(t, cl.events, 1)
	assert.Equal(t, domain.EventAddToCart, cl.events[0].Type)
	assert.Empty(t, q.added, "successful forwards are not requeued")
}

func TestProcessMessageRequeuesFailedEvent(t *testing.T) {
	repo := &fakeRepository{}
	q := &fakeQueue{}
	st := newFakeState()
	cl := newFakeClient()
	cl.eventErr = fmt.Errorf("service unavailable")
	svc := newTestService(repo, q, st, cl, config.ExportConfig{ChunkSize: 2})

	msg := eventMessage(t, &task.CommerceEventTask{
		Event: domain.CommerceEvent{Type: domain.EventCheckout, OrderID: "o-1"},
	})

	require.NoError(t, svc.processMessage(context.Background(), msg))

	require.Len(t, q.added, 1)
	requeued, ok := q.added[0].(*task.CommerceEventTask)
	require.True(t, ok)
	assert.Equal(t, 1, requeued.RetryCount)
	assert.NotEmpty(t, requeued.Error)
}

func TestProcessMessageDropsEventAfterMaxRetries(t *testing.T) {
	repo := &fakeRepository{}
	q := &fakeQueue{}
	st := newFakeState()
	cl := newFakeClient()
	cl.eventErr = fmt.Errorf("still down")
	svc := newTestService(repo, q, st, cl, config.ExportConfig{ChunkSize: 2})

	msg := eventMessage(t, &task.CommerceEventTask{
		Event:      domain.CommerceEvent{Type: domain.EventAddToCart, ProductID: "sku-9"},
		RetryCount: maxEventRetries,
	})

	require.NoError(t, svc.processMessage(context.Background(), msg))
	assert.Empty(t, q.added, "exhausted events are dropped, not requeued")
}

func TestProcessMessageRetriesFeedChunk(t *testing.T) {
	repo := &fakeRepository{products: products(3)}
	q := &fakeQueue{}
	st := newFakeState()
	cl := newFakeClient()
	svc := newTestService(repo, q, st, cl, config.ExportConfig{ChunkSize: 2})

	retryTask := &task.FeedChunkRetryTask{Page: 1, Error: "upload rejected"}
	data, err := retryTask.TaskValue()
	require.NoError(t, err)

	msg := &redis.XMessage{
		ID: "2-0",
		Values: map[string]interface{}{
			"task_type": retryTask.TaskType(),
			"task_data": string(data),
		},
	}

	require.NoError(t, svc.processMessage(context.Background(), msg))

	require.Contains(t, cl.chunks, 1)
	assert.Len(t, cl.chunks[1], 1, "page one holds the remaining product")
}

func TestProcessMessageUnknownTaskType(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(repo, &fakeQueue{}, newFakeState(), newFakeClient(), config.ExportConfig{ChunkSize: 2})

	msg := &redis.XMessage{
		ID:     "3-0",
		Values: map[string]interface{}{"task_type": "Mystery", "task_data": "{}"},
	}

	assert.Error(t, svc.processMessage(context.Background(), msg))
}
