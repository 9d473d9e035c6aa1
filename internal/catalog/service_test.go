package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eppla/storefront/internal/storage"
	"github.com/eppla/storefront/internal/types"
)

type fakeRemote struct {
	mu      sync.Mutex
	doc     types.CatalogDocument
	found   bool
	pullErr error
	pushErr error
	pulls   atomic.Int32
	pushed  []types.CatalogDocument
	block   chan struct{}
}

func (f *fakeRemote) Name() string { return "fake" }

func (f *fakeRemote) Push(_ context.Context, doc types.CatalogDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, doc)
	return nil
}

func (f *fakeRemote) Pull(ctx context.Context) (types.CatalogDocument, bool, error) {
	f.pulls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.doc, f.found, f.pullErr
}

func (f *fakeRemote) HealthCheck(_ context.Context, client string) (HealthReport, error) {
	if f.pushErr != nil {
		return HealthReport{}, f.pushErr
	}
	return HealthReport{Status: "online", Client: client}, nil
}

type failingStorage struct {
	storage.Storage
	err error
}

func (f failingStorage) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStorage) Put(context.Context, string, []byte, *storage.Metadata) error {
	return f.err
}
func (f failingStorage) Delete(context.Context, string) error { return f.err }

func sampleProducts(ids ...string) []types.Product {
	products := make([]types.Product, len(ids))
	for i, id := range ids {
		products[i] = types.Product{ID: id, Name: "Product " + id, Slug: "product-" + id, Price: 10_00, Category: "Φωτισμός > Λάμπες"}
	}
	return products
}

func remoteDown() error {
	return types.NewRemoteError("fake", "pull", types.ErrRemoteUnreachable, errors.New("connection refused"))
}

func TestHydrateFallsBackToDefault(t *testing.T) {
	remote := &fakeRemote{pullErr: remoteDown()}
	svc := NewService(NewLocalStore(storage.NewMemoryStorage()), remote, nil)

	require.NoError(t, svc.Hydrate(context.Background()))

	defaults, err := DefaultCatalog()
	require.NoError(t, err)
	assert.Equal(t, StateReady, svc.State())
	assert.Equal(t, defaults.Products, svc.Products())
	assert.Equal(t, SourceDefault, svc.Status().Source)
	assert.NotEmpty(t, svc.Status().Warnings)
}

func TestHydratePrefersRemoteThenLocal(t *testing.T) {
	ctx := context.Background()

	t.Run("remote", func(t *testing.T) {
		local := NewLocalStore(storage.NewMemoryStorage())
		require.NoError(t, local.Save(ctx, types.NewCatalogDocument(sampleProducts("L"), time.Now())))
		remote := &fakeRemote{doc: types.NewCatalogDocument(sampleProducts("R1", "R2"), time.Now()), found: true}

		svc := NewService(local, remote, nil)
		require.NoError(t, svc.Hydrate(ctx))
		assert.Equal(t, SourceRemote, svc.Status().Source)
		assert.Len(t, svc.Products(), 2)
	})

	t.Run("local when remote empty", func(t *testing.T) {
		local := NewLocalStore(storage.NewMemoryStorage())
		require.NoError(t, local.Save(ctx, types.NewCatalogDocument(sampleProducts("L"), time.Now())))
		remote := &fakeRemote{doc: types.NewCatalogDocument(nil, time.Now()), found: true}

		svc := NewService(local, remote, nil)
		require.NoError(t, svc.Hydrate(ctx))
		assert.Equal(t, SourceLocal, svc.Status().Source)
		_, ok := svc.Product("L")
		assert.True(t, ok)
	})

	t.Run("local when remote disabled", func(t *testing.T) {
		local := NewLocalStore(storage.NewMemoryStorage())
		require.NoError(t, local.Save(ctx, types.NewCatalogDocument(sampleProducts("L"), time.Now())))

		svc := NewService(local, nil, nil)
		require.NoError(t, svc.Hydrate(ctx))
		assert.Equal(t, SourceLocal, svc.Status().Source)
		assert.Empty(t, svc.Status().Warnings)
	})
}

func TestHydrateFailsOnlyWhenEveryTierFails(t *testing.T) {
	remote := &fakeRemote{pullErr: remoteDown()}
	local := NewLocalStore(failingStorage{Storage: storage.NewMemoryStorage(), err: errors.New("disk gone")})

	calls := 0
	svc := NewService(local, remote, nil, WithDefaultCatalog(func() (types.CatalogDocument, error) {
		calls++
		if calls == 1 {
			return types.CatalogDocument{}, errors.New("corrupt bundle")
		}
		return types.NewCatalogDocument(sampleProducts("D"), time.Time{}), nil
	}))

	err := svc.Hydrate(context.Background())
	assert.ErrorIs(t, err, types.ErrHydrationFailure)
	assert.Equal(t, StateFailed, svc.State())
	assert.Empty(t, svc.Products())

	require.NoError(t, svc.Hydrate(context.Background()), "failed hydration may be retried")
	assert.Equal(t, StateReady, svc.State())
	assert.Len(t, svc.Products(), 1)
}

func TestHydrateDefinedWhenBundleMissing(t *testing.T) {
	svc := NewService(NewLocalStore(storage.NewMemoryStorage()), nil, nil,
		WithDefaultCatalog(func() (types.CatalogDocument, error) {
			return types.CatalogDocument{}, errors.New("missing")
		}))

	require.NoError(t, svc.Hydrate(context.Background()))
	assert.Equal(t, StateReady, svc.State())
	assert.NotNil(t, svc.Products())
	assert.Empty(t, svc.Products())
}

func TestHydrateRunsOnce(t *testing.T) {
	remote := &fakeRemote{block: make(chan struct{}), doc: types.NewCatalogDocument(sampleProducts("R"), time.Now()), found: true}
	svc := NewService(NewLocalStore(storage.NewMemoryStorage()), remote, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.Hydrate(context.Background()))
	}()

	require.Eventually(t, func() bool { return svc.State() == StateHydrating }, time.Second, time.Millisecond)
	for i := 0; i < 5; i++ {
		assert.NoError(t, svc.Hydrate(context.Background()))
	}
	close(remote.block)
	wg.Wait()

	assert.NoError(t, svc.Hydrate(context.Background()))
	assert.Equal(t, int32(1), remote.pulls.Load())
	assert.Equal(t, StateReady, svc.State())
}

func TestHydrateDoesNotWriteLocal(t *testing.T) {
	mem := storage.NewMemoryStorage()
	svc := NewService(NewLocalStore(mem), nil, nil)
	require.NoError(t, svc.Hydrate(context.Background()))

	ok, err := mem.Exists(context.Background(), LocalCatalogKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplaceIsAtomic(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	svc := NewService(NewLocalStore(mem), nil, nil)
	require.NoError(t, svc.Hydrate(ctx))

	doc, err := svc.Replace(ctx, sampleProducts("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Count)
	assert.Equal(t, SourceIngestion, svc.Status().Source)

	loaded, found, err := NewLocalStore(mem).Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, doc.Products, loaded.Products)

	broken := NewService(NewLocalStore(failingStorage{Storage: mem, err: errors.New("read-only fs")}), nil, nil)
	_, err = broken.Replace(ctx, sampleProducts("x"))
	assert.Error(t, err)
	assert.Empty(t, broken.Products(), "failed save must leave the catalog untouched")
}

func TestReplaceRebuildsMenu(t *testing.T) {
	svc := NewService(NewLocalStore(storage.NewMemoryStorage()), nil, nil)
	_, err := svc.Replace(context.Background(), sampleProducts("a"))
	require.NoError(t, err)

	buckets := svc.Buckets()
	require.Len(t, buckets, len(BucketOrder))
	assert.Equal(t, 1, buckets[3].Count)
	assert.Equal(t, "Λάμπες", buckets[3].Subcategories[0].Name)
}

func TestClearLeavesRemoteAlone(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	remote := &fakeRemote{}
	svc := NewService(NewLocalStore(mem), remote, nil)

	_, err := svc.Replace(ctx, sampleProducts("a"))
	require.NoError(t, err)
	require.NoError(t, svc.PushRemote(ctx))
	require.Len(t, remote.pushed, 1)

	require.NoError(t, svc.Clear(ctx))
	assert.Empty(t, svc.Products())
	ok, _ := mem.Exists(ctx, LocalCatalogKey)
	assert.False(t, ok)
	assert.Len(t, remote.pushed, 1)
	assert.Equal(t, 1, remote.pushed[0].Count)
}

func TestPushRemoteDenied(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{pushErr: types.NewRemoteError("fake", "push", types.ErrRemoteWriteDenied, errors.New("permission denied"))}
	svc := NewService(NewLocalStore(storage.NewMemoryStorage()), remote, nil)

	_, err := svc.Replace(ctx, sampleProducts("a"))
	require.NoError(t, err)

	err = svc.PushRemote(ctx)
	assert.ErrorIs(t, err, types.ErrRemoteWriteDenied)
	assert.NotErrorIs(t, err, types.ErrRemoteUnreachable)
	assert.Equal(t, types.RemoteWriteDeniedHint, types.RemoteHint(err))
	assert.Len(t, svc.Products(), 1, "local catalog survives a denied push")
}

func TestDisabledRemote(t *testing.T) {
	svc := NewService(NewLocalStore(storage.NewMemoryStorage()), nil, nil)
	assert.ErrorIs(t, svc.PushRemote(context.Background()), types.ErrRemoteDisabled)
	_, err := svc.CheckRemote(context.Background())
	assert.ErrorIs(t, err, types.ErrRemoteDisabled)
	assert.Equal(t, "disabled", svc.Status().Remote)
}

func TestSnapshotIsACopy(t *testing.T) {
	svc := NewService(NewLocalStore(storage.NewMemoryStorage()), nil, nil)
	_, err := svc.Replace(context.Background(), sampleProducts("a"))
	require.NoError(t, err)

	snap := svc.Snapshot()
	snap.Products[0].Name = "changed"
	p, ok := svc.Product("a")
	require.True(t, ok)
	assert.Equal(t, "Product a", p.Name)

	bySlug, ok := svc.ProductBySlug("product-a")
	assert.True(t, ok)
	assert.Equal(t, "a", bySlug.ID)
}

func TestDefaultCatalog(t *testing.T) {
	doc, err := DefaultCatalog()
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Count)
	assert.Equal(t, "EX-CH-001", doc.Products[0].SKU)
	assert.Equal(t, types.Money(499_00), doc.Products[0].Price)

	c := NewClassifier(DefaultClassifierConfig())
	assert.Equal(t, BucketOffice, c.BucketFor(doc.Products[0]))
	assert.Equal(t, BucketOffice, c.BucketFor(doc.Products[1]))
	assert.Equal(t, BucketInterior, c.BucketFor(doc.Products[2]))
}
