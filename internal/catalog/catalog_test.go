package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jerseyprint/internal/domain"
	"jerseyprint/internal/domain/domaintest"
)

func newService() (*Service, *domaintest.MemStore, *domaintest.MemObjects) {
	store := domaintest.NewMemStore()
	objects := domaintest.NewMemObjects()
	s := New(store, objects)
	s.Now = func() time.Time { return time.UnixMilli(1700000000123).UTC() }
	return s, store, objects
}

func TestCreateProduct(t *testing.T) {
	s, _, objects := newService()
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, NewProduct{
		Name:  " Home Jersey ",
		Price: 49.99,
		Front: &Upload{Filename: "front.jpg", Data: []byte("f")},
		Back:  &Upload{Filename: "../my back.png", Data: []byte("b")},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Home Jersey", p.Name)
	assert.Equal(t, domain.ProductTypeJersey, p.Type)
	assert.Equal(t, "https://files.test/products/1700000000123_front_front.jpg", p.FrontImageURL)
	assert.Equal(t, "https://files.test/products/1700000000123_back_my_back.png", p.BackImageURL)
	assert.True(t, objects.Has("products/1700000000123_back_my_back.png"))

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, p.CreatedAt.Equal(got.CreatedAt))
	got.CreatedAt = p.CreatedAt
	assert.Equal(t, p, got)

	list, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestCreateProduct_Validation(t *testing.T) {
	s, store, _ := newService()
	ctx := context.Background()

	for _, in := range []NewProduct{
		{Name: ""},
		{Name: "x", Price: -1},
		{Name: "x", Type: "hoodie"},
	} {
		_, err := s.CreateProduct(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Zero(t, store.Count(domain.CollectionProducts))

	p, err := s.CreateProduct(ctx, NewProduct{Name: "Tee", Type: "PLAIN"})
	require.NoError(t, err)
	assert.Equal(t, domain.ProductTypePlain, p.Type)
	assert.False(t, p.Customizable())
}

func TestCreateProduct_UploadFailureStoresNothing(t *testing.T) {
	s, store, objects := newService()
	objects.FailPaths["products/1700000000123_back_b.png"] = true

	_, err := s.CreateProduct(context.Background(), NewProduct{Name: "x", Back: &Upload{Filename: "b.png"}})
	assert.ErrorIs(t, err, domain.ErrUpload)
	assert.Zero(t, store.Count(domain.CollectionProducts))
}

func TestNotConfigured(t *testing.T) {
	s := New(nil, nil)
	ctx := context.Background()

	_, err := s.ListProducts(ctx)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	_, err = s.GetProduct(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	_, err = s.PutStore(ctx, "n", "a@b.c")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)

	withStore := New(domaintest.NewMemStore(), nil)
	_, err = withStore.CreateProduct(ctx, NewProduct{Name: "x", Front: &Upload{Filename: "f.png"}})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)

	var nilSvc *Service
	_, err = nilSvc.ListStores(ctx)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestGetProduct_NotFound(t *testing.T) {
	s, _, _ := newService()
	_, err := s.GetProduct(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStores(t *testing.T) {
	s, store, _ := newService()
	ctx := context.Background()

	_, err := s.PutStore(ctx, "North", "north@shop.test")
	require.NoError(t, err)
	_, err = s.PutStore(ctx, "South", "")
	require.NoError(t, err)
	_, err = s.PutStore(ctx, "North", "north2@shop.test")
	require.NoError(t, err)
	assert.Equal(t, 2, store.Count(domain.CollectionStores))

	stores, err := s.ListStores(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.StoreEmail{
		{Name: "North", Email: "north2@shop.test"},
		{Name: "South", Email: ""},
	}, stores)

	emails, err := s.StoreEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"north2@shop.test"}, emails)

	_, err = s.PutStore(ctx, " ", "a@b.c")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.PutStore(ctx, "East", "not-an-email")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
