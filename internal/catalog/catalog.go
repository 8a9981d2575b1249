// Package catalog manages products and the store e-mail directory.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"jerseyprint/internal/domain"
	"jerseyprint/internal/infra/objectstore"
)

// Upload is an image file sent with a new product.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewProduct is the admin input for a catalog entry.
type NewProduct struct {
	Name        string
	Price       float64
	Type        string
	Description string
	Front       *Upload
	Back        *Upload
}

// Service reads and writes catalog documents.
type Service struct {
	Store   domain.DocumentStore
	Objects domain.ObjectStore
	Now     func() time.Time
}

func New(store domain.DocumentStore, objects domain.ObjectStore) *Service {
	return &Service{Store: store, Objects: objects, Now: time.Now}
}

func (s *Service) store() (domain.DocumentStore, error) {
	if s == nil || s.Store == nil {
		return nil, fmt.Errorf("document store: %w", domain.ErrNotConfigured)
	}
	return s.Store, nil
}

// ListProducts returns every product, oldest first.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	docs, err := store.List(ctx, domain.CollectionProducts)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		p, err := productFrom(d)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// GetProduct loads one product.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	store, err := s.store()
	if err != nil {
		return domain.Product{}, err
	}
	doc, err := store.Get(ctx, domain.CollectionProducts, id)
	if err != nil {
		return domain.Product{}, err
	}
	return productFrom(doc)
}

// CreateProduct uploads the images and stores the product.
func (s *Service) CreateProduct(ctx context.Context, in NewProduct) (domain.Product, error) {
	store, err := s.store()
	if err != nil {
		return domain.Product{}, err
	}
	p, err := in.validate()
	if err != nil {
		return domain.Product{}, err
	}
	if (in.Front != nil || in.Back != nil) && s.Objects == nil {
		return domain.Product{}, fmt.Errorf("object storage: %w", domain.ErrNotConfigured)
	}

	now := s.now()
	p.CreatedAt = now

	g, gctx := errgroup.WithContext(ctx)
	upload := func(side string, u *Upload, dst *string) {
		if u == nil {
			return
		}
		g.Go(func() error {
			path := fmt.Sprintf("products/%d_%s_%s", now.UnixMilli(), side, objectstore.SafeName(u.Filename))
			url, err := s.Objects.Put(gctx, path, u.Data, u.ContentType)
			if err != nil {
				return err
			}
			*dst = url
			return nil
		})
	}
	upload("front", in.Front, &p.FrontImageURL)
	upload("back", in.Back, &p.BackImageURL)
	if err := g.Wait(); err != nil {
		return domain.Product{}, err
	}

	fields, err := domain.ToFields(p)
	if err != nil {
		return domain.Product{}, err
	}
	delete(fields, "id")
	id, err := store.Create(ctx, domain.CollectionProducts, "", fields)
	if err != nil {
		return domain.Product{}, err
	}
	p.ID = id
	return p, nil
}

func (in NewProduct) validate() (domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
	}
	if in.Price < 0 {
		return domain.Product{}, fmt.Errorf("%w: product price must not be negative", domain.ErrInvalidInput)
	}
	typ := strings.ToLower(strings.TrimSpace(in.Type))
	switch typ {
	case "":
		typ = domain.ProductTypeJersey
	case domain.ProductTypeJersey, domain.ProductTypePlain:
	default:
		return domain.Product{}, fmt.Errorf("%w: product type %q", domain.ErrInvalidInput, in.Type)
	}
	return domain.Product{
		Name:        name,
		Price:       in.Price,
		Type:        typ,
		Description: strings.TrimSpace(in.Description),
	}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func productFrom(d domain.Document) (domain.Product, error) {
	var p domain.Product
	if err := domain.FromFields(d.Fields, &p); err != nil {
		return domain.Product{}, fmt.Errorf("product %s: %w", d.ID, err)
	}
	p.ID = d.ID
	return p, nil
}

// ListStores returns the store e-mail directory.
func (s *Service) ListStores(ctx context.Context) ([]domain.StoreEmail, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	docs, err := store.List(ctx, domain.CollectionStores)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StoreEmail, 0, len(docs))
	for _, d := range docs {
		var se domain.StoreEmail
		if err := domain.FromFields(d.Fields, &se); err != nil {
			return nil, fmt.Errorf("store %s: %w", d.ID, err)
		}
		if se.Name == "" {
			se.Name = d.ID
		}
		out = append(out, se)
	}
	return out, nil
}

// PutStore creates or replaces the e-mail of a store. An empty e-mail
// clears it.
func (s *Service) PutStore(ctx context.Context, name, email string) (domain.StoreEmail, error) {
	store, err := s.store()
	if err != nil {
		return domain.StoreEmail{}, err
	}
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return domain.StoreEmail{}, fmt.Errorf("%w: store name is required", domain.ErrInvalidInput)
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return domain.StoreEmail{}, fmt.Errorf("%w: store email %q", domain.ErrInvalidInput, email)
		}
	}

	se := domain.StoreEmail{Name: name, Email: email}
	fields := map[string]any{"name": se.Name, "email": se.Email}
	err = store.Update(ctx, domain.CollectionStores, name, fields)
	if errors.Is(err, domain.ErrNotFound) {
		_, err = store.Create(ctx, domain.CollectionStores, name, fields)
	}
	if err != nil {
		return domain.StoreEmail{}, err
	}
	return se, nil
}

// StoreEmails returns the non-blank store addresses.
func (s *Service) StoreEmails(ctx context.Context) ([]string, error) {
	stores, err := s.ListStores(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(stores))
	for _, st := range stores {
		if e := strings.TrimSpace(st.Email); e != "" {
			out = append(out, e)
		}
	}
	return out, nil
}
