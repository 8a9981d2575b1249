// Package orders runs the checkout: it renders the order artwork, uploads it,
// stores the order and notifies the stores.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"jerseyprint/internal/domain"
	"jerseyprint/internal/infra/logging"
	"jerseyprint/internal/infra/metrics"
	"jerseyprint/internal/render/raster"
)

// Products resolves catalog entries.
type Products interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

// Compositor burns a customization into the product back photo.
type Compositor interface {
	CompositeURL(ctx context.Context, url string, cust domain.Customization) (domain.Artifact, error)
}

// Guard deduplicates submissions carrying the same idempotency key.
type Guard interface {
	Claim(ctx context.Context, key, orderID string) (string, bool, error)
	Release(ctx context.Context, key string) error
}

// Notifier is told about every stored order.
type Notifier interface {
	OrderPlaced(order domain.Order)
}

// Request is a checkout submission.
type Request struct {
	ProductID      string                `json:"productId"`
	Customization  *domain.Customization `json:"customization"`
	Billing        domain.Billing        `json:"billing"`
	IdempotencyKey string                `json:"-"`
}

// Result is the stored order. Duplicate is set when the idempotency key
// matched an earlier submission.
type Result struct {
	Order     domain.Order
	Duplicate bool
}

// Service wires the checkout collaborators. Nil Store or Objects make every
// submission fail with domain.ErrNotConfigured.
type Service struct {
	Store      domain.DocumentStore
	Objects    domain.ObjectStore
	Products   Products
	Compositor Compositor
	Fetcher    domain.Fetcher
	Guard      Guard
	Notifier   Notifier
	Metrics    *metrics.Metrics
	Limits     domain.Limits

	RenderTimeout time.Duration
	PublicBaseURL string
	Now           func() time.Time
}

func (s *Service) ready() error {
	switch {
	case s.Store == nil:
		return fmt.Errorf("document store: %w", domain.ErrNotConfigured)
	case s.Objects == nil:
		return fmt.Errorf("object storage: %w", domain.ErrNotConfigured)
	case s.Products == nil:
		return fmt.Errorf("catalog: %w", domain.ErrNotConfigured)
	}
	return nil
}

// Submit places an order. Artwork is best-effort: a failed render drops that
// image and the order continues. A failed upload aborts the submission.
func (s *Service) Submit(ctx context.Context, req Request) (Result, error) {
	if err := s.ready(); err != nil {
		return Result{}, err
	}
	if err := req.Billing.Validate(); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return Result{}, fmt.Errorf("%w: productId is required", domain.ErrInvalidInput)
	}

	product, err := s.Products.GetProduct(ctx, req.ProductID)
	if err != nil {
		return Result{}, err
	}

	var cust *domain.Customization
	if product.Customizable() && req.Customization != nil {
		c, err := req.Customization.Normalize(s.Limits)
		if err != nil {
			return Result{}, err
		}
		cust = &c
	}

	id := xid.New().String()
	if req.IdempotencyKey != "" && s.Guard != nil {
		existing, fresh, err := s.Guard.Claim(ctx, req.IdempotencyKey, id)
		switch {
		case err != nil:
			logging.Warn("Idempotency guard unavailable", "error", err)
		case !fresh:
			return s.duplicate(ctx, existing)
		}
	}

	order, err := s.place(ctx, id, product, cust, req.Billing)
	if err != nil {
		if req.IdempotencyKey != "" && s.Guard != nil {
			if rerr := s.Guard.Release(context.WithoutCancel(ctx), req.IdempotencyKey); rerr != nil {
				logging.Warn("Failed to release idempotency key", "error", rerr)
			}
		}
		return Result{}, err
	}

	logging.Info("Order placed", "order_id", order.ID, "product_id", product.ID,
		"back", order.Images.BackURL != "", "front", order.Images.FrontURL != "")
	if s.Notifier != nil {
		s.Notifier.OrderPlaced(order)
	}
	return Result{Order: order}, nil
}

func (s *Service) duplicate(ctx context.Context, id string) (Result, error) {
	order, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return Result{}, fmt.Errorf("%w: order %s is still being placed", domain.ErrConflict, id)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Order: order, Duplicate: true}, nil
}

func (s *Service) place(ctx context.Context, id string, product domain.Product, cust *domain.Customization, billing domain.Billing) (domain.Order, error) {
	back, front := s.artwork(ctx, id, product, cust)

	var images domain.Images
	g, gctx := errgroup.WithContext(ctx)
	upload := func(a *domain.Artifact, side string, dst *string) {
		if a == nil {
			return
		}
		g.Go(func() error {
			url, err := s.Objects.Put(gctx, fmt.Sprintf("orders/%s/%s.png", id, side), a.Data, a.ContentType)
			if err != nil {
				if !errors.Is(err, domain.ErrUpload) {
					err = fmt.Errorf("%w: %v", domain.ErrUpload, err)
				}
				return err
			}
			*dst = url
			return nil
		})
	}
	upload(back, "back", &images.BackURL)
	upload(front, "front", &images.FrontURL)
	if err := g.Wait(); err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID: id,
		Product: domain.ProductRef{
			ID:    product.ID,
			Name:  product.Name,
			Price: product.Price,
			Type:  product.Type,
		},
		Customization: cust,
		Billing:       billing,
		Images:        images,
		Totals:        domain.ComputeTotals(product.Price),
		CreatedAt:     s.now(),
	}
	fields, err := domain.ToFields(order)
	if err != nil {
		return domain.Order{}, err
	}
	delete(fields, "orderId")
	if _, err := s.Store.Create(ctx, domain.CollectionOrders, id, fields); err != nil {
		return domain.Order{}, fmt.Errorf("store order %s: %w", id, err)
	}
	return order, nil
}

// artwork renders the back composite and the front view concurrently. Each
// result is nil when its source is missing or fails.
func (s *Service) artwork(ctx context.Context, id string, product domain.Product, cust *domain.Customization) (back, front *domain.Artifact) {
	timeout := s.RenderTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var g errgroup.Group
	if cust != nil && cust.HasText() && product.BackImageURL != "" && s.Compositor != nil {
		g.Go(func() error {
			started := time.Now()
			a, err := s.Compositor.CompositeURL(ctx, product.BackImageURL, *cust)
			s.Metrics.ObserveRender(metrics.KindRasterBack, started, err)
			if err != nil {
				logging.Warn("Back artwork skipped", "order_id", id, "error", err)
				return nil
			}
			back = &a
			return nil
		})
	}
	if product.FrontImageURL != "" && s.Fetcher != nil {
		g.Go(func() error {
			started := time.Now()
			a, err := s.frontView(ctx, product.FrontImageURL)
			s.Metrics.ObserveRender(metrics.KindRasterFront, started, err)
			if err != nil {
				logging.Warn("Front artwork skipped", "order_id", id, "error", err)
				return nil
			}
			front = &a
			return nil
		})
	}
	_ = g.Wait()
	return back, front
}

func (s *Service) frontView(ctx context.Context, url string) (domain.Artifact, error) {
	data, err := s.Fetcher.Get(ctx, url)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: %w", domain.ErrImageLoad, err)
	}
	return raster.Reencode(ctx, data)
}

// Get loads a stored order.
func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	if s.Store == nil {
		return domain.Order{}, fmt.Errorf("document store: %w", domain.ErrNotConfigured)
	}
	doc, err := s.Store.Get(ctx, domain.CollectionOrders, id)
	if err != nil {
		return domain.Order{}, err
	}
	var order domain.Order
	if err := domain.FromFields(doc.Fields, &order); err != nil {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, err)
	}
	order.ID = doc.ID
	return order, nil
}

// QR returns a PNG QR code linking to the order, for the print shop label.
func (s *Service) QR(ctx context.Context, id string, size int) ([]byte, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	link := strings.TrimRight(s.PublicBaseURL, "/") + "/v1/orders/" + id
	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr for order %s: %w", id, err)
	}
	return png, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
