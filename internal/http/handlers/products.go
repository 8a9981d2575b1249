package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"jerseyprint/internal/catalog"
	"jerseyprint/internal/domain"
	"jerseyprint/internal/infra/logging"
)

// Catalog serves products and the store e-mail directory.
type Catalog struct {
	Service        *catalog.Service
	MaxUploadBytes int
}

func (h *Catalog) ready(c *fiber.Ctx) error {
	if h.Service == nil {
		return toFiberError(c, fmt.Errorf("catalog: %w", domain.ErrNotConfigured))
	}
	return nil
}

// ListProducts returns every product.
func (h *Catalog) ListProducts(c *fiber.Ctx) error {
	if err := h.ready(c); err != nil {
		return err
	}
	products, err := h.Service.ListProducts(c.UserContext())
	if err != nil {
		return toFiberError(c, err)
	}
	return c.JSON(products)
}

// GetProduct returns one product.
func (h *Catalog) GetProduct(c *fiber.Ctx) error {
	if err := h.ready(c); err != nil {
		return err
	}
	p, err := h.Service.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return toFiberError(c, err)
	}
	return c.JSON(p)
}

// CreateProduct accepts a multipart form with the product fields and the
// optional front and back photos.
func (h *Catalog) CreateProduct(c *fiber.Ctx) error {
	if err := h.ready(c); err != nil {
		return err
	}
	in := catalog.NewProduct{
		Name:        c.FormValue("name"),
		Type:        c.FormValue("type"),
		Description: c.FormValue("description"),
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(c.FormValue("price")), 64)
	if err != nil {
		return badRequest("Invalid price: must be a number")
	}
	in.Price = price

	if in.Front, err = h.upload(c, "front"); err != nil {
		return err
	}
	if in.Back, err = h.upload(c, "back"); err != nil {
		return err
	}

	p, err := h.Service.CreateProduct(c.UserContext(), in)
	if err != nil {
		return toFiberError(c, err)
	}
	logging.Info("Product created", "id", p.ID, "name", p.Name, "request_id", requestID(c))
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *Catalog) upload(c *fiber.Ctx, field string) (*catalog.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		// absent file
		return nil, nil
	}
	if h.MaxUploadBytes > 0 && fh.Size > int64(h.MaxUploadBytes) {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("%s image exceeds %d bytes", field, h.MaxUploadBytes))
	}
	data, err := readPart(fh)
	if err != nil {
		return nil, badRequest("Invalid " + field + " image")
	}
	ct := fh.Header.Get(fiber.HeaderContentType)
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &catalog.Upload{Filename: fh.Filename, ContentType: ct, Data: data}, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type storeRequest struct {
	Email string `json:"email"`
}

// ListStores returns the store e-mail directory.
func (h *Catalog) ListStores(c *fiber.Ctx) error {
	if err := h.ready(c); err != nil {
		return err
	}
	stores, err := h.Service.ListStores(c.UserContext())
	if err != nil {
		return toFiberError(c, err)
	}
	return c.JSON(stores)
}

// PutStore sets the e-mail of the store named in the path.
func (h *Catalog) PutStore(c *fiber.Ctx) error {
	if err := h.ready(c); err != nil {
		return err
	}
	var req storeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	st, err := h.Service.PutStore(c.UserContext(), c.Params("name"), req.Email)
	if err != nil {
		return toFiberError(c, err)
	}
	logging.Info("Store e-mail updated", "store", st.Name, "request_id", requestID(c))
	return c.JSON(st)
}
