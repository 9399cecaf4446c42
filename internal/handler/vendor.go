package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/calyxcontainers/scar-service/internal/model"
	"github.com/calyxcontainers/scar-service/internal/repository"
)

// VendorHandler manages the supplier directory. The unauthenticated
// listing feeds the registration form; everything else is admin only
// (enforced in the router).
type VendorHandler struct {
	Vendors *repository.VendorRepo
}

func NewVendorHandler(v *repository.VendorRepo) *VendorHandler {
	return &VendorHandler{Vendors: v}
}

type vendorReq struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type contactReq struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	IsPrimary bool   `json:"is_primary"`
}

type vendorResp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type contactResp struct {
	ID        string `json:"id"`
	VendorID  string `json:"vendor_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	IsPrimary bool   `json:"is_primary"`
}

type vendorOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toVendorResp(v model.Vendor) vendorResp {
	return vendorResp{ID: v.ID, Name: v.Name, Address: v.Address, Phone: v.Phone, CreatedAt: v.CreatedAt}
}

func toContactResp(c model.VendorContact) contactResp {
	return contactResp{ID: c.ID, VendorID: c.VendorID, Name: c.Name, Email: c.Email, Phone: c.Phone, IsPrimary: c.IsPrimary}
}

// ListPublic returns id and name only, for the registration form.
func (h *VendorHandler) ListPublic(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	vendors, err := h.Vendors.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list vendors"})
	}
	out := make([]vendorOption, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, vendorOption{ID: v.ID, Name: v.Name})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VendorHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	vendors, err := h.Vendors.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list vendors"})
	}
	out := make([]vendorResp, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, toVendorResp(v))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VendorHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Vendors.GetByID(ctx, c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "vendor not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load vendor"})
	}
	return c.JSON(http.StatusOK, toVendorResp(v))
}

func (h *VendorHandler) Create(c echo.Context) error {
	var req vendorReq
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "vendor name is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Vendors.Create(ctx, req.Name, req.Address, req.Phone)
	if errors.Is(err, repository.ErrNameExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "vendor name already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create vendor"})
	}
	return c.JSON(http.StatusCreated, toVendorResp(v))
}

func (h *VendorHandler) Update(c echo.Context) error {
	var req vendorReq
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "vendor name is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Vendors.Update(ctx, c.Param("id"), req.Name, req.Address, req.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "vendor not found"})
	}
	if errors.Is(err, repository.ErrNameExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "vendor name already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update vendor"})
	}
	return c.JSON(http.StatusOK, toVendorResp(v))
}

func (h *VendorHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Vendors.Delete(ctx, c.Param("id")); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete vendor"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- contacts -----

func (h *VendorHandler) ListContacts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	contacts, err := h.Vendors.Contacts(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list contacts"})
	}
	out := make([]contactResp, 0, len(contacts))
	for _, ct := range contacts {
		out = append(out, toContactResp(ct))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VendorHandler) CreateContact(c echo.Context) error {
	var req contactReq
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "contact name is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ct, err := h.Vendors.CreateContact(ctx, c.Param("id"), req.Name, req.Email, req.Phone, req.IsPrimary)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create contact"})
	}
	return c.JSON(http.StatusCreated, toContactResp(ct))
}

func (h *VendorHandler) UpdateContact(c echo.Context) error {
	var req contactReq
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "contact name is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ct, err := h.Vendors.UpdateContact(ctx, c.Param("contactId"), req.Name, req.Email, req.Phone, req.IsPrimary)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "contact not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update contact"})
	}
	return c.JSON(http.StatusOK, toContactResp(ct))
}

func (h *VendorHandler) DeleteContact(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Vendors.DeleteContact(ctx, c.Param("contactId")); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete contact"})
	}
	return c.NoContent(http.StatusNoContent)
}
