package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/service"
	"github.com/umalmyha/customer-registry/internal/validation"
)

const defaultPageLimit = 20

type customerPage struct {
	Items      []*model.Customer `json:"items"`
	NextCursor *string           `json:"nextCursor"`
	HasMore    bool              `json:"hasMore"`
}

// CustomerHTTPHandler is http handler for customer endpoint
type CustomerHTTPHandler struct {
	customerSvc service.CustomerService
}

// NewCustomerHTTPHandler builds new CustomerHTTPHandler
func NewCustomerHTTPHandler(customerSvc service.CustomerService) *CustomerHTTPHandler {
	return &CustomerHTTPHandler{customerSvc: customerSvc}
}

// Get returns single customer by id
func (h *CustomerHTTPHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	customer, err := h.customerSvc.FindByID(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, customer)
}

// Search returns single customer by email
func (h *CustomerHTTPHandler) Search(c echo.Context) error {
	customer, err := h.customerSvc.FindByEmail(c.Request().Context(), c.QueryParam("email"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, customer)
}

// GetPage returns one page of customers in ascending id order
func (h *CustomerHTTPHandler) GetPage(c echo.Context) error {
	var cursor *int64
	if raw := c.QueryParam("cursor"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return validation.NewPayloadError(validation.Violation{
				Field:   "cursor",
				Message: "cursor must be a valid customer id",
			})
		}
		cursor = &parsed
	}

	limit := defaultPageLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return validation.NewPayloadError(validation.Violation{
				Field:   "limit",
				Message: "limit must be an integer",
			})
		}
		limit = parsed
	}

	page, err := h.customerSvc.Page(c.Request().Context(), cursor, limit)
	if err != nil {
		return err
	}

	resp := &customerPage{Items: page.Items, HasMore: page.HasMore}
	if page.NextCursor != nil {
		next := strconv.FormatInt(*page.NextCursor, 10)
		resp.NextCursor = &next
	}
	return c.JSON(http.StatusOK, resp)
}

// Post creates new customer
func (h *CustomerHTTPHandler) Post(c echo.Context) error {
	var nc model.Customer
	if err := c.Bind(&nc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	customer, err := h.customerSvc.Create(c.Request().Context(), &nc)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, customer)
}

// Put fully replaces customer
func (h *CustomerHTTPHandler) Put(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var uc model.Customer
	if err := c.Bind(&uc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	customer, err := h.customerSvc.Update(c.Request().Context(), id, &uc)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, customer)
}

// PatchDocument applies an RFC 7396 merge-patch to customer
func (h *CustomerHTTPHandler) PatchDocument(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	patchDoc, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	customer, err := h.customerSvc.Patch(c.Request().Context(), id, patchDoc)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, customer)
}

// DeleteByID deletes customer with provided id
func (h *CustomerHTTPHandler) DeleteByID(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.customerSvc.DeleteByID(c.Request().Context(), id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, validation.NewPayloadError(validation.Violation{
			Field:   "id",
			Message: "id must be a 64-bit integer",
		})
	}
	return id, nil
}
