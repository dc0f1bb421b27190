package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/handlers"
	"github.com/umalmyha/customer-registry/internal/infra"
	"github.com/umalmyha/customer-registry/internal/model"
	svcMocks "github.com/umalmyha/customer-registry/internal/service/mocks"
	"github.com/umalmyha/customer-registry/internal/validation"
)

type problemBody struct {
	Type   string                 `json:"type"`
	Title  string                 `json:"title"`
	Status int                    `json:"status"`
	Detail string                 `json:"detail"`
	Errors []validation.Violation `json:"errors"`
}

type httpHandlersTestSuite struct {
	suite.Suite
	app             *echo.Echo
	customerSvcMock *svcMocks.CustomerService
}

func (s *httpHandlersTestSuite) SetupTest() {
	s.customerSvcMock = svcMocks.NewCustomerService(s.T())

	h := handlers.NewCustomerHTTPHandler(s.customerSvcMock)

	e := echo.New()
	e.HTTPErrorHandler = infra.HTTPErrorHandler

	api := e.Group("/api/v1/customers")
	api.GET("", h.GetPage)
	api.GET("/search", h.Search)
	api.GET("/:id", h.Get)
	api.POST("", h.Post)
	api.PUT("/:id", h.Put)
	api.PATCH("/:id", h.PatchDocument)
	api.DELETE("/:id", h.DeleteByID)

	s.app = e
}

func (s *httpHandlersTestSuite) request(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	s.app.ServeHTTP(rec, req)
	return rec
}

func (s *httpHandlersTestSuite) problemOf(rec *httptest.ResponseRecorder) problemBody {
	var p problemBody
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &p), "problem body must be valid JSON")
	return p
}

func testCustomer(id int64) *model.Customer {
	now := time.Date(2022, time.July, 1, 10, 0, 0, 0, time.UTC)
	return &model.Customer{
		ID:        id,
		Type:      "person",
		FirstName: "John",
		LastName:  "Walls",
		Emails:    []model.Email{{Email: "john.walls@somemail.com", Primary: true}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *httpHandlersTestSuite) TestGetOk() {
	c := testCustomer(101)
	s.customerSvcMock.On("FindByID", mock.Anything, int64(101)).Return(c, nil).Once()

	rec := s.request(http.MethodGet, "/api/v1/customers/101", "")
	s.Assert().Equal(http.StatusOK, rec.Code)

	var got model.Customer
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	s.Assert().Equal(c.ID, got.ID, "id must be rendered as string-encoded 64-bit value")
}

func (s *httpHandlersTestSuite) TestGetNotFound() {
	s.customerSvcMock.On("FindByID", mock.Anything, int64(404)).Return(nil, apperrors.NotFound("customer 404 does not exist")).Once()

	rec := s.request(http.MethodGet, "/api/v1/customers/404", "")
	s.Assert().Equal(http.StatusNotFound, rec.Code)

	p := s.problemOf(rec)
	s.Assert().Equal(http.StatusNotFound, p.Status)
	s.Assert().NotEmpty(p.Detail, "not found must carry detail")
}

func (s *httpHandlersTestSuite) TestGetMalformedID() {
	rec := s.request(http.MethodGet, "/api/v1/customers/abc", "")
	s.Assert().Equal(http.StatusBadRequest, rec.Code)

	p := s.problemOf(rec)
	s.Require().Len(p.Errors, 1)
	s.Assert().Equal("id", p.Errors[0].Field, "violation must name the id param")
}

func (s *httpHandlersTestSuite) TestPostCreated() {
	c := testCustomer(102)
	s.customerSvcMock.On("Create", mock.Anything, mock.AnythingOfType("*model.Customer")).Return(c, nil).Once()

	body := `{"type":"person","firstName":"John","lastName":"Walls","emails":[{"email":"john.walls@somemail.com","primary":true}]}`
	rec := s.request(http.MethodPost, "/api/v1/customers", body)
	s.Assert().Equal(http.StatusCreated, rec.Code)
}

func (s *httpHandlersTestSuite) TestPostInvalidPayload() {
	pldErr := validation.NewPayloadError(validation.Violation{Field: "firstName", Message: "firstName is a required field"})
	s.customerSvcMock.On("Create", mock.Anything, mock.AnythingOfType("*model.Customer")).Return(nil, pldErr).Once()

	body := `{"type":"person","firstName":"","lastName":"Doe","emails":[{"email":"a@b.com","primary":true}]}`
	rec := s.request(http.MethodPost, "/api/v1/customers", body)
	s.Assert().Equal(http.StatusBadRequest, rec.Code)

	p := s.problemOf(rec)
	s.Require().Len(p.Errors, 1)
	s.Assert().Equal("firstName", p.Errors[0].Field, "violation must name the field")
}

func (s *httpHandlersTestSuite) TestPostDuplicateEmailConflict() {
	s.customerSvcMock.On("Create", mock.Anything, mock.AnythingOfType("*model.Customer")).
		Return(nil, apperrors.Conflict("email x@y.com is already in use")).Once()

	body := `{"type":"person","firstName":"John","lastName":"Walls","emails":[{"email":"x@y.com","primary":true}]}`
	rec := s.request(http.MethodPost, "/api/v1/customers", body)
	s.Assert().Equal(http.StatusConflict, rec.Code)
}

func (s *httpHandlersTestSuite) TestPutOk() {
	c := testCustomer(103)
	s.customerSvcMock.On("Update", mock.Anything, int64(103), mock.AnythingOfType("*model.Customer")).Return(c, nil).Once()

	body := `{"type":"person","firstName":"John","lastName":"Walls","emails":[{"email":"john.walls@somemail.com"}]}`
	rec := s.request(http.MethodPut, "/api/v1/customers/103", body)
	s.Assert().Equal(http.StatusOK, rec.Code)
}

func (s *httpHandlersTestSuite) TestPatchOk() {
	c := testCustomer(104)
	c.FirstName = "Jane"
	s.customerSvcMock.On("Patch", mock.Anything, int64(104), []byte(`{"firstName":"Jane"}`)).Return(c, nil).Once()

	rec := s.request(http.MethodPatch, "/api/v1/customers/104", `{"firstName":"Jane"}`)
	s.Assert().Equal(http.StatusOK, rec.Code)

	var got model.Customer
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	s.Assert().Equal("Jane", got.FirstName)
}

func (s *httpHandlersTestSuite) TestDeleteTwice() {
	s.customerSvcMock.On("DeleteByID", mock.Anything, int64(105)).Return(nil).Once()

	rec := s.request(http.MethodDelete, "/api/v1/customers/105", "")
	s.Assert().Equal(http.StatusNoContent, rec.Code, "first delete must succeed")

	s.customerSvcMock.On("DeleteByID", mock.Anything, int64(105)).Return(apperrors.NotFound("customer 105 does not exist")).Once()

	rec = s.request(http.MethodDelete, "/api/v1/customers/105", "")
	s.Assert().Equal(http.StatusNotFound, rec.Code, "second delete must observe not found")
}

func (s *httpHandlersTestSuite) TestStorageUnavailable() {
	s.customerSvcMock.On("FindByID", mock.Anything, int64(106)).
		Return(nil, apperrors.Unavailable("storage contention", nil)).Once()

	rec := s.request(http.MethodGet, "/api/v1/customers/106", "")
	s.Assert().Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *httpHandlersTestSuite) TestInternalErrorHidesDetail() {
	s.customerSvcMock.On("FindByID", mock.Anything, int64(107)).
		Return(nil, apperrors.Internal("unexpected storage failure", fmt.Errorf("secret dsn"))).Once()

	rec := s.request(http.MethodGet, "/api/v1/customers/107", "")
	s.Assert().Equal(http.StatusInternalServerError, rec.Code)

	p := s.problemOf(rec)
	s.Assert().Empty(p.Detail, "internal detail must not leak to the caller")
	s.Assert().NotContains(rec.Body.String(), "secret dsn", "cause must never be rendered")
}

func (s *httpHandlersTestSuite) TestGetPage() {
	next := int64(2)
	page := &model.CustomerPage{
		Items:      []*model.Customer{testCustomer(1), testCustomer(2)},
		NextCursor: &next,
		HasMore:    true,
	}
	s.customerSvcMock.On("Page", mock.Anything, (*int64)(nil), 2).Return(page, nil).Once()

	rec := s.request(http.MethodGet, "/api/v1/customers?limit=2", "")
	s.Assert().Equal(http.StatusOK, rec.Code)

	var got struct {
		Items      []json.RawMessage `json:"items"`
		NextCursor *string           `json:"nextCursor"`
		HasMore    bool              `json:"hasMore"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	s.Assert().Len(got.Items, 2)
	s.Assert().True(got.HasMore)
	s.Require().NotNil(got.NextCursor)
	s.Assert().Equal("2", *got.NextCursor)
}

func (s *httpHandlersTestSuite) TestGetPageWithCursor() {
	cursor := int64(2)
	page := &model.CustomerPage{Items: []*model.Customer{testCustomer(3)}}
	s.customerSvcMock.On("Page", mock.Anything, &cursor, 2).Return(page, nil).Once()

	rec := s.request(http.MethodGet, "/api/v1/customers?cursor=2&limit=2", "")
	s.Assert().Equal(http.StatusOK, rec.Code)
}

func (s *httpHandlersTestSuite) TestGetPageMalformedCursor() {
	rec := s.request(http.MethodGet, "/api/v1/customers?cursor=abc", "")
	s.Assert().Equal(http.StatusBadRequest, rec.Code)

	p := s.problemOf(rec)
	s.Require().Len(p.Errors, 1)
	s.Assert().Equal("cursor", p.Errors[0].Field)
}

func (s *httpHandlersTestSuite) TestSearchByEmail() {
	c := testCustomer(108)
	s.customerSvcMock.On("FindByEmail", mock.Anything, "john.walls@somemail.com").Return(c, nil).Once()

	rec := s.request(http.MethodGet, "/api/v1/customers/search?email=john.walls%40somemail.com", "")
	s.Assert().Equal(http.StatusOK, rec.Code)
}

// start http handlers test suite
func TestHTTPHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(httpHandlersTestSuite))
}
