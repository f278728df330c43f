package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"pymegate/internal/auth/token"
	"pymegate/internal/business/models"
	"pymegate/internal/business/service"
	"pymegate/internal/business/store"
)

type HandlerSuite struct {
	suite.Suite

	tokens *token.Issuer
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.tokens = token.NewIssuer("test-signing-key", "pymegate-test")
	svc := service.New(store.NewInMemory(), logger)

	s.router = chi.NewRouter()
	New(svc, s.tokens, logger).Register(s.router)
}

func (s *HandlerSuite) bearer(identity token.Identity) string {
	signed, err := s.tokens.Issue(identity)
	s.Require().NoError(err)
	return signed
}

func (s *HandlerSuite) do(method, target, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) createBusiness(ownerBearer string) models.Business {
	rec := s.do(http.MethodPost, "/businesses", ownerBearer, map[string]any{
		"name":    "Ferretería El Clavo",
		"commune": "Maipú",
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var business models.Business
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&business))
	return business
}

func (s *HandlerSuite) TestCreate() {
	owner := s.bearer(token.Identity{AccountID: "acct-1", Role: "standard", NationalID: "12345678-5"})

	s.Run("owner with RUT creates a pending listing", func() {
		business := s.createBusiness(owner)
		s.Equal("12345678-5", business.OwnerNationalID)
		s.Equal(models.StatusPending, business.Status)
	})

	s.Run("caller without RUT is forbidden", func() {
		rutless := s.bearer(token.Identity{AccountID: "acct-2", Role: "standard"})
		rec := s.do(http.MethodPost, "/businesses", rutless, map[string]any{"name": "Sin RUT"})
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("unauthenticated is 401", func() {
		rec := s.do(http.MethodPost, "/businesses", "", map[string]any{"name": "Anónimo"})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *HandlerSuite) TestOwnershipGate() {
	owner := s.bearer(token.Identity{AccountID: "acct-1", Role: "standard", NationalID: "12345678-5"})
	stranger := s.bearer(token.Identity{AccountID: "acct-2", Role: "standard", NationalID: "7775593-4"})
	admin := s.bearer(token.Identity{AccountID: "acct-3", Role: "admin"})
	business := s.createBusiness(owner)

	update := map[string]any{"description": "Todo para la construcción"}

	s.Run("anyone can read", func() {
		rec := s.do(http.MethodGet, "/businesses/"+business.ID, "", nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("owner can update", func() {
		rec := s.do(http.MethodPut, "/businesses/"+business.ID, owner, update)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("non-owner is forbidden", func() {
		rec := s.do(http.MethodPut, "/businesses/"+business.ID, stranger, update)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("admin bypasses ownership", func() {
		rec := s.do(http.MethodPut, "/businesses/"+business.ID, admin, update)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("unknown business is 404", func() {
		rec := s.do(http.MethodPut, "/businesses/no-such", owner, update)
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerSuite) TestStatusIsAdminOnly() {
	owner := s.bearer(token.Identity{AccountID: "acct-1", Role: "standard", NationalID: "12345678-5"})
	admin := s.bearer(token.Identity{AccountID: "acct-3", Role: "admin"})
	business := s.createBusiness(owner)

	rec := s.do(http.MethodPut, "/businesses/"+business.ID+"/status", owner,
		map[string]string{"status": "published"})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, "/businesses/"+business.ID+"/status", admin,
		map[string]string{"status": "published"})
	s.Require().Equal(http.StatusOK, rec.Code)

	var updated models.Business
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&updated))
	s.Equal(models.StatusPublished, updated.Status)
}

func (s *HandlerSuite) TestDelete() {
	owner := s.bearer(token.Identity{AccountID: "acct-1", Role: "standard", NationalID: "12345678-5"})
	business := s.createBusiness(owner)

	rec := s.do(http.MethodDelete, "/businesses/"+business.ID, owner, nil)
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/businesses/"+business.ID, "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}
