package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	auditsvc "hrdms/internal/audit"
	"hrdms/internal/audit/mocks"
	audit "hrdms/pkg/platform/audit"
	"hrdms/pkg/platform/audit/store/memory"
	"hrdms/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router  chi.Router
	service *auditsvc.Service
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func newRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func (s *HandlerSuite) SetupTest() {
	s.service = auditsvc.New(memory.NewInMemoryStore())
	s.router = newRouter(s.service)
}

func (s *HandlerSuite) seed(actor string, action audit.Action, et audit.EntityType, entity string) *audit.Record {
	r, err := s.service.CreateRecord(context.Background(), audit.CreateRequest{ActorID: actor, Action: action, EntityType: et, EntityID: entity})
	s.Require().NoError(err)
	return r
}

func (s *HandlerSuite) do(req *http.Request) (int, []byte) {
	rr := testutil.DoRequest(s.router, req)
	return rr.Code, rr.Body.Bytes()
}

func (s *HandlerSuite) TestCreate() {
	t := s.T()

	testutil.Given(t, "an authenticated caller", func(t *testing.T) {
		testutil.When(t, "the body omits actor_id", func(t *testing.T) {
			req := testutil.WithUserID(testutil.NewJSONRequest(t, http.MethodPost, "/audit/records", map[string]any{
				"action":               "upload",
				"affected_entity_type": "document",
				"affected_entity_id":   " d1 ",
				"metadata":             map[string]any{"file_name": "cv.pdf"},
			}), "hr-1")
			rr := testutil.DoRequest(s.router, req)

			testutil.Then(t, "the caller is the actor", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusCreated)
				rec := testutil.UnmarshalResponse[audit.Record](t, rr)
				assert.NotEmpty(t, rec.ID)
				assert.Equal(t, "hr-1", rec.ActorID)
				assert.Equal(t, "d1", rec.EntityID)
				assert.Equal(t, "cv.pdf", rec.Metadata["file_name"])
				assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
			})
		})

		testutil.When(t, "the action is not supported", func(t *testing.T) {
			req := testutil.WithUserID(testutil.NewJSONRequest(t, http.MethodPost, "/audit/records", map[string]any{
				"action": "approve", "affected_entity_type": "document", "affected_entity_id": "d1",
			}), "hr-1")
			rr := testutil.DoRequest(s.router, req)

			testutil.Then(t, "the request is rejected", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
			})
		})
	})

	testutil.Given(t, "no authenticated caller and no actor_id", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/audit/records", map[string]any{
			"action": "view", "affected_entity_type": "document", "affected_entity_id": "d1",
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.Then(t, "the record is refused", func(t *testing.T) {
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		})
	})

	testutil.Given(t, "a malformed body", func(t *testing.T) {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(t, http.MethodPost, "/audit/records", "{"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestGet() {
	rec := s.seed("u1", audit.ActionView, audit.EntityMinute, "m1")

	code, _ := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/audit/records/"+rec.ID))
	s.Equal(http.StatusOK, code)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/audit/records/9a3f1e2b-0000-4000-8000-000000000000"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestList() {
	for range 3 {
		s.seed("u1", audit.ActionView, audit.EntityDocument, "d1")
	}
	s.seed("u2", audit.ActionDelete, audit.EntityArea, "a1")

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/audit/records?actor_id=u1&limit=2"))
	testutil.AssertStatusOK(s.T(), rr)
	res := testutil.UnmarshalResponse[auditsvc.ListResult](s.T(), rr)
	s.EqualValues(3, res.Total)
	s.Len(res.Records, 2)
	s.Equal(2, res.Limit)
	s.Equal(0, res.Offset)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/audit/records?action=delete&sort_by=action&sort_order=asc"))
	testutil.AssertStatusOK(s.T(), rr)
	res = testutil.UnmarshalResponse[auditsvc.ListResult](s.T(), rr)
	s.EqualValues(1, res.Total)
	s.Equal("a1", res.Records[0].EntityID)
}

func (s *HandlerSuite) TestListRejectsBadQueries() {
	for _, query := range []string{
		"limit=ten",
		"limit=-1",
		"offset=-5",
		"from=yesterday",
		"from=2025-02-01&to=2025-01-01",
		"sort_by=actor_id",
		"affected_entity_type=payroll",
	} {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/audit/records?"+query))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	}
}

func (s *HandlerSuite) TestEmptyListIsAnArray() {
	code, body := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/audit/actors/nobody/records"))
	s.Equal(http.StatusOK, code)
	s.JSONEq(`{"records":[],"total":0,"limit":20,"offset":0}`, string(body))
}

func (s *HandlerSuite) TestHistories() {
	s.seed("u1", audit.ActionUpload, audit.EntityDocument, "d7")
	s.seed("u2", audit.ActionDownload, audit.EntityDocument, "d7")

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/audit/entities/document/d7/records?limit=1"))
	testutil.AssertStatusOK(s.T(), rr)
	res := testutil.UnmarshalResponse[auditsvc.ListResult](s.T(), rr)
	s.EqualValues(2, res.Total)
	s.Equal(audit.ActionDownload, res.Records[0].Action)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/audit/entities/payroll/p1/records"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/audit/actors/u2/records"))
	testutil.AssertStatusOK(s.T(), rr)
	res = testutil.UnmarshalResponse[auditsvc.ListResult](s.T(), rr)
	s.EqualValues(1, res.Total)
}

func TestStoreFailureIsOpaque500(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().Query(gomock.Any(), gomock.Any()).Return(nil, errors.New("pq: connection refused"))
	router := newRouter(auditsvc.New(store))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/audit/records"))

	testutil.AssertStatus(t, rr, http.StatusInternalServerError)
	body := rr.Body.String()
	assert.Contains(t, body, "internal_error")
	assert.NotContains(t, body, "connection refused")
}

func TestCreateUsesRequestClock(t *testing.T) {
	router := newRouter(auditsvc.New(memory.NewInMemoryStore()))
	pinned := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/audit/records", map[string]any{
		"actor_id": "u1", "action": "logout", "affected_entity_type": "user", "affected_entity_id": "u1",
	})
	rr := testutil.DoRequest(router, testutil.AtTime(req, pinned))

	require.Equal(t, http.StatusCreated, rr.Code)
	rec := testutil.UnmarshalResponse[audit.Record](t, rr)
	assert.True(t, pinned.Equal(rec.CreatedAt))
}
