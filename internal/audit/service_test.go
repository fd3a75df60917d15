package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"hrdms/internal/audit/mocks"
	dErrors "hrdms/pkg/domain-errors"
	audit "hrdms/pkg/platform/audit"
	"hrdms/pkg/platform/audit/store/memory"
	"hrdms/pkg/platform/sentinel"
	"hrdms/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.InMemoryStore
	service *Service
	clock   time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewInMemoryStore()
	s.clock = time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC)
	s.service = New(s.store, WithClock(func() time.Time {
		s.clock = s.clock.Add(time.Minute)
		return s.clock
	}))
}

func (s *ServiceSuite) create(actor string, action audit.Action, et audit.EntityType, entity string) *audit.Record {
	r, err := s.service.CreateRecord(s.ctx, audit.CreateRequest{ActorID: actor, Action: action, EntityType: et, EntityID: entity})
	s.Require().NoError(err)
	return r
}

func (s *ServiceSuite) TestCreateRecord() {
	s.Run("assigns id and equal timestamps", func() {
		r := s.create("u1", audit.ActionCreate, audit.EntityCollaborator, "c42")
		s.NotEmpty(r.ID)
		s.Equal(r.CreatedAt, r.UpdatedAt)
		s.Equal("u1", r.ActorID)
	})

	s.Run("same payload twice yields two records", func() {
		a := s.create("u1", audit.ActionView, audit.EntityDocument, "d1")
		b := s.create("u1", audit.ActionView, audit.EntityDocument, "d1")
		s.NotEqual(a.ID, b.ID)
	})

	s.Run("stored record round-trips", func() {
		created, err := s.service.CreateRecord(s.ctx, audit.CreateRequest{
			ActorID: "u2", Action: audit.ActionUpdate, EntityType: audit.EntityPosition, EntityID: "p1",
			Metadata: audit.Metadata{"changed_fields": []string{"name"}},
		})
		s.Require().NoError(err)

		got, found, err := s.service.GetRecordByID(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Require().True(found)
		s.Equal(created, got)
	})

	s.Run("invalid requests are validation errors", func() {
		for _, req := range []audit.CreateRequest{
			{ActorID: "", Action: audit.ActionCreate, EntityType: audit.EntityUser, EntityID: "u"},
			{ActorID: "a", Action: "approve", EntityType: audit.EntityUser, EntityID: "u"},
			{ActorID: "a", Action: audit.ActionCreate, EntityType: "payroll", EntityID: "u"},
			{ActorID: "a", Action: audit.ActionCreate, EntityType: audit.EntityUser, EntityID: "  "},
		} {
			_, err := s.service.CreateRecord(s.ctx, req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "%+v", req)
		}
	})
}

func (s *ServiceSuite) TestCreateRecordUsesRequestTime() {
	svc := New(s.store)
	pinned := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r, err := svc.CreateRecord(requestcontext.WithTime(s.ctx, pinned), audit.CreateRequest{
		ActorID: "u1", Action: audit.ActionLogin, EntityType: audit.EntityUser, EntityID: "u1",
	})
	s.Require().NoError(err)
	s.Equal(pinned, r.CreatedAt)
}

func (s *ServiceSuite) TestGetRecordByID_UnknownIsExplicitAbsence() {
	got, found, err := s.service.GetRecordByID(s.ctx, "7c1b4c55-0000-4000-8000-000000000000")
	s.NoError(err)
	s.False(found)
	s.Nil(got)

	_, _, err = s.service.GetRecordByID(s.ctx, " ")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestReturnedRecordCannotMutateHistory() {
	r := s.create("u1", audit.ActionDelete, audit.EntityArea, "a1")
	r.ActorID = "tampered"

	got, found, err := s.service.GetRecordByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("u1", got.ActorID)
}

func (s *ServiceSuite) TestListRecords() {
	for i := range 25 {
		actor := "u1"
		if i%5 == 0 {
			actor = "u2"
		}
		s.create(actor, audit.ActionView, audit.EntityDocument, fmt.Sprintf("d%d", i))
	}

	s.Run("defaults to 20 newest first", func() {
		res, err := s.service.ListRecords(s.ctx, ListRequest{})
		s.Require().NoError(err)
		s.EqualValues(25, res.Total)
		s.Len(res.Records, 20)
		s.Equal(20, res.Limit)
		s.Equal("d24", res.Records[0].EntityID)
	})

	s.Run("page total is independent of window", func() {
		res, err := s.service.ListRecords(s.ctx, ListRequest{Limit: 10, Offset: 20})
		s.Require().NoError(err)
		s.EqualValues(25, res.Total)
		s.Len(res.Records, 5)
	})

	s.Run("actor filter", func() {
		res, err := s.service.ListRecords(s.ctx, ListRequest{ActorID: "u2"})
		s.Require().NoError(err)
		s.EqualValues(5, res.Total)
		for _, r := range res.Records {
			s.Equal("u2", r.ActorID)
		}
	})

	s.Run("limit is capped", func() {
		res, err := s.service.ListRecords(s.ctx, ListRequest{Limit: 5000})
		s.Require().NoError(err)
		s.Equal(audit.MaxLimit, res.Limit)
	})

	s.Run("ascending by creation", func() {
		res, err := s.service.ListRecords(s.ctx, ListRequest{SortBy: "createdAt", SortOrder: "asc", Limit: 1})
		s.Require().NoError(err)
		s.Equal("d0", res.Records[0].EntityID)
	})

	s.Run("date-only upper bound covers the whole day", func() {
		res, err := s.service.ListRecords(s.ctx, ListRequest{From: audit.ISO("2025-05-05"), To: audit.ISO("2025-05-05")})
		s.Require().NoError(err)
		s.EqualValues(25, res.Total)

		res, err = s.service.ListRecords(s.ctx, ListRequest{To: audit.ISO("2025-05-04")})
		s.Require().NoError(err)
		s.Zero(res.Total)
	})
}

func (s *ServiceSuite) TestListRecords_Validation() {
	cases := map[string]ListRequest{
		"negative limit":  {Limit: -1},
		"negative offset": {Offset: -3},
		"unknown action":  {Action: "approve"},
		"unknown entity":  {EntityType: "payroll"},
		"bad from":        {From: audit.ISO("last tuesday")},
		"from after to":   {From: audit.ISO("2025-05-06"), To: audit.ISO("2025-05-05")},
		"bad sort field":  {SortBy: "actor_id"},
		"bad sort order":  {SortOrder: "random"},
	}
	for name, req := range cases {
		s.Run(name, func() {
			_, err := s.service.ListRecords(s.ctx, req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func (s *ServiceSuite) TestEntityAndActorQueries() {
	s.create("u1", audit.ActionUpload, audit.EntityDocument, "d1")
	s.create("u2", audit.ActionDownload, audit.EntityDocument, "d1")
	s.create("u2", audit.ActionLogin, audit.EntityUser, "u2")

	byEntity, err := s.service.GetRecordsByEntity(s.ctx, audit.EntityDocument, "d1", 0, 0)
	s.Require().NoError(err)
	s.EqualValues(2, byEntity.Total)
	s.Equal(audit.ActionDownload, byEntity.Records[0].Action)

	byActor, err := s.service.GetRecordsByActor(s.ctx, "u2", 1, 1)
	s.Require().NoError(err)
	s.EqualValues(2, byActor.Total)
	s.Require().Len(byActor.Records, 1)
	s.Equal(audit.ActionDownload, byActor.Records[0].Action)

	_, err = s.service.GetRecordsByEntity(s.ctx, "payroll", "x", 0, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.service.GetRecordsByEntity(s.ctx, audit.EntityUser, " ", 0, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.service.GetRecordsByActor(s.ctx, "", 0, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	empty, err := s.service.GetRecordsByActor(s.ctx, "nobody", 0, 0)
	s.Require().NoError(err)
	s.NotNil(empty.Records)
	s.Empty(empty.Records)
}

func TestService_StoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRecordStore(ctrl)
	svc := New(store, WithIDGenerator(func() string { return "fixed-id" }))
	ctx := context.Background()
	boom := errors.New("connection reset")

	t.Run("append failure is internal", func(t *testing.T) {
		store.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *audit.Record) error {
			if r.ID != "fixed-id" {
				t.Errorf("unexpected id %q", r.ID)
			}
			return boom
		})
		_, err := svc.CreateRecord(ctx, audit.CreateRequest{ActorID: "u", Action: audit.ActionCreate, EntityType: audit.EntityUser, EntityID: "x"})
		if !dErrors.HasCode(err, dErrors.CodeInternal) || !errors.Is(err, boom) {
			t.Fatalf("expected wrapped internal error, got %v", err)
		}
	})

	t.Run("unreachable store is unavailable, not absence", func(t *testing.T) {
		store.EXPECT().FindByID(gomock.Any(), "r1").Return(nil, fmt.Errorf("read: %w", sentinel.ErrUnavailable))
		_, found, err := svc.GetRecordByID(ctx, "r1")
		if found || !dErrors.HasCode(err, dErrors.CodeUnavailable) {
			t.Fatalf("expected unavailable, got found=%v err=%v", found, err)
		}
	})

	t.Run("wrapped not found is absence", func(t *testing.T) {
		store.EXPECT().FindByID(gomock.Any(), "r2").Return(nil, fmt.Errorf("lookup: %w", sentinel.ErrNotFound))
		_, found, err := svc.GetRecordByID(ctx, "r2")
		if err != nil || found {
			t.Fatalf("expected absence, got found=%v err=%v", found, err)
		}
	})

	t.Run("list failure is internal", func(t *testing.T) {
		store.EXPECT().Query(gomock.Any(), gomock.Any()).Return(nil, boom)
		_, err := svc.ListRecords(ctx, ListRequest{})
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})

	t.Run("validation happens before the store", func(t *testing.T) {
		_, err := svc.CreateRecord(ctx, audit.CreateRequest{})
		if !dErrors.HasCode(err, dErrors.CodeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}
