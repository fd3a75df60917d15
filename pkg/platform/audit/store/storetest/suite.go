// Package storetest holds the behavioural suite every audit.Store adapter runs.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "hrdms/pkg/platform/audit"
	"hrdms/pkg/platform/sentinel"
)

// Factory returns an empty store. It is called once per test.
type Factory func(t *testing.T) audit.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	suite.Run(t, &StoreSuite{newStore: newStore})
}

type StoreSuite struct {
	suite.Suite
	newStore Factory
	store    audit.Store
	ctx      context.Context
	base     time.Time
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore(s.T())
	s.base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) record(actor string, action audit.Action, et audit.EntityType, entity string, offset time.Duration, md audit.Metadata) *audit.Record {
	r, err := audit.NewRecord(uuid.NewString(), audit.CreateRequest{
		ActorID:    actor,
		Action:     action,
		EntityType: et,
		EntityID:   entity,
		Metadata:   md,
	}, s.base.Add(offset))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(s.ctx, r))
	return r
}

// translatorMetadata has the value types the event translator produces.
func translatorMetadata() audit.Metadata {
	return audit.Metadata{
		"changed_fields": []string{"email", "phone"},
		"email":          "ana@example.com",
		"size_bytes":     int64(9007199254740993),
		"mobile":         true,
		"client":         map[string]any{"os": "Android 2.3.7", "score": 0.5},
	}
}

func (s *StoreSuite) TestRoundTrip() {
	rec := s.record("u1", audit.ActionUpdate, audit.EntityCollaborator, "c42", 0, translatorMetadata())

	got, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec, got)
	s.True(got.CreatedAt.Equal(got.UpdatedAt))
	s.Equal([]any{"email", "phone"}, got.Metadata["changed_fields"])
	s.Equal(int64(9007199254740993), got.Metadata["size_bytes"])
}

func (s *StoreSuite) TestReadsAreStableAcrossUnrelatedWrites() {
	rec := s.record("u1", audit.ActionUpload, audit.EntityDocument, "d1", 0, translatorMetadata())

	first, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	firstJSON, err := json.Marshal(first)
	s.Require().NoError(err)

	for i := range 5 {
		s.record(fmt.Sprintf("u%d", i+2), audit.ActionView, audit.EntityDocument, fmt.Sprintf("other-%d", i),
			time.Duration(i+1)*time.Minute, audit.Metadata{"n": i})
	}

	again, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	againJSON, err := json.Marshal(again)
	s.Require().NoError(err)
	s.Equal(first, again)
	s.JSONEq(string(firstJSON), string(againJSON))

	page, err := s.store.ListByEntity(s.ctx, audit.EntityDocument, "d1", audit.Pagination{Limit: 20})
	s.Require().NoError(err)
	s.Require().Len(page.Records, 1)
	s.Equal(first, page.Records[0])

	page, err = s.store.Query(s.ctx, audit.Query{Filter: audit.Filter{ActorID: "u1"}, Page: audit.Pagination{Limit: 20}})
	s.Require().NoError(err)
	s.Require().Len(page.Records, 1)
	s.Equal(first, page.Records[0])
}

func (s *StoreSuite) TestEmptyMetadataStaysAbsent() {
	rec := s.record("u1", audit.ActionView, audit.EntityDocument, "d1", 0, nil)
	got, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Empty(got.Metadata)
}

func (s *StoreSuite) TestUnknownIDIsNotFound() {
	_, err := s.store.FindByID(s.ctx, uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestMutatingResultDoesNotChangeStore() {
	rec := s.record("u1", audit.ActionCreate, audit.EntityArea, "a1", 0, audit.Metadata{"name": "Finance"})

	got, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	got.ActorID = "someone-else"
	got.Metadata["name"] = "changed"

	again, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("u1", again.ActorID)
	s.Equal("Finance", again.Metadata["name"])
}

func (s *StoreSuite) TestQueryFiltersAndTotals() {
	s.record("u1", audit.ActionCreate, audit.EntityCollaborator, "c1", 0, nil)
	s.record("u2", audit.ActionUpdate, audit.EntityCollaborator, "c1", time.Hour, nil)
	s.record("u1", audit.ActionDelete, audit.EntityArea, "a1", 2*time.Hour, nil)
	s.record("u3", audit.ActionLogin, audit.EntityUser, "u3", 3*time.Hour, nil)

	page, err := s.store.Query(s.ctx, audit.Query{
		Filter:    audit.Filter{ActorID: "u1"},
		Page:      audit.Pagination{Limit: 20},
		SortBy:    audit.SortByCreatedAt,
		SortOrder: audit.SortDesc,
	})
	s.Require().NoError(err)
	s.EqualValues(2, page.Total)
	s.Require().Len(page.Records, 2)
	for _, r := range page.Records {
		s.Equal("u1", r.ActorID)
	}
	s.Equal(audit.ActionDelete, page.Records[0].Action)

	page, err = s.store.Query(s.ctx, audit.Query{
		Filter: audit.Filter{Action: audit.ActionLogin},
		Page:   audit.Pagination{Limit: 20},
	})
	s.Require().NoError(err)
	s.EqualValues(1, page.Total)
}

func (s *StoreSuite) TestPaginationReportsTotal() {
	for i := range 5 {
		s.record("u1", audit.ActionView, audit.EntityDocument, "d1", time.Duration(i)*time.Minute, nil)
	}

	page, err := s.store.Query(s.ctx, audit.Query{
		Page:      audit.Pagination{Limit: 2, Offset: 2},
		SortBy:    audit.SortByCreatedAt,
		SortOrder: audit.SortAsc,
	})
	s.Require().NoError(err)
	s.EqualValues(5, page.Total)
	s.Require().Len(page.Records, 2)
	s.True(page.Records[0].CreatedAt.Equal(s.base.Add(2 * time.Minute)))
	s.True(page.Records[1].CreatedAt.Equal(s.base.Add(3 * time.Minute)))
}

func (s *StoreSuite) TestInclusiveDateRange() {
	s.record("u1", audit.ActionCreate, audit.EntityPosition, "p1", 0, nil)
	s.record("u1", audit.ActionUpdate, audit.EntityPosition, "p1", time.Hour, nil)
	s.record("u1", audit.ActionDelete, audit.EntityPosition, "p1", 2*time.Hour, nil)

	from := s.base.Add(time.Hour)
	to := s.base.Add(2 * time.Hour)
	page, err := s.store.Query(s.ctx, audit.Query{
		Filter:    audit.Filter{From: &from, To: &to},
		Page:      audit.Pagination{Limit: 20},
		SortOrder: audit.SortAsc,
	})
	s.Require().NoError(err)
	s.EqualValues(2, page.Total)
	s.Equal(audit.ActionUpdate, page.Records[0].Action)
	s.Equal(audit.ActionDelete, page.Records[1].Action)
}

func (s *StoreSuite) TestSortByEntityType() {
	s.record("u1", audit.ActionCreate, audit.EntityUser, "x", 0, nil)
	s.record("u1", audit.ActionCreate, audit.EntityArea, "y", time.Minute, nil)
	s.record("u1", audit.ActionCreate, audit.EntityMinute, "z", 2*time.Minute, nil)

	page, err := s.store.Query(s.ctx, audit.Query{
		Page:      audit.Pagination{Limit: 20},
		SortBy:    audit.SortByEntityType,
		SortOrder: audit.SortAsc,
	})
	s.Require().NoError(err)
	s.Require().Len(page.Records, 3)
	s.Equal(audit.EntityArea, page.Records[0].EntityType)
	s.Equal(audit.EntityMinute, page.Records[1].EntityType)
	s.Equal(audit.EntityUser, page.Records[2].EntityType)
}

func (s *StoreSuite) TestEntityAndActorHistory() {
	s.record("u1", audit.ActionUpload, audit.EntityDocument, "d9", 0, nil)
	s.record("u2", audit.ActionDownload, audit.EntityDocument, "d9", time.Minute, nil)
	s.record("u2", audit.ActionView, audit.EntityDocument, "d8", 2*time.Minute, nil)

	byEntity, err := s.store.ListByEntity(s.ctx, audit.EntityDocument, "d9", audit.Pagination{Limit: 20})
	s.Require().NoError(err)
	s.EqualValues(2, byEntity.Total)
	s.Equal(audit.ActionDownload, byEntity.Records[0].Action)

	byActor, err := s.store.ListByActor(s.ctx, "u2", audit.Pagination{Limit: 1})
	s.Require().NoError(err)
	s.EqualValues(2, byActor.Total)
	s.Require().Len(byActor.Records, 1)
	s.Equal("d8", byActor.Records[0].EntityID)
}

func (s *StoreSuite) TestEmptyResultIsEmptySlice() {
	page, err := s.store.ListByActor(s.ctx, "nobody", audit.Pagination{Limit: 20})
	s.Require().NoError(err)
	s.NotNil(page.Records)
	s.Empty(page.Records)
	s.Zero(page.Total)
}
