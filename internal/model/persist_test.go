// Copyright 2023 Greenmask
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/greenmaskio/etlmodel/internal/omr"
)

type PersistSuite struct {
	suite.Suite
	ctx   context.Context
	store *omr.MemoryStore
	repo  *omr.Repository
	ws    *Workspace
	src   *Table
	tgt   *Table
	dt    *DataTransform
}

func (s *PersistSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = omr.NewMemoryStore()
	s.repo = omr.NewRepository(s.store)
	s.ws = newTestWorkspace()
	s.src = newTestTable(s.ws, "src", "S", num("ID"), char("NAME", 20), num("AMOUNT"))
	s.tgt = newTestTable(s.ws, "dw", "TGT", num("ID"), char("FULL_NAME", 40), char("AMOUNT_TXT", 32))

	dt := newTestTransform(s.T(), s.ws, "Load customers", s.src, s.tgt)
	dt.SetDescription("customers to the warehouse")
	dt.SetProperty("Owner", "etl")
	_, err := dt.AddMapping([]*Column{s.src.FindColumn("ID")}, []*Column{s.tgt.FindColumn("ID")})
	s.Require().NoError(err)
	_, err = dt.AddMapping([]*Column{s.src.FindColumn("NAME")}, []*Column{s.tgt.FindColumn("FULL_NAME")})
	s.Require().NoError(err)
	_, err = dt.AddDerivedMapping(
		[]*Column{s.src.FindColumn("AMOUNT")}, []*Column{s.tgt.FindColumn("AMOUNT_TXT")},
		"strip(put("+ColumnRef("AMOUNT")+", best32.))",
	)
	s.Require().NoError(err)
	dt.TableOptions(s.src, true).SetOption("where", "ID > 0")
	dt.ExcludeFromPropagation(s.src.FindColumn("NAME"), true)
	s.Require().NoError(dt.AddSortColumn(s.tgt.FindColumn("ID"), true))
	dt.PreProcess().SetEnabled(true)
	dt.PreProcess().SetText("%put start;")
	cas := s.ws.NewConditionActionSet("checks")
	s.Require().NoError(cas.Add(ConditionAction{Condition: "rc > 4", Action: ActionAbort}))
	dt.AddConditionActionSet(cas)
	s.dt = dt
}

func (s *PersistSuite) save(repo *omr.Repository) error {
	a := repo.NewAdapter("save")
	defer a.Close()
	err := s.dt.SaveToOMR(s.ctx, a)
	s.dt.UpdateIDs(a.IDMap())
	return err
}

func (s *PersistSuite) load() *DataTransform {
	a := s.repo.NewAdapter("load")
	defer a.Close()
	dt, err := newTestWorkspace().LoadDataTransform(s.ctx, a, s.dt.ID(), nil)
	s.Require().NoError(err)
	return dt
}

func (s *PersistSuite) TestSaveAssignsPermanentIDs() {
	s.Require().NoError(s.save(s.repo))

	s.False(s.dt.IsChanged())
	s.False(s.dt.ID().IsNew())
	s.False(s.dt.ClassifierMapID().IsNew())
	s.False(s.src.ID().IsNew())
	for _, m := range s.dt.Mappings() {
		s.False(m.ID().IsNew())
		s.False(m.Sources()[0].ID().IsNew())
	}
	s.Same(s.src, s.ws.Table(s.src.ID()))
	s.Same(s.src.FindColumn("ID"), s.ws.Column(s.src.FindColumn("ID").ID()))
}

func (s *PersistSuite) TestSaveUnchangedWritesNothing() {
	s.Require().NoError(s.save(s.repo))
	records := s.store.Len()

	a := s.repo.NewAdapter("resave")
	s.Require().NoError(s.dt.SaveToOMR(s.ctx, a))
	s.Empty(a.IDMap())
	s.Equal(records, s.store.Len())
}

func (s *PersistSuite) TestRoundTrip() {
	s.Require().NoError(s.save(s.repo))

	loaded := s.load()
	s.False(loaded.IsChanged())
	s.Equal(s.dt.Name(), loaded.Name())
	s.Equal("customers to the warehouse", loaded.Description())
	s.Equal("etl", loaded.Property("Owner"))
	s.Equal(s.dt.ClassifierMapID(), loaded.ClassifierMapID())

	s.Require().Len(loaded.Sources(), 1)
	s.Require().Len(loaded.Targets(), 1)
	src, tgt := loaded.Sources()[0], loaded.Targets()[0]
	s.Equal("S", src.Name())
	s.Equal("src", src.Library())
	s.Equal(3, tgt.ColumnCount())
	s.Equal(s.src.ID(), src.ID())

	s.Require().Len(loaded.Mappings(), 3)
	for i, m := range loaded.Mappings() {
		orig := s.dt.Mappings()[i]
		s.Equal(orig.ID(), m.ID())
		s.Equal(orig.Type(), m.Type())
		s.Equal(columnIDs(orig.Sources()), columnIDs(m.Sources()))
		s.Equal(columnIDs(orig.Targets()), columnIDs(m.Targets()))
	}
	derived := loaded.OrdinaryMappingForTarget(tgt.FindColumn("AMOUNT_TXT"))
	s.Require().NotNil(derived)
	s.Equal(MappingTypeDerived, derived.Type())
	text, err := derived.Expression().GetText("", false)
	s.Require().NoError(err)
	s.Equal("strip(put(AMOUNT, best32.))", text)

	opts := loaded.TableOptions(src, true)
	s.Require().NotNil(opts)
	s.Equal("ID > 0", opts.Option("where"))
	s.True(loaded.IsExcludedFromPropagation(src.FindColumn("NAME")))
	s.Equal([]SortColumn{{Column: tgt.FindColumn("ID"), Descending: true}}, loaded.SortColumns())

	s.True(loaded.PreProcess().IsEnabled())
	s.Equal("%put start;", loaded.PreProcess().Text())
	s.Require().Len(loaded.ConditionActionSets(), 1)
	s.Equal([]ConditionAction{{Condition: "rc > 4", Action: ActionAbort}}, loaded.ConditionActionSets()[0].Items())
	s.Equal([]*DataTransform{loaded}, loaded.Workspace().Consumers(src))
}

func (s *PersistSuite) TestLoadedSettersDirtyTracking() {
	s.Require().NoError(s.save(s.repo))
	loaded := s.load()
	s.Require().False(loaded.IsChanged())

	loaded.SetName(loaded.Name())
	loaded.SetDescription(loaded.Description())
	loaded.SetProperty("Owner", "etl")
	loaded.SetCollectRowCount(loaded.CollectRowCount())
	s.Require().NoError(loaded.SetDBIDirectExec(loaded.DBIDirectExec()))
	s.False(loaded.IsChanged(), "same values keep the transform clean")

	s.Require().ErrorIs(loaded.SetDBIDirectExec("MAYBE"), ErrInvalidOption)
	s.Empty(loaded.DBIDirectExec())
	s.False(loaded.IsChanged(), "rejected value keeps the transform clean")

	loaded.SetDescription("customers to the data mart")
	s.True(loaded.IsChanged())
}

func (s *PersistSuite) TestSaveFailureLeavesTransformDirty() {
	failing := &failingStore{MemoryStore: s.store, failType: omr.TypeTransform}

	err := s.save(omr.NewRepository(failing))
	s.Require().ErrorIs(err, errInjected)
	s.True(s.dt.IsChanged())
	s.True(s.dt.ID().IsNew())
	s.False(s.src.ID().IsNew(), "records written before the failure keep their permanent ids")

	s.Require().NoError(s.save(s.repo))
	s.False(s.dt.IsChanged())
	s.Len(s.load().Mappings(), 3)
}

func (s *PersistSuite) TestSaveRemovedMapping() {
	s.Require().NoError(s.save(s.repo))
	m := s.dt.OrdinaryMappingForTarget(s.tgt.FindColumn("AMOUNT_TXT"))
	s.Require().NotNil(m)
	mappingID, exprID := m.ID(), m.Expression().ID()

	s.dt.RemoveMapping(m)
	s.True(s.dt.IsChanged())
	s.Require().NoError(s.save(s.repo))

	_, err := s.store.Get(s.ctx, mappingID)
	s.ErrorIs(err, omr.ErrObjectNotFound)
	_, err = s.store.Get(s.ctx, exprID)
	s.ErrorIs(err, omr.ErrObjectNotFound)
	s.Len(s.load().Mappings(), 2)
}

func (s *PersistSuite) TestDelete() {
	s.Require().NoError(s.save(s.repo))

	a := s.repo.NewAdapter("delete")
	s.Require().NoError(s.dt.DeleteFromOMR(s.ctx, a))
	a.Close()

	_, err := s.store.Get(s.ctx, s.dt.ID())
	s.ErrorIs(err, omr.ErrObjectNotFound)
	_, err = s.store.Get(s.ctx, s.dt.ClassifierMapID())
	s.ErrorIs(err, omr.ErrObjectNotFound)
	for _, m := range s.dt.Mappings() {
		_, err = s.store.Get(s.ctx, m.ID())
		s.ErrorIs(err, omr.ErrObjectNotFound)
	}
	// shared tables and their columns survive
	s.Equal(2+s.src.ColumnCount()+s.tgt.ColumnCount(), s.store.Len())
}

func (s *PersistSuite) TestDeleteNewIsNoop() {
	a := s.repo.NewAdapter("delete")
	s.Require().NoError(s.dt.DeleteFromOMR(s.ctx, a))
	s.Zero(s.store.Len())
}

func TestPersistSuite(t *testing.T) {
	suite.Run(t, new(PersistSuite))
}
