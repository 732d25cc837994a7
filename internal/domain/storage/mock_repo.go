package storage

import (
	"context"

	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
	"github.com/taules/taules/internal/domain/table"
)

var MockDomainRecord = record.Record{
	ID: "mock",
	Attributes: record.Attributes{
		"title": "mock",
	},
}

type MockRepo struct {
	QueryCalled     uint
	QuerySpec       *query.Spec
	QueryOverride   func() (*query.Page, error)
	CreateCalled    uint
	CreateNewRecord *record.NewRecord
	CreateOverride  func() (*record.Record, error)
	ReadCalled      uint
	ReadId          record.Id
	ReadOverride    func() (*record.Record, error)
	ReplaceCalled   uint
	ReplaceRecord   *record.Record
	ReplaceExpected *ExpectedVersion
	ReplaceOverride func() (*record.Record, error)
	DeleteCalled    uint
	DeleteId        record.Id
	DeleteExpected  *ExpectedVersion
	DeleteOverride  func() (*record.Record, error)
	CheckCalled     uint
	CheckOverride   func() error
}

func (m *MockRepo) Query(ctx context.Context, tableName table.Name, spec query.Spec) (*query.Page, error) {
	m.QueryCalled++
	m.QuerySpec = &spec
	if m.QueryOverride != nil {
		return m.QueryOverride()
	} else {
		return &query.Page{Items: []record.Record{MockDomainRecord}}, nil
	}
}

func (m *MockRepo) Create(ctx context.Context, tableName table.Name, newRecord *record.NewRecord) (*record.Record, error) {
	m.CreateCalled++
	m.CreateNewRecord = newRecord
	if m.CreateOverride != nil {
		return m.CreateOverride()
	} else {
		return MockDomainRecord.Clone(), nil
	}
}

func (m *MockRepo) Read(ctx context.Context, tableName table.Name, id record.Id) (*record.Record, error) {
	m.ReadCalled++
	m.ReadId = id
	if m.ReadOverride != nil {
		return m.ReadOverride()
	} else {
		return MockDomainRecord.Clone(), nil
	}
}

func (m *MockRepo) Replace(ctx context.Context, tableName table.Name, rec *record.Record, expectedVersion *ExpectedVersion) (*record.Record, error) {
	m.ReplaceCalled++
	m.ReplaceRecord = rec
	m.ReplaceExpected = expectedVersion
	if m.ReplaceOverride != nil {
		return m.ReplaceOverride()
	} else {
		return rec.Clone(), nil
	}
}

func (m *MockRepo) Delete(ctx context.Context, tableName table.Name, id record.Id, expectedVersion *ExpectedVersion) (*record.Record, error) {
	m.DeleteCalled++
	m.DeleteId = id
	m.DeleteExpected = expectedVersion
	if m.DeleteOverride != nil {
		return m.DeleteOverride()
	} else {
		return MockDomainRecord.Clone(), nil
	}
}

func (m *MockRepo) Check(ctx context.Context) error {
	m.CheckCalled++
	if m.CheckOverride != nil {
		return m.CheckOverride()
	} else {
		return nil
	}
}
