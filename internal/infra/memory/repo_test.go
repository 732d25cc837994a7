package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taules/taules/internal/domain/record"
	"github.com/taules/taules/internal/domain/storage"
	"github.com/taules/taules/internal/domain/storage/storagetest"
)

func TestRepo_conformance(t *testing.T) {
	storagetest.RunConformance(t, func(t *testing.T) storage.Repository {
		return NewRepo()
	})
}

func TestRepo_metadataStamping(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	replacedAt := createdAt.Add(2 * time.Hour)

	repo := NewRepo()
	repo.SetUTCGetter(func() time.Time { return createdAt })

	created, err := repo.Create(context.Background(), "todoitem", &record.NewRecord{
		Attributes: record.Attributes{"title": "get milk"},
	})
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(time.Time(created.Metadata.CreatedAt)))
	assert.True(t, createdAt.Equal(time.Time(created.Metadata.UpdatedAt)))

	repo.SetUTCGetter(func() time.Time { return replacedAt })
	replaced, err := repo.Replace(context.Background(), "todoitem", created.Clone(), nil)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(time.Time(replaced.Metadata.CreatedAt)))
	assert.True(t, replacedAt.Equal(time.Time(replaced.Metadata.UpdatedAt)))
}

func TestRepo_concurrentConditionalReplaces_oneWinner(t *testing.T) {
	repo := NewRepo()
	created, err := repo.Create(context.Background(), "todoitem", &record.NewRecord{
		Attributes: record.Attributes{"title": "get milk"},
	})
	require.NoError(t, err)

	workers := 16
	expected := storage.ExpectedVersion{Version: string(created.Metadata.Version)}
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(attempt int) {
			defer wg.Done()
			contender := created.Clone()
			contender.Attributes["attempt"] = attempt
			_, replaceErr := repo.Replace(context.Background(), "todoitem", contender, &expected)
			errs <- replaceErr
		}(i)
	}
	wg.Wait()
	close(errs)

	winners := 0
	for replaceErr := range errs {
		if replaceErr == nil {
			winners++
		} else {
			var invalidVersion storage.InvalidVersion
			require.ErrorAs(t, replaceErr, &invalidVersion)
			assert.NotNil(t, invalidVersion.Current)
		}
	}
	assert.EqualValues(t, 1, winners)

	stored, err := repo.Read(context.Background(), "todoitem", created.ID)
	require.NoError(t, err)
	assert.NotEqualValues(t, created.Metadata.Version, stored.Metadata.Version)
}
