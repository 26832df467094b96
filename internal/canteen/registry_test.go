package canteen

import (
	"context"
	"errors"
	"sync"
	"testing"

	"campus-eats/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_MergesFiles(t *testing.T) {
	first := createTestDirectoryFile(t, "a.gz", []string{"north,North Block", "south,South"})
	second := createTestDirectoryFile(t, "b.gz", []string{"north,North Block Canteen", "library,Library Cafe"})

	reg, err := NewRegistry(context.Background(), RegistryConfig{FilePaths: []string{first, second}}, NewFileLoader(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)
	defer reg.Close()

	assert.Equal(t, []Canteen{
		{ID: "library", Name: "Library Cafe"},
		{ID: "north", Name: "North Block Canteen"},
		{ID: "south", Name: "South"},
	}, reg.Canteens())
}

func TestRegistry_Validate(t *testing.T) {
	path := createTestDirectoryFile(t, "canteens.gz", []string{"north,North", "south,South"})
	reg, err := NewRegistry(context.Background(), RegistryConfig{FilePaths: []string{path}}, NewFileLoader(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)

	tests := []struct {
		name      string
		canteenID string
		expectErr error
	}{
		{"Known canteen", "north", nil},
		{"Another known canteen", "south", nil},
		{"Unknown canteen", "east", model.ErrUnknownCanteen},
		{"Empty id", "", model.ErrUnknownCanteen},
		{"Case sensitive", "NORTH", model.ErrUnknownCanteen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Validate(context.Background(), tt.canteenID)
			if tt.expectErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectErr)
			}
		})
	}
}

func TestRegistry_OpenWhenUnconfigured(t *testing.T) {
	reg, err := NewRegistry(context.Background(), RegistryConfig{}, nil, zerolog.Nop())
	require.NoError(t, err)

	assert.NoError(t, reg.Validate(context.Background(), "anything"))
	assert.ErrorIs(t, reg.Validate(context.Background(), ""), model.ErrUnknownCanteen)
	assert.Empty(t, reg.Canteens())
}

func TestNewRegistry_LoadFailure(t *testing.T) {
	good := createTestDirectoryFile(t, "good.gz", []string{"north"})
	cfg := RegistryConfig{FilePaths: []string{good, "/nonexistent/canteens.gz"}}

	reg, err := NewRegistry(context.Background(), cfg, NewFileLoader(zerolog.Nop()), zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, reg)
	assert.Contains(t, err.Error(), "/nonexistent/canteens.gz")
}

func TestNewRegistry_LoadsConcurrently(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (*Directory, error) {
			mu.Lock()
			paths = append(paths, path)
			mu.Unlock()
			if path == "broken.gz" {
				return nil, errors.New("corrupt")
			}
			return dirWith(path), nil
		},
	}

	_, err := NewRegistry(context.Background(), RegistryConfig{FilePaths: []string{"a.gz", "broken.gz", "c.gz"}}, loader, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
	assert.ElementsMatch(t, []string{"a.gz", "broken.gz", "c.gz"}, paths)
}

func TestIntegration_WithSampleDirectory(t *testing.T) {
	// Generated by: go run ./scripts/generate_sample_canteens
	for _, path := range []string{"data/canteens/canteens.gz", "../../data/canteens/canteens.gz"} {
		reg, err := NewRegistry(context.Background(), RegistryConfig{FilePaths: []string{path}}, NewFileLoader(zerolog.Nop()), zerolog.Nop())
		if err != nil {
			continue
		}
		defer reg.Close()

		require.NotEmpty(t, reg.Canteens())
		for _, c := range reg.Canteens() {
			assert.NoError(t, reg.Validate(context.Background(), c.ID))
		}
		assert.ErrorIs(t, reg.Validate(context.Background(), "no-such-canteen"), model.ErrUnknownCanteen)
		return
	}

	t.Skip("Skipping integration test - sample canteen directory not found. Run: go run ./scripts/generate_sample_canteens")
}
