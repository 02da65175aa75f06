package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bell24h-workers/pkg/registry"
)

func TestUpdateActivity(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   string
		wantErr bool
		check   func(t *testing.T, a *registry.Activity)
	}{
		{name: "timeout", field: "timeout", value: "45s", check: func(t *testing.T, a *registry.Activity) {
			assert.Equal(t, "45s", a.Timeout)
		}},
		{name: "retries", field: "retries", value: "5", check: func(t *testing.T, a *registry.Activity) {
			assert.Equal(t, 5, a.Retries)
		}},
		{name: "status", field: "status", value: "verified", check: func(t *testing.T, a *registry.Activity) {
			assert.Equal(t, "verified", a.ImplementationStatus)
		}},
		{name: "bad timeout", field: "timeout", value: "soon", wantErr: true},
		{name: "negative retries", field: "retries", value: "-1", wantErr: true},
		{name: "unknown field", field: "owner", value: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := registry.Default()
			require.NoError(t, err)

			err = updateActivity(reg, "matching.supplier.rank", tt.field, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			a, ok := reg.FindByTaskType("rank-suppliers")
			require.True(t, ok)
			tt.check(t, a)
		})
	}
}

func TestUpdateActivity_NotFound(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)
	assert.Error(t, updateActivity(reg, "matching.supplier.unknown", "status", "planned"))
}

func TestSaveAndValidateRoundTrip(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	require.NoError(t, saveRegistry(reg, path))

	loaded, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	assert.NoError(t, validateRegistry(loaded))
	assert.Len(t, loaded.Activities, len(reg.Activities))
}
