package main

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	upErr   error
	steps   int
	forced  int
	version uint
	verErr  error
}

func (f *fakeMigrator) Up() error { return f.upErr }

func (f *fakeMigrator) Steps(n int) error {
	f.steps = n
	return nil
}

func (f *fakeMigrator) Force(v int) error {
	f.forced = v
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, false, f.verErr }

func TestRunCommands(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	require.NoError(t, run(m, nil))

	require.NoError(t, run(m, []string{"down", "2"}))
	assert.Equal(t, -2, m.steps)

	require.NoError(t, run(m, []string{"force", "4"}))
	assert.Equal(t, 4, m.forced)

	require.NoError(t, run(&fakeMigrator{verErr: migrate.ErrNilVersion}, []string{"version"}))
}

func TestRunRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"sideways"}},
		{"down without steps", []string{"down"}},
		{"down zero", []string{"down", "0"}},
		{"force not a number", []string{"force", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, run(&fakeMigrator{}, tt.args))
		})
	}
}

func TestRunSurfacesUpFailure(t *testing.T) {
	err := run(&fakeMigrator{upErr: errors.New("dirty database")}, []string{"up"})
	assert.ErrorContains(t, err, "dirty database")
}
