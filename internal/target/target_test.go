package target

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/DatLens/internal/config"
	"github.com/koustreak/DatLens/internal/errs"
)

func TestConnect_UnknownEngineFailsFast(t *testing.T) {
	_, _, err := Connect(context.Background(), &config.Target{
		Name:   "legacy",
		Engine: "oracle",
		DSN:    "oracle://localhost",
	})

	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestScan_UnknownEngineFailsFast(t *testing.T) {
	_, err := Scan(context.Background(), &config.Target{
		Name:   "legacy",
		Engine: "db2",
		DSN:    "db2://localhost",
	}, nil)

	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}
