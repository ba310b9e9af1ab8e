package numbering

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/restobill/internal/config"
	invoicedomain "github.com/smallbiznis/restobill/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type numberRepo struct {
	invoicedomain.Repository
	issued int64
	taken  map[string]bool
}

func (r *numberRepo) CountNumbersWithPrefix(context.Context, *gorm.DB, snowflake.ID, string) (int64, error) {
	return r.issued, nil
}

func (r *numberRepo) NumberExists(_ context.Context, _ *gorm.DB, _ snowflake.ID, number string) (bool, error) {
	return r.taken[number], nil
}

func newAllocator(repo invoicedomain.Repository, probes int) *Allocator {
	cfg := config.DefaultInvoiceConfig()
	cfg.MaxNumberProbes = probes
	return NewAllocator(Params{
		Log:    zap.NewNop(),
		Repo:   repo,
		Config: config.NewStaticInvoiceConfigHolder(cfg),
	})
}

var at = time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)

func TestAllocateStartsAfterIssuedCount(t *testing.T) {
	a := newAllocator(&numberRepo{issued: 41, taken: map[string]bool{}}, 10)
	number, err := a.Allocate(context.Background(), nil, 1, at)
	require.NoError(t, err)
	assert.Equal(t, "INV-202511-0042", number)
}

func TestAllocateSkipsTakenNumbers(t *testing.T) {
	repo := &numberRepo{issued: 2, taken: map[string]bool{
		"INV-202511-0003": true,
		"INV-202511-0004": true,
	}}
	number, err := newAllocator(repo, 10).Allocate(context.Background(), nil, 1, at)
	require.NoError(t, err)
	assert.Equal(t, "INV-202511-0005", number)
}

func TestAllocateFallsBackWhenProbesExhausted(t *testing.T) {
	repo := &numberRepo{issued: 0, taken: map[string]bool{
		"INV-202511-0001": true,
		"INV-202511-0002": true,
	}}
	number, err := newAllocator(repo, 2).Allocate(context.Background(), nil, 1, at)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(number, "INV-202511-"), number)
	assert.Len(t, strings.TrimPrefix(number, "INV-202511-"), 6)
}
