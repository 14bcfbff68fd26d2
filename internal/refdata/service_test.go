package refdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextcrm/backoffice-core-go/internal/refdata/entity"
)

func TestCounterpartyNameRequired(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()

	err := svc.CreateCounterparty(ctx, &entity.Counterparty{Name: "  "})
	require.ErrorIs(t, err, ErrNameRequired)

	err = svc.UpdateCounterparty(ctx, &entity.Counterparty{ID: 1})
	require.ErrorIs(t, err, ErrNameRequired)
}

func TestCommodityNameRequired(t *testing.T) {
	svc := NewService(nil)

	err := svc.CreateCommodity(context.Background(), &entity.Commodity{})
	require.ErrorIs(t, err, ErrNameRequired)
}

func TestCurrencyCodeRequired(t *testing.T) {
	svc := NewService(nil)

	err := svc.CreateCurrency(context.Background(), &entity.Currency{Code: " "})
	require.ErrorIs(t, err, ErrNameRequired)
}

func TestLookupNamesRequired(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{"commodity group", func() error { return svc.CreateCommodityGroup(ctx, &entity.CommodityGroup{}) }},
		{"commodity type", func() error { return svc.CreateCommodityType(ctx, &entity.CommodityType{Name: " "}) }},
		{"trader", func() error { return svc.CreateTrader(ctx, &entity.Trader{}) }},
		{"sociedad", func() error { return svc.CreateSociedad(ctx, &entity.Sociedad{Name: "  "}) }},
		{"cost center", func() error { return svc.CreateCostCenter(ctx, &entity.CostCenter{}) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.call(), ErrNameRequired)
		})
	}
}
