package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/ledger/store"
)

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	mem := store.NewMemory()
	svc := ledger.NewService(mem, mem, fixedClock(2024, 3, 15))

	rows := []ledger.ImportRow{
		{Description: "Aluguel estúdio", Amount: 180000, DueDate: ledger.Date(2024, 3, 5), Status: ledger.StatusPaid},
		{Description: "Contador", Amount: 45000, DueDate: ledger.Date(2024, 3, 10)},
		{Description: "Seguro equipamento", Amount: 32050, DueDate: ledger.Date(2024, 4, 20)},
	}

	res, err := svc.Import(ctx, owner, rows, false)
	require.NoError(t, err)
	require.Len(t, res.Imported, 3)
	assert.Empty(t, res.Conflicts)

	assert.Equal(t, ledger.StatusPaid, res.Imported[0].Status)
	assert.Equal(t, ledger.StatusBilled, res.Imported[1].Status)
	assert.Equal(t, ledger.StatusScheduled, res.Imported[2].Status)
	assert.Nil(t, res.Imported[0].SeriesID)
	assert.NotEqual(t, res.Imported[0].OwnerItemID, res.Imported[1].OwnerItemID)

	again := []ledger.ImportRow{
		{Description: "  contador ", Amount: 45000, DueDate: ledger.Date(2024, 3, 10)},
		{Description: "Energia", Amount: 21099, DueDate: ledger.Date(2024, 3, 12)},
	}

	res, err = svc.Import(ctx, owner, again, false)
	require.NoError(t, err)
	assert.Empty(t, res.Imported)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "Contador", res.Conflicts[0].Existing.Description)
	require.Len(t, res.New, 1)
	assert.Equal(t, "Energia", res.New[0].Description)

	stored, err := svc.List(ctx, owner, ledger.Date(2024, 3, 1), ledger.Date(2024, 3, 31))
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	res, err = svc.Import(ctx, owner, again, true)
	require.NoError(t, err)
	assert.Len(t, res.Imported, 2)

	stored, err = svc.List(ctx, owner, ledger.Date(2024, 3, 1), ledger.Date(2024, 3, 31))
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestService_Import_Validation(t *testing.T) {
	type testCase struct {
		name  string
		row   ledger.ImportRow
		field string
	}

	tests := []testCase{
		{
			name:  "ZeroAmount",
			row:   ledger.ImportRow{Description: "x", DueDate: ledger.Date(2024, 1, 1)},
			field: "amount",
		},
		{
			name:  "MissingDate",
			row:   ledger.ImportRow{Description: "x", Amount: 100},
			field: "due_date",
		},
		{
			name:  "UnknownStatus",
			row:   ledger.ImportRow{Description: "x", Amount: 100, DueDate: ledger.Date(2024, 1, 1), Status: "estornado"},
			field: "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// Nothing may reach the repository.
			svc := ledger.NewService(ledger.NewMockRepository(ctrl), ledger.NewMockCardRepository(ctrl))

			_, err := svc.Import(context.Background(), uuid.New(), []ledger.ImportRow{tt.row}, true)
			require.Error(t, err)
			assert.ErrorIs(t, err, ledger.ErrInvalidIntent)
			assert.Contains(t, err.Error(), "row 1")

			var verr *ledger.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
