package matching_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/matching"
	"github.com/MrJamesThe3rd/studiobooks/internal/matching/store"
)

func TestService_Learn(t *testing.T) {
	type testCase struct {
		name      string
		alias     matching.Alias
		setupMock func(r *matching.MockRepository)
		wantErr   error
	}

	owner := uuid.New()

	tests := []testCase{
		{
			name:  "Trimmed",
			alias: matching.Alias{OwnerID: owner, RawPattern: "  ALUG EST ", PreferredDescription: "Aluguel estúdio "},
			setupMock: func(r *matching.MockRepository) {
				r.EXPECT().CreateAlias(gomock.Any(), matching.Alias{
					OwnerID:              owner,
					RawPattern:           "ALUG EST",
					PreferredDescription: "Aluguel estúdio",
				}).Return(nil)
			},
		},
		{
			name:      "MissingOwner",
			alias:     matching.Alias{RawPattern: "x", PreferredDescription: "y"},
			setupMock: func(*matching.MockRepository) {},
			wantErr:   matching.ErrInvalidAlias,
		},
		{
			name:      "BlankPattern",
			alias:     matching.Alias{OwnerID: owner, RawPattern: "   ", PreferredDescription: "y"},
			setupMock: func(*matching.MockRepository) {},
			wantErr:   matching.ErrInvalidAlias,
		},
		{
			name:  "StoreFails",
			alias: matching.Alias{OwnerID: owner, RawPattern: "x", PreferredDescription: "y"},
			setupMock: func(r *matching.MockRepository) {
				r.EXPECT().CreateAlias(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: errors.New("saving alias: db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := matching.NewMockRepository(ctrl)
			tt.setupMock(repo)

			err := matching.NewService(repo).Learn(context.Background(), tt.alias)

			switch {
			case tt.wantErr == nil:
				assert.NoError(t, err)
			case errors.Is(tt.wantErr, matching.ErrInvalidAlias):
				assert.ErrorIs(t, err, matching.ErrInvalidAlias)
			default:
				assert.EqualError(t, err, tt.wantErr.Error())
			}
		})
	}
}

func TestService_Rename(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	svc := matching.NewService(store.NewMemory())

	require.NoError(t, svc.Learn(ctx, matching.Alias{OwnerID: owner, RawPattern: "alug", PreferredDescription: "Aluguel"}))
	require.NoError(t, svc.Learn(ctx, matching.Alias{OwnerID: owner, RawPattern: "ALUG EST", PreferredDescription: "Aluguel estúdio"}))
	require.NoError(t, svc.Learn(ctx, matching.Alias{OwnerID: uuid.New(), RawPattern: "CONT", PreferredDescription: "Contador"}))

	rows := []ledger.ImportRow{
		{Description: "Alug Est março"},
		{Description: "ALUGUEL SALA 2"},
		{Description: "CONT MENSAL"},
		{Description: "Aluguel"},
	}

	renamed, err := svc.Rename(ctx, owner, rows)
	require.NoError(t, err)

	assert.Equal(t, 2, renamed)
	assert.Equal(t, "Aluguel estúdio", rows[0].Description)
	assert.Equal(t, "Aluguel", rows[1].Description)
	assert.Equal(t, "CONT MENSAL", rows[2].Description)
	assert.Equal(t, "Aluguel", rows[3].Description)
}

func TestService_Rename_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := matching.NewMockRepository(ctrl)
	repo.EXPECT().FindMatch(gomock.Any(), gomock.Any(), "A").Return("Alpha", nil)
	repo.EXPECT().FindMatch(gomock.Any(), gomock.Any(), "B").Return("", errors.New("timeout"))

	rows := []ledger.ImportRow{{Description: "A"}, {Description: "B"}}

	renamed, err := matching.NewService(repo).Rename(context.Background(), uuid.New(), rows)
	require.Error(t, err)
	assert.Equal(t, 1, renamed)
	assert.Equal(t, "Alpha", rows[0].Description)
}
