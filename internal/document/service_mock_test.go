package document_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

func TestService_Create_RepositoryErrors(t *testing.T) {
	dbErr := errors.New("db error")

	type testCase struct {
		name      string
		setupMock func(repo *document.MockRepository, tx *document.MockTx)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "BeginFails",
			setupMock: func(repo *document.MockRepository, _ *document.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(nil, dbErr)
			},
			wantErr: dbErr,
		},
		{
			name: "CatalogFails",
			setupMock: func(repo *document.MockRepository, tx *document.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().ListItems(gomock.Any()).Return(nil, dbErr)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: dbErr,
		},
		{
			name: "SequenceFails",
			setupMock: func(repo *document.MockRepository, tx *document.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().ListItems(gomock.Any()).Return([]inventory.Item{}, nil)
				tx.EXPECT().NextSequence(gomock.Any(), document.KindInvoice).Return(int64(0), dbErr)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: dbErr,
		},
		{
			name: "CommitConflict",
			setupMock: func(repo *document.MockRepository, tx *document.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().ListItems(gomock.Any()).Return([]inventory.Item{}, nil)
				tx.EXPECT().NextSequence(gomock.Any(), document.KindInvoice).Return(int64(41), nil)
				tx.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
				tx.EXPECT().Commit().Return(document.ErrConflict)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: document.ErrConflict,
		},
		{
			name: "Success",
			setupMock: func(repo *document.MockRepository, tx *document.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().ListItems(gomock.Any()).Return([]inventory.Item{}, nil)
				tx.EXPECT().NextSequence(gomock.Any(), document.KindInvoice).Return(int64(42), nil)
				tx.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, doc *document.Document) error {
						assert.Equal(t, "INV-000042", doc.Number)
						return nil
					})
				tx.EXPECT().Commit().Return(nil)
				tx.EXPECT().Rollback().Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := document.NewMockRepository(ctrl)
			tx := document.NewMockTx(ctrl)
			tt.setupMock(repo, tx)

			svc := document.NewService(repo)
			got, err := svc.Create(context.Background(), document.KindInvoice, document.Draft{
				CustomerID: uuid.New(),
				LineItems:  []document.LineItem{line("Labor", "1", "10", document.CategoryLabor)},
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "INV-000042", got.Number)
		})
	}
}

func TestService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()

	repo := document.NewMockRepository(ctrl)
	repo.EXPECT().Get(gomock.Any(), id).Return(nil, document.ErrNotFound)

	_, err := document.NewService(repo).Get(context.Background(), id)
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestService_List(t *testing.T) {
	kind := document.KindEstimate

	type testCase struct {
		name      string
		setupMock func(m *document.MockRepository)
		wantLen   int
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Success",
			setupMock: func(m *document.MockRepository) {
				m.EXPECT().
					List(gomock.Any(), document.ListFilter{Kind: &kind}).
					Return([]*document.Document{{ID: uuid.New()}, {ID: uuid.New()}}, nil)
			},
			wantLen: 2,
		},
		{
			name: "RepoError",
			setupMock: func(m *document.MockRepository) {
				m.EXPECT().
					List(gomock.Any(), gomock.Any()).
					Return(nil, errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := document.NewMockRepository(ctrl)
			tt.setupMock(repo)

			got, err := document.NewService(repo).List(context.Background(), document.ListFilter{Kind: &kind})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestService_Transition_UpdateConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()

	repo := document.NewMockRepository(ctrl)
	tx := document.NewMockTx(ctrl)

	repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().GetForUpdate(gomock.Any(), id).Return(&document.Document{
		ID:         id,
		Kind:       document.KindInvoice,
		CustomerID: uuid.New(),
		Status:     document.StatusDraft,
	}, nil)
	tx.EXPECT().Update(gomock.Any(), gomock.Any()).Return(document.ErrConflict)
	tx.EXPECT().Rollback().Return(nil)

	_, err := document.NewService(repo).Transition(context.Background(), id, document.StatusSent, nil)
	assert.ErrorIs(t, err, document.ErrConflict)
}
