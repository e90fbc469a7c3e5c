package service

import (
	"context"
	"testing"

	"materialflow/internal/apperrors"
	"materialflow/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Fakes ---

type fakeMaterialRepo struct {
	materials map[uuid.UUID]*model.Material
}

func newFakeMaterialRepo() *fakeMaterialRepo {
	return &fakeMaterialRepo{materials: make(map[uuid.UUID]*model.Material)}
}

func (r *fakeMaterialRepo) add(m *model.Material) *model.Material {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.materials[m.ID] = m
	return m
}

func (r *fakeMaterialRepo) Create(_ context.Context, m *model.Material) error {
	r.add(m)
	return nil
}

func (r *fakeMaterialRepo) Update(_ context.Context, m *model.Material) error {
	r.materials[m.ID] = m
	return nil
}

func (r *fakeMaterialRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.materials, id)
	return nil
}

func (r *fakeMaterialRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Material, error) {
	m, ok := r.materials[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMaterialRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Material, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeMaterialRepo) FindByBarcode(_ context.Context, barcode string) (*model.Material, error) {
	for _, m := range r.materials {
		if m.Barcode != nil && *m.Barcode == barcode {
			copied := *m
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMaterialRepo) List(_ context.Context, _, _ int, _ string) ([]model.Material, int64, error) {
	res := make([]model.Material, 0, len(r.materials))
	for _, m := range r.materials {
		res = append(res, *m)
	}
	return res, int64(len(res)), nil
}

func (r *fakeMaterialRepo) ListLowStock(_ context.Context) ([]model.Material, error) {
	var res []model.Material
	for _, m := range r.materials {
		if m.IsLowStock() {
			res = append(res, *m)
		}
	}
	return res, nil
}

func (r *fakeMaterialRepo) UpdateStock(_ context.Context, id uuid.UUID, stock int) error {
	m, ok := r.materials[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.CurrentStock = stock
	return nil
}

type fakeTransactionRepo struct {
	transactions []model.StockTransaction
}

func (r *fakeTransactionRepo) Create(_ context.Context, tx *model.StockTransaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	r.transactions = append(r.transactions, *tx)
	return nil
}

func (r *fakeTransactionRepo) List(_ context.Context, _, _ int) ([]model.StockTransaction, int64, error) {
	return r.transactions, int64(len(r.transactions)), nil
}

func (r *fakeTransactionRepo) ListByMaterial(_ context.Context, materialID uuid.UUID) ([]model.StockTransaction, error) {
	var res []model.StockTransaction
	for _, tx := range r.transactions {
		if tx.MaterialID == materialID {
			res = append(res, tx)
		}
	}
	return res, nil
}

type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type recordedNotification struct {
	Event    string
	Severity string
}

type fakeNotifier struct {
	notifications []recordedNotification
}

func (n *fakeNotifier) Notify(event, _, _, severity string, _ map[string]interface{}) {
	n.notifications = append(n.notifications, recordedNotification{Event: event, Severity: severity})
}

func newInventoryFixture() (*fakeMaterialRepo, *fakeTransactionRepo, *fakeNotifier, InventoryService) {
	materialRepo := newFakeMaterialRepo()
	transactionRepo := &fakeTransactionRepo{}
	notifier := &fakeNotifier{}
	svc := NewInventoryService(materialRepo, transactionRepo, &fakeTxManager{}, notifier)
	return materialRepo, transactionRepo, notifier, svc
}

// --- Tests ---

func TestRecordTransactionWithdrawal(t *testing.T) {
	materialRepo, transactionRepo, notifier, svc := newInventoryFixture()
	m := materialRepo.add(&model.Material{Name: "Copper Wire", Unit: "m", CurrentStock: 50, MinStock: 5})

	txn, err := svc.RecordTransaction(context.Background(), CreateTransactionRequest{
		MaterialID: m.ID.String(),
		Type:       model.TxTypeOut,
		Quantity:   10,
	})
	require.NoError(t, err)

	assert.Equal(t, 40, txn.StockAfter)
	assert.Equal(t, 40, materialRepo.materials[m.ID].CurrentStock)
	require.Len(t, transactionRepo.transactions, 1)
	assert.Equal(t, model.TxTypeOut, transactionRepo.transactions[0].Type)
	assert.Empty(t, notifier.notifications, "stock above minimum should not notify")
}

func TestRecordTransactionReachesMinimum(t *testing.T) {
	materialRepo, _, notifier, svc := newInventoryFixture()
	m := materialRepo.add(&model.Material{Name: "Gloves", Unit: "box", CurrentStock: 40, MinStock: 5})

	txn, err := svc.RecordTransaction(context.Background(), CreateTransactionRequest{
		MaterialID: m.ID.String(),
		Type:       model.TxTypeOut,
		Quantity:   35,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, txn.StockAfter)
	require.Len(t, notifier.notifications, 1)
	assert.Equal(t, "low_stock", notifier.notifications[0].Event)
	assert.Equal(t, "warning", notifier.notifications[0].Severity)
}

func TestRecordTransactionClampsAtZero(t *testing.T) {
	materialRepo, transactionRepo, _, svc := newInventoryFixture()
	m := materialRepo.add(&model.Material{Name: "Screws", Unit: "pcs", CurrentStock: 5, MinStock: 2})

	txn, err := svc.RecordTransaction(context.Background(), CreateTransactionRequest{
		MaterialID: m.ID.String(),
		Type:       model.TxTypeOut,
		Quantity:   20,
	})
	require.NoError(t, err, "over-withdrawal clamps silently instead of failing")

	assert.Equal(t, 0, txn.StockAfter)
	assert.Equal(t, 0, materialRepo.materials[m.ID].CurrentStock)
	assert.Equal(t, 0, transactionRepo.transactions[0].StockAfter)
	assert.Equal(t, 20, transactionRepo.transactions[0].Quantity, "the requested quantity is recorded as-is")
}

func TestRecordTransactionDeposit(t *testing.T) {
	materialRepo, _, _, svc := newInventoryFixture()
	m := materialRepo.add(&model.Material{Name: "Paint", Unit: "l", CurrentStock: 3, MinStock: 10})

	txn, err := svc.RecordTransaction(context.Background(), CreateTransactionRequest{
		MaterialID: m.ID.String(),
		Type:       model.TxTypeIn,
		Quantity:   7,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, txn.StockAfter)
}

func TestRecordTransactionMaterialNotFound(t *testing.T) {
	_, _, _, svc := newInventoryFixture()

	_, err := svc.RecordTransaction(context.Background(), CreateTransactionRequest{
		MaterialID: uuid.NewString(),
		Type:       model.TxTypeOut,
		Quantity:   1,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRecordTransactionRejectsBadInput(t *testing.T) {
	materialRepo, _, _, svc := newInventoryFixture()
	m := materialRepo.add(&model.Material{Name: "Tape", CurrentStock: 10})

	_, err := svc.RecordTransaction(context.Background(), CreateTransactionRequest{
		MaterialID: m.ID.String(),
		Type:       "transfer",
		Quantity:   1,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.RecordTransaction(context.Background(), CreateTransactionRequest{
		MaterialID: m.ID.String(),
		Type:       model.TxTypeOut,
		Quantity:   0,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreateMaterialSetsCurrentStock(t *testing.T) {
	_, _, _, svc := newInventoryFixture()

	material, err := svc.CreateMaterial(context.Background(), CreateMaterialRequest{
		Name:         "Cement",
		Unit:         "bag",
		InitialStock: 25,
		MinStock:     5,
		Price:        12.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, material.CurrentStock)
	assert.False(t, material.LowStock)
}

func TestCreateMaterialPerishableRequiresExpiry(t *testing.T) {
	_, _, _, svc := newInventoryFixture()

	_, err := svc.CreateMaterial(context.Background(), CreateMaterialRequest{
		Name:     "Aspirin",
		Category: "medicine",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	expiry := "2027-01-31"
	material, err := svc.CreateMaterial(context.Background(), CreateMaterialRequest{
		Name:       "Aspirin",
		Category:   "medicine",
		ExpiryDate: &expiry,
	})
	require.NoError(t, err)
	assert.Equal(t, "2027-01-31", material.ExpiryDate)
}

func TestFindByBarcode(t *testing.T) {
	materialRepo, _, _, svc := newInventoryFixture()
	barcode := "8901234567890"
	materialRepo.add(&model.Material{Name: "Bolts", Barcode: &barcode, CurrentStock: 100, MinStock: 10})

	material, err := svc.FindByBarcode(context.Background(), barcode)
	require.NoError(t, err)
	assert.Equal(t, "Bolts", material.Name)

	_, err = svc.FindByBarcode(context.Background(), "0000000000000")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.FindByBarcode(context.Background(), "  ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestListLowStock(t *testing.T) {
	materialRepo, _, _, svc := newInventoryFixture()
	materialRepo.add(&model.Material{Name: "Low", CurrentStock: 2, MinStock: 5})
	materialRepo.add(&model.Material{Name: "AtMinimum", CurrentStock: 5, MinStock: 5})
	materialRepo.add(&model.Material{Name: "Healthy", CurrentStock: 50, MinStock: 5})

	low, err := svc.ListLowStock(context.Background())
	require.NoError(t, err)
	assert.Len(t, low, 2, "stock equal to the minimum counts as low")
}
