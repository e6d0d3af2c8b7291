package history

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/records"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleBundle(plate string) records.Bundle {
	return records.Bundle{
		Seller:  records.PersonRecord{FullName: "JUAN PÉREZ", NationalID: "12345678Z"},
		Buyer:   records.PersonRecord{FullName: "ANA LÓPEZ", NationalID: "87654321X"},
		Vehicle: records.VehicleRecord{Make: "SEAT", Model: "IBIZA", Plate: plate},
	}
}

func TestSaveAndGet(t *testing.T) {
	st := openTestStore(t)
	st.now = func() time.Time { return time.Date(2025, time.March, 5, 10, 30, 0, 0, time.Local) }
	ctx := context.Background()

	saved, err := st.Save(ctx, sampleBundle("1234ABC"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "5/3/2025, 10:30:00", saved.Date)
	assert.Equal(t, Summary{
		SellerName:   "JUAN PÉREZ",
		SellerNIF:    "12345678Z",
		BuyerName:    "ANA LÓPEZ",
		BuyerNIF:     "87654321X",
		VehicleMake:  "SEAT",
		VehicleModel: "IBIZA",
		VehiclePlate: "1234ABC",
	}, saved.Summary)

	got, err := st.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	_, err = st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirstAndLimit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < MaxItems+5; i++ {
		_, err := st.Save(ctx, sampleBundle(strconv.Itoa(i)))
		require.NoError(t, err)
	}

	items, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, MaxItems)
	assert.Equal(t, strconv.Itoa(MaxItems+4), items[0].Data.Vehicle.Plate)
	assert.Equal(t, "5", items[len(items)-1].Data.Vehicle.Plate)
}

func TestDeleteAndClear(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	first, err := st.Save(ctx, sampleBundle("1"))
	require.NoError(t, err)
	_, err = st.Save(ctx, sampleBundle("2"))
	require.NoError(t, err)

	require.NoError(t, st.Delete(ctx, first.ID))
	assert.ErrorIs(t, st.Delete(ctx, first.ID), ErrNotFound)

	items, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2", items[0].Data.Vehicle.Plate)

	require.NoError(t, st.Clear(ctx))
	items, err = st.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestReopenKeepsItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	st, err := Open(path)
	require.NoError(t, err)
	saved, err := st.Save(ctx, sampleBundle("1234ABC"))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	got, err := st.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Data, got.Data)
}
