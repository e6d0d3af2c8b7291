package session

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/records"
)

func TestSession_Slots(t *testing.T) {
	s := NewStore().Create()

	require.NoError(t, s.SetPerson(records.RoleSeller, records.PersonRecord{FullName: "JUAN"}))
	require.NoError(t, s.SetPerson(records.RoleBuyer, records.PersonRecord{FullName: "ANA"}))
	s.SetVehicle(records.VehicleRecord{Plate: "1234ABC"})
	assert.Error(t, s.SetPerson(records.RoleVehicle, records.PersonRecord{}))

	b := s.Snapshot()
	assert.Equal(t, "JUAN", b.Seller.FullName)
	assert.Equal(t, "ANA", b.Buyer.FullName)
	assert.Equal(t, "1234ABC", b.Vehicle.Plate)

	// a slot is replaced wholesale
	require.NoError(t, s.SetPerson(records.RoleSeller, records.PersonRecord{NationalID: "12345678Z"}))
	assert.Equal(t, records.PersonRecord{NationalID: "12345678Z"}, s.Snapshot().Seller)
}

func TestSession_SetField(t *testing.T) {
	s := NewStore().Create()
	s.SetVehicle(records.VehicleRecord{Plate: "1234ABC", Make: "SEAT"})

	require.NoError(t, s.SetField(records.RoleVehicle, "matricula", "5678DEF"))
	require.NoError(t, s.SetField(records.RoleBuyer, "dni", "87654321X"))

	assert.Error(t, s.SetField(records.RoleVehicle, "precio", "1000"))
	assert.Error(t, s.SetField(records.Role("notario"), "dni", "x"))

	b := s.Snapshot()
	assert.Equal(t, "5678DEF", b.Vehicle.Plate)
	assert.Equal(t, "SEAT", b.Vehicle.Make)
	assert.Equal(t, "87654321X", b.Buyer.NationalID)
}

func TestSession_SnapshotIsolation(t *testing.T) {
	s := NewStore().Create()
	s.SetVehicle(records.VehicleRecord{Plate: "1234ABC"})

	snap := s.Snapshot()
	s.SetVehicle(records.VehicleRecord{Plate: "5678DEF"})
	snap.Vehicle.Make = "SEAT"

	assert.Equal(t, "1234ABC", snap.Vehicle.Plate)
	assert.Equal(t, "", s.Snapshot().Vehicle.Make)
}

func TestSession_ReplaceAndReset(t *testing.T) {
	s := NewStore().Create()
	s.Replace(records.Bundle{Buyer: records.PersonRecord{FullName: "ANA"}})
	assert.Equal(t, "ANA", s.Snapshot().Buyer.FullName)

	s.Reset()
	assert.Equal(t, records.Bundle{}, s.Snapshot())
}

func TestSession_FailedUpdateKeepsBundle(t *testing.T) {
	s := NewStore().Create()
	s.SetVehicle(records.VehicleRecord{Plate: "1234ABC"})

	err := s.Update(func(b *records.Bundle) error {
		b.Vehicle.Plate = "CHANGED"
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "1234ABC", s.Snapshot().Vehicle.Plate)
}

func TestSession_ConcurrentEdits(t *testing.T) {
	s := NewStore().Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			n := strconv.Itoa(i)
			s.Replace(records.Bundle{
				Seller:  records.PersonRecord{FullName: n, NationalID: n},
				Vehicle: records.VehicleRecord{Plate: n},
			})
		}()
		go func() {
			defer wg.Done()
			b := s.Snapshot()
			// a snapshot never mixes two writes
			assert.Equal(t, b.Seller.FullName, b.Seller.NationalID)
			assert.Equal(t, b.Seller.FullName, b.Vehicle.Plate)
		}()
	}
	wg.Wait()
}

func TestStore(t *testing.T) {
	st := NewStore()

	s := st.Create()
	_, err := uuid.Parse(s.ID())
	require.NoError(t, err)

	got, err := st.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = st.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Same(t, s, st.GetOrCreate(s.ID()))
	other := st.GetOrCreate("")
	assert.NotEqual(t, s.ID(), other.ID())
	assert.Equal(t, 2, st.Len())

	st.Delete(other.ID())
	assert.Equal(t, 1, st.Len())
}

func TestStore_Prune(t *testing.T) {
	st := NewStore()
	old := st.Create()
	fresh := st.Create()

	old.mu.Lock()
	old.updated = time.Now().Add(-2 * time.Hour)
	old.mu.Unlock()

	assert.Equal(t, 1, st.Prune(time.Hour))
	_, err := st.Get(old.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(fresh.ID())
	assert.NoError(t, err)
}
