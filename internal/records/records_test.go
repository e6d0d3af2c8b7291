package records

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePerson(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		expected PersonRecord
	}{
		{
			name:     "nil mapping",
			raw:      nil,
			expected: PersonRecord{},
		},
		{
			name: "full mapping",
			raw: map[string]any{
				"nombre":          "ANA GARCIA LOPEZ",
				"dni":             "12345678Z",
				"fechaNacimiento": "01/02/1980",
				"direccion":       "C/ MAYOR 123, 2º A",
				"poblacion":       "MADRID 28001",
				"fechaCaducidad":  "01/02/2030",
			},
			expected: PersonRecord{
				FullName:   "ANA GARCIA LOPEZ",
				NationalID: "12345678Z",
				BirthDate:  "01/02/1980",
				Address:    "C/ MAYOR 123, 2º A",
				Locality:   "MADRID 28001",
				ExpiryDate: "01/02/2030",
			},
		},
		{
			name: "nulls and wrong types degrade to empty",
			raw: map[string]any{
				"nombre":    nil,
				"dni":       false,
				"direccion": map[string]any{"calle": "MAYOR"},
				"poblacion": float64(0),
			},
			expected: PersonRecord{},
		},
		{
			name: "numbers are stringified",
			raw: map[string]any{
				"dni": float64(12345678),
			},
			expected: PersonRecord{NationalID: "12345678"},
		},
		{
			name: "unknown keys are ignored",
			raw: map[string]any{
				"nombre": "ANA",
				"extra":  "ignored",
			},
			expected: PersonRecord{FullName: "ANA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePerson(tt.raw))
		})
	}
}

func TestNormalizeAlwaysProducesEveryKey(t *testing.T) {
	subsets := []map[string]any{
		{},
		{"nombre": "ANA"},
		{"marca": "SEAT", "matricula": nil},
		{"dni": "X", "potencia": "110 kW", "plazas": nil},
	}

	for _, raw := range subsets {
		person, err := json.Marshal(NormalizePerson(raw))
		require.NoError(t, err)
		var personMap map[string]any
		require.NoError(t, json.Unmarshal(person, &personMap))
		for _, key := range PersonKeys {
			value, ok := personMap[key]
			require.True(t, ok, "missing key %s", key)
			assert.IsType(t, "", value)
		}

		vehicle, err := json.Marshal(NormalizeVehicle(raw))
		require.NoError(t, err)
		var vehicleMap map[string]any
		require.NoError(t, json.Unmarshal(vehicle, &vehicleMap))
		assert.Len(t, vehicleMap, len(VehicleKeys))
		for _, key := range VehicleKeys {
			value, ok := vehicleMap[key]
			require.True(t, ok, "missing key %s", key)
			assert.IsType(t, "", value)
		}
	}
}

func TestNormalizeVehicleLegacyAliases(t *testing.T) {
	t.Run("aliases fall back to specific fields", func(t *testing.T) {
		v := NormalizeVehicle(map[string]any{
			"categoria":             "M1",
			"plazasAsiento":         "5",
			"dimensionesNeumaticos": "205/55 R16",
		})
		assert.Equal(t, "M1", v.VehicleType)
		assert.Equal(t, "5", v.Places)
		assert.Equal(t, "205/55 R16", v.Tyres)
	})

	t.Run("explicit aliases win", func(t *testing.T) {
		v := NormalizeVehicle(map[string]any{
			"categoria":     "M1",
			"tipoVehiculo":  "TURISMO",
			"plazasAsiento": "5",
			"plazas":        "7",
		})
		assert.Equal(t, "TURISMO", v.VehicleType)
		assert.Equal(t, "7", v.Places)
		assert.Equal(t, "", v.Tyres)
	})
}

func TestRecordFieldAccess(t *testing.T) {
	var p PersonRecord
	require.NoError(t, p.Set("dni", "12345678Z"))
	value, ok := p.Get("dni")
	assert.True(t, ok)
	assert.Equal(t, "12345678Z", value)
	assert.Error(t, p.Set("unknown", "x"))

	var v VehicleRecord
	require.NoError(t, v.Set("matricula", "1234ABC"))
	assert.Equal(t, "1234ABC", v.Plate)
	_, ok = v.Get("nope")
	assert.False(t, ok)
	assert.False(t, v.IsEmpty())
	assert.True(t, VehicleRecord{}.IsEmpty())
}

func TestParseRole(t *testing.T) {
	for _, role := range Roles {
		parsed, err := ParseRole(string(role))
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}

	_, err := ParseRole("notario")
	assert.Error(t, err)
	assert.True(t, RoleSeller.IsPerson())
	assert.False(t, RoleVehicle.IsPerson())
}

func TestShareRoundTrip(t *testing.T) {
	bundles := []Bundle{
		{},
		{
			Seller:  PersonRecord{FullName: "Ana García López", NationalID: "12345678Z"},
			Vehicle: VehicleRecord{Plate: "1234ABC", Fuel: "Diésel"},
		},
		{
			Seller:  PersonRecord{FullName: "A", Address: "C/ Ñandú 1, 2º B", Locality: "LEÓN 24001"},
			Buyer:   PersonRecord{FullName: "B", BirthDate: "01/01/2000"},
			Vehicle: VehicleRecord{Make: "SEAT", Model: "IBIZA", Places: "5"},
		},
	}

	for _, b := range bundles {
		blob, err := EncodeShare(b)
		require.NoError(t, err)

		decoded, err := DecodeShare(blob)
		require.NoError(t, err)
		assert.Equal(t, b, decoded)
	}
}

func TestDecodeShare(t *testing.T) {
	t.Run("partial legacy blob fills missing keys", func(t *testing.T) {
		// {"vendedor":{"nombre":"ANA"},"comprador":{},"vehiculo":{}}
		blob := "eyJ2ZW5kZWRvciI6eyJub21icmUiOiJBTkEifSwiY29tcHJhZG9yIjp7fSwidmVoaWN1bG8iOnt9fQ=="
		b, err := DecodeShare(blob)
		require.NoError(t, err)
		assert.Equal(t, "ANA", b.Seller.FullName)
		assert.True(t, b.Buyer.IsEmpty())
	})

	t.Run("unpadded blob", func(t *testing.T) {
		blob := "eyJ2ZW5kZWRvciI6eyJub21icmUiOiJBTkEifSwiY29tcHJhZG9yIjp7fSwidmVoaWN1bG8iOnt9fQ"
		b, err := DecodeShare(blob)
		require.NoError(t, err)
		assert.Equal(t, "ANA", b.Seller.FullName)
	})

	invalid := []string{"", "   ", "***", "bm90IGpzb24="}
	for _, blob := range invalid {
		_, err := DecodeShare(blob)
		assert.ErrorIs(t, err, ErrInvalidShare, "blob %q", blob)
	}
}
