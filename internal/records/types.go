// Package records holds the canonical typed records extracted from identity
// documents and vehicle technical sheets, and the bundle that groups them for
// one transfer.
package records

import "fmt"

// Role identifies which slot of a bundle a document fills
type Role string

const (
	RoleSeller  Role = "vendedor"
	RoleBuyer   Role = "comprador"
	RoleVehicle Role = "ficha"
)

// Roles lists every role in bundle order
var Roles = []Role{RoleSeller, RoleBuyer, RoleVehicle}

// ParseRole validates a role name coming from a request
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSeller, RoleBuyer, RoleVehicle:
		return Role(s), nil
	default:
		return "", fmt.Errorf("invalid document role: %q", s)
	}
}

// IsPerson reports whether the role holds a PersonRecord
func (r Role) IsPerson() bool {
	return r == RoleSeller || r == RoleBuyer
}

// PersonRecord is one natural person party to the transfer
type PersonRecord struct {
	FullName   string `json:"nombre"`
	NationalID string `json:"dni"`
	BirthDate  string `json:"fechaNacimiento"`
	Address    string `json:"direccion"`
	Locality   string `json:"poblacion"`
	ExpiryDate string `json:"fechaCaducidad"`
}

// VehicleRecord is the vehicle being transferred, as read from its technical sheet
type VehicleRecord struct {
	// Identification
	Make             string `json:"marca"`
	Model            string `json:"modelo"`
	CommercialName   string `json:"denominacionComercial"`
	Plate            string `json:"matricula"`
	VIN              string `json:"bastidor"`
	RegistrationDate string `json:"fechaMatriculacion"`
	Origin           string `json:"procedencia"`

	// Classification
	Category string `json:"categoria"`
	Body     string `json:"carroceria"`
	Class    string `json:"clase"`

	// Powertrain
	Displacement       string `json:"cilindrada"`
	Power              string `json:"potencia"`
	FiscalPower        string `json:"potenciaFiscal"`
	Fuel               string `json:"combustible"`
	EngineCode         string `json:"codigoMotor"`
	EngineManufacturer string `json:"fabricanteMotor"`
	TopSpeed           string `json:"velocidadMaxima"`

	// Capacity
	Seats          string `json:"plazasAsiento"`
	StandingPlaces string `json:"plazasPie"`

	// Mass
	RunningOrderMass string `json:"masaOrdenMarcha"`
	MaxMass          string `json:"masaMaxima"`
	MaxTechnicalMass string `json:"masaMaximaTecnica"`
	TowableMass      string `json:"masaRemolcable"`

	// Dimensions
	Length string `json:"longitud"`
	Width  string `json:"anchura"`
	Height string `json:"altura"`

	// Axles and tyres
	Axles       string `json:"numeroEjes"`
	DrivenAxles string `json:"ejesMotrices"`
	TyreSize    string `json:"dimensionesNeumaticos"`
	Wheelbase   string `json:"distanciaEjes"`

	// Other
	Color          string `json:"color"`
	Emissions      string `json:"emisiones"`
	EmissionsLevel string `json:"nivelEmisiones"`
	Homologation   string `json:"homologacion"`

	// Legacy aliases kept for output compatibility
	VehicleType string `json:"tipoVehiculo"`
	Places      string `json:"plazas"`
	Tyres       string `json:"neumaticos"`
}

// Bundle aggregates the three records of one transfer
type Bundle struct {
	Seller  PersonRecord  `json:"vendedor"`
	Buyer   PersonRecord  `json:"comprador"`
	Vehicle VehicleRecord `json:"vehiculo"`
}

// PersonKeys lists the JSON keys of PersonRecord in declaration order
var PersonKeys = []string{
	"nombre", "dni", "fechaNacimiento", "direccion", "poblacion", "fechaCaducidad",
}

// VehicleKeys lists the JSON keys of VehicleRecord in declaration order
var VehicleKeys = []string{
	"marca", "modelo", "denominacionComercial", "matricula", "bastidor",
	"fechaMatriculacion", "procedencia",
	"categoria", "carroceria", "clase",
	"cilindrada", "potencia", "potenciaFiscal", "combustible", "codigoMotor",
	"fabricanteMotor", "velocidadMaxima",
	"plazasAsiento", "plazasPie",
	"masaOrdenMarcha", "masaMaxima", "masaMaximaTecnica", "masaRemolcable",
	"longitud", "anchura", "altura",
	"numeroEjes", "ejesMotrices", "dimensionesNeumaticos", "distanciaEjes",
	"color", "emisiones", "nivelEmisiones", "homologacion",
	"tipoVehiculo", "plazas", "neumaticos",
}

func (p *PersonRecord) fields() map[string]*string {
	return map[string]*string{
		"nombre":          &p.FullName,
		"dni":             &p.NationalID,
		"fechaNacimiento": &p.BirthDate,
		"direccion":       &p.Address,
		"poblacion":       &p.Locality,
		"fechaCaducidad":  &p.ExpiryDate,
	}
}

func (v *VehicleRecord) fields() map[string]*string {
	return map[string]*string{
		"marca":                 &v.Make,
		"modelo":                &v.Model,
		"denominacionComercial": &v.CommercialName,
		"matricula":             &v.Plate,
		"bastidor":              &v.VIN,
		"fechaMatriculacion":    &v.RegistrationDate,
		"procedencia":           &v.Origin,
		"categoria":             &v.Category,
		"carroceria":            &v.Body,
		"clase":                 &v.Class,
		"cilindrada":            &v.Displacement,
		"potencia":              &v.Power,
		"potenciaFiscal":        &v.FiscalPower,
		"combustible":           &v.Fuel,
		"codigoMotor":           &v.EngineCode,
		"fabricanteMotor":       &v.EngineManufacturer,
		"velocidadMaxima":       &v.TopSpeed,
		"plazasAsiento":         &v.Seats,
		"plazasPie":             &v.StandingPlaces,
		"masaOrdenMarcha":       &v.RunningOrderMass,
		"masaMaxima":            &v.MaxMass,
		"masaMaximaTecnica":     &v.MaxTechnicalMass,
		"masaRemolcable":        &v.TowableMass,
		"longitud":              &v.Length,
		"anchura":               &v.Width,
		"altura":                &v.Height,
		"numeroEjes":            &v.Axles,
		"ejesMotrices":          &v.DrivenAxles,
		"dimensionesNeumaticos": &v.TyreSize,
		"distanciaEjes":         &v.Wheelbase,
		"color":                 &v.Color,
		"emisiones":             &v.Emissions,
		"nivelEmisiones":        &v.EmissionsLevel,
		"homologacion":          &v.Homologation,
		"tipoVehiculo":          &v.VehicleType,
		"plazas":                &v.Places,
		"neumaticos":            &v.Tyres,
	}
}

// Get returns the value stored under a JSON key
func (p PersonRecord) Get(key string) (string, bool) {
	ptr, ok := p.fields()[key]
	if !ok {
		return "", false
	}
	return *ptr, true
}

// Set overwrites the value stored under a JSON key
func (p *PersonRecord) Set(key, value string) error {
	ptr, ok := p.fields()[key]
	if !ok {
		return fmt.Errorf("unknown person field: %q", key)
	}
	*ptr = value
	return nil
}

// IsEmpty reports whether no field holds a value
func (p PersonRecord) IsEmpty() bool {
	return p == PersonRecord{}
}

// Get returns the value stored under a JSON key
func (v VehicleRecord) Get(key string) (string, bool) {
	ptr, ok := v.fields()[key]
	if !ok {
		return "", false
	}
	return *ptr, true
}

// Set overwrites the value stored under a JSON key
func (v *VehicleRecord) Set(key, value string) error {
	ptr, ok := v.fields()[key]
	if !ok {
		return fmt.Errorf("unknown vehicle field: %q", key)
	}
	*ptr = value
	return nil
}

// IsEmpty reports whether no field holds a value
func (v VehicleRecord) IsEmpty() bool {
	return v == VehicleRecord{}
}

// Person returns the person record held by a person role
func (b Bundle) Person(role Role) (PersonRecord, error) {
	switch role {
	case RoleSeller:
		return b.Seller, nil
	case RoleBuyer:
		return b.Buyer, nil
	default:
		return PersonRecord{}, fmt.Errorf("role %q does not hold a person", role)
	}
}
