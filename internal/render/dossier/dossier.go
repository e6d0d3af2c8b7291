// Package dossier renders the CTIT ownership transfer dossier submitted to
// the traffic authority as XML.
package dossier

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/parse"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/records"
)

const (
	// Namespace of the a9 root element
	Namespace = "http://a9.gescogroup.com/xmlbeans/matriculation"
	// FilePrefix is the prefix of dossier file names
	FilePrefix = "CTIT"

	DefaultAgentNIF         = "00000000T"
	DefaultAgencyNIF        = "00000000T"
	DefaultLocalDivisionKey = "B "
	dossierNumberPrefix     = "2025-1/"
)

// Field widths and fallbacks of the vehicle block
const (
	realPowerWidth     = 6
	cubicCapacityWidth = 8
	massWidth          = 6
	seatWidth          = 3

	defaultVehicleKind = "40"
	defaultMaxMass     = 1500
	defaultSeats       = 5
	defaultTare        = 1200
)

// Options carries the submitting agent's identifiers. Empty values take the
// package defaults; the dossier number defaults to one derived from Now.
type Options struct {
	AgentNIF         string           `json:"agentNif,omitempty"`
	AgencyNIF        string           `json:"agencyNif,omitempty"`
	LocalDivisionKey string           `json:"dgtLocalDivisionKey,omitempty"`
	DossierNumber    string           `json:"customDossierNumber,omitempty"`
	Now              func() time.Time `json:"-"`
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.AgentNIF == "" {
		o.AgentNIF = DefaultAgentNIF
	}
	if o.AgencyNIF == "" {
		o.AgencyNIF = DefaultAgencyNIF
	}
	if o.LocalDivisionKey == "" {
		o.LocalDivisionKey = DefaultLocalDivisionKey
	}
	return o
}

type owner struct {
	FiscalID     string
	Name         string
	Surname      string
	Surname2     string
	BirthDate    string
	Address      parse.Address
	Municipality string
}

type view struct {
	AgentNIF          string
	AgencyNIF         string
	LocalDivisionKey  string
	DossierNumber     string
	CurrentDate       string
	MatriculationDate string

	Plate         string
	VIN           string
	VehicleKind   string
	RealPower     string
	CubicCapacity string
	MMA           string
	SeatPlaces    string
	Tara          string
	Fuel          string

	Seller owner
	Buyer  owner
}

// Render builds the dossier XML for the bundle. Every leaf value is
// canonicalized by the rules in this package and XML-escaped.
func Render(b records.Bundle, opts Options) (string, error) {
	opts = opts.withDefaults()
	now := opts.Now().UTC()

	dossierNumber := opts.DossierNumber
	if dossierNumber == "" {
		dossierNumber = dossierNumberPrefix + CompactTimestamp(now)
	}

	v := b.Vehicle
	seats := v.Seats
	if strings.TrimSpace(seats) == "" {
		seats = v.Places
	}
	kind := strings.TrimSpace(v.Category)
	if kind == "" {
		kind = defaultVehicleKind
	}

	data := view{
		AgentNIF:          opts.AgentNIF,
		AgencyNIF:         opts.AgencyNIF,
		LocalDivisionKey:  opts.LocalDivisionKey,
		DossierNumber:     dossierNumber,
		CurrentDate:       now.Format(isoDate),
		MatriculationDate: ToISODate(v.RegistrationDate, now),

		Plate:         strings.TrimSpace(v.Plate),
		VIN:           strings.TrimSpace(v.VIN),
		VehicleKind:   kind,
		RealPower:     PadDecimal(v.Power, realPowerWidth),
		CubicCapacity: PadDecimal(v.Displacement, cubicCapacityWidth),
		MMA:           PadCount(v.MaxMass, defaultMaxMass, massWidth),
		SeatPlaces:    PadCount(seats, defaultSeats, seatWidth),
		Tara:          PadCount(v.RunningOrderMass, defaultTare, massWidth),
		Fuel:          FuelCode(v.Fuel),

		Seller: newOwner(b.Seller, now),
		Buyer:  newOwner(b.Buyer, now),
	}

	var buf bytes.Buffer
	if err := ctitTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("error rendering dossier: %w", err)
	}
	return buf.String(), nil
}

func newOwner(p records.PersonRecord, now time.Time) owner {
	name := parse.SplitName(strings.TrimSpace(p.FullName)).Upper()
	addr := parse.ParseAddress(p.Address, p.Locality)
	return owner{
		FiscalID:     strings.TrimSpace(p.NationalID),
		Name:         name.First,
		Surname:      name.Surname1,
		Surname2:     name.Surname2,
		BirthDate:    ToISODate(p.BirthDate, now),
		Address:      addr,
		Municipality: addr.Municipality(),
	}
}

func escape(s string) (string, error) {
	var sb strings.Builder
	if err := xml.EscapeText(&sb, []byte(s)); err != nil {
		return "", err
	}
	return sb.String(), nil
}

var ctitTemplate = template.Must(template.New("ctit").Funcs(template.FuncMap{"x": escape}).Parse(ctitXML))

const ctitXML = `<?xml version="1.0" encoding="UTF-8"?>
<a9 xmlns="` + Namespace + `">
  <CTIT>
    <CTITType>CTI</CTITType>
    <CTITAction>ENDCTI</CTITAction>
    <CTITPurpose>TRANSMISSION</CTITPurpose>
    <AssignServiceDGTTax>false</AssignServiceDGTTax>
    <AssignAVPODGTTax>false</AssignAVPODGTTax>
    <AssignDGTTax>true</AssignDGTTax>
    <CTITFileState>NEW</CTITFileState>
    <HasUsualDriver>false</HasUsualDriver>
    <DoubleFirst>false</DoubleFirst>
    <DossierNumber></DossierNumber>
    <CustomDossierNumber>{{x .DossierNumber}}</CustomDossierNumber>
    <TaxExempt>false</TaxExempt>
    <AgentNif>{{x .AgentNIF}}</AgentNif>
    <AgencyNif>{{x .AgencyNIF}}</AgencyNif>
    <DGTLocalDivisionKey>{{x .LocalDivisionKey}}</DGTLocalDivisionKey>
    <MatriculationDate>{{x .MatriculationDate}}</MatriculationDate>

    <CTITVehicleData>
      <PlateNumber>{{x .Plate}}</PlateNumber>
      <SerialNumber>{{x .VIN}}</SerialNumber>
      <VehicleKind>{{x .VehicleKind}}</VehicleKind>
      <RealPower>{{x .RealPower}}</RealPower>
      <CubicCapacity>{{x .CubicCapacity}}</CubicCapacity>
      <Cilinder>00</Cilinder>
      <ExpirationDateITV>{{x .CurrentDate}}</ExpirationDateITV>
      <VehiclePurpose>B00</VehiclePurpose>
      <VehiclePurposeChange>false</VehiclePurposeChange>
      <FirstMatriculationDate>{{x .MatriculationDate}}</FirstMatriculationDate>
      <MotiveITV>PERIODICAL</MotiveITV>
      <HasITV>false</HasITV>
      <Historical>false</Historical>
      <MMA>{{x .MMA}}</MMA>
      <SeatPlaces>{{x .SeatPlaces}}</SeatPlaces>
      <Tara>{{x .Tara}}</Tara>
      <VehicleFuel>{{x .Fuel}}</VehicleFuel>
      <IsResidence>false</IsResidence>
    </CTITVehicleData>

    <CTITTaxData>
      <TaxType>ITP</TaxType>
      <ITPKey>SU</ITPKey>
      <FiscalModel>FORM620</FiscalModel>
      <TrasmissionMotive>CONTRACT</TrasmissionMotive>
      <IsDUA>false</IsDUA>
      <IsIVTM>false</IsIVTM>
      <IsAgriVehicle>false</IsAgriVehicle>
    </CTITTaxData>
{{with .Seller}}
    <VehicleOwnerSeller>
      <MainOwner>true</MainOwner>
{{- template "owner" .}}
      <Freelance>false</Freelance>
    </VehicleOwnerSeller>
{{end}}{{with .Buyer}}
    <VehicleOwnerBuyer>
{{- template "owner" .}}
      <UpdateResidence>false</UpdateResidence>
    </VehicleOwnerBuyer>
{{end}}  </CTIT>
</a9>
{{- define "owner"}}
      <OwnerType>PERSON</OwnerType>
      <FiscalId>{{x .FiscalID}}</FiscalId>
      <Gender>V</Gender>
      <Name>{{x .Name}}</Name>
      <Surname>{{x .Surname}}</Surname>
      <Surname2>{{x .Surname2}}</Surname2>
      <BirthDate>{{x .BirthDate}}</BirthDate>
      <StreetName>{{x .Address.StreetName}}</StreetName>
      <StreetNumber>{{x .Address.StreetNumber}}</StreetNumber>
      <StreetType>{{x .Address.StreetType}}</StreetType>
      <BuildFloor>{{x .Address.Floor}}</BuildFloor>
      <BuildDoor>{{x .Address.Door}}</BuildDoor>
      <Province>{{x .Address.ProvinceCode}}</Province>
      <Municipality>{{x .Municipality}}</Municipality>
      <ZipCode>{{x .Address.PostalCode}}</ZipCode>
      <Town></Town>
{{- end}}`
