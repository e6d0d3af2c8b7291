package dossier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ErrInvalidDossier is returned by Check for documents missing required parts
var ErrInvalidDossier = errors.New("invalid dossier")

var ownerTags = []string{
	"OwnerType", "FiscalId", "Gender", "Name", "Surname", "Surname2", "BirthDate",
	"StreetName", "StreetNumber", "StreetType", "BuildFloor", "BuildDoor",
	"Province", "Municipality", "ZipCode", "Town",
}

type section struct {
	path string
	tags []string
}

// requiredSections lists the elements every dossier must carry
var requiredSections = []section{
	{"CTIT", []string{
		"CTITType", "CTITAction", "CTITPurpose", "CTITFileState", "DossierNumber",
		"CustomDossierNumber", "AgentNif", "AgencyNif", "DGTLocalDivisionKey",
		"MatriculationDate",
	}},
	{"CTIT/CTITVehicleData", []string{
		"PlateNumber", "SerialNumber", "VehicleKind", "RealPower", "CubicCapacity",
		"Cilinder", "ExpirationDateITV", "VehiclePurpose", "FirstMatriculationDate",
		"MMA", "SeatPlaces", "Tara", "VehicleFuel",
	}},
	{"CTIT/CTITTaxData", []string{"TaxType", "ITPKey", "FiscalModel", "TrasmissionMotive"}},
	{"CTIT/VehicleOwnerSeller", append([]string{"MainOwner", "Freelance"}, ownerTags...)},
	{"CTIT/VehicleOwnerBuyer", append([]string{"UpdateResidence"}, ownerTags...)},
}

// Check parses a rendered dossier and verifies the root element, its
// namespace and every required element.
func Check(doc string) error {
	d := etree.NewDocument()
	if err := d.ReadFromString(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDossier, err)
	}

	root := d.Root()
	if root == nil || root.Tag != "a9" {
		return fmt.Errorf("%w: root element must be a9", ErrInvalidDossier)
	}
	if ns := root.SelectAttrValue("xmlns", ""); ns != Namespace {
		return fmt.Errorf("%w: unexpected namespace %q", ErrInvalidDossier, ns)
	}

	var missing []string
	for _, sec := range requiredSections {
		parent := root.FindElement("./" + sec.path)
		if parent == nil {
			missing = append(missing, sec.path)
			continue
		}
		for _, tag := range sec.tags {
			if parent.SelectElement(tag) == nil {
				missing = append(missing, sec.path+"/"+tag)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidDossier, strings.Join(missing, ", "))
	}
	return nil
}
