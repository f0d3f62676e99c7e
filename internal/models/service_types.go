package models

import "strings"

// Service types offered in the entry form. Entries may also carry free text.
const (
	ServiceTypeInspection   = "Inspektion"
	ServiceTypeOilChange    = "Ölwechsel"
	ServiceTypeHUAU         = "HU/AU"
	ServiceTypeTyreChange   = "Reifenwechsel"
	ServiceTypeBrakes       = "Bremsen"
	ServiceTypeRepair       = "Reparatur"
	ServiceTypeModification = "Umbau"
	ServiceTypeOther        = "Sonstiges"
)

// ServiceTypes lists the known service types in display order.
var ServiceTypes = []string{
	ServiceTypeInspection,
	ServiceTypeOilChange,
	ServiceTypeHUAU,
	ServiceTypeTyreChange,
	ServiceTypeBrakes,
	ServiceTypeRepair,
	ServiceTypeModification,
	ServiceTypeOther,
}

// IsKnownServiceType checks if t is one of ServiceTypes, ignoring case.
func IsKnownServiceType(t string) bool {
	for _, known := range ServiceTypes {
		if strings.EqualFold(known, strings.TrimSpace(t)) {
			return true
		}
	}
	return false
}
