// Package forms declares the dashboard forms that embed a cascading selector and
// manages the selector sessions opened by them.
package forms

import (
	"github.com/trezcool/masomo-dashboard/core/cascade"
	"github.com/trezcool/masomo-dashboard/core/inventory"
	"github.com/trezcool/masomo-dashboard/core/region"
)

// Forms
const (
	FormStudentEnrollment = "student-enrollment"
	FormStudentEdit       = "student-edit"
	FormPromoteStudent    = "promote-student"
	FormStudentMarks      = "student-marks"
	FormCertificate       = "certificate"
	FormRegionManagement  = "region-management"
	FormInventory         = "inventory"
)

// Definition describes the chain of levels a form selects through.
type Definition struct {
	Name   string   `json:"name"`
	Title  string   `json:"title"`
	Levels []string `json:"levels"`
	// LazyRoot forms load their root options on first interaction only.
	LazyRoot bool `json:"lazy_root"`
	// IdentityRoot forms start with the root set to the current user, eg. the teacher owning the inventory.
	IdentityRoot bool `json:"identity_root"`
}

// Graph binds the form levels to `src`.
func (def Definition) Graph(src cascade.Source) (*cascade.Graph, error) {
	return cascade.Chain(src, def.Levels...)
}

var (
	regionLevels = region.Levels
	// states are enough to pick a certificate template, districts to find a class
	certificateLevels = region.Levels[:2]
	classLevels       = region.Levels[:3]

	Definitions = []Definition{
		{Name: FormStudentEnrollment, Title: "Student enrollment", Levels: regionLevels},
		{Name: FormStudentEdit, Title: "Edit student", Levels: regionLevels},
		{Name: FormPromoteStudent, Title: "Promote student", Levels: classLevels},
		{Name: FormStudentMarks, Title: "Student marks", Levels: classLevels},
		{Name: FormCertificate, Title: "Certificate", Levels: certificateLevels},
		{Name: FormRegionManagement, Title: "Regions", Levels: regionLevels, LazyRoot: true},
		{Name: FormInventory, Title: "Inventory", Levels: inventory.Levels, IdentityRoot: true},
	}
)

// Lookup returns the definition of the form named `name`.
func Lookup(name string) (Definition, bool) {
	for _, def := range Definitions {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}
