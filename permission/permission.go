package permission

import "sort"

// Capability names. The catalogue is fixed by seed data; these constants
// mirror it so routes can reference permissions without string literals.
const (
	ViewSamples       = "VIEW_SAMPLES"
	CreateSample      = "CREATE_SAMPLE"
	EditSample        = "EDIT_SAMPLE"
	DeleteSample      = "DELETE_SAMPLE"
	CreateAnnotation  = "CREATE_ANNOTATION"
	DeleteAnnotation  = "DELETE_ANNOTATION"
	ManageForms       = "MANAGE_FORMS"
	ManageTissueTypes = "MANAGE_TISSUE_TYPES"
	ManageUsers       = "MANAGE_USERS"
	ManageRoles       = "MANAGE_ROLES"
)

// Catalogue maps every known permission to its description.
var Catalogue = map[string]string{
	ViewSamples:       "View samples, images, annotations and forms",
	CreateSample:      "Register new samples",
	EditSample:        "Edit sample metadata",
	DeleteSample:      "Delete samples",
	CreateAnnotation:  "Create and edit own annotations",
	DeleteAnnotation:  "Delete own annotations",
	ManageForms:       "Create and update pathology forms",
	ManageTissueTypes: "Manage the tissue type catalogue",
	ManageUsers:       "Manage user accounts and role assignments",
	ManageRoles:       "Manage role permissions",
}

// IsKnown reports whether name is part of the catalogue.
func IsKnown(name string) bool {
	_, ok := Catalogue[name]
	return ok
}

// Names returns the catalogue sorted by name.
func Names() []string {
	out := make([]string, 0, len(Catalogue))
	for n := range Catalogue {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
