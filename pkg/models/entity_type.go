package models

import "slices"

// EntityType is the inferred semantic category of the values in a column.
type EntityType string

const (
	EntityTypeClient     EntityType = "client"
	EntityTypeCompany    EntityType = "company"
	EntityTypeProject    EntityType = "project"
	EntityTypeProduct    EntityType = "product"
	EntityTypePerson     EntityType = "person"
	EntityTypeLocation   EntityType = "location"
	EntityTypeDepartment EntityType = "department"
	EntityTypeUnknown    EntityType = "unknown"
)

// ValidEntityTypes contains all valid entity type values.
var ValidEntityTypes = []EntityType{
	EntityTypeClient,
	EntityTypeCompany,
	EntityTypeProject,
	EntityTypeProduct,
	EntityTypePerson,
	EntityTypeLocation,
	EntityTypeDepartment,
	EntityTypeUnknown,
}

// IsValidEntityType checks if the given type is valid.
func IsValidEntityType(t EntityType) bool {
	return slices.Contains(ValidEntityTypes, t)
}

// IsPrimaryCandidate reports whether columns of this type qualify as
// primary resolution targets for a dataset.
func (t EntityType) IsPrimaryCandidate() bool {
	return t == EntityTypeClient || t == EntityTypeCompany
}
