package models

const (
	DefaultRole     = "software engineer"
	DefaultLocation = "remote"
)

type SearchParams struct {
	Role         string `validate:"required"`
	Location     string `validate:"required"`
	MaxPerSource int    `validate:"gte=1,lte=100"`
}

// SearchParamsFrom derives the query from the first preferred role and location.
func SearchParamsFrom(profile *UserProfile, maxPerSource int) SearchParams {
	params := SearchParams{Role: DefaultRole, Location: DefaultLocation, MaxPerSource: maxPerSource}
	if profile == nil {
		return params
	}
	if roles := profile.RolesAsArray(); len(roles) > 0 {
		params.Role = roles[0]
	}
	if locations := profile.LocationsAsArray(); len(locations) > 0 {
		params.Location = locations[0]
	}
	return params
}
