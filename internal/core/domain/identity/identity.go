package identity

import "github.com/google/uuid"

// DefaultGroup is the group reported when no permission data could be loaded.
const DefaultGroup = "default"

// Profile is the permission-derived data used to render a client's presentation.
type Profile struct {
	GroupName string `json:"group_name" db:"group_name"`
	Weight    int    `json:"weight" db:"weight"`
	Prefix    string `json:"prefix" db:"prefix"`
	Suffix    string `json:"suffix" db:"suffix"`
}

// Fallback returns the profile substituted when the permission provider fails.
func Fallback() Profile {
	return Profile{GroupName: DefaultGroup}
}

// IsFallback reports whether p equals the fallback profile.
func (p Profile) IsFallback() bool {
	return p == Fallback()
}

// Client is a connected client as seen by the refresh pipeline.
type Client struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ConnectClientRequest represents the request to register a connected client
type ConnectClientRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProfileResponse represents the response for a cached profile lookup
type ProfileResponse struct {
	ID      uuid.UUID `json:"id"`
	Profile Profile   `json:"profile"`
	Outcome string    `json:"outcome"`
}

// AssignGroupRequest represents the request to set the primary group of an identity
type AssignGroupRequest struct {
	Group  string `json:"group"`
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
}

// UpsertGroupRequest represents the request to create or update a group
type UpsertGroupRequest struct {
	Weight int `json:"weight"`
}
