package oauth

// Token is the wire representation of a stored OAuth token, returned by
// the token endpoint.
type Token struct {
	// Token is the credential value itself.
	Token string `json:"token"`

	// Scope is the granted scope(s), space separated.
	Scope string `json:"scope,omitempty"`
}

// ProviderDescriptor describes a registered OAuth provider in the provider
// directory, including a self-referential link to the authenticate endpoint.
type ProviderDescriptor struct {
	// Name is the registered provider key.
	Name string `json:"name"`

	// EndpointURL is the provider host users authenticate against.
	EndpointURL string `json:"endpointUrl"`

	// Links carries the authenticate link for this provider.
	Links []Link `json:"links"`
}

// Link is a hypermedia link attached to a provider descriptor.
type Link struct {
	Rel        string          `json:"rel,omitempty"`
	Method     string          `json:"method"`
	Href       string          `json:"href"`
	Parameters []LinkParameter `json:"parameters,omitempty"`
}

// LinkParameter describes a query parameter expected by a link target.
type LinkParameter struct {
	Name         string `json:"name"`
	DefaultValue string `json:"defaultValue,omitempty"`
	Required     bool   `json:"required"`
}
