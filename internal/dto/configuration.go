package dto

// ConfigurationItem represents a setting exposed via API together with where its value came from.
type ConfigurationItem struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Overridden  bool   `json:"overridden"`
}

// UpdateConfigurationRequest describes payload for updating a single setting.
type UpdateConfigurationRequest struct {
	Key   string `json:"key"`
	Value string `json:"value" validate:"required"`
}

// BulkUpdateConfigurationRequest holds multiple update requests.
type BulkUpdateConfigurationRequest struct {
	Items []UpdateConfigurationRequest `json:"items" validate:"required,min=1,dive"`
}
