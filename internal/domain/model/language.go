package model

// Language is an entry of the closed table of judgeable languages.
type Language struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	ExternalID int    `json:"external_id"` // id understood by the execution service
}
