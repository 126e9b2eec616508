package domain

// RawFormat describes one accepted camera RAW input format.
type RawFormat struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Vendor    string `json:"vendor,omitempty"`
}
