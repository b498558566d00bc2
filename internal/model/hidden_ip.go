package model

// HiddenIP represents a row in the `h_ip` table: an IP an operator has curated
// into the suppressed list. The front-end treats these as already flagged and
// leaves them out of the live anomaly view. Rows are created and removed only
// through the administrative SQL surface; the core merely lists them.
//
// Fields:
//  ID – primary key identifier.
//  IP – textual IPv4/IPv6 address.
type HiddenIP struct {
	ID uint64 `json:"id"` // h_ip.id
	IP string `json:"ip"` // h_ip.ip
}
