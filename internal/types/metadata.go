package types

// Metadata is a map of key-value pairs attached to audit events and charges
type Metadata map[string]string
