package dto

// CRLGenerateResponse returns a freshly generated CRL.
type CRLGenerateResponse struct {
	// CRL is the DER-encoded revocation list, base64-encoded.
	CRL string `json:"crl"`

	// Number is the CRL sequence number.
	Number string `json:"number"`

	RevokedCount int    `json:"revoked_count"`
	NextUpdate   string `json:"next_update"` // RFC3339

	// Published reports whether the CRL was also written to its
	// well-known location. Publish failures are non-fatal.
	Published bool `json:"published"`
}

// CRLMetadataResponse describes the current CRL state.
type CRLMetadataResponse struct {
	Number       string `json:"number"`
	NextUpdate   string `json:"next_update"` // RFC3339
	Hash         string `json:"hash"`
	RevokedCount int    `json:"revoked_count"`
}
