package dto

// CertIssueRequest asks for a leaf certificate for the given CSR.
type CertIssueRequest struct {
	// CSR is the DER-encoded certificate signing request.
	CSR *BinaryData `json:"csr"`
}

// CertIssueResponse returns the issued certificate.
type CertIssueResponse struct {
	// Certificate is the DER certificate, base64-encoded.
	Certificate string `json:"certificate"`

	// Serial is the certificate serial number (uppercase hex).
	Serial string `json:"serial"`

	Subject   string `json:"subject"`
	Issuer    string `json:"issuer"`
	NotBefore string `json:"not_before"` // RFC3339
	NotAfter  string `json:"not_after"`  // RFC3339
}

// CertRevokeRequest revokes a certificate by serial.
type CertRevokeRequest struct {
	// Reason is the revocation reason name (e.g. "keyCompromise").
	// Empty means unspecified.
	Reason string `json:"reason,omitempty"`
}

// CertRevokeResponse confirms a revocation.
type CertRevokeResponse struct {
	Serial string `json:"serial"`
	Reason string `json:"reason"`

	// Status is always "revoked"; repeated revocations of the same
	// serial are idempotent.
	Status string `json:"status"`
}
