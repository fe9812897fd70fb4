package domain

import (
	"math/big"
	"strings"
)

// State is the FormController lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateUploading  State = "uploading"
	StateMinting    State = "minting"
	StateFailed     State = "failed"
)

// Status text shown while a phase is running.
const (
	StatusGenerating = "Generating Image..."
	StatusUploading  = "Uploading Image..."
	StatusMinting    = "Waiting for Mint..."
)

// Draft holds the form inputs between edits and submission.
type Draft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Complete reports whether both fields carry non-whitespace text.
func (d Draft) Complete() bool {
	return strings.TrimSpace(d.Name) != "" && strings.TrimSpace(d.Description) != ""
}

// DraftPatch carries optional field edits. Nil fields are left unchanged.
type DraftPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Apply writes the set fields into d.
func (p DraftPatch) Apply(d *Draft) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
}

// GeneratedArtifact is the image returned by the text-to-image provider.
type GeneratedArtifact struct {
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// PreviewDataURI renders the artifact as an inline data URI.
func (a GeneratedArtifact) PreviewDataURI() string {
	if a.ImageBase64 == "" {
		return ""
	}
	return "data:" + a.MimeType + ";base64," + a.ImageBase64
}

// IsZero reports whether no image has been generated.
func (a GeneratedArtifact) IsZero() bool {
	return a.ImageBase64 == ""
}

// HostedAsset is the public location of an uploaded image.
type HostedAsset struct {
	URL string `json:"url"`
}

// LinkLabel is the final path segment of the URL, used as link text.
func (h HostedAsset) LinkLabel() string {
	return h.URL[strings.LastIndex(h.URL, "/")+1:]
}

// MintRequest is a mint of TokenURI paying Value wei. A nil Value pays
// the minter's configured fee.
type MintRequest struct {
	TokenURI string   `json:"token_uri"`
	Value    *big.Int `json:"value"`
}

// MintReceipt describes a confirmed mint transaction.
type MintReceipt struct {
	TxHash      string   `json:"tx_hash"`
	BlockNumber uint64   `json:"block_number"`
	TokenID     *big.Int `json:"token_id,omitempty"` // nil when the contract emitted no Transfer
}

// Failure describes the last failed phase.
type Failure struct {
	Phase   State  `json:"phase"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Snapshot is everything the form page renders.
type Snapshot struct {
	Seq            uint64   `json:"seq"`
	SubmissionID   string   `json:"submission_id,omitempty"`
	State          State    `json:"state"`
	Busy           bool     `json:"busy"`
	StatusMessage  string   `json:"status_message"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	PreviewDataURI string   `json:"preview_data_uri,omitempty"`
	URL            string   `json:"url,omitempty"`
	LinkLabel      string   `json:"link_label,omitempty"`
	TxHash         string   `json:"tx_hash,omitempty"`
	TokenID        string   `json:"token_id,omitempty"`
	Error          *Failure `json:"error,omitempty"`
}
