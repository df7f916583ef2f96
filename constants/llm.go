package constants

// Model decoding parameters. Fixed for reproducibility: identical inputs
// should produce identical requests.
const (
	Seed            = 43
	Temperature     = 0.0
	MaxOutputTokens = 4096
)

// SchemaTokenLimit caps the cl100k_base token count of a schema definition
// at creation time.
const SchemaTokenLimit = 2048

// PDF rendering and staging.
const (
	RenderDPI        = 300
	StagedImageMime  = MimeTypePNG
	PresignTTLSecs   = 300 // staged-URL validity window
	StageConcurrency = 6   // parallel uploads per request
)

// MaxExtractAttempts bounds the validate-and-retry loop in the model client.
const MaxExtractAttempts = 3
