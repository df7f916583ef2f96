package common

import (
	"errors"
	"fmt"
)

// Domain error names. These exact strings end up in result rows and client
// responses, so they are part of the API.
const (
	ErrNameSchemaDoesNotExist      = "SchemaDoesNotExist"
	ErrNameInvalidMimeType         = "InvalidMimeType"
	ErrNameInvalidData             = "InvalidData"
	ErrNameRequestDoesNotExist     = "RequestDoesNotExist"
	ErrNameSchemaTooLarge          = "SchemaDefinitionTooLarge"
	ErrNameInvalidSchemaDefinition = "InvalidSchemaDefinition"
	ErrNameInternal                = "InternalError"
)

// DomainError is a client-facing failure. Anything else that surfaces from
// the pipeline is treated as unexpected.
type DomainError struct {
	Name    string
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Error constructors
func SchemaDoesNotExist(name, version string) *DomainError {
	return &DomainError{
		Name:    ErrNameSchemaDoesNotExist,
		Message: fmt.Sprintf("schema %s/%s does not exist", name, version),
	}
}

func InvalidMimeType(mimeType string) *DomainError {
	return &DomainError{
		Name:    ErrNameInvalidMimeType,
		Message: fmt.Sprintf("unsupported mime type %q", mimeType),
	}
}

func InvalidData(message string, cause error) *DomainError {
	return &DomainError{Name: ErrNameInvalidData, Message: message, Cause: cause}
}

func RequestDoesNotExist(requestID string) *DomainError {
	return &DomainError{
		Name:    ErrNameRequestDoesNotExist,
		Message: fmt.Sprintf("no request found for id %s", requestID),
	}
}

func SchemaDefinitionTooLarge(tokens, limit int) *DomainError {
	return &DomainError{
		Name:    ErrNameSchemaTooLarge,
		Message: fmt.Sprintf("schema definition is too large: %d tokens (limit %d)", tokens, limit),
	}
}

func InvalidSchemaDefinition(cause error) *DomainError {
	return &DomainError{
		Name:    ErrNameInvalidSchemaDefinition,
		Message: "schema definition is not a valid JSON Schema",
		Cause:   cause,
	}
}

// AsDomain unwraps err into a DomainError if one is in the chain.
func AsDomain(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// ErrorName returns the taxonomy name for err. Unexpected errors all map
// to InternalError.
func ErrorName(err error) string {
	if de, ok := AsDomain(err); ok {
		return de.Name
	}
	return ErrNameInternal
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
