// Package crossref resolves rc:// cross-references between translation-helps
// articles and collects the articles they pull into appendices.
package crossref

import "fmt"

// MalformedLinkError represents an rc link that does not have the
// language/resource/type/project shape or ends with a separator.
type MalformedLinkError struct {
	Link   string
	Reason string
	Cause  error
}

func (e *MalformedLinkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed rc link %s: %s: %v", e.Link, e.Reason, e.Cause)
	}
	return fmt.Sprintf("malformed rc link %s: %s", e.Link, e.Reason)
}

func (e *MalformedLinkError) Unwrap() error {
	return e.Cause
}

// UnresolvedLinkError represents a well-formed link whose article could not be found.
type UnresolvedLinkError struct {
	Link    string
	Message string
	Cause   error
}

func (e *UnresolvedLinkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unresolved rc link %s: %s: %v", e.Link, e.Message, e.Cause)
	}
	return fmt.Sprintf("unresolved rc link %s: %s", e.Link, e.Message)
}

func (e *UnresolvedLinkError) Unwrap() error {
	return e.Cause
}
