// Package lifecycle owns the document status machine. Each document type
// carries its own set of states and allowed transitions; the tables here
// are the single source of truth, document services never hardcode status
// checks.
package lifecycle

import (
	"errors"
	"fmt"
)

type DocumentType string

const (
	DocumentInvoice    DocumentType = "INVOICE"
	DocumentCreditNote DocumentType = "CREDIT_NOTE"
	DocumentQuote      DocumentType = "QUOTE"
)

type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusOpen     Status = "OPEN"
	StatusPaid     Status = "PAID"
	StatusVoided   Status = "VOIDED"
	StatusIssued   Status = "ISSUED"
	StatusAccepted Status = "ACCEPTED"
	StatusCanceled Status = "CANCELED"
)

var (
	ErrNotEditable       = errors.New("document_not_editable")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrUnknownDocument   = errors.New("unknown_document_type")
)

type edge struct {
	from Status
	to   Status
}

var transitions = map[DocumentType]map[edge]struct{}{
	DocumentInvoice: {
		{StatusDraft, StatusOpen}:   {},
		{StatusDraft, StatusPaid}:   {}, // zero-total invoices skip open
		{StatusOpen, StatusPaid}:    {},
		{StatusOpen, StatusVoided}:  {},
		{StatusDraft, StatusVoided}: {},
	},
	DocumentCreditNote: {
		{StatusDraft, StatusIssued}: {},
		{StatusDraft, StatusVoided}: {},
	},
	DocumentQuote: {
		{StatusDraft, StatusOpen}:     {},
		{StatusOpen, StatusAccepted}:  {},
		{StatusOpen, StatusCanceled}:  {},
		{StatusDraft, StatusCanceled}: {},
	},
}

// CanEdit reports whether a document's content may still change. Only
// drafts are mutable; everything past draft is frozen and corrected via a
// new revision or a credit note.
func CanEdit(status Status) bool {
	return status == StatusDraft
}

// RequireEditable returns ErrNotEditable unless the document is a draft.
func RequireEditable(status Status) error {
	if !CanEdit(status) {
		return fmt.Errorf("%w: status is %s, edits require %s", ErrNotEditable, status, StatusDraft)
	}
	return nil
}

// CanTransition reports whether the status change is allowed for the
// document type.
func CanTransition(docType DocumentType, from, to Status) bool {
	edges, ok := transitions[docType]
	if !ok {
		return false
	}
	_, ok = edges[edge{from, to}]
	return ok
}

// Transition validates the status change and returns the target status, so
// callers can assign in one expression.
func Transition(docType DocumentType, from, to Status) (Status, error) {
	if _, ok := transitions[docType]; !ok {
		return from, fmt.Errorf("%w: %s", ErrUnknownDocument, docType)
	}
	if !CanTransition(docType, from, to) {
		return from, fmt.Errorf("%w: %s cannot move %s -> %s", ErrInvalidTransition, docType, from, to)
	}
	return to, nil
}

// Terminal reports whether no further transition exists from status.
func Terminal(docType DocumentType, status Status) bool {
	edges, ok := transitions[docType]
	if !ok {
		return true
	}
	for e := range edges {
		if e.from == status {
			return false
		}
	}
	return true
}
