package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusDraft, StatusOpen, true},
		{StatusDraft, StatusPaid, true},
		{StatusDraft, StatusVoided, true},
		{StatusOpen, StatusPaid, true},
		{StatusOpen, StatusVoided, true},
		{StatusPaid, StatusOpen, false},
		{StatusPaid, StatusVoided, false},
		{StatusVoided, StatusOpen, false},
		{StatusOpen, StatusDraft, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(DocumentInvoice, tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestCreditNoteTransitions(t *testing.T) {
	assert.True(t, CanTransition(DocumentCreditNote, StatusDraft, StatusIssued))
	assert.True(t, CanTransition(DocumentCreditNote, StatusDraft, StatusVoided))
	assert.False(t, CanTransition(DocumentCreditNote, StatusIssued, StatusVoided))
	assert.False(t, CanTransition(DocumentCreditNote, StatusDraft, StatusOpen))
}

func TestQuoteTransitions(t *testing.T) {
	assert.True(t, CanTransition(DocumentQuote, StatusDraft, StatusOpen))
	assert.True(t, CanTransition(DocumentQuote, StatusOpen, StatusAccepted))
	assert.True(t, CanTransition(DocumentQuote, StatusOpen, StatusCanceled))
	assert.False(t, CanTransition(DocumentQuote, StatusAccepted, StatusOpen))
	assert.False(t, CanTransition(DocumentQuote, StatusDraft, StatusAccepted))
}

func TestTransitionErrors(t *testing.T) {
	status, err := Transition(DocumentInvoice, StatusPaid, StatusOpen)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusPaid, status)

	_, err = Transition(DocumentType("RECEIPT"), StatusDraft, StatusOpen)
	assert.ErrorIs(t, err, ErrUnknownDocument)

	status, err = Transition(DocumentInvoice, StatusOpen, StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, status)
}

func TestRequireEditable(t *testing.T) {
	assert.NoError(t, RequireEditable(StatusDraft))
	assert.ErrorIs(t, RequireEditable(StatusOpen), ErrNotEditable)
	assert.ErrorIs(t, RequireEditable(StatusVoided), ErrNotEditable)
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(DocumentInvoice, StatusPaid))
	assert.True(t, Terminal(DocumentInvoice, StatusVoided))
	assert.False(t, Terminal(DocumentInvoice, StatusDraft))
	assert.True(t, Terminal(DocumentCreditNote, StatusIssued))
	assert.True(t, Terminal(DocumentQuote, StatusAccepted))
}
