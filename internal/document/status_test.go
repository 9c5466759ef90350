package document_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		kind    document.Kind
		from    document.Status
		to      document.Status
		allowed bool
	}{
		{document.KindEstimate, document.StatusDraft, document.StatusSent, true},
		{document.KindEstimate, document.StatusSent, document.StatusApproved, true},
		{document.KindEstimate, document.StatusSent, document.StatusRejected, true},
		{document.KindEstimate, document.StatusSent, document.StatusExpired, true},
		{document.KindEstimate, document.StatusDraft, document.StatusApproved, false},
		{document.KindEstimate, document.StatusApproved, document.StatusSent, false},
		{document.KindEstimate, document.StatusSent, document.StatusPaid, false},

		{document.KindInvoice, document.StatusDraft, document.StatusSent, true},
		{document.KindInvoice, document.StatusDraft, document.StatusCancelled, true},
		{document.KindInvoice, document.StatusSent, document.StatusPaid, true},
		{document.KindInvoice, document.StatusSent, document.StatusOverdue, true},
		{document.KindInvoice, document.StatusOverdue, document.StatusPaid, true},
		{document.KindInvoice, document.StatusOverdue, document.StatusCancelled, true},
		{document.KindInvoice, document.StatusPaid, document.StatusDraft, false},
		{document.KindInvoice, document.StatusPaid, document.StatusPaid, false},
		{document.KindInvoice, document.StatusCancelled, document.StatusSent, false},
		{document.KindInvoice, document.StatusDraft, document.StatusPaid, false},
		{document.KindInvoice, document.StatusSent, document.StatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := document.ValidateTransition(tt.kind, tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}

			var ite *document.InvalidTransitionError
			require.ErrorAs(t, err, &ite)
			assert.Equal(t, tt.from, ite.Current)
			assert.Equal(t, tt.to, ite.Requested)
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, document.IsTerminal(document.KindInvoice, document.StatusPaid))
	assert.True(t, document.IsTerminal(document.KindInvoice, document.StatusCancelled))
	assert.True(t, document.IsTerminal(document.KindEstimate, document.StatusApproved))
	assert.True(t, document.IsTerminal(document.KindEstimate, document.StatusRejected))
	assert.True(t, document.IsTerminal(document.KindEstimate, document.StatusExpired))

	assert.False(t, document.IsTerminal(document.KindInvoice, document.StatusOverdue))
	assert.False(t, document.IsTerminal(document.KindEstimate, document.StatusSent))
	assert.False(t, document.IsTerminal(document.KindEstimate, document.StatusPaid))
}
