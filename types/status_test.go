package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimplifyCoversEveryFineStatus(t *testing.T) {
	cases := map[FineStatus]SimpleStatus{
		StatusUnknown:         SimpleUnknown,
		StatusSent:            SimpleSent,
		StatusSourceFinalized: SimpleSent,
		StatusCommitted:       SimpleCommitted,
		StatusBlessed:         SimpleCommitted,
		StatusVerifying:       SimpleCommitted,
		StatusVerified:        SimpleCommitted,
		StatusSuccess:         SimpleSuccess,
		StatusFailed:          SimpleFailed,
	}
	for fine, want := range cases {
		assert.Equal(t, want, fine.Simplify(), "fine status %s", fine)
	}
}

func TestSimplifyUnrecognizedIsUnknown(t *testing.T) {
	assert.Equal(t, SimpleUnknown, FineStatus("SOMETHING_NEW").Simplify())
	assert.Equal(t, SimpleUnknown, FineStatus("").Simplify())
}

func TestSimpleStatusFinal(t *testing.T) {
	assert.True(t, SimpleSuccess.Final())
	assert.True(t, SimpleFailed.Final())
	assert.False(t, SimpleSent.Final())
	assert.False(t, SimpleCommitted.Final())
	assert.False(t, SimpleUnknown.Final())
}

func TestParseFineStatus(t *testing.T) {
	assert.Equal(t, StatusCommitted, ParseFineStatus("committed"))
	assert.Equal(t, StatusSuccess, ParseFineStatus(" SUCCESS "))
	assert.Equal(t, StatusSourceFinalized, ParseFineStatus("source_finalized"))
	assert.Equal(t, StatusUnknown, ParseFineStatus("half-baked"))
	assert.Equal(t, StatusUnknown, ParseFineStatus(""))
}
