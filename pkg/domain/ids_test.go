package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDs_NilAndString(t *testing.T) {
	assert.True(t, UserID{}.IsNil())
	assert.True(t, ApplicationID{}.IsNil())

	appID := NewApplicationID()
	assert.False(t, appID.IsNil())
	assert.Len(t, appID.String(), 36)
}

func TestParseApplicationID(t *testing.T) {
	raw := uuid.New()
	parsed, err := ParseApplicationID(raw.String())
	require.NoError(t, err)
	assert.Equal(t, ApplicationID(raw), parsed)

	_, err = ParseApplicationID("not-a-uuid")
	assert.Error(t, err)
}

func TestParseUserID_RoundTrip(t *testing.T) {
	userID := NewUserID()
	parsed, err := ParseUserID(userID.String())
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}
