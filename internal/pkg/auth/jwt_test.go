package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginTokenRoundTrip(t *testing.T) {
	token, err := IssueLoginToken(42, 583231)
	require.NoError(t, err)

	accountID, err := ParseLoginToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), accountID)
}

func TestLinkStateRoundTrip(t *testing.T) {
	state, err := IssueLinkState(42)
	require.NoError(t, err)

	accountID, err := ParseLinkState(state)
	require.NoError(t, err)
	assert.Equal(t, uint(42), accountID)
}

func TestPurposeIsNotInterchangeable(t *testing.T) {
	login, err := IssueLoginToken(42, 583231)
	require.NoError(t, err)
	state, err := IssueLinkState(42)
	require.NoError(t, err)

	// a login token must not link an installation, and vice versa
	_, err = ParseLinkState(login)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ParseLoginToken(state)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseLoginToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseLoginToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	token, err := IssueLoginToken(42, 583231)
	require.NoError(t, err)

	_, err = ParseLoginToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
