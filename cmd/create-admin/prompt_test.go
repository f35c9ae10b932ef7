package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
}

func TestPromptTwice(t *testing.T) {
	stubPasswords(t, "correct horse", "correct horse")
	var out bytes.Buffer

	pw, err := promptTwice(0, &out)
	require.NoError(t, err)
	assert.Equal(t, "correct horse", pw)
	assert.Contains(t, out.String(), "Confirm password: ")
}

func TestPromptTwice_Mismatch(t *testing.T) {
	stubPasswords(t, "one", "two")

	_, err := promptTwice(0, &bytes.Buffer{})
	assert.ErrorIs(t, err, errPasswordMismatch)
}

func TestPromptTwice_ReadError(t *testing.T) {
	stubPasswords(t, "only-once")

	_, err := promptTwice(0, &bytes.Buffer{})
	assert.ErrorContains(t, err, "read password")
}
