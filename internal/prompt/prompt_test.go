package prompt_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbkeep/internal/prompt"
)

func TestField_KeepsDefaultOnEmptyInput(t *testing.T) {
	out := &bytes.Buffer{}
	p := prompt.New(strings.NewReader("\n"), out)

	value, err := p.Field("Enter the database name", "sample")
	require.NoError(t, err)
	assert.Equal(t, "sample", value)
	assert.Contains(t, out.String(), "[sample]")
}

func TestField_TakesInput(t *testing.T) {
	p := prompt.New(strings.NewReader("orders\n"), &bytes.Buffer{})

	value, err := p.Field("Enter the database name", "sample")
	require.NoError(t, err)
	assert.Equal(t, "orders", value)
}

func TestField_Cancelled(t *testing.T) {
	p := prompt.New(strings.NewReader(".\n"), &bytes.Buffer{})

	_, err := p.Field("Enter the database name", "sample")
	assert.ErrorIs(t, err, prompt.ErrCancelled)
}

func TestField_LastLineWithoutNewline(t *testing.T) {
	p := prompt.New(strings.NewReader("orders"), &bytes.Buffer{})

	value, err := p.Field("Enter the database name", "sample")
	require.NoError(t, err)
	assert.Equal(t, "orders", value)
}

func TestSecret_PipedInput(t *testing.T) {
	// os.Stdin is not a terminal under go test, so Secret falls back to a
	// plain line read from the configured reader.
	out := &bytes.Buffer{}
	p := prompt.New(strings.NewReader("s3cret\n"), out)

	value, err := p.Secret("Enter password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)
	assert.NotContains(t, out.String(), "s3cret")
}

func TestSecret_Cancelled(t *testing.T) {
	p := prompt.New(strings.NewReader(".\n"), &bytes.Buffer{})

	_, err := p.Secret("Enter password")
	assert.ErrorIs(t, err, prompt.ErrCancelled)
}
