package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressString(t *testing.T) {
	assert.Equal(t, "11111111111111111111111111111111", SystemProgram.String())

	addr := MustAddress("Edo4xMkzByZTUiFXWf7wRpTKC2mGvpZpCWcby7REpn3w")
	assert.Equal(t, "Edo4xMkzByZTUiFXWf7wRpTKC2mGvpZpCWcby7REpn3w", addr.String())
	assert.False(t, addr.IsZero())

	_, err := AddressFromString("abc")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = AddressFromString("0OIl")
	assert.Error(t, err)
}

func TestAddressJSON(t *testing.T) {
	addr := MustAddress("Edo4xMkzByZTUiFXWf7wRpTKC2mGvpZpCWcby7REpn3w")
	data, err := json.Marshal(struct {
		Player Address `json:"player"`
	}{addr})
	require.NoError(t, err)
	assert.JSONEq(t, `{"player":"Edo4xMkzByZTUiFXWf7wRpTKC2mGvpZpCWcby7REpn3w"}`, string(data))

	var out struct {
		Player Address `json:"player"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, addr, out.Player)
}

func TestDiscriminator(t *testing.T) {
	assert.Equal(t, [8]byte{175, 175, 109, 31, 13, 152, 155, 237}, InstructionDiscriminator("initialize"))
	assert.Equal(t, [8]byte{11, 147, 179, 178, 145, 118, 45, 186}, InstructionDiscriminator("click"))
	assert.Equal(t, [8]byte{27, 90, 166, 125, 74, 100, 121, 18}, AccountDiscriminator("Game"))
}

func TestProgramError(t *testing.T) {
	e := NewProgramError(0, "InvalidPlayer", "")
	assert.Equal(t, uint32(6000), e.Code)
	assert.Equal(t, "program error 6000: InvalidPlayer", e.Error())

	wrapped := fmt.Errorf("instruction 0: %w", &ProgramError{Code: 6000, Name: "InvalidPlayer"})
	assert.True(t, errors.Is(wrapped, e))
	assert.False(t, errors.Is(wrapped, NewProgramError(1, "Other", "")))

	var pe *ProgramError
	require.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, "InvalidPlayer", pe.Name)
}

func TestAssert(t *testing.T) {
	assert.NotPanics(t, func() { Assert(true) })
	assert.NotPanics(t, func() { Assert(error(nil)) })
	assert.PanicsWithValue(t, "bad input", func() { Assert(false, "bad input") })
	assert.PanicsWithError(t, ErrInvalidArgument.Error(), func() { Assert(ErrInvalidArgument) })
}
