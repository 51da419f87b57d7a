package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	dErrors "rescar/pkg/domain-errors"
)

func TestValidateCarID(t *testing.T) {
	valid := []string{"C1", "C25", "C0000000001", "C9999999999"}
	for _, id := range valid {
		require.NoError(t, ValidateCarID(id), "expected %q to be accepted", id)
	}

	invalid := []string{"", "A-42", "C", "C12345678901", "c25", "C25x", " C25", "X25"}
	for _, id := range invalid {
		err := ValidateCarID(id)
		require.Error(t, err, "expected %q to be rejected", id)
		require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidFormat))
	}
}

func TestDetachedClearsIdentity(t *testing.T) {
	car := Car{ID: uuid.New(), CarID: "C7", RegistrationNumber: "AB123 CD"}

	snapshot := car.Detached()
	require.Equal(t, uuid.Nil, snapshot.ID)
	require.Equal(t, car.CarID, snapshot.CarID)
	require.Equal(t, car.RegistrationNumber, snapshot.RegistrationNumber)
	require.NotEqual(t, car.ID, snapshot.ID)
}
