package notify

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilgorjn/patient-scheduling/internal/solver/audit"
	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
)

func TestPayload_MarshalsRunFields(t *testing.T) {
	run := &audit.Run{
		ID:          uuid.New(),
		Fingerprint: "fp-123",
		Status:      domain.StatusOptimal,
	}

	body, err := Payload(run)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, run.ID.String(), decoded["run_id"])
	assert.Equal(t, "OPTIMAL", decoded["status"])
	assert.Equal(t, "fp-123", decoded["fingerprint"])
}
