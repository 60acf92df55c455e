package crm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/policydesk/internal/crm"
)

func TestClient_FullName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Jan Kowalski", crm.Client{FirstName: "Jan", LastName: "Kowalski"}.FullName())
	assert.Equal(t, "Jan", crm.Client{FirstName: "Jan"}.FullName())
	assert.Equal(t, "Kowalski", crm.Client{LastName: "Kowalski"}.FullName())
}

func TestNaive(t *testing.T) {
	t.Parallel()

	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	instant := time.Date(2024, 7, 1, 6, 30, 0, 0, time.UTC)
	got := crm.Naive(instant, warsaw)

	assert.Equal(t, time.Date(2024, 7, 1, 8, 30, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, instant, crm.Naive(instant, nil))
}
