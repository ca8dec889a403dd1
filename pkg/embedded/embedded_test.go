package embedded

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLedger_IsJSONArray(t *testing.T) {
	var entries []map[string]interface{}
	assert.NoError(t, json.Unmarshal(DefaultLedger, &entries))
	assert.NotEmpty(t, entries)
	for _, entry := range entries {
		assert.Contains(t, entry, "asset")
		assert.Contains(t, entry, "amount")
	}
}
