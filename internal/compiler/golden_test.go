package compiler

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/foerderwerk/rulecore/internal/model"
)

// The compiled spec shape is an audit artifact; reviewers diff it between
// releases. This pins the serialized form.
func TestCompile_GoldenSpec(t *testing.T) {
	t.Parallel()

	res, err := Compile([]model.RequirementRecord{
		wallThreshold("REQ-001", 0.2, 100, "U-Wert maximal 0,20 W/(m²K)"),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	require.NoError(t, enc.Encode(res.Specs))

	g := goldie.New(t)
	g.Assert(t, "single_threshold_spec", buf.Bytes())
}
