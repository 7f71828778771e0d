package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_UnmarshalKeepsOrder(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`{"b": 1, "a": "x", "c": [true, null], "d": {"z": 2.50, "y": "n"}}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "c", "d"}, rec.Keys())

	b, _ := rec.Get("b")
	assert.Equal(t, KindNumber, b.Kind)
	assert.Equal(t, "1", b.Str)

	c, _ := rec.Get("c")
	require.Equal(t, KindList, c.Kind)
	require.Len(t, c.List, 2)
	assert.Equal(t, KindBool, c.List[0].Kind)
	assert.Equal(t, KindNull, c.List[1].Kind)

	d, _ := rec.Get("d")
	require.Equal(t, KindObject, d.Kind)
	assert.Equal(t, []string{"z", "y"}, d.Object.Keys())
	z, _ := d.Object.Get("z")
	assert.Equal(t, "2.50", z.Str)
}

func TestRecord_MarshalRoundTrip(t *testing.T) {
	in := `{"b":1,"a":"x","c":[true,null],"d":{"z":2.50}}`
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(in), &rec))

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestRecord_Rejects(t *testing.T) {
	var rec Record
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &rec))
	assert.Error(t, json.Unmarshal([]byte(`{"a": }`), &rec))

	require.NoError(t, json.Unmarshal([]byte(`null`), &rec))
	assert.Equal(t, 0, rec.Len())
}

func TestRecord_MissingKey(t *testing.T) {
	rec := RecordFromMap(map[string]any{"a": "1"})
	v, ok := rec.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, KindNull, v.Kind)

	var zero Record
	_, ok = zero.Get("a")
	assert.False(t, ok)
}

func TestRecordFromMap_SortedKeys(t *testing.T) {
	rec := RecordFromMap(map[string]any{"c": 1, "a": true, "b": []any{"x"}})
	assert.Equal(t, []string{"a", "b", "c"}, rec.Keys())

	c, _ := rec.Get("c")
	assert.Equal(t, Value{Kind: KindNumber, Str: "1"}, c)
}

func TestRunStatus_Aliases(t *testing.T) {
	var s RunStatus
	require.NoError(t, json.Unmarshal([]byte(`"processing"`), &s))
	assert.Equal(t, StatusRunning, s)
	assert.False(t, s.Terminal())

	require.NoError(t, json.Unmarshal([]byte(`"COMPLETED"`), &s))
	assert.True(t, s.Terminal())

	assert.Error(t, json.Unmarshal([]byte(`"ARCHIVED"`), &s))
}

func TestRun_FailureMessage(t *testing.T) {
	r := Run{Status: StatusFailed, Output: &RunOutput{Error: "PDF ilegível"}}
	assert.Equal(t, "PDF ilegível", r.FailureMessage())

	r.Output = nil
	assert.NotEmpty(t, r.FailureMessage())

	r.Status = StatusCompleted
	assert.Empty(t, r.FailureMessage())
	assert.False(t, r.HasFields())
}

func TestSummary_Add(t *testing.T) {
	var s Summary
	for _, st := range []RunStatus{StatusPending, StatusRunning, StatusCompleted, StatusCompleted, StatusFailed} {
		s.Add(st)
	}
	assert.Equal(t, Summary{Total: 5, Pending: 1, Running: 1, Completed: 2, Failed: 1}, s)
}
