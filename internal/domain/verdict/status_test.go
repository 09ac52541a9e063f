package verdict

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityOrder(t *testing.T) {
	assert.True(t, Compare(NonConforming, PotentialNonConforming) > 0)
	assert.True(t, Compare(PotentialNonConforming, Inconclusive) > 0)
	assert.True(t, Compare(Attention, Inconclusive) > 0)
	assert.True(t, Compare(Inconclusive, OK) > 0)
	assert.True(t, Compare(OK, NoData) > 0)
	assert.True(t, Compare(Conforming, Unpaired) > 0)
	assert.Equal(t, 0, Compare(NoLimit, NoLimit))

	assert.Equal(t, SeverityAttention, PotentialNonConforming.Severity())
	assert.Equal(t, SeverityAttention, Attention.Severity())
	for _, s := range []Status{NoData, NoValidData, NoLimit, Unpaired} {
		assert.True(t, s.Informational(), s.String())
	}
}

func TestCompare_IsTotalOrder(t *testing.T) {
	all := All()
	require.Len(t, all, 11)
	for i := range all {
		for j := range all {
			c := Compare(all[i], all[j])
			assert.Equal(t, -c, Compare(all[j], all[i]))
			if i == j {
				assert.Equal(t, 0, c)
			} else {
				assert.NotEqual(t, 0, c, "%s vs %s", all[i], all[j])
			}
		}
	}
	assert.Equal(t, NonConforming, all[len(all)-1])
}

func TestMax(t *testing.T) {
	assert.Equal(t, NoData, Max())
	assert.Equal(t, OK, Max(NoData, OK, Unpaired))
	assert.Equal(t, NonConforming, Max(OK, NonConforming, Inconclusive))
	assert.Equal(t, NoLimit, Max(NoData, NoLimit))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "NÃO CONFORME", NonConforming.Label(LocalePT))
	assert.Equal(t, "Non-conforming", NonConforming.Label(LocaleEN))
	assert.Equal(t, "Sem dados", NoData.Label("fr"))
	assert.Equal(t, "POTENTIAL_NON_CONFORMING", PotentialNonConforming.String())
	assert.Equal(t, "Status(99)", Status(99).String())
}

func TestTextRoundTrip(t *testing.T) {
	type row struct {
		Status Status `json:"status"`
	}
	b, err := json.Marshal(row{Status: Unpaired})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"UNPAIRED"}`, string(b))

	var back row
	require.NoError(t, json.Unmarshal([]byte(`{"status":"non-conforming"}`), &back))
	assert.Equal(t, NonConforming, back.Status)

	assert.Error(t, json.Unmarshal([]byte(`{"status":"MAYBE"}`), &back))
	_, err = Status(42).MarshalText()
	assert.Error(t, err)
}

func TestSortByStatus(t *testing.T) {
	items := []Verdict{
		{Status: OK, Rationale: "a"},
		{Status: NonConforming, Rationale: "b"},
		{Status: NoData, Rationale: "c"},
		{Status: OK, Rationale: "d"},
		{Status: Inconclusive, Rationale: "e"},
	}
	SortByStatus(items, func(v Verdict) Status { return v.Status })

	var got []string
	for _, v := range items {
		got = append(got, v.Rationale)
	}
	assert.Equal(t, []string{"b", "e", "a", "d", "c"}, got)
}
