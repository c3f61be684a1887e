package notes

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_StrictJSON(t *testing.T) {
	rec, err := Decode(`{"published": "True", "operatingSystemVersion": "ubuntu-22.04", "builder": "packer"}`)
	require.NoError(t, err)
	assert.Equal(t, Published, rec.Status)
	assert.Equal(t, "ubuntu-22.04", rec.OSVersion)
	assert.Equal(t, map[string]any{"builder": "packer"}, rec.Extra)
}

func TestDecode_LegacySingleQuoted(t *testing.T) {
	legacy, err := Decode(`{'published': 'Retired', 'operatingSystemVersion': 'rhel9', 'owner': "o'brien"}`)
	require.NoError(t, err)
	strict, err := Decode(`{"published": "Retired", "operatingSystemVersion": "rhel9", "owner": "o'brien"}`)
	require.NoError(t, err)

	assert.Equal(t, strict, legacy)
	assert.Equal(t, Retired, legacy.Status)
}

func TestDecode_PublishedValues(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{`{"published": "False"}`, Draft},
		{`{"published": "false"}`, Draft},
		{`{"published": "TRUE"}`, Published},
		{`{"published": true}`, Published},
		{`{"published": false}`, Draft},
		{`{'published': 'retired'}`, Retired},
		{`{"operatingSystemVersion": "win2022"}`, Draft},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rec, err := Decode(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Status)
		})
	}
}

func TestDecode_ExplicitFamily(t *testing.T) {
	rec, err := Decode(`{"published": "True", "family": "web"}`)
	require.NoError(t, err)
	assert.Equal(t, "web", rec.Family)
	assert.Nil(t, rec.Extra)
}

func TestDecode_Malformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"built by packer on tuesday",
		`{"published": "maybe"}`,
		`{"published": ["True"]}`,
		`{"published": "True"`,
		`{'published': 'True', 'ratio': .nan}`,
		`{'published': 'True', 'limits': {'cpu': .inf}}`,
		`{'published': 'True', 'disks': {[1, 2]: 'os'}}`,
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := Decode(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecode))

			var de *DecodeError
			assert.True(t, errors.As(err, &de))
		})
	}
}

func TestDecode_NonStringKeysAreStringified(t *testing.T) {
	rec, err := Decode(`{'published': 'False', 'family': 'web', 'disks': {1: 'os', 2: 'data'}}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"disks": map[string]any{"1": "os", "2": "data"}}, rec.Extra)

	text := Encode(rec.WithStatus(Published))
	assert.Equal(t, `{"disks":{"1":"os","2":"data"},"family":"web","published":"True"}`, text)

	again, err := Decode(text)
	require.NoError(t, err)
	assert.Equal(t, rec.WithStatus(Published), again)
}

func TestEncode_DropsUnrepresentableExtra(t *testing.T) {
	got := Encode(Record{
		Status: Published,
		Extra: map[string]any{
			"ratio": math.NaN(),
			"disks": map[any]any{1: "os"},
			"ok":    "yes",
		},
	})
	assert.Equal(t, `{"disks":{"1":"os"},"ok":"yes","published":"True"}`, got)
}

func TestEncode_StrictSortedJSON(t *testing.T) {
	got := Encode(Record{
		Status:    Published,
		OSVersion: "ubuntu-24.04",
		Extra:     map[string]any{"builder": "packer"},
	})
	assert.Equal(t, `{"builder":"packer","operatingSystemVersion":"ubuntu-24.04","published":"True"}`, got)
}

func TestEncode_DraftWithoutTags(t *testing.T) {
	assert.Equal(t, `{"published":"False"}`, Encode(Record{}))
}

func TestRoundTrip(t *testing.T) {
	records := []Record{
		{},
		{Status: Published},
		{Status: Retired, Family: "db"},
		{Status: Draft, OSVersion: "rhel-9.4"},
		{
			Status:    Published,
			Family:    "web",
			OSVersion: "ubuntu-22.04",
			Extra: map[string]any{
				"build":   42,
				"signed":  true,
				"owner":   "platform <ops@example.com>",
				"tags":    []any{"a", "b"},
				"details": map[string]any{"packer": "1.10"},
			},
		},
	}
	for _, r := range records {
		t.Run(Encode(r), func(t *testing.T) {
			got, err := Decode(Encode(r))
			require.NoError(t, err)
			assert.Equal(t, r, got)
		})
	}
}

func TestWithStatus_DoesNotAlias(t *testing.T) {
	orig := Record{Status: Published, Extra: map[string]any{"k": "v"}}
	draft := orig.WithStatus(Draft)
	draft.Extra["k"] = "changed"

	assert.Equal(t, Published, orig.Status)
	assert.Equal(t, "v", orig.Extra["k"])
	assert.Equal(t, Draft, draft.Status)
}

func TestStatus_Text(t *testing.T) {
	for _, s := range []Status{Draft, Published, Retired} {
		b, err := s.MarshalText()
		require.NoError(t, err)

		var back Status
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, s, back)
	}
	var s Status
	assert.Error(t, s.UnmarshalText([]byte("gone")))
}
