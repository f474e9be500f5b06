// ABOUTME: Tests for the client-side view state store
// ABOUTME: Covers preview precedence, remote-wins semantics and wire encoding of selections
package view

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreStartsEmpty(t *testing.T) {
	s := NewStore()

	_, ok := s.State()
	assert.False(t, ok)
	assert.False(t, s.HasState())
	assert.Equal(t, 0, s.Chunk().Len())

	_, ok = s.Selection()
	assert.False(t, ok)
	assert.False(t, s.Mapper(800).HasState())
}

func TestStoreRemoteStateClearsPreview(t *testing.T) {
	s := NewStore()
	s.SetPreview(Range{Start: 4, End: 2})

	preview, ok := s.Preview()
	require.True(t, ok)
	assert.Equal(t, Range{Start: 2, End: 4}, preview, "preview is normalized")

	s.ApplyState(*testState(44100, 10, 512, 0))

	_, ok = s.Preview()
	assert.False(t, ok, "new state must drop the local preview")
}

func TestStoreSelectionPrefersPreview(t *testing.T) {
	s := NewStore()
	st := *testState(44100, 10, 512, 0)
	st.View.Selection = &Range{Start: 1, End: 2}
	s.ApplyState(st)

	sel, ok := s.Selection()
	require.True(t, ok)
	assert.Equal(t, Range{Start: 1, End: 2}, sel)

	s.SetPreview(Range{Start: 5, End: 6})
	sel, _ = s.Selection()
	assert.Equal(t, Range{Start: 5, End: 6}, sel)

	assert.True(t, s.ClearPreview())
	assert.False(t, s.ClearPreview())
	sel, _ = s.Selection()
	assert.Equal(t, Range{Start: 1, End: 2}, sel)
}

func TestStoreStateIsCopied(t *testing.T) {
	s := NewStore()
	st := *testState(44100, 10, 512, 0)
	st.View.Selection = &Range{Start: 1, End: 2}
	s.ApplyState(st)

	st.View.Selection.Start = 9
	got, _ := s.State()
	assert.Equal(t, 1.0, got.View.Selection.Start)

	got.View.Selection.End = 7
	again, _ := s.State()
	assert.Equal(t, 2.0, again.View.Selection.End)
}

func TestStoreChunkLifecycle(t *testing.T) {
	s := NewStore()
	s.ApplyChunk(WaveformChunk{Samples: []float64{0, 5, -8, 3}, StartSec: 1.5})

	assert.Equal(t, 4, s.Chunk().Len())
	assert.Equal(t, 1.5, s.Chunk().StartSec)

	s.ApplyState(*testState(100, 10, 1, 0))
	assert.Equal(t, 4.0, s.Mapper(800).ViewPixelCount())

	s.ClearChunk()
	assert.Equal(t, 0, s.Chunk().Len())
	assert.Equal(t, 800.0, s.Mapper(800).ViewPixelCount())
}

func TestAudioStateDecoding(t *testing.T) {
	raw := `{
		"source": {"id": "abc", "path": "/tmp/a.wav", "sample_rate": 44100, "channels": 2, "duration_sec": 10.5},
		"view": {"zoom": 512, "offset_sec": 1.25, "selection": [2.5, 3.75]},
		"transforms": [{"type": "gain", "params": {"db": -3}}]
	}`

	var st AudioState
	require.NoError(t, json.Unmarshal([]byte(raw), &st))

	assert.Equal(t, 44100.0, st.Source.SampleRate)
	assert.Equal(t, 10.5, st.Source.DurationSec)
	assert.Equal(t, 1.25, st.View.OffsetSec)
	require.NotNil(t, st.View.Selection)
	assert.Equal(t, Range{Start: 2.5, End: 3.75}, *st.View.Selection)
	require.Len(t, st.Transforms, 1)
	assert.NoError(t, st.Transforms[0].Validate())
}

func TestAudioStateNullSelection(t *testing.T) {
	var st AudioState
	require.NoError(t, json.Unmarshal([]byte(`{"source":{"sample_rate":1,"duration_sec":0},"view":{"zoom":1,"offset_sec":0,"selection":null}}`), &st))
	assert.Nil(t, st.View.Selection)

	data, err := json.Marshal(ViewState{Zoom: 2, Selection: &Range{Start: 1, End: 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"zoom":2,"offset_sec":0,"selection":[1,2]}`, string(data))
}

func TestRangeRejectsMalformedPairs(t *testing.T) {
	var r Range
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"start":1}`), &r))
}

func TestRangeOrdersReversedPair(t *testing.T) {
	var st AudioState
	require.NoError(t, json.Unmarshal([]byte(`{"source":{"sample_rate":100,"duration_sec":10},"view":{"zoom":1,"offset_sec":0,"selection":[5,2]}}`), &st))
	require.NotNil(t, st.View.Selection)
	assert.Equal(t, Range{Start: 2, End: 5}, *st.View.Selection)

	trim := Trim(*st.View.Selection, st.Source.SampleRate)
	assert.Equal(t, map[string]interface{}{"start": 200, "end": 500}, trim.Params)
}

func TestTransformValidate(t *testing.T) {
	assert.NoError(t, Transform{Type: TransformFade}.Validate())
	assert.Error(t, Transform{Type: "reverse"}.Validate())
}

func TestTransformBuilders(t *testing.T) {
	gain := Gain(-3)
	assert.NoError(t, gain.Validate())
	assert.Equal(t, -3.0, gain.Params["db"])

	trim := Trim(Range{Start: 1, End: 2.5}, 100)
	assert.Equal(t, TransformTrim, trim.Type)
	assert.Equal(t, 100, trim.Params["start"])
	assert.Equal(t, 250, trim.Params["end"])

	fade := Fade("out", 0.5, 44100)
	assert.Equal(t, "out", fade.Params["direction"])
	assert.Equal(t, 22050, fade.Params["duration"])

	data, err := json.Marshal(trim)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"trim","params":{"start":100,"end":250}}`, string(data))
}
