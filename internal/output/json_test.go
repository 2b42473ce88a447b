package output

import (
	"encoding/json"
	"testing"

	"audio-feature-extractor/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeErrorLiteral(t *testing.T) {
	assert.Equal(t,
		`{"error": "Audio file not found: /no/such/file.wav"}`+"\n",
		string(EncodeError("Audio file not found: /no/such/file.wav")))
}

func TestEncodeErrorEscapesNonASCII(t *testing.T) {
	out := EncodeError("Audio file not found: /no/é.wav")
	assert.Equal(t, `{"error": "Audio file not found: /no/\u00e9.wav"}`+"\n", string(out))

	out = EncodeError("a\"b\\c\nd\x01<&>/\x7f🎵")
	assert.Equal(t, `{"error": "a\"b\\c\nd\u0001<&>/\u007f\ud83c\udfb5"}`+"\n", string(out))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "a\"b\\c\nd\x01<&>/\x7f🎵", decoded["error"])
}

func TestEncodeFeaturesNulls(t *testing.T) {
	assert.Equal(t,
		`{"bpm": null, "energy": null, "loudness": null, "spectralFlux": null, "musicalKey": null}`+"\n",
		string(EncodeFeatures(&types.FeatureRecord{})))
	assert.Equal(t, EncodeFeatures(&types.FeatureRecord{}), EncodeFeatures(nil))
}

func TestEncodeFeaturesValues(t *testing.T) {
	bpm, energy, loudness, flux := 120.0, 0.35355339059327373, -9.030899869919436, 1e-05
	key := "F#"

	out := EncodeFeatures(&types.FeatureRecord{
		BPM:          &bpm,
		Energy:       &energy,
		Loudness:     &loudness,
		SpectralFlux: &flux,
		MusicalKey:   &key,
	})
	assert.Equal(t,
		`{"bpm": 120.0, "energy": 0.35355339059327373, "loudness": -9.030899869919436, "spectralFlux": 1e-05, "musicalKey": "F#"}`+"\n",
		string(out))

	var record types.FeatureRecord
	require.NoError(t, json.Unmarshal(out, &record))
	assert.Equal(t, bpm, *record.BPM)
	assert.Equal(t, flux, *record.SpectralFlux)
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		0:                      "0.0",
		117.45:                 "117.45",
		-100:                   "-100.0",
		0.0001:                 "0.0001",
		0.00012:                "0.00012",
		1.5e-07:                "1.5e-07",
		1e16:                   "1e+16",
		9999999999999998:       "9999999999999998.0",
		123456789012345680:     "1.2345678901234568e+17",
		1.7976931348623157e308: "1.7976931348623157e+308",
	}
	for f, want := range cases {
		assert.Equal(t, want, FormatFloat(f), "%v", f)
	}
}
