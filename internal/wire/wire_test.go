package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleQuery() *QueryRequest {
	return &QueryRequest{
		RequestID:     "req_42",
		DateStart:     "20200810",
		DateEnd:       "20200815",
		PollutantType: "PM2.5",
		LatitudeMin:   -90,
		LatitudeMax:   90,
		LongitudeMin:  -180,
		LongitudeMax:  180,
		MaxRecords:    -1,
		ChunkSize:     500,
	}
}

func TestQueryEncodingRoundTrip(t *testing.T) {
	q := sampleQuery()

	payload, err := EncodeQuery(q)
	require.NoError(t, err)

	decoded, err := DecodeQuery(payload)
	require.NoError(t, err)
	require.Equal(t, q, decoded)

	// Re-encoding is canonical: the bytes a team leader forwards are
	// the bytes the leader produced.
	again, err := EncodeQuery(decoded)
	require.NoError(t, err)
	require.Equal(t, payload, again)
}

func TestDecodeQueryRejectsGarbage(t *testing.T) {
	_, err := DecodeQuery([]byte("proto:not-json"))
	require.Error(t, err)
}

func TestQueryValidate(t *testing.T) {
	t.Run("valid query passes", func(t *testing.T) {
		require.NoError(t, sampleQuery().Validate())
	})

	t.Run("zero chunk size passes as server default", func(t *testing.T) {
		q := sampleQuery()
		q.ChunkSize = 0
		require.NoError(t, q.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*QueryRequest)
	}{
		{"empty start date", func(q *QueryRequest) { q.DateStart = "" }},
		{"empty end date", func(q *QueryRequest) { q.DateEnd = "" }},
		{"start after end", func(q *QueryRequest) { q.DateStart = "20200820" }},
		{"latitude below -90", func(q *QueryRequest) { q.LatitudeMin = -90.5 }},
		{"latitude min above max", func(q *QueryRequest) { q.LatitudeMin, q.LatitudeMax = 10, 5 }},
		{"longitude above 180", func(q *QueryRequest) { q.LongitudeMax = 180.1 }},
		{"negative chunk size", func(q *QueryRequest) { q.ChunkSize = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := sampleQuery()
			tc.mutate(q)
			require.Error(t, q.Validate())
		})
	}
}

func TestCodecHandlesWireMessages(t *testing.T) {
	c := jsonCodec{}

	chunk := &Chunk{
		RequestID:     "req_42",
		ChunkNumber:   3,
		TotalChunks:   -1,
		SourceProcess: "C",
		Records: []Record{{
			Latitude:  37.1,
			Longitude: -121.9,
			Pollutant: "PM2.5",
			AQI:       42,
			SiteName:  "Los Gatos",
		}},
	}

	data, err := c.Marshal(chunk)
	require.NoError(t, err)

	out := new(Chunk)
	require.NoError(t, c.Unmarshal(data, out))
	require.Equal(t, chunk, out)
	require.Equal(t, CodecName, c.Name())
}
