package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tarragona := Coordinate{Lat: 41.1189, Lng: 1.2445}
	reus := Coordinate{Lat: 41.1561, Lng: 1.1069}

	t.Run("identity", func(t *testing.T) {
		assert.InDelta(t, 0, Distance(tarragona, tarragona), 1e-6)
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.InDelta(t, Distance(tarragona, reus), Distance(reus, tarragona), 1e-6)
	})

	t.Run("known distance", func(t *testing.T) {
		// one degree of latitude on a 6371 km sphere
		d := Distance(Coordinate{Lat: 0, Lng: 0}, Coordinate{Lat: 1, Lng: 0})
		assert.InDelta(t, EarthRadiusMeters*math.Pi/180, d, 0.01)
	})

	t.Run("about fifty kilometers", func(t *testing.T) {
		far := Coordinate{Lat: tarragona.Lat + 0.45, Lng: tarragona.Lng}
		assert.InDelta(t, 50000, Distance(tarragona, far), 100)
	})
}

func TestCoordinateValidate(t *testing.T) {
	valid := []Coordinate{
		{Lat: 0, Lng: 0},
		{Lat: 90, Lng: 180},
		{Lat: -90, Lng: -180},
		{Lat: 41.1189, Lng: 1.2445},
	}
	for _, c := range valid {
		assert.NoError(t, c.Validate(), c.String())
	}

	invalid := []Coordinate{
		{Lat: 90.0001, Lng: 0},
		{Lat: 0, Lng: -180.5},
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.Inf(1)},
	}
	for _, c := range invalid {
		err := c.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidCoordinate))
	}
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Coordinate
	}{
		{"comma", "41.1189,1.2445", Coordinate{Lat: 41.1189, Lng: 1.2445}},
		{"comma and space", "  41.1189, 1.2445 ", Coordinate{Lat: 41.1189, Lng: 1.2445}},
		{"space", "41.1189 1.2445", Coordinate{Lat: 41.1189, Lng: 1.2445}},
		{"semicolon", "41.1189; 1.2445", Coordinate{Lat: 41.1189, Lng: 1.2445}},
		{"brackets", "[41.1189, 1.2445]", Coordinate{Lat: 41.1189, Lng: 1.2445}},
		{"negative", "-33.8688,151.2093", Coordinate{Lat: -33.8688, Lng: 151.2093}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoordinate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCoordinateRejects(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"Tarragona",
		"41.1189",
		"41.1189, 1.2445, 3",
		"abc, 1.2",
		"41.1, east",
		"91, 0",
		"0, 181",
		"NaN, 0",
	}

	for _, input := range inputs {
		_, err := ParseCoordinate(input)
		require.Error(t, err, input)
		assert.True(t, errors.Is(err, ErrInvalidDestinationInput), input)
	}
}
