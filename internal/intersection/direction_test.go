package intersection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    Direction
		wantErr bool
	}{
		{"N", North, false},
		{"s", South, false},
		{"West", West, false},
		{" east ", East, false},
		{"up", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDirection(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDirection)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "N", North.String())
	assert.Equal(t, "E", East.String())
	assert.Equal(t, "Direction(9)", Direction(9).String())
	assert.False(t, Direction(-1).Valid())
}

func TestDirections_FixedOrder(t *testing.T) {
	assert.Equal(t, [...]Direction{North, South, West, East}, Directions)
}

func TestParseMove(t *testing.T) {
	tests := []struct {
		input   string
		want    Move
		wantErr error
	}{
		{"S:W", Move{South, West}, nil},
		{"W->E", Move{West, East}, nil},
		{"north-south", Move{North, South}, nil},
		{"N:N", Move{North, North}, ErrSameDirection},
		{"N:X", Move{}, ErrInvalidDirection},
		{"NS", Move{}, ErrInvalidDirection},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMove(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMove_DecodesFromYAMLAndJSON(t *testing.T) {
	var fromYAML []Move
	require.NoError(t, yaml.Unmarshal([]byte("- from: S\n  to: west\n- from: n\n  to: E\n"), &fromYAML))
	assert.Equal(t, []Move{{South, West}, {North, East}}, fromYAML)

	data, err := json.Marshal(Move{West, East})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"W","to":"E"}`, string(data))

	var bad Move
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"from":"Q","to":"E"}`), &bad), ErrInvalidDirection)
}
