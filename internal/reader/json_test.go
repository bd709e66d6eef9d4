package reader

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
		D FlexString `json:"d"`
		E FlexString `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a":"text","b":12345,"c":true,"d":null,"e":{"x":1}}`), &v)
	require.NoError(t, err)
	assert.Equal(t, "text", v.A.String())
	assert.Equal(t, "12345", v.B.String())
	assert.Equal(t, "true", v.C.String())
	assert.Empty(t, v.D)
	assert.Empty(t, v.E)
}

func TestUnixTime(t *testing.T) {
	var v struct {
		N UnixTime `json:"n"`
		S UnixTime `json:"s"`
		Z UnixTime `json:"z"`
	}
	err := json.Unmarshal([]byte(`{"n":1700000000,"s":"1700000001","z":null}`), &v)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), v.N.Time)
	assert.Equal(t, time.Unix(1700000001, 0).UTC(), v.S.Time)
	assert.True(t, v.Z.IsZero())

	var bad struct {
		T UnixTime `json:"t"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"t":"yesterday"}`), &bad))
}

func TestUnixMilliTime(t *testing.T) {
	var v struct {
		N UnixMilliTime `json:"n"`
		S UnixMilliTime `json:"s"`
		Z UnixMilliTime `json:"z"`
	}
	err := json.Unmarshal([]byte(`{"n":1700000000123,"s":"1700000000000","z":null}`), &v)
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), v.N.Time)
	assert.Equal(t, 2023, v.N.Year())
	assert.Equal(t, 2023, v.S.Year())
	assert.True(t, v.Z.IsZero())

	var bad struct {
		T UnixMilliTime `json:"t"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"t":"soon"}`), &bad))
}
