package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONRoundTrip(t *testing.T) {
	v := Map(map[string]Value{
		"name": String("Alice"),
		"age":  Int(30),
		"tags": List([]Value{String("a"), String("b")}),
	})
	encoded := ToJSON(v)
	decoded, err := ValueFromJSON([]byte(encoded))
	require.NoError(t, err)
	require.True(t, v.Equal(decoded))
}

func TestJSONNodeReference(t *testing.T) {
	require.Equal(t, `{"_type":"node","_id":7}`, ToJSON(NodeRef(7)))
}

func TestLabelsRoundTrip(t *testing.T) {
	encoded := LabelsToJSON([]string{"Person", "Employee"})
	decoded, err := LabelsFromJSON([]byte(encoded))
	require.NoError(t, err)
	require.Equal(t, []string{"Person", "Employee"}, decoded)
}

func TestPropertiesFromJSONRejectsNonObject(t *testing.T) {
	_, err := PropertiesFromJSON([]byte(`[1,2,3]`))
	require.Error(t, err)
}
