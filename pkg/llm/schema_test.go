package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type SimplePerson struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type stateDateParams struct {
	State string `json:"state" required:"true" description:"Two-letter state code"`
	Date  string `json:"date" required:"true" description:"Date in M/D/YYYY format"`
	Note  string `json:"note,omitempty"`
}

func TestSchemaFromStruct(t *testing.T) {
	tests := []struct {
		name       string
		structType interface{}
	}{
		{name: "simple struct", structType: SimplePerson{}},
		{name: "pointer to struct", structType: &SimplePerson{}},
		{name: "required fields", structType: stateDateParams{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := SchemaFromStruct(tt.structType)
			require.NoError(t, err)
			assert.NotNil(t, schema)
		})
	}
}

func TestSchemaFromStructAsMap(t *testing.T) {
	t.Run("simple person struct", func(t *testing.T) {
		schema, err := SchemaFromStructAsMap(SimplePerson{})
		require.NoError(t, err)
		assert.Equal(t, "object", schema["type"])

		properties := SchemaProperties(schema)
		nameField, ok := properties["name"].(map[string]interface{})
		require.True(t, ok, "name field should exist")
		assert.Equal(t, "string", nameField["type"])

		ageField, ok := properties["age"].(map[string]interface{})
		require.True(t, ok, "age field should exist")
		assert.Equal(t, "integer", ageField["type"])

		assert.Empty(t, SchemaRequired(schema))
	})

	t.Run("required and described fields", func(t *testing.T) {
		schema, err := SchemaFromStructAsMap(stateDateParams{})
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{"state", "date"}, SchemaRequired(schema))

		stateField, ok := SchemaProperties(schema)["state"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Two-letter state code", stateField["description"])
	})
}
