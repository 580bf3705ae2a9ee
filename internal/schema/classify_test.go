package schema_test

import (
	"testing"

	"dqc/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := map[string]schema.Class{
		"integer":                     schema.Numeric,
		"INT(11) UNSIGNED":            schema.Numeric,
		"numeric(10,2)":               schema.Numeric,
		"double precision":            schema.Numeric,
		"NUMBER":                      schema.Numeric,
		"BINARY_DOUBLE":               schema.Numeric,
		"timestamp without time zone": schema.DateTime,
		"TIMESTAMP(6) WITH TIME ZONE": schema.DateTime,
		"datetime2":                   schema.DateTime,
		"date":                        schema.DateTime,
		"character varying":           schema.Text,
		"varchar(255)":                schema.Text,
		"NVARCHAR2":                   schema.Text,
		"enum('a','b')":               schema.Text,
		"jsonb":                       schema.Other,
		"bytea":                       schema.Other,
		"boolean":                     schema.Other,
		"_int4":                       schema.Other,
		"integer[]":                   schema.Other,
		"":                            schema.Other,
	}
	for in, want := range cases {
		assert.Equal(t, want, schema.Classify(in), in)
	}
}

func TestClassify_TotalAndDeterministic(t *testing.T) {
	faker := gofakeit.New(7)
	for i := 0; i < 500; i++ {
		typ := faker.LetterN(uint(faker.Number(0, 12)))
		if i%3 == 0 {
			typ += "(" + faker.Numerify("##") + ")"
		}
		first := schema.Classify(typ)
		assert.Contains(t, []schema.Class{schema.Numeric, schema.DateTime, schema.Text, schema.Other}, first, typ)
		assert.Equal(t, first, schema.Classify(typ), typ)
	}
}

func TestClassSet(t *testing.T) {
	s := schema.ClassSetOf(schema.Numeric, schema.Text)
	assert.True(t, s.Has(schema.Numeric))
	assert.True(t, s.Has(schema.Text))
	assert.False(t, s.Has(schema.DateTime))
	assert.True(t, schema.AllClasses.Has(schema.Other))
}
