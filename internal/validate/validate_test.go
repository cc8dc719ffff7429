package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_WellFormedCSV(t *testing.T) {
	v := NewCSVValidator(Schema{}, "")
	res := v.Validate([]byte("id,name\n1,alpha\n2,beta\n"))

	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Info, 1)
	assert.Equal(t, "csv read successfully: 2 data rows", res.Info[0])
}

func TestValidate_EmptyContentIsError(t *testing.T) {
	v := NewCSVValidator(Schema{}, "")

	for _, content := range []string{"", "   ", "\n\n\t"} {
		res := v.Validate([]byte(content))
		require.Len(t, res.Errors, 1, "content %q", content)
		assert.Equal(t, "csv content is empty", res.Errors[0])
		assert.Empty(t, res.Info)
	}
}

func TestValidate_MissingRequiredColumns(t *testing.T) {
	v := NewCSVValidator(Schema{RequiredColumns: []string{"id", "amount", "currency"}}, "")
	res := v.Validate([]byte("id,name\n1,alpha\n"))

	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors, "missing required column: amount")
	assert.Contains(t, res.Errors, "missing required column: currency")
	assert.Empty(t, res.Info, "a file with errors reports no success info")
}

func TestValidate_HeaderWhitespaceIsTrimmed(t *testing.T) {
	v := NewCSVValidator(Schema{RequiredColumns: []string{"id", "name"}}, "")
	res := v.Validate([]byte(" id , name \n1,alpha\n"))

	assert.Empty(t, res.Errors)
}

func TestValidate_RaggedRowsReportedPerLine(t *testing.T) {
	v := NewCSVValidator(Schema{}, "")
	res := v.Validate([]byte("id,name\n1,alpha\n2,beta,extra\n3\n4,delta\n"))

	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "line 3")
	assert.Contains(t, res.Errors[1], "line 4")
	// Well-formed rows after a bad one are still counted.
	assert.Empty(t, res.Info)
}

func TestValidate_HeaderOnlyIsWarning(t *testing.T) {
	v := NewCSVValidator(Schema{}, "")
	res := v.Validate([]byte("id,name\n"))

	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "csv has a header but no data rows", res.Warnings[0])
	require.Len(t, res.Info, 1)
	assert.Equal(t, "csv read successfully: 0 data rows", res.Info[0])
}

func TestValidate_SemicolonDialect(t *testing.T) {
	v := NewCSVValidator(Schema{RequiredColumns: []string{"id", "name"}}, ";")
	res := v.Validate([]byte("id;name\n1;alpha\n"))

	assert.Empty(t, res.Errors)
	require.Len(t, res.Info, 1)
	assert.Equal(t, "csv read successfully: 1 data rows", res.Info[0])
}

func TestNewCSVValidator_DefaultsToComma(t *testing.T) {
	v := NewCSVValidator(Schema{}, "")
	assert.Equal(t, ',', v.Comma)
}
