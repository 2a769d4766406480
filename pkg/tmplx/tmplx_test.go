package tmplx

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, text string, data any) string {
	t.Helper()
	tmpl, err := Parse("", text)
	require.NoError(t, err)
	out, err := tmpl.RenderString(data)
	require.NoError(t, err)
	return out
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("with validation", func(t *testing.T) {
		testData := map[string]string{"name": "test"}
		validateFn := func(buf *bytes.Buffer) error {
			if buf.String() != "test" {
				return fmt.Errorf("expected 'test', got '%s'", buf.String())
			}
			return nil
		}

		tmpl, err := Parse("test", `{{.name}}`, WithValidate(testData, validateFn))
		require.NoError(t, err)

		buf, err := tmpl.Render(testData)
		require.NoError(t, err)
		assert.Equal(t, "test", buf.String())
	})

	t.Run("failed validation", func(t *testing.T) {
		validateFn := func(buf *bytes.Buffer) error {
			if !strings.Contains(buf.String(), "john") {
				return fmt.Errorf("expected name 'john' in output")
			}
			return nil
		}

		_, err := Parse("test", `Name: {{.name}}`, WithValidate(map[string]any{"name": "x"}, validateFn))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected name 'john' in output")
	})

}

func TestCustomFunctions(t *testing.T) {
	t.Parallel()

	t.Run("money function", func(t *testing.T) {
		assert.Equal(t, "$19.99", render(t, `{{money .v}}`, map[string]any{"v": "19.99"}))
		assert.Equal(t, "$5.00", render(t, `{{money .v}}`, map[string]any{"v": 5}))
		assert.Equal(t, "$N/A", render(t, `{{money .v}}`, map[string]any{"v": "N/A"}))
		assert.Equal(t, "$N/A", render(t, `{{money .v}}`, map[string]any{"v": ""}))
		assert.Equal(t, "$N/A", render(t, `{{money .v}}`, map[string]any{"v": "  "}))
		assert.Equal(t, "$N/A", render(t, `{{money .v}}`, map[string]any{}))
	})

	t.Run("yesno function", func(t *testing.T) {
		assert.Equal(t, "Yes No", render(t, `{{yesno .a}} {{yesno .b}}`, map[string]any{"a": true, "b": false}))
	})

	t.Run("rule function", func(t *testing.T) {
		assert.Equal(t, "=====", render(t, `{{rule "=" 5}}`, nil))
		assert.Equal(t, "", render(t, `{{rule "=" 0}}`, nil))
	})

	t.Run("plural function", func(t *testing.T) {
		assert.Equal(t, "1 deal", render(t, `{{.n}} {{plural .n "deal" "deals"}}`, map[string]any{"n": 1}))
		assert.Equal(t, "3 deals", render(t, `{{.n}} {{plural .n "deal" "deals"}}`, map[string]any{"n": 3}))
	})

}

func TestTemplateErrors(t *testing.T) {
	t.Parallel()

	t.Run("invalid template syntax", func(t *testing.T) {
		_, err := Parse("test", `Hello {{.name`)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrParseTemplate)
	})

	t.Run("invalid function", func(t *testing.T) {
		_, err := Parse("test", `Hello {{.name | invalidFunc}}`)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrParseTemplate)
	})

	t.Run("render error", func(t *testing.T) {
		tmpl, err := Parse("test", `{{.Missing.Field}}`)
		require.NoError(t, err)
		_, err = tmpl.Render(struct{ Missing *struct{ Field string } }{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRenderTemplate)
	})

	t.Run("missing key renders zero", func(t *testing.T) {
		assert.Equal(t, "Hello ", render(t, `Hello {{.name}}`, map[string]string{}))
	})
}
