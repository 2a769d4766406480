// Package tmplx wraps text/template with the helper funcs used by plain-text notifications.
package tmplx

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/spf13/cast"
)

var (
	ErrRenderTemplate = errors.New("tmplx: render error")
	ErrParseTemplate  = errors.New("tmplx: parse error")
)

type Template struct {
	tmpl *template.Template
}

type Options struct {
	validate ValidateFunc
	testData any
	funcs    template.FuncMap
}

type Option func(*Options) error

type ValidateFunc func(*bytes.Buffer) error

// defaultFuncs returns the default template functions
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"money":  moneyFunc,
		"yesno":  yesNoFunc,
		"rule":   ruleFunc,
		"plural": pluralFunc,
	}
}

// WithValidate renders testData once at parse time and checks the output.
func WithValidate(testData any, validateFn ValidateFunc) Option {
	return func(t *Options) error {
		t.validate = validateFn
		t.testData = testData
		return nil
	}
}

// Parse creates a new Template with the given name and text, applying any options
func Parse(name string, text string, args ...Option) (*Template, error) {
	opts := &Options{
		funcs: defaultFuncs(),
	}
	for _, arg := range args {
		if err := arg(opts); err != nil {
			return nil, err
		}
	}

	tmpl, err := template.New(name).
		Option("missingkey=zero").
		Funcs(opts.funcs).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseTemplate, err)
	}

	t := &Template{
		tmpl: tmpl,
	}
	if opts.validate != nil {
		if err := t.validate(opts.testData, opts.validate); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *Template) validate(data any, validate ValidateFunc) error {
	buf := new(bytes.Buffer)
	if err := t.tmpl.Execute(buf, data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	if err := validate(buf); err != nil {
		return fmt.Errorf("validate template: %w", err)
	}
	return nil
}

func (t *Template) Render(data any) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	if err := t.tmpl.Execute(buf, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderTemplate, err)
	}
	return buf, nil
}

// RenderString renders and returns the output as a string.
func (t *Template) RenderString(data any) (string, error) {
	buf, err := t.Render(data)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// moneyFunc renders numeric values as $12.30 and passes anything else through
// with a dollar prefix, so provider sentinels like "N/A" stay readable.
func moneyFunc(value any) string {
	s := strings.TrimSpace(cast.ToString(value))
	if s == "" {
		return "$N/A"
	}
	if f, err := cast.ToFloat64E(value); err == nil {
		return fmt.Sprintf("$%.2f", f)
	}
	return "$" + strings.TrimPrefix(s, "$")
}

func yesNoFunc(value any) string {
	if cast.ToBool(value) {
		return "Yes"
	}
	return "No"
}

func ruleFunc(char string, width int) string {
	if width <= 0 {
		return ""
	}
	return strings.Repeat(char, width)
}

func pluralFunc(n any, singular, plural string) string {
	if cast.ToInt(n) == 1 {
		return singular
	}
	return plural
}
