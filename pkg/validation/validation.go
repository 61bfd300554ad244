// Package validation builds the shared request validator with English messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once       sync.Once
	shared     *validator.Validate
	translator ut.Translator
)

// New returns the shared validator. It reports fields by their json names
// and carries the English translations for every built-in tag. Translations
// are bound to one translator per validator, so the instance is built once.
func New() *validator.Validate {
	once.Do(func() {
		english := en.New()
		translator, _ = ut.New(english, english).GetTranslator("en")

		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			if name == "-" {
				return ""
			}
			return name
		})
		if err := enTranslations.RegisterDefaultTranslations(v, translator); err != nil {
			panic(fmt.Sprintf("validation: register english translations: %v", err))
		}
		shared = v
	})
	return shared
}

// Messages maps each failing field to a readable message.
func Messages(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	New()
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(translator)
	}
	return out
}

// Describe flattens Messages into one sentence, falling back to err's own text.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	messages := Messages(err)
	if len(messages) == 0 {
		return err.Error()
	}
	fields := make([]string, 0, len(messages))
	for field := range messages {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, messages[field])
	}
	return strings.Join(parts, "; ")
}
