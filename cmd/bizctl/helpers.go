package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/app"
	"github.com/JonMunkholm/bizdash/internal/entity"
	"github.com/JonMunkholm/bizdash/internal/store"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

// entity resolves an entity key, listing the valid keys on a miss.
func (c *cli) entity(key string) (app.Entity, error) {
	if e, ok := c.services.Entity(key); ok {
		return e, nil
	}
	keys := make([]string, 0, entity.Count())
	for _, info := range entity.All() {
		keys = append(keys, info.Key)
	}
	return nil, fmt.Errorf("unknown entity %q (valid: %s)", key, strings.Join(keys, ", "))
}

// parsePairs turns key=value arguments into a map.
func parsePairs(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid argument %q (expected key=value)", arg)
		}
		out[k] = v
	}
	return out, nil
}

// checkFields rejects keys that are not form fields of e.
func checkFields(e app.Entity, values map[string]string) error {
	known := make(map[string]bool)
	var names []string
	for _, f := range e.Fields() {
		known[f.Name] = true
		names = append(names, f.Name)
	}
	for k := range values {
		if !known[k] {
			return fmt.Errorf("unknown field %q for %s (valid: %s)", k, e.Info().Key, strings.Join(names, ", "))
		}
	}
	return nil
}

// saveError describes a failed save with one line per field error.
func saveError(res app.SaveResult, err error) error {
	var ve *store.ValidationError
	if !errors.Is(err, app.ErrInvalid) && !errors.As(err, &ve) {
		return describe(err)
	}

	var b strings.Builder
	switch {
	case res.Banner != "":
		b.WriteString(res.Banner)
	default:
		b.WriteString("The form has errors.")
	}
	writeFieldErrors(&b, res.Errors)
	return errors.New(b.String())
}

func writeFieldErrors(b *strings.Builder, errs validate.Errors) {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(b, "\n  %s: %s", name, errs[name])
	}
}

// describe prefers the server's message for API failures.
func describe(err error) error {
	if apiErr, ok := api.AsError(err); ok && apiErr.Message != "" {
		return errors.New(apiErr.Message)
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
