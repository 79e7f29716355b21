// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"errors"
	"maps"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-playground/form/v4"
)

// MaxBodyBytes caps every request body the handlers decode
const MaxBodyBytes = 1 << 20

var formDecoder = form.NewDecoder()

// ParseBody decodes a JSON or form-encoded body into v. Form fields are
// matched by the struct's form tags; slices also accept "name[]".
func ParseBody(r *http.Request, v interface{}) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return parseForm(r, v)
	}
	return ParseJSONBody(r, v)
}

func parseForm(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	if err := r.ParseMultipartForm(MaxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return formDecoder.Decode(v, foldArrayKeys(r.PostForm))
}

// foldArrayKeys merges "name[]" into "name". Keys are visited in sorted
// order so plain values come before bracketed ones.
func foldArrayKeys(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for _, k := range slices.Sorted(maps.Keys(values)) {
		name := strings.TrimSuffix(k, "[]")
		out[name] = append(out[name], values[k]...)
	}
	return out
}
