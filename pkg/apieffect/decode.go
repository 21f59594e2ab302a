package apieffect

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Decode converts untyped success data into T using its json tags.
func Decode[T any](data any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return out, fmt.Errorf("decode response data: %w", err)
	}
	return out, nil
}
