package types

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/cast"
)

var paramPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Data is the decoded parameter object of a node.
type Data map[string]any

// ReplaceParams substitutes ${name} by the value of params[name],
// unknown names are left untouched.
func ReplaceParams(text string, params map[string]string) string {
	if len(params) == 0 {
		return text
	}
	return paramPattern.ReplaceAllStringFunc(text, func(m string) string {
		name := strings.TrimSpace(m[2 : len(m)-1])
		if v, exists := params[name]; exists {
			return v
		}
		return m
	})
}

// ParseData decodes the parameter text of a node after substituting params.
// An empty text gives an empty Data.
func ParseData(text string, params map[string]string) (Data, error) {
	d := Data{}
	text = strings.TrimSpace(text)
	if text == "" {
		return d, nil
	}
	if err := json.Unmarshal([]byte(ReplaceParams(text, params)), &d); err != nil {
		return nil, errors.NewNotValid(err, "job parameter")
	}
	return d, nil
}

func (d *Data) Get(key string) (any, bool) {
	v, exists := (*d)[key]
	return v, exists
}

func (d *Data) GetString(key string) (string, bool) {
	v, exists := d.Get(key)
	return cast.ToString(v), exists
}

func (d *Data) GetInt(key string) (int, bool) {
	v, exists := d.Get(key)
	return cast.ToInt(v), exists
}

func (d *Data) GetBool(key string) (bool, bool) {
	v, exists := d.Get(key)
	return cast.ToBool(v), exists
}

func (d *Data) GetStringSlice(key string) ([]string, bool) {
	v, exists := d.Get(key)
	return cast.ToStringSlice(v), exists
}

// MustString returns a SpecError when key is missing or blank.
func (d *Data) MustString(key string) (string, error) {
	s, exists := d.GetString(key)
	if !exists || strings.TrimSpace(s) == "" {
		return "", NewSpecErrorf("parameter %q is required", key)
	}
	return s, nil
}

func (d *Data) GetStruct(key string, s any) error {
	v, exists := d.Get(key)
	if !exists {
		return errors.NotFound
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.New("marshal failed"))
	}
	return json.Unmarshal(b, s)
}

func (d *Data) Set(key string, value any) {
	(*d)[key] = value
}
