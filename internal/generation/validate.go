package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"google.golang.org/genai"

	"github.com/hitoshi/edumap/internal/model"
)

// maxViolations は1回の検証で報告する違反の上限。
const maxViolations = 20

// Parse は生成モデルの応答テキストをスキーマで検証し、Curriculumに変換する。
// JSONとして解釈できない場合はErrMalformedResponse、
// スキーマに適合しない場合は*SchemaErrorを返す。
func Parse(text string) (*model.Curriculum, error) {
	raw := []byte(stripCodeFence(text))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON document", ErrMalformedResponse)
	}

	if violations := Validate(ResponseSchema(), doc); len(violations) > 0 {
		return nil, &SchemaError{Violations: violations}
	}

	var c model.Curriculum
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &c, nil
}

// stripCodeFence はMarkdownのコードブロックで囲まれた応答から中身を取り出す。
func stripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// Validate はJSONから復元した値がスキーマに適合するかを検証し、違反の一覧を返す。
// 数値はjson.Numberまたはfloat64を受け付ける。スキーマに無いプロパティは無視する。
func Validate(schema *genai.Schema, value any) []Violation {
	v := &validator{}
	v.check(schema, value, "")
	return v.violations
}

type validator struct {
	violations []Violation
}

func (v *validator) add(path, format string, args ...any) {
	if len(v.violations) >= maxViolations {
		return
	}
	v.violations = append(v.violations, Violation{Path: path, Reason: fmt.Sprintf(format, args...)})
}

func (v *validator) check(schema *genai.Schema, value any, path string) {
	if schema == nil {
		return
	}
	if value == nil {
		v.add(path, "must not be null")
		return
	}

	switch schema.Type {
	case genai.TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			v.add(path, "expected object")
			return
		}
		for _, name := range schema.Required {
			if fv, present := obj[name]; !present || fv == nil {
				v.add(join(path, name), "required field missing")
			}
		}
		names := make([]string, 0, len(schema.Properties))
		for name := range schema.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			// 任意フィールドのnullは未指定として扱う
			if fv, present := obj[name]; present && fv != nil {
				v.check(schema.Properties[name], fv, join(path, name))
			}
		}

	case genai.TypeArray:
		arr, ok := value.([]any)
		if !ok {
			v.add(path, "expected array")
			return
		}
		if schema.MinItems != nil && int64(len(arr)) < *schema.MinItems {
			v.add(path, "expected at least %d items, got %d", *schema.MinItems, len(arr))
		}
		if schema.MaxItems != nil && int64(len(arr)) > *schema.MaxItems {
			v.add(path, "expected at most %d items, got %d", *schema.MaxItems, len(arr))
		}
		for i, item := range arr {
			v.check(schema.Items, item, fmt.Sprintf("%s[%d]", path, i))
		}

	case genai.TypeString:
		s, ok := value.(string)
		if !ok {
			v.add(path, "expected string")
			return
		}
		if len(schema.Enum) > 0 && !slices.Contains(schema.Enum, s) {
			v.add(path, "%q is not one of %s", s, strings.Join(schema.Enum, ", "))
		}

	case genai.TypeNumber, genai.TypeInteger:
		n, ok := number(value)
		if !ok {
			v.add(path, "expected number")
			return
		}
		if schema.Minimum != nil && n < *schema.Minimum {
			v.add(path, "%g is below minimum %g", n, *schema.Minimum)
		}
		if schema.Maximum != nil && n > *schema.Maximum {
			v.add(path, "%g is above maximum %g", n, *schema.Maximum)
		}

	case genai.TypeBoolean:
		if _, ok := value.(bool); !ok {
			v.add(path, "expected boolean")
		}
	}
}

func number(value any) (float64, bool) {
	switch n := value.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	}
	return 0, false
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
