package generation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRequest はフォーム入力が不足・不正な場合のエラー。
	ErrInvalidRequest = errors.New("invalid generation request")
	// ErrUnsupportedModel はカタログに無いモデルが指定された場合のエラー。
	ErrUnsupportedModel = errors.New("unsupported model")
	// ErrGenerationFailed は生成バックエンドへの呼び出しが失敗した場合のエラー。
	ErrGenerationFailed = errors.New("generation failed")
	// ErrMalformedResponse は応答がJSONとして解釈できない場合のエラー。
	ErrMalformedResponse = errors.New("malformed generation response")
	// ErrSchemaViolation は応答が宣言したスキーマに適合しない場合のエラー。
	ErrSchemaViolation = errors.New("generation response violates schema")
	// ErrInvalidImage は添付画像をデコード・取得できない場合のエラー。
	ErrInvalidImage = errors.New("invalid source image")
)

// Violation はスキーマ違反の1件を表す。
type Violation struct {
	Path   string // 例: "modules[0].resources[1].type"
	Reason string
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Reason
	}
	return v.Path + ": " + v.Reason
}

// SchemaError はスキーマ検証で見つかった違反の一覧。
// errors.Is(err, ErrSchemaViolation) で判定できる。
type SchemaError struct {
	Violations []Violation
}

func (e *SchemaError) Error() string {
	if len(e.Violations) == 0 {
		return ErrSchemaViolation.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: %s", ErrSchemaViolation, strings.Join(parts, "; "))
}

// Unwrap はErrSchemaViolationを返す。
func (e *SchemaError) Unwrap() error {
	return ErrSchemaViolation
}
