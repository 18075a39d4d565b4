package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
)

const (
	maxBodyBytes      = 1 << 20
	msgInvalidBody    = "リクエストの形式が正しくありません"
	msgValidationFail = "入力内容に誤りがあります"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// DecodeJSONBody decodes a single JSON object into dest, rejecting unknown
// fields, then runs struct validation.
func DecodeJSONBody(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, msgInvalidBody).WithDetails(map[string]any{"error": err.Error()})
	}
	return Struct(dest)
}

// Struct validates an already-populated value.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, msgValidationFail).WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, msgValidationFail)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必須項目です"
	case "min":
		return fmt.Sprintf("%s以上で入力してください", fe.Param())
	case "max":
		return fmt.Sprintf("%s以下で入力してください", fe.Param())
	case "email":
		return "メールアドレスの形式が正しくありません"
	case "datetime":
		return "日付はYYYY-MM-DD形式で入力してください"
	case "oneof":
		return fmt.Sprintf("%sのいずれかを指定してください", fe.Param())
	case "uuid", "uuid4":
		return "IDの形式が正しくありません"
	}
	return "値が正しくありません"
}
