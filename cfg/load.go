package cfg

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// Load 读取配置文件并绑定到 object：按扩展名解码、绑定、填充默认值、校验
func Load(filename string, object any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "read config [%s] failed", filename)
	}
	return Unmarshal(data, FormatOf(filename), object)
}

func Unmarshal(data []byte, format string, object any) error {
	tree, err := Decode(data, format)
	if err != nil {
		return err
	}
	if err := Bind(tree, object); err != nil {
		return errors.WithMessage(err, "bind config failed")
	}
	if err := SetDefaults(object); err != nil {
		return errors.WithMessage(err, "set defaults failed")
	}
	return Validate(object)
}

// Validate 校验 validate tag，nil 指针直接通过
func Validate(object any) error {
	if object == nil {
		return nil
	}
	if err := validate.Struct(object); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return errors.Wrap(err, "validate config failed")
	}
	return nil
}
