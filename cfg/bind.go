package cfg

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// Bind 把解析后的配置树绑定到结构体指针上，字段名取 cfg tag，匹配时忽略大小写
func Bind(src any, object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	return bindValue(src, rv.Elem(), "")
}

func fieldKey(field reflect.StructField) string {
	if tag := field.Tag.Get("cfg"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	return field.Name
}

func bindValue(src any, rv reflect.Value, path string) error {
	if src == nil {
		return nil
	}

	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return bindValue(src, rv.Elem(), path)
	}

	switch rv.Kind() {
	case reflect.Struct:
		if rv.Type() == timeType {
			break
		}
		m, ok := src.(map[string]any)
		if !ok {
			return errors.Errorf("field [%s] expect map, got %T", path, src)
		}
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() || field.Tag.Get("cfg") == "-" {
				continue
			}
			key := fieldKey(field)
			val, ok := lookup(m, key)
			if !ok {
				continue
			}
			if err := bindValue(val, rv.Field(i), join(path, key)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		m, ok := src.(map[string]any)
		if !ok {
			return errors.Errorf("field [%s] expect map, got %T", path, src)
		}
		if rv.IsNil() {
			rv.Set(reflect.MakeMapWithSize(rv.Type(), len(m)))
		}
		for k, v := range m {
			elem := reflect.New(rv.Type().Elem()).Elem()
			if err := bindValue(v, elem, join(path, k)); err != nil {
				return err
			}
			rv.SetMapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()), elem)
		}
		return nil
	case reflect.Slice:
		var items []any
		switch v := src.(type) {
		case []any:
			items = v
		case string:
			// ini 中的列表用逗号分隔
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					items = append(items, s)
				}
			}
		default:
			return errors.Errorf("field [%s] expect list, got %T", path, src)
		}
		slice := reflect.MakeSlice(rv.Type(), len(items), len(items))
		for i, item := range items {
			if err := bindValue(item, slice.Index(i), path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
		rv.Set(slice)
		return nil
	case reflect.Interface:
		rv.Set(reflect.ValueOf(src))
		return nil
	}

	if s, ok := src.(string); ok {
		return errors.WithMessagef(setString(rv, s), "field [%s]", path)
	}
	sv := reflect.ValueOf(src)
	switch {
	case rv.Type() == durationType && sv.CanInt():
		rv.SetInt(sv.Int())
	case sv.Type().ConvertibleTo(rv.Type()) && sv.Kind() != reflect.String && rv.Kind() != reflect.String:
		rv.Set(sv.Convert(rv.Type()))
	case rv.Kind() == reflect.String:
		rv.SetString(strings.TrimSpace(toString(src)))
	default:
		return errors.Errorf("field [%s] cannot assign %T to %s", path, src, rv.Type())
	}
	return nil
}

func toString(v any) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

func lookup(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// setString 从字符串设置标量字段，def tag 和 ini 取值共用
func setString(rv reflect.Value, s string) error {
	switch rv.Kind() {
	case reflect.String:
		rv.SetString(s)
	case reflect.Bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return errors.Wrapf(err, "invalid bool [%s]", s)
		}
		rv.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Type() == durationType {
			d, err := time.ParseDuration(s)
			if err != nil {
				return errors.Wrapf(err, "invalid duration [%s]", s)
			}
			rv.SetInt(int64(d))
			return nil
		}
		v, err := strconv.ParseInt(s, 0, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid int [%s]", s)
		}
		rv.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(s, 0, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid uint [%s]", s)
		}
		rv.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(s, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid float [%s]", s)
		}
		rv.SetFloat(v)
	case reflect.Slice:
		return bindValue(s, rv, "")
	case reflect.Struct:
		if rv.Type() == timeType {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return errors.Wrapf(err, "invalid time [%s]", s)
			}
			rv.Set(reflect.ValueOf(t))
			return nil
		}
		fallthrough
	default:
		return errors.Errorf("unsupported type %s", rv.Type())
	}
	return nil
}

// SetDefaults 为零值字段设置 def tag 中的默认值，递归处理嵌套结构体
func SetDefaults(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fv := rv.Field(i)
		if !fv.CanSet() {
			continue
		}

		switch fv.Kind() {
		case reflect.Struct, reflect.Ptr:
			if err := setDefaults(fv); err != nil {
				return errors.WithMessagef(err, "field [%s]", field.Name)
			}
		case reflect.Slice:
			if fv.Type().Elem().Kind() == reflect.Struct {
				for j := 0; j < fv.Len(); j++ {
					if err := setDefaults(fv.Index(j)); err != nil {
						return errors.WithMessagef(err, "field [%s]", field.Name)
					}
				}
			}
		}

		def, ok := field.Tag.Lookup("def")
		if !ok || !fv.IsZero() {
			continue
		}
		if err := setString(fv, def); err != nil {
			return errors.WithMessagef(err, "default of field [%s]", field.Name)
		}
	}
	return nil
}
