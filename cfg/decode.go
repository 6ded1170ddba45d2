package cfg

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Decode 按格式把配置内容解析为 map，format 为 yaml、json、toml、ini 之一
func Decode(data []byte, format string) (map[string]any, error) {
	result := map[string]any{}
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &result); err != nil {
			return nil, errors.Wrap(err, "yaml decode failed")
		}
	case "json":
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, errors.Wrap(err, "json decode failed")
		}
	case "toml":
		if err := toml.Unmarshal(data, &result); err != nil {
			return nil, errors.Wrap(err, "toml decode failed")
		}
	case "ini":
		return decodeINI(data)
	default:
		return nil, errors.Errorf("unsupported config format [%s]", format)
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}

// FormatOf 根据扩展名判断配置格式
func FormatOf(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// decodeINI section 名中的 . 表示嵌套，如 [rdb.executor]
func decodeINI(data []byte) (map[string]any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "ini decode failed")
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		target := result
		if name := section.Name(); name != ini.DefaultSection {
			for _, part := range strings.Split(name, ".") {
				next, ok := target[part].(map[string]any)
				if !ok {
					next = map[string]any{}
					target[part] = next
				}
				target = next
			}
		}
		for _, key := range section.Keys() {
			target[key.Name()] = key.Value()
		}
	}
	return result, nil
}
