package uid

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Generator 生成字符串 id，执行器用它标记一次执行的日志和 span
type Generator interface {
	Generate() string
}

type UUIDOptions struct {
	// uuid 版本：v1, v4, v6, v7。v7 按时间有序，便于按 id 排查日志
	Version string `cfg:"version" def:"v7" validate:"omitempty,oneof=v1 v4 v6 v7"`

	// 是否包含连字符
	WithHyphens bool `cfg:"withHyphens"`
}

type UUIDGenerator struct {
	version     string
	withHyphens bool
}

func NewUUIDGeneratorWithOptions(options *UUIDOptions) (*UUIDGenerator, error) {
	if options == nil {
		options = &UUIDOptions{}
	}
	version := options.Version
	switch version {
	case "":
		version = "v7"
	case "v1", "v4", "v6", "v7":
	default:
		return nil, errors.Errorf("unsupported uuid version [%s]", options.Version)
	}
	return &UUIDGenerator{version: version, withHyphens: options.WithHyphens}, nil
}

func (g *UUIDGenerator) Generate() string {
	var u uuid.UUID
	var err error
	switch g.version {
	case "v1":
		u, err = uuid.NewUUID()
	case "v6":
		u, err = uuid.NewV6()
	case "v7":
		u, err = uuid.NewV7()
	default:
		u = uuid.New()
	}
	if err != nil {
		u = uuid.New()
	}

	if g.withHyphens {
		return u.String()
	}
	return hex.EncodeToString(u[:])
}
