package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置格式。
type Format string

// 支持的格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 已加载的配置。
type Config struct {
	k      atomic.Pointer[koanf.Koanf]
	path   string
	format Format
	opts   *options
	// reloadMu 串行化 Reload，防止并发重载造成配置回退。
	reloadMu sync.Mutex
}

// New 从文件加载配置，格式由扩展名决定。空文件得到空配置。
func New(path string, opts ...Option) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	k, err := readFile(path, format, o)
	if err != nil {
		return nil, err
	}
	c := &Config{path: path, format: format, opts: o}
	c.k.Store(k)
	return c, nil
}

// NewFromBytes 从字节数据加载配置，需显式指定格式。空数据得到空配置。
func NewFromBytes(data []byte, format Format, opts ...Option) (*Config, error) {
	if !format.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	o := applyOptions(opts)
	k, err := parse(data, format, o)
	if err != nil {
		return nil, err
	}
	c := &Config{format: format, opts: o}
	c.k.Store(k)
	return c, nil
}

// Client 返回当前 koanf 实例。Reload 之后旧指针仍可用，但指向旧数据。
func (c *Config) Client() *koanf.Koanf {
	return c.k.Load()
}

// Unmarshal 将 path 处的配置反序列化到 target，path 为空表示整个配置。
func (c *Config) Unmarshal(path string, target any) error {
	err := c.k.Load().UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: c.opts.tag})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// Exists 报告 path 是否存在。
func (c *Config) Exists(path string) bool {
	return c.k.Load().Exists(path)
}

// Reload 重新读取文件。解析失败时保留当前配置并返回错误。
func (c *Config) Reload() error {
	if c.path == "" {
		return ErrNotReloadable
	}
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	k, err := readFile(c.path, c.format, c.opts)
	if err != nil {
		return err
	}
	c.k.Store(k)
	return nil
}

// Path 返回文件路径，从字节创建时为空。
func (c *Config) Path() string { return c.path }

// Format 返回配置格式。
func (c *Config) Format() Format { return c.format }

// Decode 以 defaults 为底，用 path 处的配置覆盖后返回。
func Decode[T any](c *Config, path string, defaults T) (T, error) {
	out := defaults
	if err := c.Unmarshal(path, &out); err != nil {
		return defaults, err
	}
	return out, nil
}

// DetectFormat 根据扩展名识别格式。
func DetectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}

func (f Format) valid() bool {
	return f == FormatYAML || f == FormatJSON
}

func (f Format) parser() koanf.Parser {
	if f == FormatJSON {
		return json.Parser()
	}
	return yaml.Parser()
}

func readFile(path string, format Format, o *options) (*koanf.Koanf, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return parse(data, format, o)
}

func parse(data []byte, format Format, o *options) (*koanf.Koanf, error) {
	k := koanf.New(o.delim)
	if len(data) == 0 {
		return k, nil
	}
	if err := k.Load(rawbytes.Provider(data), format.parser()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return k, nil
}
