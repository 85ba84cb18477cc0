package gen

import (
	"go/token"

	"github.com/kassett/relgraph/graph"
)

// DefaultHeader is the header comment of generated files.
const DefaultHeader = "Code generated by relgraph. DO NOT EDIT."

// Config holds the code generation configuration.
type Config struct {
	// Package is the name of the generated package. Defaults to "paths".
	Package string
	// Header is the comment written at the top of the generated file.
	Header string
	// VarPrefix prefixes the generated path variables. Defaults to "Path".
	VarPrefix string
	// PathOptions restrict the generated paths, e.g. graph.SingularOnly.
	PathOptions []graph.PathOption
}

// Option configures code generation.
type Option func(*Config) error

// WithPackage sets the name of the generated package.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(pkg) {
			return NewConfigError("Package", pkg, "package must be a valid Go identifier")
		}
		c.Package = pkg
		return nil
	}
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithVarPrefix sets the prefix of the generated path variables.
func WithVarPrefix(prefix string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(prefix) || !token.IsExported(prefix) {
			return NewConfigError("VarPrefix", prefix, "prefix must be an exported Go identifier")
		}
		c.VarPrefix = prefix
		return nil
	}
}

// WithPathOptions sets the options used to resolve the generated paths.
func WithPathOptions(opts ...graph.PathOption) Option {
	return func(c *Config) error {
		c.PathOptions = append(c.PathOptions, opts...)
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Package:   "paths",
		Header:    DefaultHeader,
		VarPrefix: "Path",
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}
