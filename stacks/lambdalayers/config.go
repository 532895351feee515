package lambdalayers

import (
	"errors"
	"regexp"

	"github.com/picklr-io/datastacks/internal/config"
)

type Config struct {
	LibBucket    string `context:"lambda_layer_lib_s3_bucket"`
	LibKey       string `context:"lambda_layer_lib_s3_key"`
	LayerName    string `context:"lambda_layer_name"`
	LayerModule  string `context:"lambda_layer_module"`
	FunctionName string `context:"lambda_function_name"`
	TimeoutSec   int    `context:"lambda_timeout"`
}

// DefaultConfig returns a requests layer.
func DefaultConfig() Config {
	return Config{
		LayerName:    "python-lib-layer",
		LayerModule:  "requests",
		FunctionName: "LambdaLayersFunction",
		TimeoutSec:   180,
	}
}

var moduleName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// Validate checks the library location.
func (c Config) Validate() error {
	var errs []error
	errs = append(errs,
		config.Required("lambda_layer_lib_s3_bucket", c.LibBucket),
		config.Required("lambda_layer_lib_s3_key", c.LibKey),
		config.Required("lambda_layer_name", c.LayerName),
		config.Required("lambda_function_name", c.FunctionName),
	)
	if !moduleName.MatchString(c.LayerModule) {
		errs = append(errs, errors.New(`context key "lambda_layer_module" must be a Python module name`))
	}
	if c.TimeoutSec < 1 || c.TimeoutSec > 900 {
		errs = append(errs, errors.New(`context key "lambda_timeout" must be between 1 and 900 seconds`))
	}
	return errors.Join(errs...)
}
