package config

import (
	"fmt"
	"os"
)

// Environment is the deployment target of every stack in an app.
type Environment struct {
	Account string
	Region  string
}

// EnvironmentFromEnv reads CDK_DEFAULT_ACCOUNT and CDK_DEFAULT_REGION.
// A nil getenv uses os.Getenv.
func EnvironmentFromEnv(getenv func(string) string) Environment {
	if getenv == nil {
		getenv = os.Getenv
	}
	return Environment{
		Account: getenv(AccountEnvVar),
		Region:  getenv(RegionEnvVar),
	}
}

// Complete reports whether both account and region are known. Context
// lookups (VPC, security group by name) need a complete environment.
func (e Environment) Complete() bool {
	return e.Account != "" && e.Region != ""
}

// RequireComplete returns an error describing what is missing.
func (e Environment) RequireComplete() error {
	if e.Complete() {
		return nil
	}
	return fmt.Errorf("stack environment is incomplete (account=%q region=%q); set %s and %s",
		e.Account, e.Region, AccountEnvVar, RegionEnvVar)
}

func (e Environment) String() string {
	account, region := e.Account, e.Region
	if account == "" {
		account = "unknown-account"
	}
	if region == "" {
		region = "unknown-region"
	}
	return fmt.Sprintf("aws://%s/%s", account, region)
}
